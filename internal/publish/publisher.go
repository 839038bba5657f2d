// Package publish turns selected candidates into saved, postable
// creatives and hands them to a social publisher.
package publish

import "context"

// Account is a connected social destination.
type Account struct {
	ID      string
	Name    string
	Network string
}

// Post is one ready-to-publish creative, already saved durably.
type Post struct {
	RecordID string
	ImageURL string
	Caption  string
	Tags     []string
}

// Publisher connects to a social backend. Implementations may live in
// process or behind a plugin boundary.
type Publisher interface {
	Name() string
	Accounts(ctx context.Context) ([]Account, error)
	Publish(ctx context.Context, accountID string, posts []Post) error
}
