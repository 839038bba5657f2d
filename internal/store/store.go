package store

// Storage defines the interface for local persistence.
//
// The key-value side backs configuration and the durable saved-image
// records; the staging side holds copies of locally attached binaries so
// the original file can move or disappear without breaking a pending
// generation request.
type Storage interface {
	// Key-Value Management
	SetValue(key, value string) error
	Value(key string) (string, error)
	DeleteValue(key string) error

	// Staged Binary Management
	// StageAsset persists the content and returns the staged path.
	StageAsset(id string, content []byte) (string, error)
	ReadAsset(id string) ([]byte, error)
	RemoveAsset(id string) error

	Close() error
}
