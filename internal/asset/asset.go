package asset

import "strings"

// SourceKind discriminates where an asset's bytes come from.
type SourceKind string

const (
	SourceLocal     SourceKind = "local-binary"
	SourceRemote    SourceKind = "remote-url"
	SourceWorkspace SourceKind = "workspace-default"
)

// HintPrefix is the reserved namespace for image-reference hints that
// name a registry asset instead of carrying a URL. Everything outside
// this namespace is treated as a URL.
const HintPrefix = "asset:"

// Asset is an attachable input to generation.
//
// Handle is the fetchable reference: for SourceLocal it is the staged
// file path, never only a URL, since staged copies are removed on
// detach; for the other kinds it is a URL.
type Asset struct {
	ID     string
	Kind   SourceKind
	Handle string
	Name   string
	Size   int64
	MIME   string
}

// Hint returns the namespaced reference for this asset.
func (a Asset) Hint() string {
	return HintPrefix + a.ID
}

// ResolveDisplayURL maps a candidate image hint to a displayable
// location. It is a pure function of the hint, the owning asset set and
// the placeholder: asset-namespaced hints resolve through the set,
// anything else passes through as a URL, and unresolvable hints fall
// back to the placeholder.
func ResolveDisplayURL(hint string, assets []Asset, placeholder string) string {
	if hint == "" {
		return placeholder
	}
	if id, ok := strings.CutPrefix(hint, HintPrefix); ok {
		for _, a := range assets {
			if a.ID == id {
				return a.Handle
			}
		}
		return placeholder
	}
	return hint
}
