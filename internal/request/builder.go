package request

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/atelier/internal/asset"
	"github.com/felixgeelhaar/atelier/internal/workspace"
)

// Builder converts a (prompt, template, aspect ratio, asset set,
// workspace context) tuple into a Payload, applying the asset-source
// priority policy deterministically.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build assembles the payload.
//
// Asset priority: explicitly supplied assets always win; with none, the
// workspace default logo is the fallback; with neither, the request goes
// out prompt-only. A missing fallback is not an error.
func (b *Builder) Build(prompt string, template TemplateKind, aspectRatio string, assets []asset.Asset, profile workspace.Profile, sessionID, userID string) Payload {
	p := Payload{
		Fields: map[string]string{
			FieldPrompt:      augmentPrompt(prompt, profile),
			FieldTemplate:    string(template),
			FieldAspectRatio: aspectRatio,
			FieldSessionID:   sessionID,
			FieldUserID:      userID,
			FieldWorkspaceID: profile.WorkspaceID,
		},
	}

	if len(assets) > 0 {
		b.attachAssets(&p, assets)
		return p
	}

	if profile.DefaultLogo != "" {
		b.attachFallbackLogo(&p, profile.DefaultLogo)
	}
	return p
}

func (b *Builder) attachAssets(p *Payload, assets []asset.Asset) {
	var urls []string
	for _, a := range assets {
		switch a.Kind {
		case asset.SourceLocal:
			// Local binaries go as raw parts: their staged handles are
			// revoked on detach, so a URL alone would not survive.
			data, err := os.ReadFile(a.Handle) // #nosec G304
			if err != nil {
				continue
			}
			p.Files = append(p.Files, FilePart{
				Field: FileFieldImage,
				Name:  a.Name,
				MIME:  a.MIME,
				Data:  data,
			})
		default:
			urls = append(urls, a.Handle)
		}
	}
	setURLFields(p, urls)
}

func (b *Builder) attachFallbackLogo(p *Payload, logo string) {
	if strings.HasPrefix(logo, "http://") || strings.HasPrefix(logo, "https://") {
		setURLFields(p, []string{logo})
		return
	}
	data, err := os.ReadFile(logo) // #nosec G304
	if err != nil {
		// Unreadable fallback degrades to a prompt-only request.
		return
	}
	p.Files = append(p.Files, FilePart{
		Field: FileFieldImage,
		Name:  filepath.Base(logo),
		Data:  data,
	})
}

// setURLFields populates every known spelling of the file-reference
// field with the primary URL, plus the full list as JSON.
func setURLFields(p *Payload, urls []string) {
	if len(urls) == 0 {
		return
	}
	p.Fields[FieldImageURL] = urls[0]
	p.Fields[FieldFileURL] = urls[0]
	p.Fields[FieldMediaURL] = urls[0]
	if list, err := json.Marshal(urls); err == nil {
		p.Fields[FieldImageURLs] = string(list)
	}
}

// augmentPrompt appends the serialized workspace snapshot to the user
// prompt. The context is never silently dropped: serialization failure
// degrades to the empty-context placeholder.
func augmentPrompt(prompt string, profile workspace.Profile) string {
	ctx := workspace.ContextJSON(profile)
	if ctx == "" {
		ctx = workspace.EmptyContext
	}
	return prompt + "\n\nBusiness context: " + ctx
}
