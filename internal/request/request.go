package request

// TemplateKind selects the creative format a generation request asks for.
type TemplateKind string

const (
	TemplatePost     TemplateKind = "post"
	TemplateCarousel TemplateKind = "carousel"
	TemplateStory    TemplateKind = "story"
)

// FilePart is a raw binary attached to a payload.
type FilePart struct {
	Field string
	Name  string
	MIME  string
	Data  []byte
}

// Payload is a transport-agnostic description of one generation request:
// named fields plus binary parts. Providers map it onto their own wire
// format; nothing in here assumes multipart, JSON or anything else.
type Payload struct {
	Fields map[string]string
	Files  []FilePart
}

// Field names shared by every provider mapping.
const (
	FieldPrompt      = "prompt"
	FieldTemplate    = "template"
	FieldAspectRatio = "aspect_ratio"
	FieldSessionID   = "session_id"
	FieldUserID      = "user_id"
	FieldWorkspaceID = "workspace_id"

	// The backend grew several spellings of "file reference" over time;
	// they are populated simultaneously and mean the same thing.
	FieldImageURL = "image_url"
	FieldFileURL  = "file_url"
	FieldMediaURL = "media_url"

	// FieldImageURLs carries the full reference list as a JSON array.
	FieldImageURLs = "image_urls"

	// FileFieldImage is the field name for attached binaries.
	FileFieldImage = "files"
)
