package invoice

// Document is one invoice layout file found in the document directories.
// Name is the filename without extension and identifies the document in
// templates; the extension decides which renderer can handle it.
type Document struct {
	Name string
	Path string
	Ext  string
}

// Response is a rendered invoice document.
type Response struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Renderer turns a model plus a document layout into an output artifact.
// The first registered renderer whose Supports predicate returns true is
// chosen; rendering errors do not trigger a fallback to later renderers.
type Renderer interface {
	Supports(doc Document) bool
	Render(doc Document, m *Model) (*Response, error)
}
