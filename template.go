package hbscontent

import "context"

// Template is a template source file discovered by a build.
type Template struct {
	// Path is slash-separated and relative to the source root.
	Path    string
	Content string
}

// Validate returns an error if the template contains invalid fields.
func (t *Template) Validate() error {
	if t.Path == "" {
		return Errorf(EINVALID, "template path required")
	}
	return nil
}

// TemplateSource discovers the templates a build should process.
type TemplateSource interface {
	// Templates returns templates ordered by path.
	Templates(ctx context.Context) ([]*Template, error)
}

// ContentsStore persists serialized contents with atomic semantics.
// Save writes to a temporary location; Commit makes changes permanent;
// Abort discards pending changes.
type ContentsStore interface {
	// Save stores the serialized contents of the template at path.
	Save(ctx context.Context, path string, serialized string) error
	Commit() error
	Abort() error
}
