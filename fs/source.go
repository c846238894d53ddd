package fs

import (
	"context"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/fwojciec/hbscontent"
)

// Ensure Source implements hbscontent.TemplateSource at compile time.
var _ hbscontent.TemplateSource = (*Source)(nil)

// Source discovers templates in a directory tree.
type Source struct {
	root       string
	extensions []string
}

// NewSource creates a Source reading templates below root. Files are
// selected by extension; with no extensions given, .hbs files are used.
func NewSource(root string, extensions ...string) *Source {
	if len(extensions) == 0 {
		extensions = []string{hbscontent.DefaultExtension}
	}
	return &Source{root: root, extensions: extensions}
}

// Templates returns every template below the root, ordered by path.
// Paths are slash-separated and relative to the root.
func (s *Source) Templates(ctx context.Context) ([]*hbscontent.Template, error) {
	var templates []*hbscontent.Template

	err := filepath.WalkDir(s.root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !s.matches(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		templates = append(templates, &hbscontent.Template{
			Path:    filepath.ToSlash(rel),
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Path < templates[j].Path
	})
	return templates, nil
}

func (s *Source) matches(name string) bool {
	return slices.ContainsFunc(s.extensions, func(ext string) bool {
		return strings.HasSuffix(name, ext) && len(name) > len(ext)
	})
}
