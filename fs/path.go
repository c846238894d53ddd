// Package fs provides file-based template discovery and contents storage.
package fs

import (
	"path"
	"strings"

	"github.com/fwojciec/hbscontent"
)

// OutputPath converts a template path to the path of its contents file.
// The template's extension is replaced by target.
// Example: docs/guide/intro.hbs, template-contents → docs/guide/intro.template-contents
func OutputPath(templatePath, target string) (string, error) {
	p := path.Clean(strings.ReplaceAll(templatePath, `\`, "/"))
	if p == "." || p == "/" || strings.HasSuffix(templatePath, "/") {
		return "", hbscontent.Errorf(hbscontent.EINVALID, "invalid template path %q", templatePath)
	}

	// Reject paths that escape the output directory
	if strings.HasPrefix(p, "/") || p == ".." || strings.HasPrefix(p, "../") {
		return "", hbscontent.Errorf(hbscontent.EINVALID, "path traversal in template path %q", templatePath)
	}

	return strings.TrimSuffix(p, path.Ext(p)) + "." + strings.TrimPrefix(target, "."), nil
}
