package fs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fwojciec/hbscontent"
)

// Ensure Store implements hbscontent.ContentsStore at compile time.
var _ hbscontent.ContentsStore = (*Store)(nil)

// Store implements hbscontent.ContentsStore with atomic update semantics.
// Contents are saved to a temporary directory, then moved atomically on Commit.
type Store struct {
	baseDir string
	name    string
	target  string
}

// NewStore creates a new Store.
// baseDir is the parent directory, name is the output directory name and
// target is the extension given to contents files.
// Files are saved to baseDir/name.tmp and moved to baseDir/name on Commit.
func NewStore(baseDir, name, target string) *Store {
	return &Store{
		baseDir: baseDir,
		name:    name,
		target:  target,
	}
}

func (s *Store) tempDir() string {
	return filepath.Join(s.baseDir, s.name+".tmp")
}

func (s *Store) finalDir() string {
	return filepath.Join(s.baseDir, s.name)
}

// Save writes serialized contents for the template at path.
func (s *Store) Save(ctx context.Context, path string, serialized string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	relPath, err := OutputPath(path, s.target)
	if err != nil {
		return err
	}

	fullPath := filepath.Join(s.tempDir(), filepath.FromSlash(relPath))

	// Create parent directories
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	return os.WriteFile(fullPath, []byte(serialized), 0644)
}

// Commit replaces the output directory with everything saved so far.
// A build that saved nothing still produces an empty output directory.
func (s *Store) Commit() error {
	if err := os.MkdirAll(s.tempDir(), 0755); err != nil {
		return err
	}

	// Remove existing final directory if present
	if err := os.RemoveAll(s.finalDir()); err != nil {
		return err
	}

	return os.Rename(s.tempDir(), s.finalDir())
}

// Abort discards everything saved since the last Commit.
func (s *Store) Abort() error {
	return os.RemoveAll(s.tempDir())
}
