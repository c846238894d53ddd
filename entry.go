package hbscontent

import (
	"context"
	"time"
)

// Entry is an indexed template and its extracted contents.
type Entry struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	ContentHash string    `json:"contentHash"`
	Contents    *Contents `json:"contents"`
	IndexedAt   time.Time `json:"indexedAt"`
}

// Validate returns an error if the entry contains invalid fields.
func (e *Entry) Validate() error {
	if e.Path == "" {
		return Errorf(EINVALID, "entry path required")
	}
	if e.Contents == nil {
		return Errorf(EINVALID, "entry contents required")
	}
	return nil
}

// EntryService represents a search index of extracted contents.
type EntryService interface {
	// UpsertEntry creates the entry, or replaces the entry with the same path.
	UpsertEntry(ctx context.Context, entry *Entry) error

	// FindEntryByPath retrieves the entry for a template path.
	// Returns ENOTFOUND if no entry exists.
	FindEntryByPath(ctx context.Context, path string) (*Entry, error)

	// FindEntries retrieves entries matching the filter, ordered by path.
	FindEntries(ctx context.Context, filter EntryFilter) ([]*Entry, error)

	// DeleteEntry removes the entry for a template path.
	// Returns ENOTFOUND if no entry exists.
	DeleteEntry(ctx context.Context, path string) error
}

// EntryFilter represents a filter for FindEntries.
type EntryFilter struct {
	Path *string `json:"path"`

	// Keyword matches entries carrying this exact keyword.
	Keyword *string `json:"keyword"`

	// Query matches entries whose title or body contains the text.
	Query *string `json:"query"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
