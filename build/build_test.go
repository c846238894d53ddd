package build_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/fwojciec/hbscontent"
	"github.com/fwojciec/hbscontent/build"
	"github.com/fwojciec/hbscontent/hbs"
	"github.com/fwojciec/hbscontent/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore records saved contents.
type memoryStore struct {
	mu        sync.Mutex
	saved     map[string]string
	order     []string
	committed bool
	aborted   bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: make(map[string]string)}
}

func (s *memoryStore) store() *mock.ContentsStore {
	return &mock.ContentsStore{
		SaveFn: func(_ context.Context, path string, serialized string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.saved[path] = serialized
			s.order = append(s.order, path)
			return nil
		},
		CommitFn: func() error {
			s.committed = true
			return nil
		},
		AbortFn: func() error {
			s.aborted = true
			return nil
		},
	}
}

func source(templates ...*hbscontent.Template) *mock.TemplateSource {
	return &mock.TemplateSource{
		TemplatesFn: func(_ context.Context) ([]*hbscontent.Template, error) {
			return templates, nil
		},
	}
}

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	t.Run("returns zero result when there are no templates", func(t *testing.T) {
		t.Parallel()

		mem := newMemoryStore()
		b := &build.Builder{
			Source:    source(),
			Extractor: hbs.NewExtractor(),
			Store:     mem.store(),
		}

		result, err := b.Build(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, &build.Result{}, result)
		assert.True(t, mem.committed)
	})

	t.Run("extracts and saves templates in path order", func(t *testing.T) {
		t.Parallel()

		mem := newMemoryStore()
		b := &build.Builder{
			Source: source(
				&hbscontent.Template{Path: "a.hbs", Content: "<h1>A</h1>"},
				&hbscontent.Template{Path: "b.hbs", Content: "<h1>B</h1>"},
				&hbscontent.Template{Path: "c.hbs", Content: "<p>C</p>"},
			),
			Extractor:   hbs.NewExtractor(),
			Store:       mem.store(),
			Concurrency: 2,
		}

		result, err := b.Build(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 3, result.Extracted)
		assert.Equal(t, []string{"a.hbs", "b.hbs", "c.hbs"}, mem.order)
		assert.Equal(t, `{"title":"A","body":"A","keywords":[],"rawTemplate":"<h1>A</h1>"}`, mem.saved["a.hbs"])
		assert.Equal(t, `{"title":null,"body":"C","keywords":[],"rawTemplate":"<p>C</p>"}`, mem.saved["c.hbs"])
		assert.True(t, mem.committed)
		assert.False(t, mem.aborted)
	})

	t.Run("aborts on parse error", func(t *testing.T) {
		t.Parallel()

		mem := newMemoryStore()
		b := &build.Builder{
			Source: source(
				&hbscontent.Template{Path: "good.hbs", Content: "<p>ok</p>"},
				&hbscontent.Template{Path: "bad.hbs", Content: "<div>"},
			),
			Extractor: hbs.NewExtractor(),
			Store:     mem.store(),
		}

		_, err := b.Build(context.Background(), nil)

		require.Error(t, err)
		var pe *hbscontent.ParseError
		assert.ErrorAs(t, err, &pe)
		assert.Contains(t, err.Error(), "bad.hbs")
		assert.True(t, mem.aborted)
		assert.False(t, mem.committed)
		assert.Empty(t, mem.saved)
	})

	t.Run("skips invalid templates when configured", func(t *testing.T) {
		t.Parallel()

		mem := newMemoryStore()
		var events []build.ProgressEvent
		b := &build.Builder{
			Source: source(
				&hbscontent.Template{Path: "good.hbs", Content: "<p>ok</p>"},
				&hbscontent.Template{Path: "bad.hbs", Content: "<div>"},
			),
			Extractor:   hbs.NewExtractor(),
			Store:       mem.store(),
			SkipInvalid: true,
		}

		result, err := b.Build(context.Background(), func(e build.ProgressEvent) {
			events = append(events, e)
		})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Extracted)
		assert.Equal(t, 1, result.Skipped)
		assert.Equal(t, []string{"good.hbs"}, mem.order)

		var skipped []string
		for _, e := range events {
			if e.Type == build.ProgressSkipped {
				skipped = append(skipped, e.Path)
			}
		}
		assert.Equal(t, []string{"bad.hbs"}, skipped)
	})

	t.Run("non-parse errors fail even when skipping invalid templates", func(t *testing.T) {
		t.Parallel()

		mem := newMemoryStore()
		b := &build.Builder{
			Source: source(&hbscontent.Template{Path: "a.hbs", Content: "x"}),
			Extractor: &mock.Extractor{
				ExtractFn: func(_ string) (*hbscontent.Contents, error) {
					return nil, errors.New("boom")
				},
			},
			Store:       mem.store(),
			SkipInvalid: true,
		}

		_, err := b.Build(context.Background(), nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.True(t, mem.aborted)
	})

	t.Run("returns discovery error", func(t *testing.T) {
		t.Parallel()

		b := &build.Builder{
			Source: &mock.TemplateSource{
				TemplatesFn: func(_ context.Context) ([]*hbscontent.Template, error) {
					return nil, errors.New("no such directory")
				},
			},
			Extractor: hbs.NewExtractor(),
			Store:     newMemoryStore().store(),
		}

		_, err := b.Build(context.Background(), nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "discover templates")
	})

	t.Run("aborts when save fails", func(t *testing.T) {
		t.Parallel()

		aborted := false
		b := &build.Builder{
			Source:    source(&hbscontent.Template{Path: "a.hbs", Content: "<p>a</p>"}),
			Extractor: hbs.NewExtractor(),
			Store: &mock.ContentsStore{
				SaveFn: func(_ context.Context, _ string, _ string) error {
					return errors.New("disk full")
				},
				AbortFn: func() error {
					aborted = true
					return nil
				},
			},
		}

		_, err := b.Build(context.Background(), nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.True(t, aborted)
	})

	t.Run("reports progress", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var types []build.ProgressType
		b := &build.Builder{
			Source: source(
				&hbscontent.Template{Path: "a.hbs", Content: "a"},
				&hbscontent.Template{Path: "b.hbs", Content: "b"},
			),
			Extractor: hbs.NewExtractor(),
			Store:     newMemoryStore().store(),
		}

		_, err := b.Build(context.Background(), func(e build.ProgressEvent) {
			mu.Lock()
			defer mu.Unlock()
			types = append(types, e.Type)
		})

		require.NoError(t, err)
		assert.Equal(t, []build.ProgressType{
			build.ProgressStarted,
			build.ProgressCompleted,
			build.ProgressCompleted,
			build.ProgressFinished,
		}, types)
	})
}

func TestBuilder_Index(t *testing.T) {
	t.Parallel()

	t.Run("reuses indexed contents when hash matches", func(t *testing.T) {
		t.Parallel()

		content := "<h1>Cached</h1>"
		title := "Cached"
		indexed := &hbscontent.Contents{Title: &title, Body: "Cached", Keywords: []string{}, RawTemplate: content}
		extractCalls := 0
		upserts := 0
		mem := newMemoryStore()

		b := &build.Builder{
			Source: source(&hbscontent.Template{Path: "a.hbs", Content: content}),
			Extractor: &mock.Extractor{
				ExtractFn: func(_ string) (*hbscontent.Contents, error) {
					extractCalls++
					return nil, errors.New("should not extract")
				},
			},
			Store: mem.store(),
			Index: &mock.EntryService{
				FindEntryByPathFn: func(_ context.Context, path string) (*hbscontent.Entry, error) {
					return &hbscontent.Entry{Path: path, ContentHash: build.ComputeHash(content), Contents: indexed}, nil
				},
				UpsertEntryFn: func(_ context.Context, _ *hbscontent.Entry) error {
					upserts++
					return nil
				},
				FindEntriesFn: func(_ context.Context, _ hbscontent.EntryFilter) ([]*hbscontent.Entry, error) {
					return []*hbscontent.Entry{{Path: "a.hbs"}}, nil
				},
			},
		}

		result, err := b.Build(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Cached)
		assert.Equal(t, 0, result.Extracted)
		assert.Equal(t, 0, extractCalls)
		assert.Equal(t, 0, upserts)
		assert.Equal(t, `{"title":"Cached","body":"Cached","keywords":[],"rawTemplate":"<h1>Cached</h1>"}`, mem.saved["a.hbs"])
	})

	t.Run("extracts and upserts changed templates", func(t *testing.T) {
		t.Parallel()

		var upserted []*hbscontent.Entry
		b := &build.Builder{
			Source:    source(&hbscontent.Template{Path: "a.hbs", Content: "<h1>New</h1>"}),
			Extractor: hbs.NewExtractor(),
			Store:     newMemoryStore().store(),
			Index: &mock.EntryService{
				FindEntryByPathFn: func(_ context.Context, path string) (*hbscontent.Entry, error) {
					return &hbscontent.Entry{Path: path, ContentHash: "stale"}, nil
				},
				UpsertEntryFn: func(_ context.Context, entry *hbscontent.Entry) error {
					upserted = append(upserted, entry)
					return nil
				},
				FindEntriesFn: func(_ context.Context, _ hbscontent.EntryFilter) ([]*hbscontent.Entry, error) {
					return nil, nil
				},
			},
		}

		result, err := b.Build(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Extracted)
		require.Len(t, upserted, 1)
		assert.Equal(t, "a.hbs", upserted[0].Path)
		assert.Equal(t, build.ComputeHash("<h1>New</h1>"), upserted[0].ContentHash)
		assert.Equal(t, "New", upserted[0].Contents.TitleOr(""))
		assert.False(t, upserted[0].IndexedAt.IsZero())
	})

	t.Run("indexes new templates", func(t *testing.T) {
		t.Parallel()

		upserts := 0
		b := &build.Builder{
			Source:    source(&hbscontent.Template{Path: "a.hbs", Content: "<p>a</p>"}),
			Extractor: hbs.NewExtractor(),
			Store:     newMemoryStore().store(),
			Index: &mock.EntryService{
				FindEntryByPathFn: func(_ context.Context, path string) (*hbscontent.Entry, error) {
					return nil, hbscontent.Errorf(hbscontent.ENOTFOUND, "entry not found")
				},
				UpsertEntryFn: func(_ context.Context, _ *hbscontent.Entry) error {
					upserts++
					return nil
				},
				FindEntriesFn: func(_ context.Context, _ hbscontent.EntryFilter) ([]*hbscontent.Entry, error) {
					return nil, nil
				},
			},
		}

		result, err := b.Build(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Extracted)
		assert.Equal(t, 1, upserts)
	})

	t.Run("prunes entries for removed templates", func(t *testing.T) {
		t.Parallel()

		var deleted []string
		b := &build.Builder{
			Source:    source(&hbscontent.Template{Path: "kept.hbs", Content: "<p>k</p>"}),
			Extractor: hbs.NewExtractor(),
			Store:     newMemoryStore().store(),
			Index: &mock.EntryService{
				FindEntryByPathFn: func(_ context.Context, _ string) (*hbscontent.Entry, error) {
					return nil, hbscontent.Errorf(hbscontent.ENOTFOUND, "entry not found")
				},
				UpsertEntryFn: func(_ context.Context, _ *hbscontent.Entry) error {
					return nil
				},
				FindEntriesFn: func(_ context.Context, _ hbscontent.EntryFilter) ([]*hbscontent.Entry, error) {
					return []*hbscontent.Entry{{Path: "kept.hbs"}, {Path: "gone.hbs"}}, nil
				},
				DeleteEntryFn: func(_ context.Context, path string) error {
					deleted = append(deleted, path)
					return nil
				},
			},
		}

		result, err := b.Build(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Removed)
		assert.Equal(t, []string{"gone.hbs"}, deleted)
	})

	t.Run("removes index entries of skipped templates", func(t *testing.T) {
		t.Parallel()

		var deleted []string
		b := &build.Builder{
			Source: source(
				&hbscontent.Template{Path: "bad.hbs", Content: "<div>"},
				&hbscontent.Template{Path: "good.hbs", Content: "<p>ok</p>"},
			),
			Extractor:   hbs.NewExtractor(),
			Store:       newMemoryStore().store(),
			SkipInvalid: true,
			Index: &mock.EntryService{
				FindEntryByPathFn: func(_ context.Context, path string) (*hbscontent.Entry, error) {
					return &hbscontent.Entry{Path: path, ContentHash: "valid before"}, nil
				},
				UpsertEntryFn: func(_ context.Context, _ *hbscontent.Entry) error {
					return nil
				},
				FindEntriesFn: func(_ context.Context, _ hbscontent.EntryFilter) ([]*hbscontent.Entry, error) {
					return []*hbscontent.Entry{{Path: "bad.hbs"}, {Path: "good.hbs"}}, nil
				},
				DeleteEntryFn: func(_ context.Context, path string) error {
					deleted = append(deleted, path)
					return nil
				},
			},
		}

		result, err := b.Build(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Skipped)
		assert.Equal(t, 1, result.Removed)
		assert.Equal(t, []string{"bad.hbs"}, deleted)
	})

	t.Run("extracts again when the extraction version changed", func(t *testing.T) {
		t.Parallel()

		content := "<h1>Fixed</h1>"
		stale := "Broken"
		extractCalls := 0
		var upserted []*hbscontent.Entry
		b := &build.Builder{
			Source: source(&hbscontent.Template{Path: "a.hbs", Content: content}),
			Extractor: &mock.Extractor{
				ExtractFn: func(c string) (*hbscontent.Contents, error) {
					extractCalls++
					return hbs.NewExtractor().Extract(c)
				},
			},
			Store:   newMemoryStore().store(),
			Version: "2",
			Index: &mock.EntryService{
				FindEntryByPathFn: func(_ context.Context, path string) (*hbscontent.Entry, error) {
					return &hbscontent.Entry{
						Path:        path,
						ContentHash: build.ComputeHash(content),
						Contents:    &hbscontent.Contents{Title: &stale, Keywords: []string{}, RawTemplate: content},
					}, nil
				},
				UpsertEntryFn: func(_ context.Context, entry *hbscontent.Entry) error {
					upserted = append(upserted, entry)
					return nil
				},
				FindEntriesFn: func(_ context.Context, _ hbscontent.EntryFilter) ([]*hbscontent.Entry, error) {
					return []*hbscontent.Entry{{Path: "a.hbs"}}, nil
				},
			},
		}

		result, err := b.Build(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Extracted)
		assert.Equal(t, 0, result.Cached)
		assert.Equal(t, 1, extractCalls)
		require.Len(t, upserted, 1)
		assert.Equal(t, "Fixed", upserted[0].Contents.TitleOr(""))
		assert.NotEqual(t, build.ComputeHash(content), upserted[0].ContentHash)
	})

	t.Run("fails on index lookup error", func(t *testing.T) {
		t.Parallel()

		mem := newMemoryStore()
		b := &build.Builder{
			Source:    source(&hbscontent.Template{Path: "a.hbs", Content: "<p>a</p>"}),
			Extractor: hbs.NewExtractor(),
			Store:     mem.store(),
			Index: &mock.EntryService{
				FindEntryByPathFn: func(_ context.Context, _ string) (*hbscontent.Entry, error) {
					return nil, fmt.Errorf("database is locked")
				},
			},
		}

		_, err := b.Build(context.Background(), nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "database is locked")
		assert.True(t, mem.aborted)
	})
}

func TestComputeHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, build.ComputeHash("<h1>A</h1>"), build.ComputeHash("<h1>A</h1>"))
	assert.NotEqual(t, build.ComputeHash("<h1>A</h1>"), build.ComputeHash("<h1>B</h1>"))
	assert.Len(t, build.ComputeHash(""), 16)
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", build.FormatBytes(512))
	assert.Equal(t, "1.5 KB", build.FormatBytes(1536))
	assert.Equal(t, "2.0 MB", build.FormatBytes(2*1024*1024))
}
