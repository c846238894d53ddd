// Package build provides template build orchestration.
// It coordinates template discovery, contents extraction, output storage
// and search indexing.
package build

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/hbscontent"
	"golang.org/x/sync/errgroup"
)

// Builder extracts the contents of every template from a source and
// stores them. When Index is set, templates whose content hash matches
// the indexed entry reuse the indexed contents instead of being parsed.
type Builder struct {
	Source      hbscontent.TemplateSource
	Extractor   hbscontent.Extractor
	Store       hbscontent.ContentsStore
	Index       hbscontent.EntryService
	Concurrency int

	// Version identifies the extraction rules. It is part of the content
	// hash, so indexed contents from other versions are extracted again.
	Version string

	// SkipInvalid skips templates that fail to parse instead of failing
	// the build.
	SkipInvalid bool
}

// Result holds the outcome of a build.
type Result struct {
	Extracted int
	Cached    int
	Skipped   int
	Removed   int
	Bytes     int
}

// ProgressEvent reports progress during a build.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	Path      string
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressCached
	ProgressSkipped
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting build progress.
type ProgressFunc func(event ProgressEvent)

// buildResult holds the outcome of processing a single template.
type buildResult struct {
	position   int
	path       string
	hash       string
	contents   *hbscontent.Contents
	serialized string
	cached     bool
	err        error
}

// Build processes all templates. Outputs are saved in path order and
// committed only when every template succeeded; on failure the store is
// aborted and the errors of all failed templates are returned.
// The progress callback, if provided, receives events as the build proceeds.
func (b *Builder) Build(ctx context.Context, progress ProgressFunc) (*Result, error) {
	templates, err := b.Source.Templates(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover templates: %w", err)
	}

	concurrency := b.Concurrency
	if concurrency <= 0 {
		concurrency = hbscontent.DefaultConcurrency
	}

	notify := func(event ProgressEvent) {
		if progress != nil {
			progress(event)
		}
	}

	// Channel for collecting results
	resultCh := make(chan buildResult, len(templates))

	var completed atomic.Int64
	total := len(templates)

	notify(ProgressEvent{Type: ProgressStarted, Total: total})

	// Start workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	go func() {
		for i, tmpl := range templates {
			g.Go(func() error {
				resultCh <- b.processTemplate(gctx, i, tmpl)
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	// Collect results in order
	results := make([]buildResult, len(templates))
	for result := range resultCh {
		completed.Add(1)
		results[result.position] = result

		event := ProgressEvent{
			Type:      ProgressCompleted,
			Completed: int(completed.Load()),
			Total:     total,
			Path:      result.path,
			Error:     result.err,
		}
		switch {
		case result.err != nil && b.skippable(result.err):
			event.Type = ProgressSkipped
		case result.err != nil:
			event.Type = ProgressFailed
		case result.cached:
			event.Type = ProgressCached
		}
		notify(event)
	}

	var res Result
	var errs []error
	for _, result := range results {
		if result.err == nil {
			continue
		}
		if b.skippable(result.err) {
			res.Skipped++
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", result.path, result.err))
	}
	if len(errs) > 0 {
		return nil, b.abort(errors.Join(errs...))
	}

	// Save outputs and index entries
	for _, result := range results {
		if result.err != nil {
			continue
		}

		if err := b.Store.Save(ctx, result.path, result.serialized); err != nil {
			return nil, b.abort(fmt.Errorf("save %s: %w", result.path, err))
		}
		res.Bytes += len(result.serialized)

		if result.cached {
			res.Cached++
			continue
		}
		res.Extracted++

		if b.Index != nil {
			entry := &hbscontent.Entry{
				Path:        result.path,
				ContentHash: result.hash,
				Contents:    result.contents,
				IndexedAt:   time.Now().UTC(),
			}
			if err := b.Index.UpsertEntry(ctx, entry); err != nil {
				return nil, b.abort(fmt.Errorf("index %s: %w", result.path, err))
			}
		}
	}

	if err := b.Store.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if b.Index != nil {
		removed, err := b.prune(ctx, results)
		if err != nil {
			return nil, err
		}
		res.Removed = removed
	}

	notify(ProgressEvent{Type: ProgressFinished, Completed: total, Total: total})

	return &res, nil
}

// processTemplate extracts and serializes a single template.
func (b *Builder) processTemplate(ctx context.Context, position int, tmpl *hbscontent.Template) buildResult {
	result := buildResult{
		position: position,
		path:     tmpl.Path,
		hash:     b.hash(tmpl.Content),
	}

	if err := ctx.Err(); err != nil {
		result.err = err
		return result
	}
	if err := tmpl.Validate(); err != nil {
		result.err = err
		return result
	}

	contents, cached, err := b.cachedContents(ctx, tmpl.Path, result.hash)
	if err != nil {
		result.err = err
		return result
	}
	if !cached {
		contents, err = b.Extractor.Extract(tmpl.Content)
		if err != nil {
			result.err = err
			return result
		}
	}

	serialized, err := contents.Marshal()
	if err != nil {
		result.err = err
		return result
	}

	result.contents = contents
	result.serialized = serialized
	result.cached = cached
	return result
}

// cachedContents returns the indexed contents of the template at path if
// they were extracted from content with the same hash.
func (b *Builder) cachedContents(ctx context.Context, path, hash string) (*hbscontent.Contents, bool, error) {
	if b.Index == nil {
		return nil, false, nil
	}
	entry, err := b.Index.FindEntryByPath(ctx, path)
	if hbscontent.ErrorCode(err) == hbscontent.ENOTFOUND {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("lookup index: %w", err)
	}
	if entry.ContentHash != hash {
		return nil, false, nil
	}
	return entry.Contents, true, nil
}

// prune removes index entries for templates that no longer exist or
// were skipped, so the index only holds contents written by this build.
func (b *Builder) prune(ctx context.Context, results []buildResult) (int, error) {
	current := make(map[string]bool, len(results))
	for _, result := range results {
		if result.err == nil {
			current[result.path] = true
		}
	}

	entries, err := b.Index.FindEntries(ctx, hbscontent.EntryFilter{})
	if err != nil {
		return 0, fmt.Errorf("list index: %w", err)
	}

	var removed int
	for _, entry := range entries {
		if current[entry.Path] {
			continue
		}
		if err := b.Index.DeleteEntry(ctx, entry.Path); err != nil {
			return removed, fmt.Errorf("prune %s: %w", entry.Path, err)
		}
		removed++
	}
	return removed, nil
}

func (b *Builder) skippable(err error) bool {
	var pe *hbscontent.ParseError
	return b.SkipInvalid && errors.As(err, &pe)
}

// abort discards pending output and returns err, joined with any abort failure.
func (b *Builder) abort(err error) error {
	if abortErr := b.Store.Abort(); abortErr != nil {
		return errors.Join(err, fmt.Errorf("abort: %w", abortErr))
	}
	return err
}

// hash keys indexed contents by template content and extraction version.
func (b *Builder) hash(content string) string {
	if b.Version == "" {
		return ComputeHash(content)
	}
	return ComputeHash(b.Version + "\x00" + content)
}

// ComputeHash computes a hash of the content using xxhash.
func ComputeHash(content string) string {
	h := xxhash.Sum64String(content)
	return fmt.Sprintf("%x", h)
}

// FormatBytes formats bytes in human-readable form.
func FormatBytes(bytes int) string {
	const (
		KB = 1024
		MB = KB * 1024
	)
	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
