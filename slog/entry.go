package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/hbscontent"
)

// Ensure LoggingEntryService implements hbscontent.EntryService.
var _ hbscontent.EntryService = (*LoggingEntryService)(nil)

// LoggingEntryService wraps an EntryService with debug logging of writes.
// Reads are delegated without logging.
type LoggingEntryService struct {
	next   hbscontent.EntryService
	logger *slog.Logger
}

// NewLoggingEntryService creates a new LoggingEntryService.
func NewLoggingEntryService(next hbscontent.EntryService, logger *slog.Logger) *LoggingEntryService {
	return &LoggingEntryService{next: next, logger: logger}
}

// UpsertEntry delegates to the wrapped service and logs the operation.
func (s *LoggingEntryService) UpsertEntry(ctx context.Context, entry *hbscontent.Entry) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("index upsert",
			"path", entry.Path,
			"hash", entry.ContentHash,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.UpsertEntry(ctx, entry)
}

// FindEntryByPath delegates to the wrapped service.
func (s *LoggingEntryService) FindEntryByPath(ctx context.Context, path string) (*hbscontent.Entry, error) {
	return s.next.FindEntryByPath(ctx, path)
}

// FindEntries delegates to the wrapped service.
func (s *LoggingEntryService) FindEntries(ctx context.Context, filter hbscontent.EntryFilter) ([]*hbscontent.Entry, error) {
	return s.next.FindEntries(ctx, filter)
}

// DeleteEntry delegates to the wrapped service and logs the operation.
func (s *LoggingEntryService) DeleteEntry(ctx context.Context, path string) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("index delete",
			"path", path,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DeleteEntry(ctx, path)
}
