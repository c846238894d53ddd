package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/hbscontent"
)

// Ensure LoggingStore implements hbscontent.ContentsStore.
var _ hbscontent.ContentsStore = (*LoggingStore)(nil)

// LoggingStore wraps a ContentsStore with logging.
type LoggingStore struct {
	next   hbscontent.ContentsStore
	logger *slog.Logger
}

// NewLoggingStore creates a new LoggingStore.
func NewLoggingStore(next hbscontent.ContentsStore, logger *slog.Logger) *LoggingStore {
	return &LoggingStore{next: next, logger: logger}
}

// Save delegates to the wrapped store and logs the operation.
func (s *LoggingStore) Save(ctx context.Context, path string, serialized string) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("save",
			"path", path,
			"bytes", len(serialized),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Save(ctx, path, serialized)
}

// Commit delegates to the wrapped store and logs the operation.
func (s *LoggingStore) Commit() (err error) {
	defer func(begin time.Time) {
		s.logger.Info("commit",
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Commit()
}

// Abort delegates to the wrapped store and logs the operation.
func (s *LoggingStore) Abort() (err error) {
	defer func(begin time.Time) {
		s.logger.Warn("abort",
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Abort()
}
