// Package slog provides logging decorators for hbscontent services.
package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/hbscontent"
)

// Ensure LoggingExtractor implements hbscontent.Extractor.
var _ hbscontent.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with logging.
type LoggingExtractor struct {
	next   hbscontent.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next hbscontent.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs the operation.
func (e *LoggingExtractor) Extract(content string) (contents *hbscontent.Contents, err error) {
	defer func(begin time.Time) {
		if err != nil {
			e.logger.Error("extract",
				"bytes", len(content),
				"duration", time.Since(begin),
				"err", err,
			)
			return
		}
		e.logger.Debug("extract",
			"bytes", len(content),
			"title", contents.TitleOr(""),
			"keywords", len(contents.Keywords),
			"duration", time.Since(begin),
		)
	}(time.Now())
	return e.next.Extract(content)
}
