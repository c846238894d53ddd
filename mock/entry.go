package mock

import (
	"context"

	"github.com/fwojciec/hbscontent"
)

var _ hbscontent.EntryService = (*EntryService)(nil)

// EntryService is a mock implementation of hbscontent.EntryService.
type EntryService struct {
	UpsertEntryFn     func(ctx context.Context, entry *hbscontent.Entry) error
	FindEntryByPathFn func(ctx context.Context, path string) (*hbscontent.Entry, error)
	FindEntriesFn     func(ctx context.Context, filter hbscontent.EntryFilter) ([]*hbscontent.Entry, error)
	DeleteEntryFn     func(ctx context.Context, path string) error
}

func (s *EntryService) UpsertEntry(ctx context.Context, entry *hbscontent.Entry) error {
	return s.UpsertEntryFn(ctx, entry)
}

func (s *EntryService) FindEntryByPath(ctx context.Context, path string) (*hbscontent.Entry, error) {
	return s.FindEntryByPathFn(ctx, path)
}

func (s *EntryService) FindEntries(ctx context.Context, filter hbscontent.EntryFilter) ([]*hbscontent.Entry, error) {
	return s.FindEntriesFn(ctx, filter)
}

func (s *EntryService) DeleteEntry(ctx context.Context, path string) error {
	return s.DeleteEntryFn(ctx, path)
}
