package mock

import (
	"context"

	"github.com/fwojciec/hbscontent"
)

var _ hbscontent.TemplateSource = (*TemplateSource)(nil)

// TemplateSource is a mock implementation of hbscontent.TemplateSource.
type TemplateSource struct {
	TemplatesFn func(ctx context.Context) ([]*hbscontent.Template, error)
}

func (s *TemplateSource) Templates(ctx context.Context) ([]*hbscontent.Template, error) {
	return s.TemplatesFn(ctx)
}

var _ hbscontent.ContentsStore = (*ContentsStore)(nil)

// ContentsStore is a mock implementation of hbscontent.ContentsStore.
type ContentsStore struct {
	SaveFn   func(ctx context.Context, path string, serialized string) error
	CommitFn func() error
	AbortFn  func() error
}

func (s *ContentsStore) Save(ctx context.Context, path string, serialized string) error {
	return s.SaveFn(ctx, path, serialized)
}

func (s *ContentsStore) Commit() error {
	return s.CommitFn()
}

func (s *ContentsStore) Abort() error {
	return s.AbortFn()
}
