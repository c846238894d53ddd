package mock

import "github.com/fwojciec/hbscontent"

var _ hbscontent.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of hbscontent.Extractor.
type Extractor struct {
	ExtractFn func(content string) (*hbscontent.Contents, error)
}

func (e *Extractor) Extract(content string) (*hbscontent.Contents, error) {
	return e.ExtractFn(content)
}
