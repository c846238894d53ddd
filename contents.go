package hbscontent

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Contents is the search metadata extracted from a single template.
type Contents struct {
	// Title is the text of the first heading at the lowest heading level.
	// Nil when the template has no heading with text; this is distinct
	// from a heading whose text is empty.
	Title *string `json:"title"`

	// Body is every indexed text node of the template, concatenated in
	// document order.
	Body string `json:"body"`

	// Keywords holds the property of each pulse-docs/heading element,
	// in document order.
	Keywords []string `json:"keywords"`

	// RawTemplate is the unmodified template source.
	RawTemplate string `json:"rawTemplate"`
}

// Extractor extracts search contents from template source.
type Extractor interface {
	// Extract parses content and returns its search contents.
	// Returns a *ParseError if content is not valid template markup.
	Extract(content string) (*Contents, error)
}

// TitleOr returns the title, or fallback when there is none.
func (c *Contents) TitleOr(fallback string) string {
	if c.Title == nil {
		return fallback
	}
	return *c.Title
}

// Marshal serializes the contents as a single-line JSON object with the
// fields title, body, keywords and rawTemplate, in that order. HTML
// characters are written as-is.
func (c *Contents) Marshal() (string, error) {
	out := *c
	if out.Keywords == nil {
		out.Keywords = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&out); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// UnmarshalContents parses a serialized Contents record.
func UnmarshalContents(data string) (*Contents, error) {
	var c Contents
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, Errorf(EINVALID, "invalid contents: %v", err)
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	return &c, nil
}
