package hbs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/hbscontent"
)

// Mustaches are cut out of the source before HTML tokenization and
// replaced by placeholders, so that `<`, `>` and quotes inside them can
// not confuse the tokenizer. A placeholder is a private use rune pair
// around the statement's index.
const (
	placeholderOpen  = '\uE000'
	placeholderClose = '\uE001'
)

// rawStatement is a mustache cut out of the source.
type rawStatement struct {
	// offset is the byte offset of the statement in the source.
	offset int
	raw    string

	// literal is set for escaped mustaches, which are restored as text.
	literal string
}

// anchor maps an offset in the placeholder text back to the source.
type anchor struct {
	text   int
	source int
}

// scanned is the source with mustaches replaced by placeholders.
type scanned struct {
	src        string
	text       string
	statements []*rawStatement
	anchors    []anchor
}

// piece is a run of source text or a mustache, in source order.
type piece struct {
	// from and to bound a text piece in the source. Whitespace control
	// narrows them.
	from, to int

	// stmt is set for mustaches and escaped mustaches.
	stmt *rawStatement
}

// scan replaces every mustache in src with a placeholder.
func scan(src string) (*scanned, error) {
	if off := strings.IndexFunc(src, isPlaceholderRune); off >= 0 {
		r, _ := utf8.DecodeRuneInString(src[off:])
		return nil, newParseError(src, off, "unsupported character %U", r)
	}

	pieces, err := split(src)
	if err != nil {
		return nil, err
	}
	controlWhitespace(src, pieces)

	s := &scanned{src: src}
	var b strings.Builder
	b.Grow(len(src))
	for _, pc := range pieces {
		if pc.stmt == nil {
			if pc.from < pc.to {
				s.anchors = append(s.anchors, anchor{text: b.Len(), source: pc.from})
				b.WriteString(src[pc.from:pc.to])
			}
			continue
		}
		s.anchors = append(s.anchors, anchor{text: b.Len(), source: pc.stmt.offset})
		b.WriteRune(placeholderOpen)
		b.WriteString(strconv.Itoa(len(s.statements)))
		b.WriteRune(placeholderClose)
		s.statements = append(s.statements, pc.stmt)
	}

	s.text = b.String()
	return s, nil
}

// split cuts src into text and mustache pieces.
func split(src string) ([]*piece, error) {
	var pieces []*piece
	text := func(from, to int) {
		if from < to {
			pieces = append(pieces, &piece{from: from, to: to})
		}
	}

	i := 0
	for {
		j := strings.Index(src[i:], "{{")
		if j < 0 {
			text(i, len(src))
			return pieces, nil
		}
		j += i

		// \{{ is an escaped mustache; \\{{ is a backslash and a mustache.
		if j > i && src[j-1] == '\\' {
			text(i, j-1)
			if j-1 <= i || src[j-2] != '\\' {
				pieces = append(pieces, &piece{stmt: &rawStatement{offset: j - 1, raw: src[j-1 : j+2], literal: "{{"}})
				i = j + 2
				continue
			}
		} else {
			text(i, j)
		}

		end, err := mustacheEnd(src, j)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, &piece{stmt: &rawStatement{offset: j, raw: src[j:end]}})
		i = end
	}
}

// mustacheEnd returns the offset just past the mustache starting at start.
func mustacheEnd(src string, start int) (int, error) {
	body := start + 2
	if strings.HasPrefix(src[start:], "{{{") {
		end := closeDelimiter(src, start+3, "}}}")
		if end < 0 {
			return 0, newParseError(src, start, "unclosed triple-stash")
		}
		return end, nil
	}
	if body < len(src) && src[body] == '~' {
		body++
	}

	switch {
	case strings.HasPrefix(src[body:], "!--"):
		from := body + 3
		for {
			k := strings.Index(src[from:], "--")
			if k < 0 {
				return 0, newParseError(src, start, "unclosed comment")
			}
			at := from + k
			rest := src[at+2:]
			if strings.HasPrefix(rest, "}}") {
				return at + 4, nil
			}
			if strings.HasPrefix(rest, "~}}") {
				return at + 5, nil
			}
			from = at + 1
		}
	case strings.HasPrefix(src[body:], "!"):
		k := strings.Index(src[body:], "}}")
		if k < 0 {
			return 0, newParseError(src, start, "unclosed comment")
		}
		return body + k + 2, nil
	}

	end := closeDelimiter(src, body, "}}")
	if end < 0 {
		return 0, newParseError(src, start, "unclosed mustache")
	}
	return end, nil
}

// closeDelimiter finds delim outside of string literals and returns the
// offset just past it, or -1.
func closeDelimiter(src string, from int, delim string) int {
	var quote byte
	for i := from; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(src) && src[i+1] == quote {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case strings.HasPrefix(src[i:], delim):
			return i + len(delim)
		}
	}
	return -1
}

func isPlaceholderRune(r rune) bool {
	return r == placeholderOpen || r == placeholderClose
}

// next splits s at its first placeholder. It returns the text before it,
// the statement and the remainder; stmt is nil when s has no placeholder.
func (s *scanned) next(text string) (before string, stmt *rawStatement, rest string) {
	open := strings.IndexRune(text, placeholderOpen)
	if open < 0 {
		return text, nil, ""
	}
	body := text[open+utf8.RuneLen(placeholderOpen):]
	end := strings.IndexRune(body, placeholderClose)
	if end < 0 {
		panic(fmt.Sprintf("hbs: corrupt placeholder in %q", text))
	}
	idx, err := strconv.Atoi(body[:end])
	if err != nil || idx < 0 || idx >= len(s.statements) {
		// Placeholders are only ever written by scan.
		panic(fmt.Sprintf("hbs: corrupt placeholder in %q", text))
	}
	return text[:open], s.statements[idx], body[end+utf8.RuneLen(placeholderClose):]
}

// restore replaces placeholders in text with the source they stand for.
func (s *scanned) restore(text string) string {
	if !strings.ContainsRune(text, placeholderOpen) {
		return text
	}
	var b strings.Builder
	for text != "" {
		before, stmt, rest := s.next(text)
		b.WriteString(before)
		if stmt == nil {
			break
		}
		if stmt.literal != "" {
			b.WriteString(stmt.literal)
		} else {
			b.WriteString(stmt.raw)
		}
		text = rest
	}
	return b.String()
}

// sourceOffset maps an offset in the placeholder text to the source.
func (s *scanned) sourceOffset(text int) int {
	i := sort.Search(len(s.anchors), func(i int) bool { return s.anchors[i].text > text }) - 1
	if i < 0 {
		return text
	}
	a := s.anchors[i]
	off := a.source + text - a.text
	if off > len(s.src) {
		off = len(s.src)
	}
	return off
}

// newParseError builds a ParseError located at a source offset.
func newParseError(src string, offset int, format string, args ...any) error {
	if offset > len(src) {
		offset = len(src)
	}
	before := src[:offset]
	line := strings.Count(before, "\n") + 1
	column := utf8.RuneCountInString(before[strings.LastIndexByte(before, '\n')+1:])
	return &hbscontent.ParseError{
		Line:    line,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	}
}
