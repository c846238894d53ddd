package hbs

import (
	"strings"
	"unicode"
)

// Whitespace control works on the raw text between mustaches, before any
// HTML is seen, the way Handlebars does it:
//
//   - `{{~` strips all whitespace before a statement, `~}}` all
//     whitespace after it.
//   - A block, {{else}} or comment statement alone on its line takes the
//     line's indentation and line break with it.

// strip holds the `~` markers of a mustache.
type strip struct {
	open, close bool
}

func stripOf(raw string) strip {
	if len(raw) < 5 {
		return strip{}
	}
	return strip{open: raw[2] == '~', close: raw[len(raw)-3] == '~'}
}

// content is the text between two statements. Escaped mustaches are
// part of the text around them.
type content struct {
	src string

	// head and tail are the text pieces at either end, nil when the
	// content starts or ends with an escaped mustache.
	head, tail *piece

	// original is the text before any stripping.
	original string

	leftStripped, rightStripped bool
}

// trimStart strips leading whitespace: all of it when multiple is set,
// otherwise blanks up to and including one line break.
func (c *content) trimStart(multiple bool) bool {
	if c.head == nil {
		return false
	}
	text := c.src[c.head.from:c.head.to]
	var n int
	if multiple {
		n = len(text) - len(strings.TrimLeftFunc(text, isSpace))
	} else {
		n = len(text) - len(strings.TrimLeft(text, " \t"))
		if n < len(text) && text[n] == '\r' {
			n++
		}
		if n < len(text) && text[n] == '\n' {
			n++
		}
	}
	c.head.from += n
	return n > 0
}

// trimEnd strips trailing whitespace: all of it when multiple is set,
// otherwise trailing blanks.
func (c *content) trimEnd(multiple bool) bool {
	if c.tail == nil {
		return false
	}
	text := c.src[c.tail.from:c.tail.to]
	var n int
	if multiple {
		n = len(text) - len(strings.TrimRightFunc(text, isSpace))
	} else {
		n = len(text) - len(strings.TrimRight(text, " \t"))
	}
	c.tail.to -= n
	return n > 0
}

type wsItem struct {
	content *content
	stmt    *wsStatement
}

type wsProgram struct {
	body []wsItem

	// chained marks the inverse holding an {{else if}} block.
	chained bool
}

type wsStatement struct {
	// strip is the statement's own markers, or a block's open tag's.
	strip   strip
	comment bool

	block            bool
	program, inverse *wsProgram
	inverseStrip     strip
	closeStrip       strip
}

// wsTag is an {{else}} or close tag ending a program.
type wsTag struct {
	kind  statementKind
	strip strip
	body  string
}

type wsInverse struct {
	strip   strip
	program *wsProgram
	chain   bool
}

// controlWhitespace narrows the text pieces as whitespace control
// requires. Statements are only classified here; malformed ones are
// reported later by the parser.
func controlWhitespace(src string, pieces []*piece) {
	b := &wsBuilder{src: src, pieces: pieces}
	root, _ := b.program(true)
	var w whitespace
	w.program(root)
}

type wsBuilder struct {
	src    string
	pieces []*piece
	pos    int
}

// program reads statements up to the next {{else}} or close tag, which
// it consumes and returns. At the root those tags are plain statements.
func (b *wsBuilder) program(root bool) (*wsProgram, *wsTag) {
	prog := &wsProgram{}
	for b.pos < len(b.pieces) {
		pc := b.pieces[b.pos]
		if pc.stmt == nil || pc.stmt.literal != "" {
			prog.body = append(prog.body, wsItem{content: b.content()})
			continue
		}
		b.pos++

		s := stripOf(pc.stmt.raw)
		st, err := classify(pc.stmt.raw)
		switch {
		case err != nil:
			prog.body = append(prog.body, wsItem{stmt: &wsStatement{strip: s}})
		case st.kind == stmtComment:
			prog.body = append(prog.body, wsItem{stmt: &wsStatement{strip: s, comment: true}})
		case st.kind == stmtOpenBlock, st.kind == stmtOpenInverse:
			prog.body = append(prog.body, wsItem{stmt: b.block(s, st.kind == stmtOpenInverse)})
		case (st.kind == stmtElse || st.kind == stmtCloseBlock) && !root:
			return prog, &wsTag{kind: st.kind, strip: s, body: st.body}
		default:
			prog.body = append(prog.body, wsItem{stmt: &wsStatement{strip: s}})
		}
	}
	return prog, nil
}

func (b *wsBuilder) content() *content {
	c := &content{src: b.src}
	var original strings.Builder
	for first := true; b.pos < len(b.pieces); first = false {
		pc := b.pieces[b.pos]
		if pc.stmt != nil && pc.stmt.literal == "" {
			break
		}
		b.pos++
		if pc.stmt != nil {
			original.WriteString(pc.stmt.literal)
			c.tail = nil
			continue
		}
		if first {
			c.head = pc
		}
		c.tail = pc
		original.WriteString(b.src[pc.from:pc.to])
	}
	c.original = original.String()
	return c
}

// block reads a block's programs through its close tag.
func (b *wsBuilder) block(open strip, inverted bool) *wsStatement {
	prog, end := b.program(false)
	var inv *wsInverse
	if end != nil && end.kind == stmtElse {
		inv, end = b.inverse(end, inverted)
	}
	var closeStrip strip
	if end != nil {
		closeStrip = end.strip
	}
	return newWSBlock(open, prog, inv, closeStrip, inverted)
}

// inverse reads what follows an {{else}}: an inverse program, or an
// {{else if}} chain.
func (b *wsBuilder) inverse(tag *wsTag, inverted bool) (*wsInverse, *wsTag) {
	prog, end := b.program(false)
	if tag.body == "" || inverted {
		return &wsInverse{strip: tag.strip, program: prog}, end
	}

	var next *wsInverse
	if end != nil && end.kind == stmtElse {
		next, end = b.inverse(end, false)
	}
	var closeStrip strip
	if next != nil {
		closeStrip = next.strip
	}
	chained := newWSBlock(tag.strip, prog, next, closeStrip, false)
	return &wsInverse{
		strip:   tag.strip,
		program: &wsProgram{body: []wsItem{{stmt: chained}}, chained: true},
		chain:   true,
	}, end
}

// newWSBlock assembles a block. Inverted blocks keep their first section
// as the inverse.
func newWSBlock(open strip, prog *wsProgram, inv *wsInverse, closeStrip strip, inverted bool) *wsStatement {
	st := &wsStatement{block: true, strip: open, program: prog, closeStrip: closeStrip}
	if inv != nil {
		if inv.chain {
			inv.program.body[0].stmt.closeStrip = closeStrip
		}
		st.inverseStrip = inv.strip
		st.inverse = inv.program
	}
	if inverted {
		st.program, st.inverse = st.inverse, st.program
	}
	return st
}

// control is what a statement asks of the text around it.
type control struct {
	open, close      bool
	openStandalone   bool
	closeStandalone  bool
	inlineStandalone bool
}

type whitespace struct {
	rootSeen bool
}

func (w *whitespace) program(p *wsProgram) {
	if p == nil {
		return
	}
	isRoot := !w.rootSeen
	w.rootSeen = true

	body := p.body
	for i, it := range body {
		if it.stmt == nil {
			continue
		}
		c := w.statement(it.stmt)

		prevWS := isPrevWhitespace(body, i, isRoot)
		nextWS := isNextWhitespace(body, i, isRoot)

		if c.close {
			omitRight(body, i, true)
		}
		if c.open {
			omitLeft(body, i, true)
		}
		if c.inlineStandalone && prevWS && nextWS {
			omitRight(body, i, false)
			omitLeft(body, i, false)
		}
		if c.openStandalone && prevWS {
			first := it.stmt.program
			if first == nil {
				first = it.stmt.inverse
			}
			omitRight(first.body, -1, false)
			omitLeft(body, i, false)
		}
		if c.closeStandalone && nextWS {
			last := it.stmt.inverse
			if last == nil {
				last = it.stmt.program
			}
			omitRight(body, i, false)
			omitLeft(last.body, len(last.body), false)
		}
	}
}

func (w *whitespace) statement(st *wsStatement) control {
	switch {
	case st.comment:
		return control{open: st.strip.open, close: st.strip.close, inlineStandalone: true}
	case !st.block:
		return control{open: st.strip.open, close: st.strip.close}
	}

	w.program(st.program)
	w.program(st.inverse)

	program := st.program
	var inverse *wsProgram
	if program == nil {
		program = st.inverse
	} else {
		inverse = st.inverse
	}
	firstInverse, lastInverse := inverse, inverse
	if inverse != nil && inverse.chained {
		firstInverse = inverse.body[0].stmt.program
		for lastInverse.chained {
			lastInverse = lastInverse.body[len(lastInverse.body)-1].stmt.program
		}
	}

	closing := program
	if firstInverse != nil {
		closing = firstInverse
	}
	c := control{
		open:            st.strip.open,
		close:           st.closeStrip.close,
		openStandalone:  isNextWhitespace(program.body, -1, false),
		closeStandalone: isPrevWhitespace(closing.body, len(closing.body), false),
	}

	if st.strip.close {
		omitRight(program.body, -1, true)
	}
	switch {
	case inverse != nil:
		if st.inverseStrip.open {
			omitLeft(program.body, len(program.body), true)
		}
		if st.inverseStrip.close {
			omitRight(firstInverse.body, -1, true)
		}
		if st.closeStrip.open {
			omitLeft(lastInverse.body, len(lastInverse.body), true)
		}
		// standalone {{else}}
		if isPrevWhitespace(program.body, len(program.body), false) && isNextWhitespace(firstInverse.body, -1, false) {
			omitLeft(program.body, len(program.body), false)
			omitRight(firstInverse.body, -1, false)
		}
	case st.closeStrip.open:
		omitLeft(program.body, len(program.body), true)
	}
	return c
}

// isPrevWhitespace reports whether the text before body[i] ends its line.
func isPrevWhitespace(body []wsItem, i int, isRoot bool) bool {
	if i-1 < 0 {
		return isRoot
	}
	prev := body[i-1].content
	if prev == nil {
		return false
	}
	return trailingBreak(prev.original, i-2 < 0 && isRoot)
}

// isNextWhitespace reports whether the text after body[i] starts with a
// line break.
func isNextWhitespace(body []wsItem, i int, isRoot bool) bool {
	if i+1 >= len(body) {
		return isRoot
	}
	next := body[i+1].content
	if next == nil {
		return false
	}
	return leadingBreak(next.original, i+2 >= len(body) && isRoot)
}

// omitRight strips the start of the text after body[i].
func omitRight(body []wsItem, i int, multiple bool) {
	if i+1 >= len(body) || body[i+1].content == nil {
		return
	}
	c := body[i+1].content
	if !multiple && c.rightStripped {
		return
	}
	c.rightStripped = c.trimStart(multiple)
}

// omitLeft strips the end of the text before body[i].
func omitLeft(body []wsItem, i int, multiple bool) {
	if i-1 < 0 || i-1 >= len(body) || body[i-1].content == nil {
		return
	}
	c := body[i-1].content
	if !multiple && c.leftStripped {
		return
	}
	c.leftStripped = c.trimEnd(multiple)
}

// trailingBreak reports whether s ends in a line break followed only by
// whitespace. With whole set, all-whitespace s also counts.
func trailingBreak(s string, whole bool) bool {
	rest := strings.TrimRightFunc(s, isSpace)
	return strings.Contains(s[len(rest):], "\n") || (whole && rest == "")
}

// leadingBreak reports whether s starts with whitespace up to a line
// break. With whole set, all-whitespace s also counts.
func leadingBreak(s string, whole bool) bool {
	rest := strings.TrimLeftFunc(s, isSpace)
	return strings.Contains(s[:len(s)-len(rest)], "\n") || (whole && rest == "")
}

// isSpace matches the whitespace class Handlebars strips.
func isSpace(r rune) bool {
	return r == '\uFEFF' || (r != '\u0085' && unicode.IsSpace(r))
}
