package hbs

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// voidElements never have children or end tags.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "command": true,
	"embed": true, "hr": true, "img": true, "input": true, "keygen": true,
	"link": true, "meta": true, "param": true, "source": true, "track": true,
	"wbr": true,
}

// frame is an open container: the root program, an element, or the
// current program of a block.
type frame struct {
	element *Element
	block   *Block
	program *Program

	// chained marks blocks opened by `{{else if ...}}`; they close
	// together with the block that started the chain.
	chained bool

	// inverted marks blocks opened with {{^name}}, which start in their
	// inverse program.
	inverted bool

	// switched is set once {{else}} has moved to the other program.
	switched bool

	offset int
}

func (f *frame) append(n Node) {
	if f.element != nil {
		f.element.Children = append(f.element.Children, n)
		return
	}
	f.program.Body = append(f.program.Body, n)
}

func (f *frame) last() Node {
	var nodes []Node
	if f.element != nil {
		nodes = f.element.Children
	} else {
		nodes = f.program.Body
	}
	if len(nodes) == 0 {
		return nil
	}
	return nodes[len(nodes)-1]
}

type parser struct {
	*scanned
	stack []*frame

	// offset of the current token in the placeholder text.
	offset int
}

// Parse parses a template into its syntax tree.
// Returns a *hbscontent.ParseError if src is not valid template markup.
func Parse(src string) (*Program, error) {
	s, err := scan(src)
	if err != nil {
		return nil, err
	}

	root := &Program{}
	p := &parser{
		scanned: s,
		stack:   []*frame{{program: root}},
	}

	z := html.NewTokenizer(strings.NewReader(s.text))
	for {
		tt := z.Next()
		raw := string(z.Raw())

		switch tt {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				return nil, p.errorf(p.offset, "%v", z.Err())
			}
			// The tokenizer drops a tag cut off by the end of input.
			if p.offset < len(s.text) {
				return nil, p.errorf(p.offset, "unexpected end of input in tag")
			}
			if err := p.finish(); err != nil {
				return nil, err
			}
			return root, nil
		case html.TextToken:
			err = p.text(raw)
		case html.StartTagToken:
			err = p.startTag(z, raw, false)
		case html.SelfClosingTagToken:
			err = p.startTag(z, raw, true)
		case html.EndTagToken:
			err = p.endTag(raw)
		case html.CommentToken:
			err = p.comment(raw)
		case html.DoctypeToken:
		}
		if err != nil {
			return nil, err
		}
		p.offset += len(raw)
	}
}

func (p *parser) top() *frame {
	return p.stack[len(p.stack)-1]
}

func (p *parser) push(f *frame) {
	p.stack = append(p.stack, f)
}

func (p *parser) pop() *frame {
	f := p.top()
	p.stack = p.stack[:len(p.stack)-1]
	return f
}

// errorf reports an error at an offset in the placeholder text.
func (p *parser) errorf(offset int, format string, args ...any) error {
	return newParseError(p.src, p.sourceOffset(offset), format, args...)
}

// appendText adds text to the open container, merging it into a
// preceding text node.
func (p *parser) appendText(chars string) {
	f := p.top()
	if prev, ok := f.last().(*Text); ok {
		prev.Chars += chars
		return
	}
	f.append(&Text{Chars: chars})
}

func (p *parser) text(raw string) error {
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			p.appendText(buf.String())
			buf.Reset()
		}
	}

	for raw != "" {
		before, stmt, rest := p.next(raw)
		buf.WriteString(before)
		if stmt == nil {
			break
		}
		raw = rest
		if stmt.literal != "" {
			buf.WriteString(stmt.literal)
			continue
		}
		flush()
		if err := p.statement(stmt); err != nil {
			return err
		}
	}
	flush()
	return nil
}

// statement adds a mustache found in content position.
func (p *parser) statement(raw *rawStatement) error {
	st, err := classify(raw.raw)
	if err != nil {
		return newParseError(p.src, raw.offset, "%v", err)
	}

	switch st.kind {
	case stmtComment:
		p.top().append(&MustacheComment{Value: st.body})
		return nil
	case stmtExpression:
		m, err := p.mustache(raw, st)
		if err != nil {
			return err
		}
		p.top().append(m)
		return nil
	case stmtOpenBlock, stmtOpenInverse:
		return p.openBlock(raw, st)
	case stmtElse:
		return p.elseBlock(raw, st)
	case stmtCloseBlock:
		return p.closeBlock(raw, st)
	}
	return nil
}

func (p *parser) mustache(raw *rawStatement, st statement) (*Mustache, error) {
	c, err := parseCall(st.body)
	if err != nil {
		return nil, newParseError(p.src, raw.offset, "%v", err)
	}
	if c.blockParams != nil {
		return nil, newParseError(p.src, raw.offset, "block params are only allowed on blocks")
	}
	return &Mustache{Path: c.path, Params: c.params, Hash: c.hash, Trusted: st.trusted}, nil
}

func (p *parser) openBlock(raw *rawStatement, st statement) error {
	c, err := parseCall(st.body)
	if err != nil {
		return newParseError(p.src, raw.offset, "%v", err)
	}
	if _, ok := pathOriginal(c.path); !ok {
		return newParseError(p.src, raw.offset, "block helper must be a path, got %s", c.path.Type())
	}

	b := &Block{
		Path:    c.path,
		Params:  c.params,
		Hash:    c.hash,
		Program: &Program{BlockParams: c.blockParams},
	}
	p.top().append(b)

	f := &frame{block: b, program: b.Program, offset: raw.offset}
	if st.kind == stmtOpenInverse {
		b.Inverse = &Program{}
		f.program = b.Inverse
		f.inverted = true
	}
	p.push(f)
	return nil
}

func (p *parser) elseBlock(raw *rawStatement, st statement) error {
	f := p.top()
	if f.block == nil {
		return newParseError(p.src, raw.offset, "unexpected {{else}} outside of a block")
	}

	if f.switched {
		return newParseError(p.src, raw.offset, "unexpected second {{else}}")
	}

	if st.body == "" {
		if f.inverted {
			f.program = f.block.Program
		} else {
			f.block.Inverse = &Program{}
			f.program = f.block.Inverse
		}
		f.switched = true
		return nil
	}

	if f.inverted {
		return newParseError(p.src, raw.offset, "unexpected {{else %s}} in an inverse block", st.body)
	}
	c, err := parseCall(st.body)
	if err != nil {
		return newParseError(p.src, raw.offset, "%v", err)
	}
	chained := &Block{
		Path:    c.path,
		Params:  c.params,
		Hash:    c.hash,
		Program: &Program{BlockParams: c.blockParams},
	}
	f.block.Inverse = &Program{Body: []Node{chained}}
	f.switched = true
	p.push(&frame{block: chained, program: chained.Program, chained: true, offset: raw.offset})
	return nil
}

func (p *parser) closeBlock(raw *rawStatement, st statement) error {
	if err := p.checkClosable(raw.offset, "{{/"+st.body+"}}"); err != nil {
		return err
	}
	for p.top().chained {
		p.pop()
	}
	f := p.pop()
	name, _ := pathOriginal(f.block.Path)
	if name != st.body {
		return newParseError(p.src, raw.offset, "%s doesn't match %s", st.body, name)
	}
	return nil
}

// checkClosable reports an error unless the innermost open container is a block.
func (p *parser) checkClosable(offset int, what string) error {
	f := p.top()
	switch {
	case f.element != nil:
		return p.errorf(p.offset, "%s found inside unclosed element <%s>", what, f.element.Tag)
	case f.block == nil:
		return newParseError(p.src, offset, "%s without a matching block", what)
	}
	return nil
}

func (p *parser) startTag(z *html.Tokenizer, raw string, selfClosing bool) error {
	name := tagName(raw[1:])
	if name == "" {
		return p.errorf(p.offset, "invalid start tag %q", p.restore(raw))
	}

	el := &Element{Tag: name, SelfClosing: selfClosing}
	_, hasAttr := z.TagName()
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if err := p.attribute(el, string(key), string(val)); err != nil {
			return err
		}
	}

	p.top().append(el)
	if selfClosing || voidElements[strings.ToLower(name)] {
		return nil
	}
	p.push(&frame{element: el, offset: p.offset})
	return nil
}

// attribute adds an attribute or element modifier to el.
func (p *parser) attribute(el *Element, key, val string) error {
	if before, stmt, rest := p.next(key); stmt != nil && before == "" && rest == "" {
		st, err := classify(stmt.raw)
		if err != nil {
			return newParseError(p.src, stmt.offset, "%v", err)
		}
		switch st.kind {
		case stmtComment:
			return nil
		case stmtExpression:
			m, err := p.mustache(stmt, st)
			if err != nil {
				return err
			}
			el.Modifiers = append(el.Modifiers, m)
			return nil
		}
		return newParseError(p.src, stmt.offset, "blocks are not allowed in element position")
	}

	value, err := p.attributeValue(val)
	if err != nil {
		return err
	}
	el.Attributes = append(el.Attributes, &Attribute{Name: p.restore(key), Value: value})
	return nil
}

func (p *parser) attributeValue(val string) (Node, error) {
	var parts []Node
	for val != "" {
		before, stmt, rest := p.next(val)
		if before != "" {
			parts = append(parts, &Text{Chars: before})
		}
		if stmt == nil {
			break
		}
		val = rest
		if stmt.literal != "" {
			parts = append(parts, &Text{Chars: stmt.literal})
			continue
		}
		st, err := classify(stmt.raw)
		if err != nil {
			return nil, newParseError(p.src, stmt.offset, "%v", err)
		}
		switch st.kind {
		case stmtComment:
			continue
		case stmtExpression:
			m, err := p.mustache(stmt, st)
			if err != nil {
				return nil, err
			}
			parts = append(parts, m)
		default:
			return nil, newParseError(p.src, stmt.offset, "blocks are not allowed in attribute values")
		}
	}

	switch {
	case len(parts) == 0:
		return &Text{}, nil
	case len(parts) == 1:
		return parts[0], nil
	}
	return &Concat{Parts: parts}, nil
}

func (p *parser) endTag(raw string) error {
	name := tagName(strings.TrimPrefix(raw, "</"))
	if voidElements[strings.ToLower(name)] {
		return p.errorf(p.offset, "<%s> elements do not need end tags. You should remove it", name)
	}

	f := p.top()
	switch {
	case f.block != nil:
		blockName, _ := pathOriginal(f.block.Path)
		return p.errorf(p.offset, "closing tag </%s> found inside unclosed block {{#%s}}", name, blockName)
	case f.element == nil:
		return p.errorf(p.offset, "closing tag </%s> without an open tag", name)
	case f.element.Tag != name:
		return p.errorf(p.offset, "closing tag </%s> did not match last open tag <%s>", name, f.element.Tag)
	}
	p.pop()
	return nil
}

func (p *parser) comment(raw string) error {
	if strings.HasPrefix(raw, "<!--") {
		if !strings.HasSuffix(raw, "-->") || len(raw) < len("<!---->") {
			return p.errorf(p.offset, "unclosed comment")
		}
		p.top().append(&Comment{Value: p.restore(raw[4 : len(raw)-3])})
		return nil
	}
	p.top().append(&Comment{Value: p.restore(raw)})
	return nil
}

// finish reports containers left open at the end of input.
func (p *parser) finish() error {
	f := p.top()
	switch {
	case f.element != nil:
		return p.errorf(f.offset, "unclosed element `%s`", f.element.Tag)
	case f.block != nil:
		for f.chained && len(p.stack) > 2 {
			p.pop()
			f = p.top()
		}
		name, _ := pathOriginal(f.block.Path)
		return newParseError(p.src, f.offset, "unclosed block `%s`", name)
	}
	return nil
}

// tagName returns the tag name at the start of s with its case preserved.
func tagName(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool {
		return r == '/' || r == '>' || r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
	})
	if end < 0 {
		return s
	}
	return s[:end]
}
