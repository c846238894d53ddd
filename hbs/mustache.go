package hbs

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type statementKind int

const (
	stmtExpression statementKind = iota
	stmtComment
	stmtOpenBlock
	stmtOpenInverse
	stmtElse
	stmtCloseBlock
)

// statement is a classified `{{...}}` with its delimiters, whitespace
// control markers and sigil removed.
type statement struct {
	kind    statementKind
	trusted bool
	body    string
}

// classify determines what kind of statement a raw mustache is.
func classify(raw string) (statement, error) {
	if strings.HasPrefix(raw, "{{{") {
		inner := trimStrip(raw[3 : len(raw)-3])
		return statement{kind: stmtExpression, trusted: true, body: strings.TrimSpace(inner)}, nil
	}

	inner := trimStrip(raw[2 : len(raw)-2])
	// {{~{expression}~}}
	if len(inner) >= 2 && strings.HasPrefix(inner, "{") && strings.HasSuffix(inner, "}") {
		return statement{kind: stmtExpression, trusted: true, body: strings.TrimSpace(inner[1 : len(inner)-1])}, nil
	}
	if strings.HasPrefix(inner, "!") {
		value := inner[1:]
		if len(value) >= 4 && strings.HasPrefix(value, "--") && strings.HasSuffix(value, "--") {
			value = value[2 : len(value)-2]
		}
		return statement{kind: stmtComment, body: value}, nil
	}

	body := strings.TrimSpace(inner)
	if body == "" {
		return statement{}, fmt.Errorf("empty mustache statement")
	}

	switch body[0] {
	case '#':
		rest := body[1:]
		if strings.HasPrefix(rest, ">") {
			return statement{}, fmt.Errorf("partial blocks are not supported")
		}
		if strings.HasPrefix(rest, "*") {
			return statement{}, fmt.Errorf("decorator blocks are not supported")
		}
		return statement{kind: stmtOpenBlock, body: strings.TrimSpace(rest)}, nil
	case '^':
		rest := strings.TrimSpace(body[1:])
		if rest == "" {
			return statement{kind: stmtElse}, nil
		}
		return statement{kind: stmtOpenInverse, body: rest}, nil
	case '/':
		return statement{kind: stmtCloseBlock, body: strings.TrimSpace(body[1:])}, nil
	case '>':
		return statement{}, fmt.Errorf("partials are not supported")
	case '*':
		return statement{}, fmt.Errorf("decorators are not supported")
	case '&':
		return statement{kind: stmtExpression, trusted: true, body: strings.TrimSpace(body[1:])}, nil
	}

	if body == "else" {
		return statement{kind: stmtElse}, nil
	}
	if strings.HasPrefix(body, "else") {
		r, _ := utf8.DecodeRuneInString(body[4:])
		if unicode.IsSpace(r) {
			return statement{kind: stmtElse, body: strings.TrimSpace(body[4:])}, nil
		}
	}
	return statement{kind: stmtExpression, body: body}, nil
}

// trimStrip removes the `~` whitespace control markers.
func trimStrip(s string) string {
	s = strings.TrimPrefix(s, "~")
	return strings.TrimSuffix(s, "~")
}

// call is a parsed helper invocation: `path param... key=value... as |x|`.
type call struct {
	path        Node
	params      []Node
	hash        *Hash
	blockParams []string
}

// parseCall parses the expression inside a mustache.
func parseCall(src string) (*call, error) {
	p := &exprParser{src: src}
	c, err := p.call(false)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q", p.rest())
	}
	return c, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) eof() bool    { return p.pos >= len(p.src) }
func (p *exprParser) peek() byte   { return p.src[p.pos] }
func (p *exprParser) rest() string { return p.src[p.pos:] }

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("invalid expression %q: %s", p.src, fmt.Sprintf(format, args...))
}

func (p *exprParser) skipSpace() {
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.rest())
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

func (p *exprParser) call(sub bool) (*call, error) {
	p.skipSpace()
	if p.eof() || p.peek() == ')' {
		return nil, p.errorf("expected a helper or path")
	}
	path, err := p.param()
	if err != nil {
		return nil, err
	}

	c := &call{path: path}
	for {
		p.skipSpace()
		if p.eof() {
			return c, nil
		}
		if p.peek() == ')' {
			if sub {
				return c, nil
			}
			return nil, p.errorf("unexpected ')'")
		}
		if c.blockParams != nil {
			return nil, p.errorf("block params must come last")
		}

		if p.atBlockParams() {
			names, err := p.blockParams()
			if err != nil {
				return nil, err
			}
			c.blockParams = names
			continue
		}

		if key, ok := p.hashKey(); ok {
			value, err := p.param()
			if err != nil {
				return nil, err
			}
			if c.hash == nil {
				c.hash = &Hash{}
			}
			c.hash.Pairs = append(c.hash.Pairs, &HashPair{Key: key, Value: value})
			continue
		}

		if c.hash != nil {
			return nil, p.errorf("positional argument after hash arguments")
		}
		param, err := p.param()
		if err != nil {
			return nil, err
		}
		c.params = append(c.params, param)
	}
}

func (p *exprParser) param() (Node, error) {
	switch q := p.peek(); q {
	case '(':
		p.pos++
		c, err := p.call(true)
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.eof() || p.peek() != ')' {
			return nil, p.errorf("unclosed sub-expression")
		}
		p.pos++
		return &SubExpression{Path: c.path, Params: c.params, Hash: c.hash}, nil
	case '"', '\'':
		return p.stringLiteral(q)
	}
	return p.pathOrLiteral()
}

func (p *exprParser) stringLiteral(quote byte) (Node, error) {
	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		switch {
		case c == '\\' && p.pos+1 < len(p.src) && p.src[p.pos+1] == quote:
			b.WriteByte(quote)
			p.pos += 2
		case c == quote:
			p.pos++
			return &StringLiteral{Value: b.String()}, nil
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return nil, p.errorf("unterminated string")
}

func (p *exprParser) pathOrLiteral() (Node, error) {
	start := p.pos
	path := &PathExpression{}
	if p.peek() == '@' {
		path.Data = true
		p.pos++
	}

	for {
		seg, ok := p.segment()
		if !ok {
			if p.eof() {
				return nil, p.errorf("expected a path")
			}
			return nil, p.errorf("unexpected %q", p.rest())
		}
		switch {
		case seg == "." || seg == "..":
		case seg == "this" && len(path.Parts) == 0 && !path.Data:
			path.This = true
		default:
			path.Parts = append(path.Parts, seg)
		}
		if !p.separator() {
			break
		}
	}
	path.Original = p.src[start:p.pos]

	if path.Data || path.This || strings.HasPrefix(path.Original, "[") {
		return path, nil
	}
	return literalOrPath(path), nil
}

// segment reads one path segment.
func (p *exprParser) segment() (string, bool) {
	if p.eof() {
		return "", false
	}
	rest := p.rest()
	switch {
	case rest[0] == '[':
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", false
		}
		p.pos += end + 1
		return rest[1:end], true
	case strings.HasPrefix(rest, ".."):
		p.pos += 2
		return "..", true
	case rest[0] == '.':
		p.pos++
		return ".", true
	}

	n := 0
	for n < len(rest) {
		r, size := utf8.DecodeRuneInString(rest[n:])
		if !isIDRune(r) {
			break
		}
		n += size
	}
	if n == 0 {
		return "", false
	}
	p.pos += n
	return rest[:n], true
}

// separator consumes a `.` or `/` that is followed by another segment.
func (p *exprParser) separator() bool {
	rest := p.rest()
	if len(rest) < 2 || (rest[0] != '.' && rest[0] != '/') {
		return false
	}
	r, _ := utf8.DecodeRuneInString(rest[1:])
	if !isIDRune(r) && r != '[' && r != '.' {
		return false
	}
	p.pos++
	return true
}

// hashKey consumes `key=` when present.
func (p *exprParser) hashKey() (string, bool) {
	start := p.pos
	rest := p.rest()
	n := 0
	for n < len(rest) {
		r, size := utf8.DecodeRuneInString(rest[n:])
		if !isIDRune(r) {
			break
		}
		n += size
	}
	if n == 0 {
		return "", false
	}
	p.pos += n
	p.skipSpace()
	if p.eof() || p.peek() != '=' {
		p.pos = start
		return "", false
	}
	p.pos++
	p.skipSpace()
	if p.eof() {
		p.pos = start
		return "", false
	}
	return rest[:n], true
}

func (p *exprParser) atBlockParams() bool {
	rest := p.rest()
	if !strings.HasPrefix(rest, "as") || len(rest) < 3 {
		return false
	}
	after := strings.TrimLeftFunc(rest[2:], unicode.IsSpace)
	return len(after) < len(rest)-2 && strings.HasPrefix(after, "|")
}

func (p *exprParser) blockParams() ([]string, error) {
	p.pos += 2
	p.skipSpace()
	p.pos++ // opening pipe
	rest := p.rest()
	end := strings.IndexByte(rest, '|')
	if end < 0 {
		return nil, p.errorf("unterminated block params")
	}
	names := strings.Fields(rest[:end])
	if len(names) == 0 {
		return nil, p.errorf("empty block params")
	}
	for _, name := range names {
		for _, r := range name {
			if !isIDRune(r) {
				return nil, p.errorf("invalid block param %q", name)
			}
		}
	}
	p.pos += end + 1
	return names, nil
}

// isIDRune reports whether r may appear in a Handlebars identifier.
func isIDRune(r rune) bool {
	if unicode.IsSpace(r) || r == utf8.RuneError {
		return false
	}
	return !strings.ContainsRune("!\"#%&'()*+,./;<=>@[\\]^`{|}~", r)
}

// literalOrPath turns single-segment paths that spell a literal into
// the literal node.
func literalOrPath(path *PathExpression) Node {
	switch path.Original {
	case "true":
		return &BooleanLiteral{Value: true}
	case "false":
		return &BooleanLiteral{Value: false}
	case "null":
		return &NullLiteral{}
	case "undefined":
		return &UndefinedLiteral{}
	}
	if isNumber(path.Original) {
		v, err := strconv.ParseFloat(path.Original, 64)
		if err == nil {
			return &NumberLiteral{Value: v, Original: path.Original}
		}
	}
	return path
}

// isNumber matches -?[0-9]+(\.[0-9]+)?
func isNumber(s string) bool {
	s = strings.TrimPrefix(s, "-")
	whole, frac, hasFrac := strings.Cut(s, ".")
	if !allDigits(whole) {
		return false
	}
	return !hasFrac || allDigits(frac)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// literalString returns the string form of a literal argument value.
// Paths and sub-expressions have no literal value.
func literalString(n Node) (string, bool) {
	switch v := n.(type) {
	case *StringLiteral:
		return v.Value, true
	case *NumberLiteral:
		return v.Original, true
	case *BooleanLiteral:
		return strconv.FormatBool(v.Value), true
	}
	return "", false
}
