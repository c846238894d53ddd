package hbs

import (
	"math"
	"strings"

	"github.com/fwojciec/hbscontent"
)

const (
	// headingHelper marks an element as declaring a search keyword.
	headingHelper = "pulse-docs/heading"

	// headingProperty is the hash argument holding the keyword.
	headingProperty = "property"
)

// Version identifies the extraction rules. It changes whenever a template
// may extract to different contents than before, which invalidates
// contents cached by earlier builds.
const Version = "2"

// Ensure Extractor implements hbscontent.Extractor at compile time.
var _ hbscontent.Extractor = (*Extractor)(nil)

// Extractor extracts search contents from Handlebars templates.
// It holds no state and is safe for concurrent use.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses content and walks it once, collecting the title, body
// and keywords. Parse errors are returned unchanged.
func (e *Extractor) Extract(content string) (*hbscontent.Contents, error) {
	program, err := Parse(content)
	if err != nil {
		return nil, err
	}

	x := newExtraction()
	Walk(program, x.visit)
	return x.contents(content), nil
}

// ExtractJSON extracts content and returns the serialized contents.
func (e *Extractor) ExtractJSON(content string) (string, error) {
	contents, err := e.Extract(content)
	if err != nil {
		return "", err
	}
	return contents.Marshal()
}

// title tracks the best heading seen so far.
type title struct {
	level     int
	node      *Element
	fragments []string
}

// extraction is the state of a single Extract call.
type extraction struct {
	// parents maps each indexed text node to its program or element.
	// Text outside of this map contributes nothing.
	parents map[*Text]Node

	title    title
	body     []string
	keywords []string
}

func newExtraction() *extraction {
	return &extraction{
		parents:  make(map[*Text]Node),
		title:    title{level: math.MaxInt},
		keywords: []string{},
	}
}

func (x *extraction) visit(n Node) bool {
	switch n := n.(type) {
	case *Program:
		x.index(n, n.Body)
	case *Element:
		if isHeadingKeyword(n) {
			x.addKeyword(n)
		} else {
			x.index(n, n.Children)
		}
	case *Text:
		x.addText(n)
	}
	return true
}

// index records parent as the parent of the text nodes among children.
func (x *extraction) index(parent Node, children []Node) {
	for _, child := range children {
		if t, ok := child.(*Text); ok {
			x.parents[t] = parent
		}
	}
}

func (x *extraction) addText(t *Text) {
	parent, ok := x.parents[t]
	if !ok {
		return
	}
	x.body = append(x.body, t.Chars)

	el, ok := parent.(*Element)
	if !ok {
		return
	}
	if el == x.title.node {
		x.title.fragments = append(x.title.fragments, t.Chars)
		return
	}
	if level, ok := headingLevel(el.Tag); ok && level < x.title.level {
		x.title = title{level: level, node: el, fragments: []string{t.Chars}}
	}
}

func (x *extraction) addKeyword(el *Element) {
	value, ok := callHash(el.Children[0]).Lookup(headingProperty)
	if !ok {
		return
	}
	x.keywords = append(x.keywords, keywordValue(value))
}

// keywordValue returns the keyword a property value contributes: the
// value of a literal, the source text of a path, and an empty string for
// anything else.
func keywordValue(n Node) string {
	if s, ok := literalString(n); ok {
		return s
	}
	if p, ok := n.(*PathExpression); ok {
		return p.Original
	}
	return ""
}

func (x *extraction) contents(raw string) *hbscontent.Contents {
	c := &hbscontent.Contents{
		Body:        strings.Join(x.body, ""),
		Keywords:    x.keywords,
		RawTemplate: raw,
	}
	if x.title.node != nil {
		s := strings.Join(x.title.fragments, "")
		c.Title = &s
	}
	return c
}

// isHeadingKeyword reports whether el's first child invokes pulse-docs/heading.
func isHeadingKeyword(el *Element) bool {
	if len(el.Children) == 0 {
		return false
	}
	var path Node
	switch first := el.Children[0].(type) {
	case *Mustache:
		path = first.Path
	case *Block:
		path = first.Path
	default:
		return false
	}
	name, ok := pathOriginal(path)
	return ok && name == headingHelper
}

// callHash returns the hash arguments of a mustache or block.
func callHash(n Node) *Hash {
	switch n := n.(type) {
	case *Mustache:
		return n.Hash
	case *Block:
		return n.Hash
	}
	return nil
}

// headingLevel returns the level of an h0-h9 tag. Tags are matched
// case-sensitively.
func headingLevel(tag string) (int, bool) {
	if len(tag) != 2 || tag[0] != 'h' || tag[1] < '0' || tag[1] > '9' {
		return 0, false
	}
	return int(tag[1] - '0'), true
}
