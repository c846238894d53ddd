// Package hbs parses Handlebars templates written in Glimmer's HTML-aware
// dialect and extracts search contents from the resulting tree.
//
// The tree mirrors Glimmer's AST: HTML elements, text and comments
// interleaved with mustache statements and blocks. Tokenization of the
// HTML layer is done by golang.org/x/net/html.
package hbs

// NodeType identifies the kind of a Node.
type NodeType int

// Node types.
const (
	ProgramNode NodeType = iota
	ElementNode
	TextNode
	MustacheNode
	BlockNode
	CommentNode
	MustacheCommentNode
	ConcatNode
	PathNode
	StringNode
	NumberNode
	BooleanNode
	NullNode
	UndefinedNode
	SubExpressionNode
	HashNode
	HashPairNode
)

var nodeTypeNames = [...]string{
	ProgramNode:         "Program",
	ElementNode:         "ElementNode",
	TextNode:            "TextNode",
	MustacheNode:        "MustacheStatement",
	BlockNode:           "BlockStatement",
	CommentNode:         "CommentStatement",
	MustacheCommentNode: "MustacheCommentStatement",
	ConcatNode:          "ConcatStatement",
	PathNode:            "PathExpression",
	StringNode:          "StringLiteral",
	NumberNode:          "NumberLiteral",
	BooleanNode:         "BooleanLiteral",
	NullNode:            "NullLiteral",
	UndefinedNode:       "UndefinedLiteral",
	SubExpressionNode:   "SubExpression",
	HashNode:            "Hash",
	HashPairNode:        "HashPair",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "Unknown"
}

// Node is an element of a parsed template.
type Node interface {
	Type() NodeType
}

// Program is a sequence of statements: the template root, or the body of
// a block.
type Program struct {
	Body []Node

	// BlockParams are the names bound by `as |x y|` on the owning block.
	BlockParams []string
}

// Element is an HTML element or component invocation.
type Element struct {
	// Tag is the tag name as written in the source.
	Tag         string
	Attributes  []*Attribute
	Modifiers   []*Mustache
	Children    []Node
	SelfClosing bool
}

// Attribute is a name/value pair on an element. Value is a *Text,
// *Mustache or *Concat.
type Attribute struct {
	Name  string
	Value Node
}

// Text is literal template text, kept verbatim.
type Text struct {
	Chars string
}

// Mustache is a `{{expression}}` statement.
type Mustache struct {
	Path   Node
	Params []Node
	Hash   *Hash

	// Trusted is set for `{{{expression}}}` and `{{&expression}}`.
	Trusted bool
}

// Block is a `{{#helper}}...{{/helper}}` statement.
type Block struct {
	Path    Node
	Params  []Node
	Hash    *Hash
	Program *Program
	Inverse *Program
}

// Comment is an HTML comment.
type Comment struct {
	Value string
}

// MustacheComment is a `{{! comment}}` statement.
type MustacheComment struct {
	Value string
}

// Concat is an attribute value that mixes text and mustaches.
type Concat struct {
	Parts []Node
}

// PathExpression is a helper or property reference such as `foo.bar`,
// `@index` or `pulse-docs/heading`.
type PathExpression struct {
	// Original is the path as written in the source.
	Original string
	Parts    []string
	Data     bool
	This     bool
}

// StringLiteral is a quoted string.
type StringLiteral struct {
	Value string
}

// NumberLiteral is a numeric literal.
type NumberLiteral struct {
	Value    float64
	Original string
}

// BooleanLiteral is `true` or `false`.
type BooleanLiteral struct {
	Value bool
}

// NullLiteral is `null`.
type NullLiteral struct{}

// UndefinedLiteral is `undefined`.
type UndefinedLiteral struct{}

// SubExpression is a parenthesized helper call.
type SubExpression struct {
	Path   Node
	Params []Node
	Hash   *Hash
}

// Hash holds the key=value arguments of a call.
type Hash struct {
	Pairs []*HashPair
}

// HashPair is a single key=value argument.
type HashPair struct {
	Key   string
	Value Node
}

// Lookup returns the value of the first pair with the given key.
func (h *Hash) Lookup(key string) (Node, bool) {
	if h == nil {
		return nil, false
	}
	for _, pair := range h.Pairs {
		if pair.Key == key {
			return pair.Value, true
		}
	}
	return nil, false
}

func (*Program) Type() NodeType          { return ProgramNode }
func (*Element) Type() NodeType          { return ElementNode }
func (*Text) Type() NodeType             { return TextNode }
func (*Mustache) Type() NodeType         { return MustacheNode }
func (*Block) Type() NodeType            { return BlockNode }
func (*Comment) Type() NodeType          { return CommentNode }
func (*MustacheComment) Type() NodeType  { return MustacheCommentNode }
func (*Concat) Type() NodeType           { return ConcatNode }
func (*PathExpression) Type() NodeType   { return PathNode }
func (*StringLiteral) Type() NodeType    { return StringNode }
func (*NumberLiteral) Type() NodeType    { return NumberNode }
func (*BooleanLiteral) Type() NodeType   { return BooleanNode }
func (*NullLiteral) Type() NodeType      { return NullNode }
func (*UndefinedLiteral) Type() NodeType { return UndefinedNode }
func (*SubExpression) Type() NodeType    { return SubExpressionNode }
func (*Hash) Type() NodeType             { return HashNode }
func (*HashPair) Type() NodeType         { return HashPairNode }

// pathOriginal returns the source text of n when it is a path expression.
func pathOriginal(n Node) (string, bool) {
	p, ok := n.(*PathExpression)
	if !ok {
		return "", false
	}
	return p.Original, true
}
