package hbs

// Walk traverses the tree rooted at n depth-first in document order,
// calling fn for each node before its children. When fn returns false
// the node's children are skipped.
//
// Elements visit attribute values, then modifiers, then children. Blocks
// visit their path, params, hash, program and inverse, in that order.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	switch n := n.(type) {
	case *Program:
		walkAll(n.Body, fn)
	case *Element:
		for _, attr := range n.Attributes {
			Walk(attr.Value, fn)
		}
		for _, m := range n.Modifiers {
			Walk(m, fn)
		}
		walkAll(n.Children, fn)
	case *Mustache:
		walkCall(n.Path, n.Params, n.Hash, fn)
	case *SubExpression:
		walkCall(n.Path, n.Params, n.Hash, fn)
	case *Block:
		walkCall(n.Path, n.Params, n.Hash, fn)
		if n.Program != nil {
			Walk(n.Program, fn)
		}
		if n.Inverse != nil {
			Walk(n.Inverse, fn)
		}
	case *Concat:
		walkAll(n.Parts, fn)
	case *Hash:
		for _, pair := range n.Pairs {
			Walk(pair, fn)
		}
	case *HashPair:
		Walk(n.Value, fn)
	}
}

func walkAll(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		Walk(n, fn)
	}
}

func walkCall(path Node, params []Node, hash *Hash, fn func(Node) bool) {
	Walk(path, fn)
	walkAll(params, fn)
	if hash != nil {
		Walk(hash, fn)
	}
}
