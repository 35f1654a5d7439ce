package ast

import (
	"strings"

	"github.com/declang/declang/lexer"
)

// AttachComments implements the two-pass comment attachment described in
// spec §4.2. commentToks must be the LINE_COMMENT and SUFFIX_COMMENT tokens
// removed from the main token stream, in source order. BLOCK_COMMENT tokens
// stay in the main stream, where the parser turns each run into its own
// BlockComment statement node; any passed here are ignored.
func AttachComments(file *File, commentToks []lexer.Token) {
	preOrder := collectPreOrder(file.Root)
	attachLineComments(file, preOrder, commentToks)
	attachSuffixComments(preOrder, commentToks)
}

// collectPreOrder returns every node in the tree, parent before children,
// in source order.
func collectPreOrder(n Node) []Node {
	var out []Node
	var walk func(Node)
	walk = func(cur Node) {
		if cur == nil {
			return
		}
		out = append(out, cur)
		for _, child := range children(cur) {
			walk(child)
		}
	}
	walk(n)
	return out
}

// children returns a node's direct AST children in source order.
func children(n Node) []Node {
	switch v := n.(type) {
	case *Accessor:
		if v.Index != nil {
			return []Node{v.Object, v.Index}
		}
		return []Node{v.Object}
	case *UnaryOp:
		return []Node{v.Operand}
	case *BinaryOp:
		return []Node{v.Left, v.Right}
	case *List:
		return v.Items
	case *FunctionCall:
		out := append([]Node{}, v.Args...)
		if v.Block != nil {
			out = append(out, v.Block)
		}
		return out
	case *Condition:
		out := []Node{v.Cond, v.Then}
		if v.Else != nil {
			out = append(out, v.Else)
		}
		return out
	case *Block:
		return v.Stmts
	default:
		return nil
	}
}

// lastLeaf descends into the last child of container nodes (function call,
// list, block) so a suffix comment attaches to the innermost statement or
// expression rather than the container itself (spec §4.2).
func lastLeaf(n Node) Node {
	for {
		switch v := n.(type) {
		case *FunctionCall:
			if v.Block != nil {
				n = v.Block
				continue
			}
			if len(v.Args) > 0 {
				n = v.Args[len(v.Args)-1]
				continue
			}
			return n
		case *List:
			if len(v.Items) > 0 {
				n = v.Items[len(v.Items)-1]
				continue
			}
			return n
		case *Block:
			if len(v.Stmts) > 0 {
				n = v.Stmts[len(v.Stmts)-1]
				continue
			}
			return n
		default:
			return n
		}
	}
}

func isContainer(n Node) bool {
	switch n.(type) {
	case *FunctionCall, *List, *Block:
		return true
	default:
		return false
	}
}

func commentText(tok lexer.Token) string {
	return strings.TrimPrefix(strings.TrimPrefix(tok.Value, "#"), " ")
}

// attachLineComments assigns each LINE_COMMENT to the next non-Block node
// in pre-order whose start byte is >= the comment's byte; comments with no
// following node attach to the file root as trailing. Block nodes are
// skipped because a block's range starts at its first statement, so the
// comment lands on that statement instead.
func attachLineComments(file *File, preOrder []Node, commentToks []lexer.Token) {
	for _, tok := range commentToks {
		if tok.Type != lexer.LINE_COMMENT {
			continue
		}
		text := commentText(tok)
		attached := false
		for _, n := range preOrder {
			if _, isBlock := n.(*Block); isBlock {
				continue
			}
			if n.ErrRange().Begin.Byte >= tok.Begin.Byte {
				n.commentsPtr().Before = append(n.commentsPtr().Before, text)
				attached = true
				break
			}
		}
		if !attached {
			file.Root.Trailing = append(file.Root.Trailing, text)
		}
	}
}

// attachSuffixComments assigns each SUFFIX_COMMENT in reverse to the
// previous node in post-order (by end byte <= comment's byte), skipping
// into the innermost descendant of container nodes, and only to nodes whose
// range begins and ends on the comment's line.
func attachSuffixComments(preOrder []Node, commentToks []lexer.Token) {
	// For each comment, scan the pre-order list for the node ending latest
	// at or before it.
	for i := len(commentToks) - 1; i >= 0; i-- {
		tok := commentToks[i]
		if tok.Type != lexer.SUFFIX_COMMENT {
			continue
		}
		var best Node
		for _, n := range preOrder {
			r := n.ErrRange()
			if r.End.Byte > tok.Begin.Byte {
				continue
			}
			if best == nil || r.End.Byte > best.ErrRange().End.Byte {
				best = n
			}
		}
		if best == nil {
			continue
		}
		target := best
		if isContainer(target) {
			target = lastLeaf(target)
		}
		rng := target.ErrRange()
		if rng.Begin.Line != rng.End.Line || rng.End.Line != tok.Begin.Line {
			continue
		}
		target.commentsPtr().Suffix = commentText(tok)
	}
}
