package ast

import (
	"strings"

	"github.com/declang/declang/lexer"
)

// Render reproduces n as declang source text. Used by `declang fmt` to
// pretty-print a parsed file back to source: the AST is the only thing
// that command reads, so round-tripping through Render is what exercises
// the tree shape end to end rather than just re-emitting the original
// bytes.
func Render(n Node) string {
	var b strings.Builder
	renderNode(&b, n, 0)
	return b.String()
}

// RenderFile renders f's top-level statements the way the parser read them
// — one per line, no enclosing braces, since a File's root block is
// implicit.
func RenderFile(f *File) string {
	var b strings.Builder
	renderStmts(&b, f.Root.Stmts, 0)
	renderTrailing(&b, f.Root.Trailing, 0)
	return b.String()
}

func writeIndent(b *strings.Builder, indent int) {
	b.WriteString(strings.Repeat("  ", indent))
}

func renderHashLine(b *strings.Builder, line string) {
	b.WriteString("#")
	if line != "" {
		b.WriteString(" ")
		b.WriteString(line)
	}
	b.WriteString("\n")
}

func renderTrailing(b *strings.Builder, lines []string, indent int) {
	for _, line := range lines {
		writeIndent(b, indent)
		renderHashLine(b, line)
	}
}

func renderLeading(b *strings.Builder, n Node, indent int) {
	for _, line := range n.Comments().Before {
		writeIndent(b, indent)
		renderHashLine(b, line)
	}
}

func renderSuffix(b *strings.Builder, n Node) {
	if s := n.Comments().Suffix; s != "" {
		b.WriteString("  # ")
		b.WriteString(s)
	}
}

// renderStmts renders one statement per line, indented, with its leading
// and same-line suffix comments.
func renderStmts(b *strings.Builder, stmts []Node, indent int) {
	for _, stmt := range stmts {
		if bc, ok := stmt.(*BlockComment); ok {
			writeIndent(b, indent)
			renderBlockCommentLines(b, bc, indent)
			continue
		}
		renderLeading(b, stmt, indent)
		writeIndent(b, indent)
		renderNode(b, stmt, indent)
		renderSuffix(b, stmt)
		b.WriteString("\n")
	}
}

func renderBlockCommentLines(b *strings.Builder, bc *BlockComment, indent int) {
	for i, line := range bc.Lines {
		if i > 0 {
			writeIndent(b, indent)
		}
		renderHashLine(b, line)
	}
}

func renderNode(b *strings.Builder, n Node, indent int) {
	switch v := n.(type) {
	case *Literal:
		b.WriteString(renderLiteral(v))
	case *Identifier:
		b.WriteString(v.Name)
	case *Accessor:
		renderNode(b, v.Object, indent)
		if v.IsMember() {
			b.WriteString(".")
			b.WriteString(v.Member)
		} else {
			b.WriteString("[")
			renderNode(b, v.Index, indent)
			b.WriteString("]")
		}
	case *UnaryOp:
		b.WriteString(v.Op.String())
		renderNode(b, v.Operand, indent)
	case *BinaryOp:
		renderNode(b, v.Left, indent)
		b.WriteString(" ")
		b.WriteString(v.OpTok.Value)
		b.WriteString(" ")
		renderNode(b, v.Right, indent)
	case *List:
		renderList(b, v, indent)
	case *FunctionCall:
		renderCall(b, v, indent)
	case *Condition:
		renderCondition(b, v, indent)
	case *Block:
		renderBlock(b, v, indent)
	case *BlockComment:
		renderBlockCommentLines(b, v, indent)
	}
}

func renderLiteral(l *Literal) string {
	if l.Token.Type == lexer.STRING {
		return "\"" + l.Token.Value + "\""
	}
	return l.Token.Value
}

func renderList(b *strings.Builder, l *List, indent int) {
	if len(l.Items) == 0 {
		b.WriteString("[]")
		return
	}
	b.WriteString("[\n")
	for _, item := range l.Items {
		if bc, ok := item.(*BlockComment); ok {
			writeIndent(b, indent+1)
			renderBlockCommentLines(b, bc, indent+1)
			continue
		}
		renderLeading(b, item, indent+1)
		writeIndent(b, indent+1)
		renderNode(b, item, indent+1)
		b.WriteString(",")
		renderSuffix(b, item)
		b.WriteString("\n")
	}
	writeIndent(b, indent)
	b.WriteString("]")
}

func renderCall(b *strings.Builder, c *FunctionCall, indent int) {
	b.WriteString(c.Name())
	b.WriteString("(")
	for i, arg := range c.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		renderNode(b, arg, indent)
	}
	b.WriteString(")")
	if c.Block != nil {
		b.WriteString(" ")
		renderBlock(b, c.Block, indent)
	}
}

func renderCondition(b *strings.Builder, c *Condition, indent int) {
	b.WriteString("if (")
	renderNode(b, c.Cond, indent)
	b.WriteString(") ")
	renderBlock(b, c.Then, indent)
	switch els := c.Else.(type) {
	case *Condition:
		b.WriteString(" else ")
		renderCondition(b, els, indent)
	case *Block:
		b.WriteString(" else ")
		renderBlock(b, els, indent)
	}
}

func renderBlock(b *strings.Builder, blk *Block, indent int) {
	b.WriteString("{\n")
	renderStmts(b, blk.Stmts, indent+1)
	renderTrailing(b, blk.Trailing, indent+1)
	writeIndent(b, indent)
	b.WriteString("}")
}
