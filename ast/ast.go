// Package ast defines the typed syntax tree produced by the parser: a sum
// over literal, identifier, accessor, unary/binary operator, list,
// function-call, conditional, block, and block-comment nodes (spec §3). Each
// node carries its source range for error blame and an optional set of
// attached comments (spec §4.2's two-pass comment attachment).
package ast

import (
	"github.com/declang/declang/errs"
	"github.com/declang/declang/lexer"
)

// Node is implemented by every AST node.
type Node interface {
	// ErrRange implements errs.Blamable.
	ErrRange() errs.Range
	// Comments returns the comments attached to this node by the
	// attachment pass (see comments.go). Never nil.
	Comments() *Comments
	// commentsPtr gives the attachment pass write access.
	commentsPtr() *Comments
}

// Comments holds the comments attached to a single node.
type Comments struct {
	// Before holds line-comment text (without the leading '#') that
	// preceded this node and was attached to it as leading comments.
	Before []string
	// Suffix holds the suffix-comment text, if any, that trailed this
	// node on the same source line.
	Suffix string
}

// base is embedded in every concrete node and implements the bookkeeping
// portion of the Node interface.
type base struct {
	Range    errs.Range
	comments Comments
}

func (b *base) ErrRange() errs.Range      { return b.Range }
func (b *base) Comments() *Comments       { return &b.comments }
func (b *base) commentsPtr() *Comments    { return &b.comments }

// ResultMode describes what a Block evaluates to when executed (spec §3).
type ResultMode int

const (
	// DiscardsResult evaluates statements for effect only.
	DiscardsResult ResultMode = iota
	// ReturnsScope creates a fresh child scope, executes the block in
	// it, and yields that scope as a scope Value (e.g. `x = { a = 1 }`).
	ReturnsScope
)

// Literal is an integer, string, true, or false literal token.
type Literal struct {
	base
	Token lexer.Token
}

func NewLiteral(tok lexer.Token) *Literal {
	return &Literal{base: base{Range: tok.ErrRange()}, Token: tok}
}

// Identifier is a bare name reference.
type Identifier struct {
	base
	Name string
}

func NewIdentifier(tok lexer.Token) *Identifier {
	return &Identifier{base: base{Range: tok.ErrRange()}, Name: tok.Value}
}

// Accessor is `base.member` (Member != "") or `base[index]` (Index != nil).
type Accessor struct {
	base
	Object Node
	Member string
	Index  Node // nil for the member form
}

func NewMemberAccessor(object Node, member string, end errs.Location) *Accessor {
	return &Accessor{
		base:   base{Range: errs.Range{Begin: object.ErrRange().Begin, End: end}},
		Object: object,
		Member: member,
	}
}

func NewIndexAccessor(object Node, index Node, end errs.Location) *Accessor {
	return &Accessor{
		base:   base{Range: errs.Range{Begin: object.ErrRange().Begin, End: end}},
		Object: object,
		Index:  index,
	}
}

// IsMember reports whether this is the `.member` form rather than
// `[index]`.
func (a *Accessor) IsMember() bool { return a.Index == nil }

// UnaryOp is a prefix `!` or `-` expression.
type UnaryOp struct {
	base
	Op      lexer.TokenType
	Operand Node
}

func NewUnaryOp(op lexer.Token, operand Node) *UnaryOp {
	return &UnaryOp{
		base:    base{Range: errs.Range{Begin: op.Begin, End: operand.ErrRange().End}},
		Op:      op.Type,
		Operand: operand,
	}
}

// BinaryOp is an infix arithmetic, relational, equality, or boolean
// expression, or an assignment (`=`, `+=`, `-=`).
type BinaryOp struct {
	base
	Op    lexer.TokenType
	OpTok lexer.Token
	Left  Node
	Right Node
}

func NewBinaryOp(op lexer.Token, left, right Node) *BinaryOp {
	return &BinaryOp{
		base:  base{Range: errs.Range{Begin: left.ErrRange().Begin, End: right.ErrRange().End}},
		Op:    op.Type,
		OpTok: op,
		Left:  left,
		Right: right,
	}
}

// IsAssignment reports whether Op is one of =, +=, -=.
func (b *BinaryOp) IsAssignment() bool {
	switch b.Op {
	case lexer.EQUALS, lexer.PLUS_EQUALS, lexer.MINUS_EQUALS:
		return true
	default:
		return false
	}
}

// List is a `[ e, e, … ]` expression. BlockComment children are kept in
// Items (so comment attachment can find them) but are skipped by the
// evaluator (spec §4.5).
type List struct {
	base
	Items []Node
}

func NewList(items []Node, r errs.Range) *List {
	return &List{base: base{Range: r}, Items: items}
}

// FunctionCall is `name(args) [{block}]`.
type FunctionCall struct {
	base
	NameTok lexer.Token
	Args    []Node
	Block   *Block // nil if no block was given
}

func (f *FunctionCall) Name() string { return f.NameTok.Value }

func NewFunctionCall(name lexer.Token, args []Node, block *Block, r errs.Range) *FunctionCall {
	return &FunctionCall{base: base{Range: r}, NameTok: name, Args: args, Block: block}
}

// Condition is `if (expr) { … } [else (Block | Condition)]`.
type Condition struct {
	base
	Cond Node
	Then *Block
	Else Node // *Block, *Condition, or nil
}

func NewCondition(cond Node, then *Block, els Node, r errs.Range) *Condition {
	return &Condition{base: base{Range: r}, Cond: cond, Then: then, Else: els}
}

// Block is `{ Stmt* }`, or the implicit root block of a file.
type Block struct {
	base
	Stmts      []Node
	ResultMode ResultMode
	// Trailing holds line comments that appeared after the last
	// statement with no following node to attach to (spec §4.2).
	Trailing []string
}

func NewBlock(stmts []Node, mode ResultMode, r errs.Range) *Block {
	return &Block{base: base{Range: r}, Stmts: stmts, ResultMode: mode}
}

// BlockComment is a standalone block-comment statement (spec §4.1/§4.2):
// a line comment preceded and followed by blank lines, kept in the tree as
// its own statement rather than attached to a neighbor.
type BlockComment struct {
	base
	Lines []string
}

func NewBlockComment(lines []string, r errs.Range) *BlockComment {
	return &BlockComment{base: base{Range: r}, Lines: lines}
}

// File is the parsed root of one input file: its top-level statement
// sequence plus any trailing line comments not attached to a node.
type File struct {
	base
	Name  string
	Root  *Block
}

func NewFile(name string, root *Block) *File {
	return &File{base: base{Range: root.Range}, Name: name, Root: root}
}
