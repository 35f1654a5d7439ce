// Package parser implements a Pratt expression parser combined with a
// recursive-descent statement parser over the token stream produced by
// package lexer, matching the precedence table described in spec §4.2
// (also confirmed against original_source/icl/parser.cc).
package parser

import (
	"strings"

	"github.com/declang/declang/ast"
	"github.com/declang/declang/errs"
	"github.com/declang/declang/lexer"
)

// precedence levels, lowest to highest.
const (
	precLowest = iota
	precOr     // ||
	precAnd    // &&
	precEquality
	precRelation
	precSum
	precPrefix
	precCall
	precDot
)

var precedences = map[lexer.TokenType]int{
	lexer.EQUALS:        precLowest + 1, // assignment, handled specially (right-assoc, statement position)
	lexer.PLUS_EQUALS:   precLowest + 1,
	lexer.MINUS_EQUALS:  precLowest + 1,
	lexer.BOOLEAN_OR:    precOr,
	lexer.BOOLEAN_AND:   precAnd,
	lexer.EQUAL_EQUAL:   precEquality,
	lexer.NOT_EQUAL:     precEquality,
	lexer.LESS_THAN:     precRelation,
	lexer.LESS_EQUAL:    precRelation,
	lexer.GREATER_THAN:  precRelation,
	lexer.GREATER_EQUAL: precRelation,
	lexer.PLUS:          precSum,
	lexer.MINUS:         precSum,
	lexer.LEFT_PAREN:    precCall,
	lexer.LEFT_BRACKET:  precCall,
	lexer.DOT:           precDot,
}

// statementBreak tokens abort the Pratt loop: they can never continue an
// expression, so a parse that reaches one of these in led-lookup position
// simply stops and the enclosing statement parser takes back over. This
// matches how GN's grammar avoids requiring a terminator like `;` — each
// statement starts on a fresh token position.
var statementBreak = map[lexer.TokenType]bool{
	lexer.EOF:         true,
	lexer.RIGHT_BRACE:  true,
	lexer.RIGHT_PAREN:  true,
	lexer.RIGHT_BRACKET: true,
	lexer.COMMA:        true,
	lexer.IF:           true,
}

// Parser holds the token stream and current position. Create with New.
type Parser struct {
	file   string
	tokens []lexer.Token // comment tokens already removed
	pos    int
	err    errs.Err
}

// Parse tokenizes and parses src, returning the complete file AST with
// comments attached, or the first error encountered (lexical or
// syntactic).
func Parse(file, src string) (*ast.File, errs.Err) {
	lx := lexer.New(file, src)
	toks, lerr := lx.Tokenize()
	if lerr.HasError() {
		return nil, lerr
	}

	// BLOCK_COMMENT tokens stay in the real stream: parseBlockBody and
	// parseList turn each contiguous run into its own ast.BlockComment
	// node (spec §4.1/§4.2), rather than being attached to a neighboring
	// node the way LINE_COMMENT/SUFFIX_COMMENT are.
	var real []lexer.Token
	var comments []lexer.Token
	for _, t := range toks {
		switch t.Type {
		case lexer.LINE_COMMENT, lexer.SUFFIX_COMMENT:
			comments = append(comments, t)
		default:
			real = append(real, t)
		}
	}

	p := &Parser{file: file, tokens: real}
	root, perr := p.parseBlockBody(lexer.EOF, ast.DiscardsResult)
	if perr.HasError() {
		return nil, perr
	}
	if !p.atEOF() {
		return nil, errs.Atf(errs.KindParse, p.current(),
			"Unexpected \"%s\" here; expected the end of the file.", p.current().Value)
	}

	f := ast.NewFile(file, root)
	ast.AttachComments(f, comments)
	return f, errs.Err{}
}

func (p *Parser) current() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek() lexer.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) advance() lexer.Token {
	t := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool { return p.current().Type == lexer.EOF }

func (p *Parser) expect(tt lexer.TokenType, what string) (lexer.Token, errs.Err) {
	if p.current().Type != tt {
		return lexer.Token{}, errs.Atf(errs.KindParse, p.current(),
			"Expected %s but got \"%s\".", what, p.current().Value)
	}
	return p.advance(), errs.Err{}
}

// parseBlockBody parses statements until it sees `until` (EOF for the file
// root, RIGHT_BRACE for a braced block), not consuming `until` itself. A
// run of BLOCK_COMMENT tokens becomes its own ast.BlockComment statement
// (spec §4.2's `Stmt := Cond | BlockComment | Expr`) rather than being
// handed to the expression parser.
func (p *Parser) parseBlockBody(until lexer.TokenType, mode ast.ResultMode) (*ast.Block, errs.Err) {
	begin := p.current().Begin
	var stmts []ast.Node
	for p.current().Type != until && !p.atEOF() {
		if p.current().Type == lexer.BLOCK_COMMENT {
			stmts = append(stmts, p.parseBlockCommentRun())
			continue
		}
		stmt, err := p.parseStatement()
		if err.HasError() {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	end := p.current().Begin
	return ast.NewBlock(stmts, mode, errs.Range{Begin: begin, End: end}), errs.Err{}
}

// parseBlockCommentRun consumes one contiguous run of BLOCK_COMMENT tokens
// (as classified by the lexer) and folds them into a single
// ast.BlockComment node, one Lines entry per source line.
func (p *Parser) parseBlockCommentRun() *ast.BlockComment {
	begin := p.current().Begin
	end := begin
	var lines []string
	for p.current().Type == lexer.BLOCK_COMMENT {
		tok := p.advance()
		lines = append(lines, stripCommentHash(tok.Value))
		end = tok.End
	}
	return ast.NewBlockComment(lines, errs.Range{Begin: begin, End: end})
}

// stripCommentHash trims the leading "#" and the single space that
// conventionally follows it from a raw comment token's text.
func stripCommentHash(s string) string {
	return strings.TrimPrefix(strings.TrimPrefix(s, "#"), " ")
}

// parseStatement parses one top-level-or-block statement: an if, or an
// expression statement (which covers assignment, since `=` is just the
// lowest-precedence infix operator, and bare function calls like
// `assert(...)`).
func (p *Parser) parseStatement() (ast.Node, errs.Err) {
	if p.current().Type == lexer.IF {
		return p.parseCondition()
	}
	return p.parseExpression(precLowest)
}

func (p *Parser) parseCondition() (ast.Node, errs.Err) {
	begin := p.current().Begin
	p.advance() // "if"
	if _, err := p.expect(lexer.LEFT_PAREN, "\"(\""); err.HasError() {
		return nil, err
	}
	cond, err := p.parseExpression(precLowest)
	if err.HasError() {
		return nil, err
	}
	if _, err := p.expect(lexer.RIGHT_PAREN, "\")\""); err.HasError() {
		return nil, err
	}
	then, err := p.parseBracedBlock(ast.DiscardsResult)
	if err.HasError() {
		return nil, err
	}
	var elseNode ast.Node
	end := then.ErrRange().End
	if p.current().Type == lexer.ELSE {
		p.advance()
		if p.current().Type == lexer.IF {
			elseNode, err = p.parseCondition()
		} else {
			elseNode, err = p.parseBracedBlock(ast.DiscardsResult)
		}
		if err.HasError() {
			return nil, err
		}
		end = elseNode.ErrRange().End
	}
	return ast.NewCondition(cond, then, elseNode, errs.Range{Begin: begin, End: end}), errs.Err{}
}

func (p *Parser) parseBracedBlock(mode ast.ResultMode) (*ast.Block, errs.Err) {
	if _, err := p.expect(lexer.LEFT_BRACE, "\"{\""); err.HasError() {
		return nil, err
	}
	block, err := p.parseBlockBody(lexer.RIGHT_BRACE, mode)
	if err.HasError() {
		return nil, err
	}
	end := p.current().End
	if _, err := p.expect(lexer.RIGHT_BRACE, "\"}\""); err.HasError() {
		return nil, err
	}
	block.Range.End = end
	return block, errs.Err{}
}

// parseExpression is the Pratt loop: parse a prefix (nud), then repeatedly
// fold in infix/postfix operators (led) whose precedence exceeds minPrec.
// Assignment (`=`, `+=`, `-=`) is right-associative: it's parsed here like
// any other infix operator, but parseInfix recurses on the right-hand side
// with the operator's own precedence minus one, so a chain like `a = b = 1` nests correctly. statementBreak tokens
// stop the loop outright rather than being treated as precedence 0, so a
// bare expression statement never accidentally swallows the next line.
func (p *Parser) parseExpression(minPrec int) (ast.Node, errs.Err) {
	left, err := p.parsePrefix()
	if err.HasError() {
		return nil, err
	}
	for {
		tt := p.current().Type
		if statementBreak[tt] {
			break
		}
		prec, ok := precedences[tt]
		if !ok || prec <= minPrec {
			break
		}
		left, err = p.parseInfix(left, prec)
		if err.HasError() {
			return nil, err
		}
	}
	return left, errs.Err{}
}

func (p *Parser) parsePrefix() (ast.Node, errs.Err) {
	tok := p.current()
	switch tok.Type {
	case lexer.INTEGER, lexer.STRING, lexer.TRUE, lexer.FALSE:
		p.advance()
		return ast.NewLiteral(tok), errs.Err{}
	case lexer.BANG, lexer.MINUS:
		p.advance()
		operand, err := p.parseExpression(precPrefix)
		if err.HasError() {
			return nil, err
		}
		return ast.NewUnaryOp(tok, operand), errs.Err{}
	case lexer.LEFT_PAREN:
		p.advance()
		inner, err := p.parseExpression(precLowest)
		if err.HasError() {
			return nil, err
		}
		if _, err := p.expect(lexer.RIGHT_PAREN, "\")\""); err.HasError() {
			return nil, err
		}
		return inner, errs.Err{}
	case lexer.LEFT_BRACKET:
		return p.parseList()
	case lexer.LEFT_BRACE:
		return p.parseBracedBlock(ast.ReturnsScope)
	case lexer.IDENTIFIER:
		p.advance()
		if p.current().Type == lexer.LEFT_PAREN {
			return p.parseCall(tok)
		}
		return ast.NewIdentifier(tok), errs.Err{}
	default:
		return nil, errs.Atf(errs.KindParse, tok,
			"Unexpected \"%s\" here; expected an expression.", tok.Value)
	}
}

// parseList parses `[ e, e, … ]`. A run of BLOCK_COMMENT tokens may appear
// before the first item, between items, or after the last one; per spec
// §4.2 ("block comments inside lists consume the comma requirement to the
// following item"), a block comment run found right after an item stands
// in for the separating comma, so the next item doesn't also need one.
func (p *Parser) parseList() (ast.Node, errs.Err) {
	begin := p.current().Begin
	p.advance() // [
	var items []ast.Node
	for {
		for p.current().Type == lexer.BLOCK_COMMENT {
			items = append(items, p.parseBlockCommentRun())
		}
		if p.current().Type == lexer.RIGHT_BRACKET {
			break
		}
		item, err := p.parseExpression(precLowest)
		if err.HasError() {
			return nil, err
		}
		items = append(items, item)

		sawComment := false
		for p.current().Type == lexer.BLOCK_COMMENT {
			items = append(items, p.parseBlockCommentRun())
			sawComment = true
		}
		if p.current().Type == lexer.COMMA {
			p.advance()
			continue
		}
		if sawComment {
			continue
		}
		break
	}
	end := p.current().End
	if _, err := p.expect(lexer.RIGHT_BRACKET, "\"]\""); err.HasError() {
		return nil, err
	}
	return ast.NewList(items, errs.Range{Begin: begin, End: end}), errs.Err{}
}

func (p *Parser) parseCall(name lexer.Token) (ast.Node, errs.Err) {
	p.advance() // (
	var args []ast.Node
	for p.current().Type != lexer.RIGHT_PAREN {
		arg, err := p.parseExpression(precLowest)
		if err.HasError() {
			return nil, err
		}
		args = append(args, arg)
		if p.current().Type == lexer.COMMA {
			p.advance()
			continue
		}
		break
	}
	closeParen, err := p.expect(lexer.RIGHT_PAREN, "\")\"")
	if err.HasError() {
		return nil, err
	}
	end := closeParen.End
	var block *ast.Block
	if p.current().Type == lexer.LEFT_BRACE {
		block, err = p.parseBracedBlock(ast.DiscardsResult)
		if err.HasError() {
			return nil, err
		}
		end = block.ErrRange().End
	}
	return ast.NewFunctionCall(name, args, block, errs.Range{Begin: name.Begin, End: end}), errs.Err{}
}

func (p *Parser) parseInfix(left ast.Node, prec int) (ast.Node, errs.Err) {
	op := p.advance()
	switch op.Type {
	case lexer.DOT:
		member, err := p.expect(lexer.IDENTIFIER, "a member name")
		if err.HasError() {
			return nil, err
		}
		return ast.NewMemberAccessor(left, member.Value, member.End), errs.Err{}
	case lexer.LEFT_BRACKET:
		index, err := p.parseExpression(precLowest)
		if err.HasError() {
			return nil, err
		}
		end := p.current().End
		if _, err := p.expect(lexer.RIGHT_BRACKET, "\"]\""); err.HasError() {
			return nil, err
		}
		return ast.NewIndexAccessor(left, index, end), errs.Err{}
	case lexer.EQUALS, lexer.PLUS_EQUALS, lexer.MINUS_EQUALS:
		right, err := p.parseExpression(prec - 1)
		if err.HasError() {
			return nil, err
		}
		return ast.NewBinaryOp(op, left, right), errs.Err{}
	default:
		right, err := p.parseExpression(prec)
		if err.HasError() {
			return nil, err
		}
		return ast.NewBinaryOp(op, left, right), errs.Err{}
	}
}
