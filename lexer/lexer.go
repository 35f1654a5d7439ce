// Package lexer tokenizes declang source text into a token stream,
// including the three kinds of comment tokens described in spec §4.1:
// line comments (attached before the following syntax), suffix comments
// (attached to the node ending on the same line), and block comments
// (blank-line-delimited, kept in the stream as standalone statements).
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/declang/declang/errs"
)

// Lexer tokenizes a single file's contents. Create with New and call
// Tokenize once; the zero value is not usable.
type Lexer struct {
	file  string
	src   string
	lines []string // src split on "\n", used for error snippets

	pos    int // byte offset into src
	line   int // 1-based
	col    int // 1-based, runes since start of line
	tokens []Token

	// sawRealTokenOnLine tracks whether a non-comment token has already
	// appeared on the current line, to distinguish line comments from
	// suffix comments (§4.1).
	sawRealTokenOnLine bool

	err errs.Err
}

// New creates a Lexer over src, identified as file for error messages.
func New(file, src string) *Lexer {
	return &Lexer{
		file:  file,
		src:   src,
		lines: strings.Split(src, "\n"),
		line:  1,
		col:   1,
	}
}

// Tokenize scans the entire input and returns the resulting token stream
// (always terminated by an EOF token) or the first lexical error
// encountered.
func (l *Lexer) Tokenize() ([]Token, errs.Err) {
	for {
		l.skipSpaces()
		if l.atEOF() {
			break
		}
		if !l.scanOne() {
			return nil, l.err
		}
	}
	l.tokens = append(l.tokens, Token{Type: EOF, Begin: l.here(), End: l.here()})
	l.classifyBlockComments()
	return l.tokens, errs.Err{}
}

func (l *Lexer) atEOF() bool { return l.pos >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.atEOF() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) here() errs.Location {
	lineText := ""
	if l.line-1 < len(l.lines) {
		lineText = l.lines[l.line-1]
	}
	return errs.Location{File: l.file, Line: l.line, Column: l.col, Byte: l.pos, LineText: lineText}
}

// advance consumes one byte, updating line/column bookkeeping. Column
// counts runes, so a continuation byte does not advance it.
func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
		l.sawRealTokenOnLine = false
	} else if utf8.RuneStart(c) {
		l.col++
	}
	return c
}

func (l *Lexer) skipSpaces() {
	for !l.atEOF() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) failf(format string, args ...interface{}) bool {
	begin := l.here()
	end := begin
	end.Column++
	end.Byte++
	l.err = errs.New(errs.KindLex, errs.Range{Begin: begin, End: end}, fmt.Sprintf(format, args...))
	return false
}

func (l *Lexer) scanOne() bool {
	start := l.here()
	c := l.peek()

	switch {
	case c == '#':
		return l.scanComment(start)
	case c == '"':
		return l.scanString(start)
	case c >= '0' && c <= '9':
		return l.scanNumber(start)
	case isIdentStart(c):
		return l.scanIdentifier(start)
	default:
		return l.scanOperator(start)
	}
}

func (l *Lexer) emit(tt TokenType, value string, start errs.Location) {
	l.tokens = append(l.tokens, Token{Type: tt, Value: value, Begin: start, End: l.here()})
	if !tt.IsComment() {
		l.sawRealTokenOnLine = true
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (l *Lexer) scanIdentifier(start errs.Location) bool {
	begin := l.pos
	for !l.atEOF() && isIdentCont(l.peek()) {
		l.advance()
	}
	text := l.src[begin:l.pos]
	if tt, ok := keywords[text]; ok {
		l.emit(tt, text, start)
	} else {
		l.emit(IDENTIFIER, text, start)
	}
	return true
}

func (l *Lexer) scanNumber(start errs.Location) bool {
	begin := l.pos
	for !l.atEOF() && l.peek() >= '0' && l.peek() <= '9' {
		l.advance()
	}
	text := l.src[begin:l.pos]
	if len(text) > 1 && text[0] == '0' {
		return l.failAt(start, "Invalid number literal.",
			"Integers may not have leading zeros.")
	}
	l.emit(INTEGER, text, start)
	return true
}

func (l *Lexer) failAt(start errs.Location, msg, help string) bool {
	l.err = errs.New(errs.KindLex, errs.Range{Begin: start, End: l.here()}, msg, help)
	return false
}

// scanString captures the raw text between quotes without interpreting
// escapes; escape and interpolation processing happens later, at value
// realization time (spec §4.4). The tokenizer only needs to know where the
// string ends, which means understanding \\ and \" well enough not to stop
// early on an escaped quote.
func (l *Lexer) scanString(start errs.Location) bool {
	l.advance() // opening quote
	begin := l.pos
	for {
		if l.atEOF() {
			return l.failAt(start, "Unterminated string literal.", "")
		}
		c := l.peek()
		if c == '\n' {
			return l.failAt(start, "Newline in string literal.",
				"Strings may not contain literal newlines; use \\n is not supported either, "+
					"split the string instead.")
		}
		if c == '\\' {
			l.advance()
			if l.atEOF() {
				return l.failAt(start, "Unterminated string literal.", "")
			}
			l.advance()
			continue
		}
		if c == '"' {
			break
		}
		l.advance()
	}
	text := l.src[begin:l.pos]
	l.advance() // closing quote
	l.emit(STRING, text, start)
	return true
}

// scanComment handles "#" to end of line, classifying as a suffix comment
// if real tokens already appeared on this line, otherwise a line comment.
// Block-comment reclassification happens afterward in classifyBlockComments.
func (l *Lexer) scanComment(start errs.Location) bool {
	begin := l.pos
	for !l.atEOF() && l.peek() != '\n' {
		l.advance()
	}
	text := strings.TrimRight(l.src[begin:l.pos], "\r")
	tt := LINE_COMMENT
	if l.sawRealTokenOnLine {
		tt = SUFFIX_COMMENT
	}
	l.emit(tt, text, start)
	return true
}

type opEntry struct {
	text string
	typ  TokenType
}

// Two-character operators must be tried before their one-character
// prefixes so they match greedily, per spec §4.1.
var twoCharOps = []opEntry{
	{"+=", PLUS_EQUALS},
	{"-=", MINUS_EQUALS},
	{"==", EQUAL_EQUAL},
	{"!=", NOT_EQUAL},
	{"<=", LESS_EQUAL},
	{">=", GREATER_EQUAL},
	{"&&", BOOLEAN_AND},
	{"||", BOOLEAN_OR},
}

var oneCharOps = map[byte]TokenType{
	'=': EQUALS,
	'+': PLUS,
	'-': MINUS,
	'<': LESS_THAN,
	'>': GREATER_THAN,
	'!': BANG,
	'.': DOT,
	',': COMMA,
	'(': LEFT_PAREN,
	')': RIGHT_PAREN,
	'[': LEFT_BRACKET,
	']': RIGHT_BRACKET,
	'{': LEFT_BRACE,
	'}': RIGHT_BRACE,
}

func (l *Lexer) scanOperator(start errs.Location) bool {
	for _, op := range twoCharOps {
		if l.peek() == op.text[0] && l.peekAt(1) == op.text[1] {
			l.advance()
			l.advance()
			l.emit(op.typ, op.text, start)
			return true
		}
	}
	c := l.peek()
	if tt, ok := oneCharOps[c]; ok {
		l.advance()
		l.emit(tt, string(c), start)
		return true
	}
	l.advance()
	return l.failAt(start, fmt.Sprintf("Unrecognized character '%c'.", c), "")
}

// classifyBlockComments upgrades a LINE_COMMENT run into BLOCK_COMMENT
// tokens when it is preceded by a blank line (or file start) and followed
// by a blank line before the next real token, per spec §4.1. Consecutive
// line comments with no blank line between them are treated as one run.
func (l *Lexer) classifyBlockComments() {
	n := len(l.tokens)
	i := 0
	for i < n {
		if l.tokens[i].Type != LINE_COMMENT {
			i++
			continue
		}
		start := i
		for i < n && l.tokens[i].Type == LINE_COMMENT && contiguous(l.tokens, start, i) {
			i++
		}
		end := i // [start, end) is one run of line comments
		if l.blankBefore(l.tokens[start]) && l.blankAfter(l.tokens[end-1]) {
			for j := start; j < end; j++ {
				l.tokens[j].Type = BLOCK_COMMENT
			}
		}
	}
}

// contiguous reports whether tokens[idx] continues the same line-comment
// run as tokens[start] (i.e. each is the sole token on a line immediately
// following the previous one).
func contiguous(tokens []Token, start, idx int) bool {
	if idx == start {
		return true
	}
	return tokens[idx].Begin.Line == tokens[idx-1].Begin.Line+1
}

func (l *Lexer) blankBefore(t Token) bool {
	lineIdx := t.Begin.Line - 2 // 0-based index of the line above
	if lineIdx < 0 {
		return true // file start
	}
	return strings.TrimSpace(l.lines[lineIdx]) == ""
}

func (l *Lexer) blankAfter(t Token) bool {
	lineIdx := t.Begin.Line // 0-based index of the line below (Begin.Line is 1-based "this" line)
	if lineIdx >= len(l.lines) {
		return true // file end
	}
	return strings.TrimSpace(l.lines[lineIdx]) == ""
}
