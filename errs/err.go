// Package errs defines the rich error value threaded through the lexer,
// parser, and evaluator. An Err carries a primary location, a message, an
// optional help string, zero or more extra ranges to underline, and zero or
// more sub-errors that provide "also see here" context (a duplicate
// template definition pointing back at the original, for example).
package errs

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

// Kind categorizes an Err for callers (mostly tests) that want to assert on
// the class of failure without string-matching the rendered message.
type Kind int

const (
	// KindNone indicates the zero value: no error.
	KindNone Kind = iota
	KindLoad
	KindLex
	KindParse
	KindType
	KindName
	KindArity
	KindUnusedVariable
	KindNesting
	KindContext
	KindAssertion
)

var kindNames = [...]string{
	KindNone:           "none",
	KindLoad:           "LoadError",
	KindLex:            "LexError",
	KindParse:          "ParseError",
	KindType:           "TypeError",
	KindName:           "NameError",
	KindArity:          "ArityError",
	KindUnusedVariable: "UnusedVariableError",
	KindNesting:        "NestingError",
	KindContext:        "ContextError",
	KindAssertion:      "AssertionFailed",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Location is a single point in a source file. LineText is the full text of
// the line it sits on, carried along so an Err can render a caret snippet
// without a back-reference to the owning file; lexer/ast/parser/scope set it
// once when they mint a Location and it rides along for free afterward.
type Location struct {
	File    string
	Line    int // 1-based
	Column  int // 1-based, in runes
	Byte    int // 0-based byte offset
	LineText string
}

func (l Location) IsValid() bool { return l.Line > 0 }

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Range is a span within a single file. Begin and End must share File.
type Range struct {
	Begin Location
	End   Location
}

func (r Range) IsValid() bool { return r.Begin.IsValid() }

// ErrRange implements Blamable so a Range can be passed directly to New.
func (r Range) ErrRange() Range { return r }

// Blamable is implemented by anything an Err can point at: a token, an AST
// node, a Value with an origin, or a raw Location/Range.
type Blamable interface {
	ErrRange() Range
}

// Err is the zero-value-is-no-error result type used throughout the core.
// Construct with New; zero Err reports no error via HasError.
type Err struct {
	kind     Kind
	hasError bool
	primary  Range
	message  string
	help     string
	ranges   []Range
	subErrs  []Err
}

// New builds an error located at the given blamable with the given kind and
// message. help is optional explanatory text shown below the message.
func New(kind Kind, at Blamable, message string, help ...string) Err {
	e := Err{
		kind:     kind,
		hasError: true,
		primary:  at.ErrRange(),
		message:  message,
	}
	if len(help) > 0 {
		e.help = strings.Join(help, "\n")
	}
	return e
}

// Atf is New with a fmt.Sprintf-formatted message and no help text.
func Atf(kind Kind, at Blamable, format string, args ...interface{}) Err {
	return New(kind, at, fmt.Sprintf(format, args...))
}

func (e Err) HasError() bool      { return e.hasError }
func (e Err) Kind() Kind          { return e.kind }
func (e Err) Location() Location  { return e.primary.Begin }
func (e Err) PrimaryRange() Range { return e.primary }
func (e Err) Message() string     { return e.message }
func (e Err) Help() string        { return e.help }
func (e Err) Ranges() []Range     { return e.ranges }
func (e Err) SubErrs() []Err      { return e.subErrs }

// AppendRange records an additional range to underline when rendering.
func (e *Err) AppendRange(r Range) {
	e.ranges = append(e.ranges, r)
}

// AppendSubErr attaches context that will render below the main message as
// "also:". Sub-errors never change HasError on the receiver.
func (e *Err) AppendSubErr(sub Err) {
	e.subErrs = append(e.subErrs, sub)
}

// Error implements the error interface, rendering the full annotated
// message: "<file>:<line>:<col>: <kind>: <message>\n<help>\n\n<snippet>"
// followed by any sub-errors.
func (e Err) Error() string {
	if !e.hasError {
		return ""
	}
	var b strings.Builder
	e.render(&b, false)
	return b.String()
}

func (e Err) render(b *strings.Builder, isSub bool) {
	loc := e.primary.Begin
	if isSub {
		b.WriteString("  also: ")
	}
	fmt.Fprintf(b, "%s: %s: %s\n", loc.String(), e.kind.String(), e.message)
	if e.help != "" {
		b.WriteString(e.help)
		b.WriteString("\n")
	}
	if snippet := e.primary.snippet(); snippet != "" {
		b.WriteString("\n")
		b.WriteString(snippet)
		b.WriteString("\n")
	}
	for _, sub := range e.subErrs {
		b.WriteString("\n")
		sub.render(b, true)
	}
}

// snippet renders "<line text>\n<caret underline>" for the range, or the
// empty string if no line text is available (e.g. a synthetic location).
func (r Range) snippet() string {
	lineText := r.Begin.LineText
	if lineText == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(lineText)
	b.WriteString("\n")

	runes := []rune(lineText)
	col := r.Begin.Column
	pad := 0
	for i := 0; i < col-1 && i < len(runes); i++ {
		pad += caretWidth(runes[i])
	}
	b.WriteString(strings.Repeat(" ", pad))

	spanWidth := 1
	if r.End.IsValid() && r.End.Line == r.Begin.Line && r.End.Column > r.Begin.Column {
		spanWidth = 0
		for i := col - 1; i < r.End.Column-1 && i < len(runes); i++ {
			spanWidth += caretWidth(runes[i])
		}
		if spanWidth == 0 {
			spanWidth = 1
		}
	}
	b.WriteString(strings.Repeat("^", spanWidth))
	return b.String()
}

// caretWidth returns how many caret columns a rune occupies: 2 for East
// Asian Wide/Fullwidth runes, 1 otherwise, so carets stay aligned under
// wide identifiers in string literals and comments.
func caretWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// GetErrorMessage is a convenience alias matching the AppendErrorMessage /
// GetErrorMessage naming from the original specification's Err API.
func (e Err) GetErrorMessage() string { return e.Error() }
