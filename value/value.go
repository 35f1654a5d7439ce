// Package value implements the dynamically typed value sum described in
// spec §3: none, bool, int, string, list, and scope. A Value optionally
// carries an origin AST node for error blame, and implements structural
// equality, display formatting, and the arithmetic/comparison operators
// from spec §4.3.
package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/declang/declang/errs"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	None Kind = iota
	Bool
	Int
	String
	List
	Scope
)

var kindNames = [...]string{
	None:   "none",
	Bool:   "boolean",
	Int:    "integer",
	String: "string",
	List:   "list",
	Scope:  "scope",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ScopeValue is the narrow interface a scope-kind Value needs to satisfy;
// it is implemented by scope.Scope. Kept as an interface here to avoid an
// import cycle between value and scope (scope.Scope embeds Values).
type ScopeValue interface {
	// ForEach calls fn once per locally-set key/value pair, in an
	// unspecified but stable-within-a-call order.
	ForEach(fn func(key string, v Value))
	// Get looks up a single key without marking it used, returning
	// ok=false if absent. Used for introspection like defined() that must
	// not satisfy the unused-variable check.
	Get(key string) (Value, bool)
	// GetUsed looks up a single key and marks it read, for ordinary
	// `.member` access — this is what lets `invoker.bar` satisfy the
	// unused-variable check for a template's invoking block (spec §4.7).
	GetUsed(key string) (Value, bool)
}

// Origin is the AST node a Value was produced from, used for error blame
// (e.g. "also see: x was assigned here"). It is an errs.Blamable so
// callers can pass a Value directly into errs.New.
type Origin = errs.Blamable

// Value is the tagged union described in spec §3. The zero Value is None.
type Value struct {
	kind    Kind
	boolV   bool
	intV    int64
	stringV string
	listV   []Value
	scopeV  ScopeValue
	origin  Origin
}

func None_() Value { return Value{kind: None} }

func NewBool(b bool) Value    { return Value{kind: Bool, boolV: b} }
func NewInt(i int64) Value    { return Value{kind: Int, intV: i} }
func NewString(s string) Value { return Value{kind: String, stringV: s} }
func NewList(items []Value) Value { return Value{kind: List, listV: items} }
func NewScope(s ScopeValue) Value { return Value{kind: Scope, scopeV: s} }

// WithOrigin returns a copy of v carrying the given origin, for blame on
// later errors (e.g. "defined at <origin>").
func (v Value) WithOrigin(o Origin) Value {
	v.origin = o
	return v
}

func (v Value) Kind() Kind       { return v.kind }
func (v Value) Origin() Origin   { return v.origin }
func (v Value) IsNone() bool     { return v.kind == None }

func (v Value) BoolValue() bool       { return v.boolV }
func (v Value) IntValue() int64       { return v.intV }
func (v Value) StringValue() string   { return v.stringV }
func (v Value) ListValue() []Value    { return v.listV }
func (v Value) ScopeValueRef() ScopeValue { return v.scopeV }

// ErrRange implements errs.Blamable by delegating to the origin, if any.
// Calling this on a Value with no origin yields a zero (invalid) range.
func (v Value) ErrRange() errs.Range {
	if v.origin == nil {
		return errs.Range{}
	}
	return v.origin.ErrRange()
}

// VerifyTypeIs checks v's kind and, on mismatch, fills err with a TypeError
// blaming v's origin (spec §5's supplemented Value.VerifyTypeIs, grounded
// on icl::Value::VerifyTypeIs). Returns true (and leaves err untouched) on
// match.
func (v Value) VerifyTypeIs(want Kind, err *errs.Err) bool {
	if v.kind == want {
		return true
	}
	*err = errs.Atf(errs.KindType, v, "This is supposed to be a %s but is a %s.", want, v.kind)
	return false
}

// Equal reports structural equality. Cross-kind comparisons are always
// false (spec §4.3's "!=" across kinds).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case None:
		return true
	case Bool:
		return a.boolV == b.boolV
	case Int:
		return a.intV == b.intV
	case String:
		return a.stringV == b.stringV
	case List:
		if len(a.listV) != len(b.listV) {
			return false
		}
		for i := range a.listV {
			if !Equal(a.listV[i], b.listV[i]) {
				return false
			}
		}
		return true
	case Scope:
		return scopeEqual(a.scopeV, b.scopeV)
	}
	return false
}

func scopeEqual(a, b ScopeValue) bool {
	if a == nil || b == nil {
		return a == b
	}
	am := map[string]Value{}
	a.ForEach(func(k string, v Value) { am[k] = v })
	count := 0
	equal := true
	b.ForEach(func(k string, v Value) {
		count++
		av, ok := am[k]
		if !ok || !Equal(av, v) {
			equal = false
		}
	})
	return equal && count == len(am)
}

// String renders v the way a scope dump shows it: quoted strings,
// `[v1, v2]` lists, and multi-line `{ … }` scopes (spec §3, §5's
// Value.String scope rendering). print() uses Unquoted instead.
func (v Value) String() string {
	return v.render(false, 0)
}

// Unquoted renders the value the way string interpolation inserts it:
// strings are bare, never quoted (spec §4.4).
func (v Value) Unquoted() string {
	return v.render(true, 0)
}

func (v Value) render(unquoted bool, indent int) string {
	switch v.kind {
	case None:
		return "<none>"
	case Bool:
		if v.boolV {
			return "true"
		}
		return "false"
	case Int:
		return strconv.FormatInt(v.intV, 10)
	case String:
		if unquoted {
			return v.stringV
		}
		return quoteString(v.stringV)
	case List:
		parts := make([]string, len(v.listV))
		for i, item := range v.listV {
			parts[i] = item.render(false, indent)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Scope:
		return renderScope(v.scopeV, indent)
	}
	return ""
}

func renderScope(s ScopeValue, indent int) string {
	if s == nil {
		return "{\n}"
	}
	pad := strings.Repeat("  ", indent+1)
	var lines []string
	s.ForEach(func(k string, val Value) {
		lines = append(lines, fmt.Sprintf("%s%s = %s", pad, k, val.render(false, indent+1)))
	})
	if len(lines) == 0 {
		return "{\n}"
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat("  ", indent) + "}"
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '$':
			b.WriteString(`\$`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
