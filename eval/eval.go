// Package eval tree-walks the AST produced by package parser against a
// scope.Scope, implementing the execution semantics of spec §4: statement
// execution, assignment, accessors, operator dispatch (via package value),
// string interpolation, and the builtin-function call boundary.
package eval

import (
	"strconv"
	"strings"

	"github.com/declang/declang/ast"
	"github.com/declang/declang/errs"
	"github.com/declang/declang/lexer"
	"github.com/declang/declang/scope"
	"github.com/declang/declang/value"
)

// Dispatcher is the narrow seam package builtins implements: given a
// function-call node whose arguments (and block, if any) have not yet
// necessarily been evaluated, produce a result value. Kept as an interface
// here (rather than importing package builtins directly) so builtins can
// import eval to recursively execute blocks without a cycle.
type Dispatcher interface {
	Call(e *Evaluator, s *scope.Scope, call *ast.FunctionCall) (value.Value, errs.Err)
}

// Evaluator walks a parsed file or block against a scope, dispatching
// function calls to the attached Dispatcher.
type Evaluator struct {
	Dispatcher Dispatcher
}

// New creates an Evaluator that dispatches builtin/template calls through d.
func New(d Dispatcher) *Evaluator {
	return &Evaluator{Dispatcher: d}
}

// ExecuteBlock runs every statement in b against s in order, and — when
// b.ResultMode is ast.ReturnsScope — returns the block's own scope as a
// scope Value. The unused-variable check (spec §3) runs once at block exit
// against s, the scope the caller passed in, and not against its parents.
func (e *Evaluator) ExecuteBlock(s *scope.Scope, b *ast.Block) (value.Value, errs.Err) {
	return e.executeBlock(s, b, true)
}

// ExecuteBlockNoUnusedCheck runs b like ExecuteBlock but skips the unused-
// variable check on exit. Used for blocks whose locally-set values are
// captured as data rather than read as local computation — e.g. an item
// declarator's block, whose key/value pairs become the item's fields.
func (e *Evaluator) ExecuteBlockNoUnusedCheck(s *scope.Scope, b *ast.Block) (value.Value, errs.Err) {
	return e.executeBlock(s, b, false)
}

func (e *Evaluator) executeBlock(s *scope.Scope, b *ast.Block, checkUnused bool) (value.Value, errs.Err) {
	for _, stmt := range b.Stmts {
		if _, err := e.ExecuteStatement(s, stmt); err.HasError() {
			return value.Value{}, err
		}
	}
	if checkUnused {
		if err := s.CheckForUnusedVars(b); err.HasError() {
			return value.Value{}, err
		}
	}
	if b.ResultMode == ast.ReturnsScope {
		return value.NewScope(s).WithOrigin(b), errs.Err{}
	}
	return value.None_(), errs.Err{}
}

// ExecuteStatement runs one statement node for effect, returning whatever
// value it produces (conditions and bare expression statements produce a
// value; most callers discard it).
func (e *Evaluator) ExecuteStatement(s *scope.Scope, n ast.Node) (value.Value, errs.Err) {
	switch v := n.(type) {
	case *ast.Condition:
		return e.executeCondition(s, v)
	case *ast.BlockComment:
		return value.None_(), errs.Err{}
	default:
		return e.Evaluate(s, n)
	}
}

func (e *Evaluator) executeCondition(s *scope.Scope, c *ast.Condition) (value.Value, errs.Err) {
	cond, err := e.Evaluate(s, c.Cond)
	if err.HasError() {
		return value.Value{}, err
	}
	var boolErr errs.Err
	if !cond.VerifyTypeIs(value.Bool, &boolErr) {
		return value.Value{}, boolErr
	}
	if cond.BoolValue() {
		child := scope.NewChild(s)
		return e.ExecuteBlock(child, c.Then)
	}
	switch els := c.Else.(type) {
	case nil:
		return value.None_(), errs.Err{}
	case *ast.Condition:
		return e.executeCondition(s, els)
	case *ast.Block:
		child := scope.NewChild(s)
		return e.ExecuteBlock(child, els)
	default:
		return value.None_(), errs.Err{}
	}
}

// Evaluate computes the value of an expression node.
func (e *Evaluator) Evaluate(s *scope.Scope, n ast.Node) (value.Value, errs.Err) {
	switch v := n.(type) {
	case *ast.Literal:
		return e.evalLiteral(s, v)
	case *ast.Identifier:
		return e.evalIdentifier(s, v)
	case *ast.Accessor:
		return e.evalAccessor(s, v)
	case *ast.UnaryOp:
		return e.evalUnary(s, v)
	case *ast.BinaryOp:
		return e.evalBinary(s, v)
	case *ast.List:
		return e.evalList(s, v)
	case *ast.Block:
		// A braced expression (parser.go's only ReturnsScope production)
		// is a record literal: its fields are data for whoever reads the
		// resulting scope's members, not local variables the block itself
		// must consume, so the ordinary unused-variable check doesn't
		// apply here any more than it does to an item declarator's body.
		return e.ExecuteBlockNoUnusedCheck(scope.NewChild(s), v)
	case *ast.FunctionCall:
		return e.Dispatcher.Call(e, s, v)
	case *ast.Condition:
		return e.executeCondition(s, v)
	default:
		return value.Value{}, errs.Atf(errs.KindParse, n, "Don't know how to evaluate this.")
	}
}

func (e *Evaluator) evalLiteral(s *scope.Scope, l *ast.Literal) (value.Value, errs.Err) {
	switch l.Token.Type {
	case lexer.INTEGER:
		i, parseErr := strconv.ParseInt(l.Token.Value, 10, 64)
		if parseErr != nil {
			return value.Value{}, errs.Atf(errs.KindType, l, "Integer literal out of range: %s", l.Token.Value)
		}
		return value.NewInt(i).WithOrigin(l), errs.Err{}
	case lexer.STRING:
		str, err := e.interpolate(s, l)
		if err.HasError() {
			return value.Value{}, err
		}
		return value.NewString(str).WithOrigin(l), errs.Err{}
	case lexer.TRUE:
		return value.NewBool(true).WithOrigin(l), errs.Err{}
	case lexer.FALSE:
		return value.NewBool(false).WithOrigin(l), errs.Err{}
	default:
		return value.Value{}, errs.Atf(errs.KindParse, l, "Not a literal token: %s", l.Token.Type)
	}
}

func (e *Evaluator) evalIdentifier(s *scope.Scope, id *ast.Identifier) (value.Value, errs.Err) {
	v, ok := s.Lookup(id.Name, true)
	if !ok {
		return value.Value{}, errs.Atf(errs.KindName, id, "Undefined identifier \"%s\".", id.Name)
	}
	return v.WithOrigin(id), errs.Err{}
}

func (e *Evaluator) evalAccessor(s *scope.Scope, a *ast.Accessor) (value.Value, errs.Err) {
	obj, err := e.Evaluate(s, a.Object)
	if err.HasError() {
		return value.Value{}, err
	}
	if a.IsMember() {
		var typeErr errs.Err
		if !obj.VerifyTypeIs(value.Scope, &typeErr) {
			return value.Value{}, typeErr
		}
		sv := obj.ScopeValueRef()
		got, ok := sv.GetUsed(a.Member)
		if !ok {
			return value.Value{}, errs.Atf(errs.KindName, a, "This scope has no member \"%s\".", a.Member)
		}
		return got.WithOrigin(a), errs.Err{}
	}
	idxVal, err := e.Evaluate(s, a.Index)
	if err.HasError() {
		return value.Value{}, err
	}
	var typeErr errs.Err
	if !obj.VerifyTypeIs(value.List, &typeErr) {
		return value.Value{}, typeErr
	}
	if !idxVal.VerifyTypeIs(value.Int, &typeErr) {
		return value.Value{}, typeErr
	}
	list := obj.ListValue()
	idx := idxVal.IntValue()
	if idx < 0 || idx >= int64(len(list)) {
		return value.Value{}, errs.Atf(errs.KindType, a,
			"Index %d is out of range for a list of %d elements.", idx, len(list))
	}
	return list[idx].WithOrigin(a), errs.Err{}
}

func (e *Evaluator) evalUnary(s *scope.Scope, u *ast.UnaryOp) (value.Value, errs.Err) {
	operand, err := e.Evaluate(s, u.Operand)
	if err.HasError() {
		return value.Value{}, err
	}
	switch u.Op {
	case lexer.MINUS:
		return value.Negate(u, operand)
	case lexer.BANG:
		return value.Not(u, operand)
	default:
		return value.Value{}, errs.Atf(errs.KindParse, u, "Unknown unary operator.")
	}
}

func (e *Evaluator) evalBinary(s *scope.Scope, b *ast.BinaryOp) (value.Value, errs.Err) {
	if b.IsAssignment() {
		return e.evalAssignment(s, b)
	}
	switch b.Op {
	case lexer.BOOLEAN_AND, lexer.BOOLEAN_OR:
		return e.evalShortCircuit(s, b)
	}
	left, err := e.Evaluate(s, b.Left)
	if err.HasError() {
		return value.Value{}, err
	}
	right, err := e.Evaluate(s, b.Right)
	if err.HasError() {
		return value.Value{}, err
	}
	switch b.Op {
	case lexer.PLUS:
		return value.Add(b, left, right)
	case lexer.MINUS:
		return value.Subtract(b, left, right)
	case lexer.EQUAL_EQUAL:
		return value.NewBool(value.Equal(left, right)), errs.Err{}
	case lexer.NOT_EQUAL:
		return value.NewBool(!value.Equal(left, right)), errs.Err{}
	case lexer.LESS_THAN:
		return value.Compare(b, "<", left, right)
	case lexer.LESS_EQUAL:
		return value.Compare(b, "<=", left, right)
	case lexer.GREATER_THAN:
		return value.Compare(b, ">", left, right)
	case lexer.GREATER_EQUAL:
		return value.Compare(b, ">=", left, right)
	default:
		return value.Value{}, errs.Atf(errs.KindParse, b, "Unknown binary operator.")
	}
}

func (e *Evaluator) evalShortCircuit(s *scope.Scope, b *ast.BinaryOp) (value.Value, errs.Err) {
	left, err := e.Evaluate(s, b.Left)
	if err.HasError() {
		return value.Value{}, err
	}
	var typeErr errs.Err
	if !left.VerifyTypeIs(value.Bool, &typeErr) {
		return value.Value{}, typeErr
	}
	if b.Op == lexer.BOOLEAN_AND && !left.BoolValue() {
		return value.NewBool(false), errs.Err{}
	}
	if b.Op == lexer.BOOLEAN_OR && left.BoolValue() {
		return value.NewBool(true), errs.Err{}
	}
	right, err := e.Evaluate(s, b.Right)
	if err.HasError() {
		return value.Value{}, err
	}
	if !right.VerifyTypeIs(value.Bool, &typeErr) {
		return value.Value{}, typeErr
	}
	return value.NewBool(right.BoolValue()), errs.Err{}
}

// evalAssignment implements `=`/`+=`/`-=`. Per spec §4.2 (and
// original_source/icl/parser.cc's Parser::Assignment, which accepts
// left->AsIdentifier() or left->AsAccessor()), the left-hand side must be
// a bare identifier or a `.member`/`[index]` accessor chain rooted in one.
func (e *Evaluator) evalAssignment(s *scope.Scope, b *ast.BinaryOp) (value.Value, errs.Err) {
	switch lhs := b.Left.(type) {
	case *ast.Identifier:
		return e.assignIdentifier(s, lhs, b)
	case *ast.Accessor:
		return e.assignAccessor(s, lhs, b)
	default:
		return value.Value{}, errs.Atf(errs.KindParse, b.Left, "The left side of an assignment must be an identifier or an accessor (member/subscript).")
	}
}

func (e *Evaluator) assignIdentifier(s *scope.Scope, ident *ast.Identifier, b *ast.BinaryOp) (value.Value, errs.Err) {
	rhs, err := e.Evaluate(s, b.Right)
	if err.HasError() {
		return value.Value{}, err
	}
	newVal := rhs
	switch b.Op {
	case lexer.PLUS_EQUALS:
		cur, ok := s.Lookup(ident.Name, true)
		if !ok {
			return value.Value{}, errs.Atf(errs.KindName, ident, "Undefined identifier \"%s\".", ident.Name)
		}
		newVal, err = value.Add(b, cur, rhs)
		if err.HasError() {
			return value.Value{}, err
		}
	case lexer.MINUS_EQUALS:
		cur, ok := s.Lookup(ident.Name, true)
		if !ok {
			return value.Value{}, errs.Atf(errs.KindName, ident, "Undefined identifier \"%s\".", ident.Name)
		}
		newVal, err = value.Subtract(b, cur, rhs)
		if err.HasError() {
			return value.Value{}, err
		}
	}
	if setErr := s.Set(ident.Name, newVal.WithOrigin(b), b); setErr.HasError() {
		return value.Value{}, setErr
	}
	return newVal, errs.Err{}
}

// assignAccessor implements `.member =` and `[index] =` (and their `+=`/
// `-=` forms). Both a scope value's member slots and a list value's
// backing array are reference-shaped (a *scope.Scope is a pointer; a
// Value's listV shares its backing array across copies), so resolving
// a.Object to its live Value and writing through it mutates the actual
// storage without needing to propagate a new Value back up the accessor
// chain — this holds however deep the chain nests (`a.b[0].c = 1`).
func (e *Evaluator) assignAccessor(s *scope.Scope, a *ast.Accessor, b *ast.BinaryOp) (value.Value, errs.Err) {
	rhs, err := e.Evaluate(s, b.Right)
	if err.HasError() {
		return value.Value{}, err
	}
	newVal := rhs
	switch b.Op {
	case lexer.PLUS_EQUALS, lexer.MINUS_EQUALS:
		cur, curErr := e.evalAccessor(s, a)
		if curErr.HasError() {
			return value.Value{}, curErr
		}
		if b.Op == lexer.PLUS_EQUALS {
			newVal, err = value.Add(b, cur, rhs)
		} else {
			newVal, err = value.Subtract(b, cur, rhs)
		}
		if err.HasError() {
			return value.Value{}, err
		}
	}
	newVal = newVal.WithOrigin(b)

	obj, err := e.Evaluate(s, a.Object)
	if err.HasError() {
		return value.Value{}, err
	}
	if a.IsMember() {
		var typeErr errs.Err
		if !obj.VerifyTypeIs(value.Scope, &typeErr) {
			return value.Value{}, typeErr
		}
		target, ok := obj.ScopeValueRef().(*scope.Scope)
		if !ok {
			return value.Value{}, errs.Atf(errs.KindType, a, "This scope value cannot be assigned into.")
		}
		if setErr := target.SetOwn(a.Member, newVal, b); setErr.HasError() {
			return value.Value{}, setErr
		}
		return newVal, errs.Err{}
	}

	idxVal, err := e.Evaluate(s, a.Index)
	if err.HasError() {
		return value.Value{}, err
	}
	var typeErr errs.Err
	if !obj.VerifyTypeIs(value.List, &typeErr) {
		return value.Value{}, typeErr
	}
	if !idxVal.VerifyTypeIs(value.Int, &typeErr) {
		return value.Value{}, typeErr
	}
	list := obj.ListValue()
	idx := idxVal.IntValue()
	if idx < 0 || idx >= int64(len(list)) {
		return value.Value{}, errs.Atf(errs.KindType, a,
			"Index %d is out of range for a list of %d elements.", idx, len(list))
	}
	list[idx] = newVal
	return newVal, errs.Err{}
}

func (e *Evaluator) evalList(s *scope.Scope, l *ast.List) (value.Value, errs.Err) {
	var items []value.Value
	for _, item := range l.Items {
		if _, ok := item.(*ast.BlockComment); ok {
			continue
		}
		v, err := e.Evaluate(s, item)
		if err.HasError() {
			return value.Value{}, err
		}
		items = append(items, v)
	}
	return value.NewList(items).WithOrigin(l), errs.Err{}
}

// interpolate realizes a string literal's `$ident`, `${accessor}`, `$0xHH`,
// and backslash-escape forms at the point the string value is needed (spec
// §4.4). Per the resolved open question (SPEC_FULL.md §7(c)), `${...}`
// accepts only a bare identifier or one `.member`/`[index]` accessor step.
func (e *Evaluator) interpolate(s *scope.Scope, l *ast.Literal) (string, errs.Err) {
	raw := l.Token.Value
	var out strings.Builder
	i := 0
	for i < len(raw) {
		c := raw[i]
		if c == '\\' && i+1 < len(raw) {
			next := raw[i+1]
			switch next {
			case '"':
				out.WriteByte('"')
			case '\\':
				out.WriteByte('\\')
			case '$':
				out.WriteByte('$')
			default:
				out.WriteByte(c)
				out.WriteByte(next)
			}
			i += 2
			continue
		}
		if c == '$' && i+1 < len(raw) {
			if raw[i+1] == '0' && i+3 < len(raw) && raw[i+2] == 'x' {
				hex := raw[i+3 : min(i+5, len(raw))]
				if n, err := strconv.ParseUint(hex, 16, 8); err == nil {
					out.WriteByte(byte(n))
					i += 5
					continue
				}
			}
			if raw[i+1] == '{' {
				end := strings.IndexByte(raw[i+2:], '}')
				if end < 0 {
					return "", errs.Atf(errs.KindLex, l, "Unterminated ${...} in string.")
				}
				expr := raw[i+2 : i+2+end]
				val, err := e.interpolateAccessor(s, l, expr)
				if err.HasError() {
					return "", err
				}
				out.WriteString(val.Unquoted())
				i += 2 + end + 1
				continue
			}
			name, _ := scanIdentPrefix(raw[i+1:])
			if name != "" {
				v, ok := s.Lookup(name, true)
				if !ok {
					return "", errs.Atf(errs.KindName, l, "Undefined identifier \"%s\" in string interpolation.", name)
				}
				out.WriteString(v.Unquoted())
				i += 1 + len(name)
				continue
			}
		}
		out.WriteByte(c)
		i++
	}
	return out.String(), errs.Err{}
}

func (e *Evaluator) interpolateAccessor(s *scope.Scope, l *ast.Literal, expr string) (value.Value, errs.Err) {
	name := expr
	member := ""
	if dot := strings.IndexByte(expr, '.'); dot >= 0 {
		name = expr[:dot]
		member = expr[dot+1:]
	} else if br := strings.IndexByte(expr, '['); br > 0 && strings.HasSuffix(expr, "]") {
		r := l.ErrRange()
		obj := ast.NewIdentifier(lexer.Token{Type: lexer.IDENTIFIER, Value: expr[:br], Begin: r.Begin, End: r.End})
		idxTok := lexer.Token{Type: lexer.IDENTIFIER, Value: expr[br+1 : len(expr)-1], Begin: r.Begin, End: r.End}
		var idx ast.Node = ast.NewIdentifier(idxTok)
		if _, convErr := strconv.ParseInt(idxTok.Value, 10, 64); convErr == nil {
			idxTok.Type = lexer.INTEGER
			idx = ast.NewLiteral(idxTok)
		}
		return e.evalAccessor(s, ast.NewIndexAccessor(obj, idx, r.End))
	}
	v, ok := s.Lookup(name, true)
	if !ok {
		return value.Value{}, errs.Atf(errs.KindName, l, "Undefined identifier \"%s\" in string interpolation.", name)
	}
	if member == "" {
		return v, errs.Err{}
	}
	var typeErr errs.Err
	if !v.VerifyTypeIs(value.Scope, &typeErr) {
		return value.Value{}, typeErr
	}
	got, ok := v.ScopeValueRef().GetUsed(member)
	if !ok {
		return value.Value{}, errs.Atf(errs.KindName, l, "This scope has no member \"%s\".", member)
	}
	return got, errs.Err{}
}

func scanIdentPrefix(s string) (ident, rest string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9') {
			i++
			continue
		}
		break
	}
	return s[:i], s[i:]
}
