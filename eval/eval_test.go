package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/declang/declang/ast"
	"github.com/declang/declang/errs"
	"github.com/declang/declang/parser"
	"github.com/declang/declang/scope"
	"github.com/declang/declang/value"
)

// stubDispatcher lets eval tests exercise function-call dispatch without
// depending on package builtins (which imports eval).
type stubDispatcher struct {
	calls []string
}

func (d *stubDispatcher) Call(e *Evaluator, s *scope.Scope, call *ast.FunctionCall) (value.Value, errs.Err) {
	d.calls = append(d.calls, call.Name())
	// Evaluate (and so mark-used) each argument, the way a real builtin
	// dispatcher does, so scripts can use("ident") to satisfy the
	// unused-variable check without a real print() implementation.
	for _, arg := range call.Args {
		if _, err := e.Evaluate(s, arg); err.HasError() {
			return value.Value{}, err
		}
	}
	return value.None_(), errs.Err{}
}

func run(t *testing.T, src string) (*scope.Scope, errs.Err) {
	t.Helper()
	file, perr := parser.Parse("f.gn", src)
	if perr.HasError() {
		return nil, perr
	}
	s := scope.NewRoot("/src")
	ev := New(&stubDispatcher{})
	_, err := ev.ExecuteBlock(s, file.Root)
	return s, err
}

func TestExecuteBlockMarksValuesAsUsedViaInterpolation(t *testing.T) {
	s, err := run(t, `x = 1
print_target = "$x"
y = print_target
use(y)
`)
	require.False(t, err.HasError())
	v, ok := s.Get("print_target")
	require.True(t, ok)
	require.Equal(t, "1", v.StringValue())
}

func TestUnusedLocalVariableErrorsAtBlockEnd(t *testing.T) {
	_, err := run(t, "x = 1\n")
	require.True(t, err.HasError())
	require.Equal(t, errs.KindUnusedVariable, err.Kind())
}

func TestBraceInterpolationAcceptsMemberAccess(t *testing.T) {
	s, err := run(t, `cfg = {
  count = 5
}
msg = "total: ${cfg.count}"
y = msg
use(y)
`)
	require.False(t, err.HasError())
	v, _ := s.Get("msg")
	require.Equal(t, "total: 5", v.StringValue())
}

func TestDollarHexEscape(t *testing.T) {
	s, err := run(t, `msg = "a$0x62c"
y = msg
use(y)
`)
	require.False(t, err.HasError())
	v, _ := s.Get("msg")
	require.Equal(t, "abc", v.StringValue())
}

func TestBackslashEscapes(t *testing.T) {
	s, err := run(t, `msg = "line1\nline2\t\$done"
y = msg
use(y)
`)
	require.False(t, err.HasError())
	v, _ := s.Get("msg")
	require.Equal(t, `line1\nline2\t$done`, v.StringValue())
}

func TestUndefinedIdentifierInInterpolationErrors(t *testing.T) {
	_, err := run(t, `msg = "hi $nope"
y = msg
`)
	require.True(t, err.HasError())
	require.Equal(t, errs.KindName, err.Kind())
}

func TestCompoundAssignmentPlusEquals(t *testing.T) {
	s, err := run(t, `x = 1
x += 2
y = x
use(y)
`)
	require.False(t, err.HasError())
	v, _ := s.Get("y")
	require.Equal(t, int64(3), v.IntValue())
}

func TestCompoundAssignmentMinusEquals(t *testing.T) {
	s, err := run(t, `x = 5
x -= 2
y = x
use(y)
`)
	require.False(t, err.HasError())
	v, _ := s.Get("y")
	require.Equal(t, int64(3), v.IntValue())
}

func TestAssignmentToLiteralIsParseError(t *testing.T) {
	_, err := run(t, `1 = 2
`)
	require.True(t, err.HasError())
	require.Equal(t, errs.KindParse, err.Kind())
}

func TestMemberAccessorAssignmentSetsScopeField(t *testing.T) {
	s, err := run(t, `cfg = {
  a = 1
}
use(cfg.a)
cfg.a = 2
y = cfg.a
use(y)
`)
	require.False(t, err.HasError())
	v, _ := s.Get("y")
	require.Equal(t, int64(2), v.IntValue())
}

func TestMemberAccessorAssignmentDoesNotLeakToEnclosingScope(t *testing.T) {
	s, err := run(t, `x = 5
cfg = {
  y = 1
}
cfg.x = 10
z = x
w = cfg.x
use(z, w)
`)
	require.False(t, err.HasError())
	zv, _ := s.Get("z")
	require.Equal(t, int64(5), zv.IntValue())
	wv, _ := s.Get("w")
	require.Equal(t, int64(10), wv.IntValue())
}

func TestIndexAccessorAssignmentMutatesList(t *testing.T) {
	s, err := run(t, `xs = [1, 2, 3]
xs[1] = 9
y = xs
use(y)
`)
	require.False(t, err.HasError())
	v, _ := s.Get("y")
	require.Equal(t, int64(9), v.ListValue()[1].IntValue())
}

func TestMemberAccessorCompoundAssignment(t *testing.T) {
	s, err := run(t, `cfg = {
  count = 1
}
cfg.count += 4
y = cfg.count
use(y)
`)
	require.False(t, err.HasError())
	v, _ := s.Get("y")
	require.Equal(t, int64(5), v.IntValue())
}

func TestIndexAccessorOutOfRangeErrors(t *testing.T) {
	_, err := run(t, `xs = [1, 2]
y = xs[5]
`)
	require.True(t, err.HasError())
	require.Equal(t, errs.KindType, err.Kind())
}

func TestConditionalExecutesThenBranch(t *testing.T) {
	s, err := run(t, `y = 1
use(y)
if (true) {
  y = 2
}
z = y
use(z)
`)
	require.False(t, err.HasError())
	v, _ := s.Get("z")
	require.Equal(t, int64(2), v.IntValue())
}

func TestConditionalRequiresBoolCondition(t *testing.T) {
	_, err := run(t, `x = 1
if (x) {
}
`)
	require.True(t, err.HasError())
	require.Equal(t, errs.KindType, err.Kind())
}

func TestShortCircuitAndSkipsRightSide(t *testing.T) {
	s, err := run(t, `x = false && undefined_var
y = x
use(y)
`)
	require.False(t, err.HasError())
	v, _ := s.Get("y")
	require.False(t, v.BoolValue())
}

func TestShortCircuitOrSkipsRightSide(t *testing.T) {
	s, err := run(t, `x = true || undefined_var
y = x
use(y)
`)
	require.False(t, err.HasError())
	v, _ := s.Get("y")
	require.True(t, v.BoolValue())
}

func TestDispatcherReceivesFunctionCalls(t *testing.T) {
	file, perr := parser.Parse("f.gn", `foo()
`)
	require.False(t, perr.HasError())
	s := scope.NewRoot("/src")
	d := &stubDispatcher{}
	ev := New(d)
	_, err := ev.ExecuteBlock(s, file.Root)
	require.False(t, err.HasError())
	require.Equal(t, []string{"foo"}, d.calls)
}
