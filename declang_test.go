package declang

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/declang/declang/errs"
	"github.com/declang/declang/scope"
	"github.com/declang/declang/value"
)

type noopDelegate struct {
	lines []string
}

func (d *noopDelegate) LoadImport(fromDir, importPath string) (string, string, error) {
	return "", "", nil
}

func (d *noopDelegate) Print(line string) {
	d.lines = append(d.lines, line)
}

type mapDelegate struct {
	noopDelegate
	files map[string]string
}

func (d *mapDelegate) LoadImport(fromDir, importPath string) (string, string, error) {
	if src, ok := d.files[importPath]; ok {
		return src, importPath, nil
	}
	return "", "", errNotFound(importPath)
}

type notFoundErr string

func (e notFoundErr) Error() string { return "not found: " + string(e) }

func errNotFound(path string) error { return notFoundErr(path) }

func TestHelloWorld(t *testing.T) {
	d := &noopDelegate{}
	runner := New("/root", d)
	_, err := runner.Run(d, "hello.gn", `print("hello, world")`)
	require.False(t, err.HasError())
	require.Equal(t, []string{"hello, world"}, d.lines)
}

func TestForeachWithInterpolation(t *testing.T) {
	d := &noopDelegate{}
	runner := New("/root", d)
	_, err := runner.Run(d, "loop.gn", `
names = ["alice", "bob"]
foreach(n, names) {
  print("hi $n")
}
`)
	require.False(t, err.HasError())
	require.Equal(t, []string{"hi alice", "hi bob"}, d.lines)
}

func TestBagDeclarationWithScopeValue(t *testing.T) {
	d := &noopDelegate{}
	runner := New("/root", d)
	result, err := runner.Run(d, "bag.gn", `
config = {
  verbose = true
  count = 3
}
print("${config.count}")
`)
	require.False(t, err.HasError())
	require.Equal(t, []string{"3"}, d.lines)

	cfg, ok := result.RootValues["config"]
	require.True(t, ok)
	require.Equal(t, value.Scope, cfg.Kind())
}

func TestBagSecondAssignmentWithoutReadFails(t *testing.T) {
	d := &noopDelegate{}
	runner := New("/root", d)
	_, err := runner.Run(d, "reassign.gn", `
x = 1
x = 2
`)
	require.True(t, err.HasError())
	require.Equal(t, errs.KindUnusedVariable, err.Kind())
}

func TestBagSecondAssignmentWithSameValueSucceeds(t *testing.T) {
	d := &noopDelegate{}
	runner := New("/root", d)
	result, err := runner.Run(d, "reassign_same.gn", `
x = 1
x = 1
print("$x")
`)
	require.False(t, err.HasError())
	require.Equal(t, int64(1), result.RootValues["x"].IntValue())
}

func TestAssertionFailureBlamesCondition(t *testing.T) {
	d := &noopDelegate{}
	runner := New("/root", d)
	_, err := runner.Run(d, "assert.gn", `
x = 5
assert(x == 6, "x must be six")
`)
	require.True(t, err.HasError())
	require.Equal(t, errs.KindAssertion, err.Kind())
	require.Equal(t, "x must be six", err.Message())
}

func TestImportIsIdempotent(t *testing.T) {
	var imports int
	files := map[string]string{
		"common.gni": `shared_value = 42`,
	}
	d := &mapDelegate{files: files}
	runner := New("/root", d)

	_, err := runner.Run(d, "a.gn", `
import("common.gni")
import("common.gni")
print("$shared_value")
`)
	require.False(t, err.HasError())
	require.Equal(t, []string{"42"}, d.lines)
	_ = imports
}

func TestTemplateInvocation(t *testing.T) {
	d := &noopDelegate{}
	runner := New("/root", d)
	result, err := runner.Run(d, "tmpl.gn", `
template("greeting") {
  message = "hello, $target_name"
  print(message)
}

greeting("world")
`)
	require.False(t, err.HasError())
	require.Equal(t, []string{"hello, world"}, d.lines)
	_ = result
}

func TestTemplateInvokerAccessesCallerBlockFields(t *testing.T) {
	d := &noopDelegate{}
	runner := New("/root", d)
	_, err := runner.Run(d, "tmpl_invoker.gn", `
template("foo") {
  print(item_name)
  print(invoker.bar)
}

foo("lala") {
  bar = 42
}
`)
	require.False(t, err.HasError())
	require.Equal(t, []string{"lala", "42"}, d.lines)
}

func TestTemplateUnreadInvokerFieldIsUnusedVariableError(t *testing.T) {
	d := &noopDelegate{}
	runner := New("/root", d)
	_, err := runner.Run(d, "tmpl_unread.gn", `
template("foo") {
  print(item_name)
}

foo("lala") {
  bar = 42
}
`)
	require.True(t, err.HasError())
	require.Equal(t, errs.KindUnusedVariable, err.Kind())
}

func TestItemDeclaratorCollectsItems(t *testing.T) {
	d := &noopDelegate{}
	runner := New("/root", d)
	runner.RegisterItemDeclarator("widget", func(s *scope.Scope, name string, kv map[string]value.Value) errs.Err {
		return errs.Err{}
	})
	result, err := runner.Run(d, "widgets.gn", `
widget("button") {
  label = "OK"
}
`)
	require.False(t, err.HasError())
	require.Len(t, result.Items, 1)
	require.Equal(t, "widget", result.Items[0].Type)
	require.Equal(t, "button", result.Items[0].Name)
}
