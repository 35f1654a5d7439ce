package builtins

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/declang/declang/errs"
	"github.com/declang/declang/eval"
	"github.com/declang/declang/item"
	"github.com/declang/declang/parser"
	"github.com/declang/declang/scope"
	"github.com/declang/declang/value"
)

func run(t *testing.T, s *scope.Scope, r *Registry, src string) errs.Err {
	t.Helper()
	file, perr := parser.Parse("f.gn", src)
	require.False(t, perr.HasError())
	ev := eval.New(r)
	_, err := ev.ExecuteBlock(s, file.Root)
	return err
}

func newItemScope(r *Registry) *scope.Scope {
	s := scope.NewRoot("/src")
	s.SetItemCollector(&item.Collector{})
	r.RegisterItemDeclarator("my_bag", nil)
	return s
}

func TestItemDeclaratorRejectsNesting(t *testing.T) {
	r := NewRegistry(nil)
	s := newItemScope(r)
	err := run(t, s, r, `my_bag("a") {
  my_bag("b") {
    x = 1
  }
}
`)
	require.True(t, err.HasError())
	require.Equal(t, errs.KindNesting, err.Kind())
}

func TestItemDeclaratorMergesTargetDefaults(t *testing.T) {
	r := NewRegistry(nil)
	s := newItemScope(r)
	defaults := s.MakeTargetDefaults("my_bag")
	defaults.SetLocal("flavor", value.NewString("vanilla"))

	collector := &item.Collector{}
	s.SetItemCollector(collector)

	err := run(t, s, r, `my_bag("a") {
  count = 1
}
`)
	require.False(t, err.HasError())
	require.Len(t, collector.Items, 1)
	got := collector.Items[0]
	require.Equal(t, "my_bag", got.Type)
	require.Equal(t, "a", got.Name)
	flavor, ok := got.KeyValueMap["flavor"]
	require.True(t, ok)
	require.Equal(t, "vanilla", flavor.StringValue())
	count, ok := got.KeyValueMap["count"]
	require.True(t, ok)
	require.Equal(t, int64(1), count.IntValue())
}

func TestItemDeclaratorBlockOverridesTargetDefaults(t *testing.T) {
	r := NewRegistry(nil)
	s := newItemScope(r)
	defaults := s.MakeTargetDefaults("my_bag")
	defaults.SetLocal("flavor", value.NewString("vanilla"))

	collector := &item.Collector{}
	s.SetItemCollector(collector)

	err := run(t, s, r, `my_bag("a") {
  flavor = "chocolate"
}
`)
	require.False(t, err.HasError())
	require.Len(t, collector.Items, 1)
	flavor, ok := collector.Items[0].KeyValueMap["flavor"]
	require.True(t, ok)
	require.Equal(t, "chocolate", flavor.StringValue())
}

func TestNoBlockConventionRejectsBlock(t *testing.T) {
	r := NewRegistry(nil)
	s := scope.NewRoot("/src")
	err := run(t, s, r, `print("hello") {
  x = 1
}
`)
	require.True(t, err.HasError())
	require.Equal(t, errs.KindArity, err.Kind())
}

func TestSelfEvaluatingNoBlockConventionRejectsBlock(t *testing.T) {
	r := NewRegistry(nil)
	s := scope.NewRoot("/src")
	err := run(t, s, r, `x = 1
y = defined(x) {
  z = 1
}
`)
	require.True(t, err.HasError())
	require.Equal(t, errs.KindArity, err.Kind())
}
