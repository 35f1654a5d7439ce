package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/declang/declang/errs"
	"github.com/declang/declang/value"
)

func TestSetThenSetWithoutReadIsUnusedVariableError(t *testing.T) {
	s := NewRoot("/src")
	require.False(t, s.Set("x", value.NewInt(1), errs.Range{}).HasError())
	err := s.Set("x", value.NewInt(2), errs.Range{})
	require.True(t, err.HasError())
	require.Equal(t, errs.KindUnusedVariable, err.Kind())
}

func TestSetTwiceWithSameValueSucceeds(t *testing.T) {
	s := NewRoot("/src")
	require.False(t, s.Set("x", value.NewInt(1), errs.Range{}).HasError())
	err := s.Set("x", value.NewInt(1), errs.Range{})
	require.False(t, err.HasError())
}

func TestSetAfterReadSucceeds(t *testing.T) {
	s := NewRoot("/src")
	require.False(t, s.Set("x", value.NewInt(1), errs.Range{}).HasError())
	_, _ = s.Lookup("x", true)
	err := s.Set("x", value.NewInt(2), errs.Range{})
	require.False(t, err.HasError())
	v, ok := s.Get("x")
	require.True(t, ok)
	require.Equal(t, int64(2), v.IntValue())
}

func TestSetLocalSkipsUnusedCheck(t *testing.T) {
	s := NewRoot("/src")
	s.SetLocal("x", value.NewInt(1))
	s.SetLocal("x", value.NewInt(2))
	v, ok := s.Get("x")
	require.True(t, ok)
	require.Equal(t, int64(2), v.IntValue())
}

func TestCheckForUnusedVarsFlagsUnread(t *testing.T) {
	s := NewRoot("/src")
	require.False(t, s.Set("y", value.NewBool(true), errs.Range{}).HasError())
	err := s.CheckForUnusedVars(errs.Range{})
	require.True(t, err.HasError())
	require.Equal(t, errs.KindUnusedVariable, err.Kind())
}

func TestCheckForUnusedVarsPassesAfterRead(t *testing.T) {
	s := NewRoot("/src")
	require.False(t, s.Set("y", value.NewBool(true), errs.Range{}).HasError())
	_, _ = s.Lookup("y", true)
	require.False(t, s.CheckForUnusedVars(errs.Range{}).HasError())
}

func TestMarkAllUsedSuppressesCheck(t *testing.T) {
	s := NewRoot("/src")
	require.False(t, s.Set("a", value.NewInt(1), errs.Range{}).HasError())
	require.False(t, s.Set("b", value.NewInt(2), errs.Range{}).HasError())
	s.MarkAllUsed()
	require.False(t, s.CheckForUnusedVars(errs.Range{}).HasError())
}

func TestChildLookupFallsThroughMutableParent(t *testing.T) {
	parent := NewRoot("/src")
	require.False(t, parent.Set("x", value.NewInt(7), errs.Range{}).HasError())
	child := NewChild(parent)
	v, ok := child.Lookup("x", true)
	require.True(t, ok)
	require.Equal(t, int64(7), v.IntValue())
}

func TestChildSetMutatesOwningParent(t *testing.T) {
	parent := NewRoot("/src")
	require.False(t, parent.Set("x", value.NewInt(1), errs.Range{}).HasError())
	_, _ = parent.Lookup("x", true)
	child := NewChild(parent)
	err := child.Set("x", value.NewInt(2), errs.Range{})
	require.False(t, err.HasError())
	require.False(t, child.HasLocal("x"))
	v, _ := parent.Get("x")
	require.Equal(t, int64(2), v.IntValue())
}

func TestConstChildSetCreatesLocalBinding(t *testing.T) {
	parent := NewRoot("/src")
	require.False(t, parent.Set("x", value.NewInt(1), errs.Range{}).HasError())
	_, _ = parent.Lookup("x", true)
	child := NewConstChild(parent)
	err := child.Set("x", value.NewInt(99), errs.Range{})
	require.False(t, err.HasError())
	require.True(t, child.HasLocal("x"))
	parentVal, _ := parent.Get("x")
	require.Equal(t, int64(1), parentVal.IntValue())
}

func TestRemoveIdentifierIsLocalOnly(t *testing.T) {
	s := NewRoot("/src")
	s.SetLocal("x", value.NewInt(1))
	s.RemoveIdentifier("x")
	require.False(t, s.HasLocal("x"))
	_, ok := s.Get("x")
	require.False(t, ok)
}

func TestRemovePrivateIdentifiersStripsUnderscorePrefixed(t *testing.T) {
	s := NewRoot("/src")
	s.SetLocal("_secret", value.NewInt(1))
	s.SetLocal("public", value.NewInt(2))
	s.RemovePrivateIdentifiers()
	require.False(t, s.HasLocal("_secret"))
	require.True(t, s.HasLocal("public"))
}

func TestMakeClosureCollapsesMutableChain(t *testing.T) {
	root := NewRoot("/src")
	require.False(t, root.Set("outer", value.NewInt(1), errs.Range{}).HasError())
	_, _ = root.Lookup("outer", true)
	mid := NewChild(root)
	require.False(t, mid.Set("mid", value.NewInt(2), errs.Range{}).HasError())
	_, _ = mid.Lookup("mid", true)

	closure := mid.MakeClosure()
	_, ok := closure.Get("outer")
	require.True(t, ok, "closure must see values from collapsed mutable ancestors")
	_, ok = closure.Get("mid")
	require.True(t, ok)

	// Mutating the original chain afterward must not affect the closure.
	require.False(t, root.Set("outer", value.NewInt(99), errs.Range{}).HasError())
	v, _ := closure.Get("outer")
	require.Equal(t, int64(1), v.IntValue())
}

func TestNonRecursiveMergeToRejectsCollisionByDefault(t *testing.T) {
	src := NewRoot("/src")
	src.SetLocal("x", value.NewInt(1))
	dest := NewRoot("/src")
	dest.SetLocal("x", value.NewInt(2))

	err := src.NonRecursiveMergeTo(dest, MergeOptions{}, errs.Range{}, "test merge")
	require.True(t, err.HasError())
}

func TestNonRecursiveMergeToAllowsEqualValueCollision(t *testing.T) {
	src := NewRoot("/src")
	src.SetLocal("x", value.NewInt(1))
	dest := NewRoot("/src")
	dest.SetLocal("x", value.NewInt(1))

	err := src.NonRecursiveMergeTo(dest, MergeOptions{}, errs.Range{}, "test merge")
	require.False(t, err.HasError())
}

func TestNonRecursiveMergeToClobberExisting(t *testing.T) {
	src := NewRoot("/src")
	src.SetLocal("x", value.NewInt(1))
	dest := NewRoot("/src")
	dest.SetLocal("x", value.NewInt(2))

	err := src.NonRecursiveMergeTo(dest, MergeOptions{ClobberExisting: true}, errs.Range{}, "test merge")
	require.False(t, err.HasError())
	v, _ := dest.Get("x")
	require.Equal(t, int64(1), v.IntValue())
}

func TestNonRecursiveMergeToMarkDestUsedAvoidsUnusedError(t *testing.T) {
	src := NewRoot("/src")
	src.SetLocal("imported", value.NewInt(5))
	dest := NewRoot("/src")

	err := src.NonRecursiveMergeTo(dest, MergeOptions{MarkDestUsed: true}, errs.Range{}, "import")
	require.False(t, err.HasError())
	require.False(t, dest.CheckForUnusedVars(errs.Range{}).HasError())
}

func TestNonRecursiveMergeToSkipsPrivateVars(t *testing.T) {
	src := NewRoot("/src")
	src.SetLocal("_hidden", value.NewInt(1))
	src.SetLocal("visible", value.NewInt(2))
	dest := NewRoot("/src")

	err := src.NonRecursiveMergeTo(dest, MergeOptions{SkipPrivateVars: true, MarkDestUsed: true}, errs.Range{}, "import")
	require.False(t, err.HasError())
	require.False(t, dest.HasLocal("_hidden"))
	require.True(t, dest.HasLocal("visible"))
}

func TestTargetDefaultsLookupWalksChain(t *testing.T) {
	root := NewRoot("/src")
	defaults := root.MakeTargetDefaults("widget")
	defaults.SetLocal("visibility", value.NewString("public"))

	child := NewChild(root)
	found := child.GetTargetDefaults("widget")
	require.NotNil(t, found)
	v, ok := found.Get("visibility")
	require.True(t, ok)
	require.Equal(t, "public", v.StringValue())
}

func TestItemCollectorIsNilWhenNoneAttached(t *testing.T) {
	root := NewRoot("/src")
	require.Nil(t, root.ItemCollector())
}

func TestProcessingImportIsVisibleToDescendants(t *testing.T) {
	root := NewRoot("/src")
	root.SetProcessingImport()
	child := NewChild(root)
	require.True(t, child.IsProcessingImport())
	root.ClearProcessingImport()
	require.False(t, child.IsProcessingImport())
}

func TestSourceDirWalksToRoot(t *testing.T) {
	root := NewRoot("/repo/root")
	child := NewChild(root)
	require.Equal(t, "/repo/root", child.SourceDir())
}

func TestAddTemplateRejectsDuplicate(t *testing.T) {
	s := NewRoot("/src")
	require.True(t, s.AddTemplate("greet", stubTemplate{}))
	require.False(t, s.AddTemplate("greet", stubTemplate{}))
}

type stubTemplate struct{}

func (stubTemplate) DefinitionRange() errs.Range { return errs.Range{} }
