package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/declang/declang/errs"
)

func TestEqualAcrossKindsIsFalse(t *testing.T) {
	require.False(t, Equal(NewInt(1), NewString("1")))
	require.False(t, Equal(NewBool(true), NewInt(1)))
}

func TestEqualStructuralList(t *testing.T) {
	a := NewList([]Value{NewInt(1), NewString("x")})
	b := NewList([]Value{NewInt(1), NewString("x")})
	c := NewList([]Value{NewInt(1), NewString("y")})
	require.True(t, Equal(a, b))
	require.False(t, Equal(a, c))
}

func TestVerifyTypeIsSuccessAndFailure(t *testing.T) {
	var err errs.Err
	require.True(t, NewInt(1).VerifyTypeIs(Int, &err))
	require.False(t, err.HasError())

	require.False(t, NewInt(1).VerifyTypeIs(String, &err))
	require.True(t, err.HasError())
	require.Equal(t, errs.KindType, err.Kind())
}

func TestStringRenderingQuotesAndEscapes(t *testing.T) {
	require.Equal(t, `"hi"`, NewString("hi").String())
	require.Equal(t, "hi", NewString("hi").Unquoted())
	require.Equal(t, `"a\"b\$c"`, NewString(`a"b$c`).String())
}

func TestListRendering(t *testing.T) {
	l := NewList([]Value{NewInt(1), NewString("a")})
	require.Equal(t, `[1, "a"]`, l.String())
}

func TestBoolAndNoneRendering(t *testing.T) {
	require.Equal(t, "true", NewBool(true).String())
	require.Equal(t, "false", NewBool(false).String())
	require.Equal(t, "<none>", None_().String())
}

func TestAddIntOverflowIsTypeError(t *testing.T) {
	_, err := Add(errs.Range{}, NewInt(math.MaxInt64), NewInt(1))
	require.True(t, err.HasError())
	require.Equal(t, errs.KindType, err.Kind())
}

func TestAddIntSucceeds(t *testing.T) {
	sum, err := Add(errs.Range{}, NewInt(2), NewInt(3))
	require.False(t, err.HasError())
	require.Equal(t, int64(5), sum.IntValue())
}

func TestAddStringCoercesRightUnquoted(t *testing.T) {
	sum, err := Add(errs.Range{}, NewString("count: "), NewInt(3))
	require.False(t, err.HasError())
	require.Equal(t, "count: 3", sum.StringValue())
}

func TestAddListAppendsOrConcatenates(t *testing.T) {
	appended, err := Add(errs.Range{}, NewList([]Value{NewInt(1)}), NewInt(2))
	require.False(t, err.HasError())
	require.Equal(t, []Value{NewInt(1), NewInt(2)}, appended.ListValue())

	concatenated, err := Add(errs.Range{}, NewList([]Value{NewInt(1)}), NewList([]Value{NewInt(2)}))
	require.False(t, err.HasError())
	require.Equal(t, []Value{NewInt(1), NewInt(2)}, concatenated.ListValue())
}

func TestSubtractListRemovesFirstOccurrence(t *testing.T) {
	out, err := Subtract(errs.Range{}, NewList([]Value{NewInt(1), NewInt(2), NewInt(1)}), NewInt(1))
	require.False(t, err.HasError())
	require.Equal(t, []Value{NewInt(2), NewInt(1)}, out.ListValue())
}

func TestSubtractListMissingElementErrors(t *testing.T) {
	_, err := Subtract(errs.Range{}, NewList([]Value{NewInt(1)}), NewInt(9))
	require.True(t, err.HasError())
	require.Equal(t, errs.KindType, err.Kind())
}

func TestSubtractIntOverflowIsTypeError(t *testing.T) {
	_, err := Subtract(errs.Range{}, NewInt(math.MinInt64), NewInt(1))
	require.True(t, err.HasError())
	require.Equal(t, errs.KindType, err.Kind())
}

func TestNegateOverflowAtMinInt64(t *testing.T) {
	_, err := Negate(errs.Range{}, NewInt(math.MinInt64))
	require.True(t, err.HasError())
	require.Equal(t, errs.KindType, err.Kind())
}

func TestNegateNonIntIsTypeError(t *testing.T) {
	_, err := Negate(errs.Range{}, NewString("x"))
	require.True(t, err.HasError())
}

func TestNotRequiresBool(t *testing.T) {
	v, err := Not(errs.Range{}, NewBool(true))
	require.False(t, err.HasError())
	require.False(t, v.BoolValue())

	_, err = Not(errs.Range{}, NewInt(1))
	require.True(t, err.HasError())
}

func TestCompareRequiresBothInts(t *testing.T) {
	v, err := Compare(errs.Range{}, "<", NewInt(1), NewInt(2))
	require.False(t, err.HasError())
	require.True(t, v.BoolValue())

	_, err = Compare(errs.Range{}, "<", NewInt(1), NewString("x"))
	require.True(t, err.HasError())
	require.Equal(t, errs.KindType, err.Kind())
}

func TestCompareAllOperators(t *testing.T) {
	cases := []struct {
		op       string
		a, b     int64
		expected bool
	}{
		{"<", 1, 2, true},
		{"<=", 2, 2, true},
		{">", 3, 2, true},
		{">=", 2, 2, true},
		{">=", 1, 2, false},
	}
	for _, c := range cases {
		v, err := Compare(errs.Range{}, c.op, NewInt(c.a), NewInt(c.b))
		require.False(t, err.HasError())
		require.Equal(t, c.expected, v.BoolValue(), "%d %s %d", c.a, c.op, c.b)
	}
}

// fakeScope is a minimal ScopeValue for exercising scope-kind Values without
// depending on package scope.
type fakeScope struct {
	values map[string]Value
}

func (s fakeScope) ForEach(fn func(key string, v Value)) {
	for k, v := range s.values {
		fn(k, v)
	}
}

func (s fakeScope) Get(key string) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s fakeScope) GetUsed(key string) (Value, bool) {
	return s.Get(key)
}

func TestScopeEqualityIsStructural(t *testing.T) {
	a := NewScope(fakeScope{values: map[string]Value{"x": NewInt(1)}})
	b := NewScope(fakeScope{values: map[string]Value{"x": NewInt(1)}})
	c := NewScope(fakeScope{values: map[string]Value{"x": NewInt(2)}})
	require.True(t, Equal(a, b))
	require.False(t, Equal(a, c))
}

func TestScopeRendering(t *testing.T) {
	s := NewScope(fakeScope{values: map[string]Value{"a": NewInt(1)}})
	require.Contains(t, s.String(), "a = 1")
}

func TestWithOriginCarriesBlame(t *testing.T) {
	origin := errs.Range{Begin: errs.Location{File: "x.gn", Line: 3, Column: 1}}
	v := NewInt(1).WithOrigin(origin)
	require.Equal(t, origin, v.ErrRange())
}
