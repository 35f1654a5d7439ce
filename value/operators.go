package value

import (
	"math"

	"github.com/declang/declang/errs"
)

// Add implements the `+` operator (spec §4.3):
//   - int + int, with a checked-overflow TypeError (open question §9(b));
//   - string + any, the right side coerced via its unquoted display form;
//   - list + T appends T;
//   - list + list concatenates.
//
// at is blamed for type errors (typically the enclosing BinaryOp node).
func Add(at errs.Blamable, a, b Value) (Value, errs.Err) {
	switch {
	case a.kind == Int && b.kind == Int:
		sum := a.intV + b.intV
		if (b.intV > 0 && sum < a.intV) || (b.intV < 0 && sum > a.intV) {
			return Value{}, errs.New(errs.KindType, at, "Integer overflow.",
				"The result of this addition does not fit in a 64-bit signed integer.")
		}
		return NewInt(sum), errs.Err{}
	case a.kind == String:
		return NewString(a.stringV + b.Unquoted()), errs.Err{}
	case a.kind == List && b.kind == List:
		out := make([]Value, 0, len(a.listV)+len(b.listV))
		out = append(out, a.listV...)
		out = append(out, b.listV...)
		return NewList(out), errs.Err{}
	case a.kind == List:
		out := make([]Value, 0, len(a.listV)+1)
		out = append(out, a.listV...)
		out = append(out, b)
		return NewList(out), errs.Err{}
	default:
		return Value{}, errs.Atf(errs.KindType, at,
			"The value to the left of + is a %s, which does not support this operation with a %s on the right.",
			a.kind, b.kind)
	}
}

// Subtract implements the `-` operator (spec §4.3):
//   - int - int, checked overflow;
//   - list - T removes the first structurally-equal occurrence of T,
//     erroring if absent;
//   - list - list removes each element of the right list in order.
func Subtract(at errs.Blamable, a, b Value) (Value, errs.Err) {
	switch {
	case a.kind == Int && b.kind == Int:
		diff := a.intV - b.intV
		if (b.intV < 0 && diff < a.intV) || (b.intV > 0 && diff > a.intV) {
			return Value{}, errs.New(errs.KindType, at, "Integer overflow.",
				"The result of this subtraction does not fit in a 64-bit signed integer.")
		}
		return NewInt(diff), errs.Err{}
	case a.kind == List && b.kind == List:
		out := append([]Value{}, a.listV...)
		for _, item := range b.listV {
			var err errs.Err
			out, err = removeOne(at, out, item)
			if err.HasError() {
				return Value{}, err
			}
		}
		return NewList(out), errs.Err{}
	case a.kind == List:
		out, err := removeOne(at, a.listV, b)
		if err.HasError() {
			return Value{}, err
		}
		return NewList(out), errs.Err{}
	default:
		return Value{}, errs.Atf(errs.KindType, at,
			"The value to the left of - is a %s, which does not support this operation with a %s on the right.",
			a.kind, b.kind)
	}
}

func removeOne(at errs.Blamable, list []Value, target Value) ([]Value, errs.Err) {
	for i, item := range list {
		if Equal(item, target) {
			out := make([]Value, 0, len(list)-1)
			out = append(out, list[:i]...)
			out = append(out, list[i+1:]...)
			return out, errs.Err{}
		}
	}
	return nil, errs.Atf(errs.KindType, at,
		"Can't remove %s from this list because it isn't present.", target.String())
}

// Negate implements unary `-`: int only.
func Negate(at errs.Blamable, v Value) (Value, errs.Err) {
	if v.kind != Int {
		return Value{}, errs.Atf(errs.KindType, at, "Unary - requires an integer, got a %s.", v.kind)
	}
	if v.intV == math.MinInt64 {
		return Value{}, errs.New(errs.KindType, at, "Integer overflow.", "Negating this value would overflow.")
	}
	return NewInt(-v.intV), errs.Err{}
}

// Not implements unary `!`: bool only.
func Not(at errs.Blamable, v Value) (Value, errs.Err) {
	if v.kind != Bool {
		return Value{}, errs.Atf(errs.KindType, at, "Unary ! requires a boolean, got a %s.", v.kind)
	}
	return NewBool(!v.boolV), errs.Err{}
}

// Compare implements `<`, `<=`, `>`, `>=`, which require both operands to
// be int (spec §4.3). op is one of "<", "<=", ">", ">=".
func Compare(at errs.Blamable, op string, a, b Value) (Value, errs.Err) {
	if a.kind != Int || b.kind != Int {
		return Value{}, errs.Atf(errs.KindType, at,
			"Relational operators require both sides to be integers, got %s and %s.", a.kind, b.kind)
	}
	var result bool
	switch op {
	case "<":
		result = a.intV < b.intV
	case "<=":
		result = a.intV <= b.intV
	case ">":
		result = a.intV > b.intV
	case ">=":
		result = a.intV >= b.intV
	}
	return NewBool(result), errs.Err{}
}
