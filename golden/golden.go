// Package golden provides a CBOR canonical-encoding round-trip helper used
// by tests to assert that an evaluation result is byte-for-byte stable
// across runs, grounded on opal-lang-opal/core/planfmt/canonical.go's
// MarshalBinary pattern: deterministic map-key ordering makes two
// independently-produced results comparable without a custom deep-equal.
package golden

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/declang/declang/value"
)

// Snapshot is the plain, CBOR-friendly projection of a value.Value: the
// scope and value kinds themselves aren't cbor-taggable directly (Value's
// fields are unexported), so evaluation results are flattened into this
// shape before encoding.
type Snapshot struct {
	Kind  string              `cbor:"kind"`
	Bool  bool                `cbor:"bool,omitempty"`
	Int   int64               `cbor:"int,omitempty"`
	Str   string              `cbor:"str,omitempty"`
	List  []Snapshot          `cbor:"list,omitempty"`
	Scope map[string]Snapshot `cbor:"scope,omitempty"`
}

// Snapshotter converts a value.Value into its golden Snapshot.
func Snapshotter(v value.Value) Snapshot {
	switch v.Kind() {
	case value.None:
		return Snapshot{Kind: "none"}
	case value.Bool:
		return Snapshot{Kind: "bool", Bool: v.BoolValue()}
	case value.Int:
		return Snapshot{Kind: "int", Int: v.IntValue()}
	case value.String:
		return Snapshot{Kind: "string", Str: v.StringValue()}
	case value.List:
		items := v.ListValue()
		out := make([]Snapshot, len(items))
		for i, item := range items {
			out[i] = Snapshotter(item)
		}
		return Snapshot{Kind: "list", List: out}
	case value.Scope:
		out := map[string]Snapshot{}
		v.ScopeValueRef().ForEach(func(k string, val value.Value) {
			out[k] = Snapshotter(val)
		})
		return Snapshot{Kind: "scope", Scope: out}
	default:
		return Snapshot{Kind: "unknown"}
	}
}

// encMode is shared across calls; CanonicalEncOptions produces the
// deterministic (sorted-map-key, shortest-form) encoding CBOR's RFC 7049
// canonical profile defines, so two Snapshots with identical content
// always encode to identical bytes regardless of map iteration order.
var encMode = mustCanonicalEncMode()

func mustCanonicalEncMode() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("golden: building canonical CBOR encoder: %s", err))
	}
	return m
}

// Encode renders v's snapshot as canonical CBOR bytes.
func Encode(v value.Value) ([]byte, error) {
	return encMode.Marshal(Snapshotter(v))
}

// RoundTripEqual reports whether a and b encode to identical canonical
// CBOR, the golden-test definition of "the same evaluation result."
func RoundTripEqual(a, b value.Value) (bool, error) {
	ab, err := Encode(a)
	if err != nil {
		return false, err
	}
	bb, err := Encode(b)
	if err != nil {
		return false, err
	}
	if len(ab) != len(bb) {
		return false, nil
	}
	for i := range ab {
		if ab[i] != bb[i] {
			return false, nil
		}
	}
	return true, nil
}
