package builtins

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"

	"github.com/declang/declang/errs"
	"github.com/declang/declang/scope"
	"github.com/declang/declang/value"
)

// SchemaValidator compiles a JSON Schema once and validates an item
// declarator's key/value map against it on every call, converting the
// map to plain JSON-shaped data first since jsonschema validates
// interface{} trees, not value.Value. Grounded on
// opal-lang-opal/core/types/validation.go's Validator/compileSchema
// pattern; this interpreter only ever compiles one schema per item type
// (registered once at startup), so it skips that file's validator cache.
type SchemaValidator struct {
	schema   *jsonschema.Schema
	itemType string
}

// NewSchemaValidator compiles schemaJSON (a JSON Schema document) for
// validating itemType's block contents, registering a "semver" format
// hook the same way the teacher's validator does (x/mod/semver, requiring
// the "v" prefix).
func NewSchemaValidator(itemType string, schemaJSON []byte) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true
	if compiler.Formats == nil {
		compiler.Formats = map[string]func(interface{}) bool{}
	}
	compiler.Formats["semver"] = func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		return semver.IsValid(s)
	}
	const resourceName = "declang-item.json"
	if err := compiler.AddResource(resourceName, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("compiling schema for %q: %w", itemType, err)
	}
	sch, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("compiling schema for %q: %w", itemType, err)
	}
	return &SchemaValidator{schema: sch, itemType: itemType}, nil
}

// Validate matches the signature RegisterItemDeclarator expects: render kv
// to a plain JSON-shaped map[string]interface{} and run it through the
// compiled schema, wrapping the first violation as a TypeError blaming the
// declarator call.
func (v *SchemaValidator) Validate(s *scope.Scope, name string, kv map[string]value.Value) errs.Err {
	plain := make(map[string]interface{}, len(kv))
	for k, val := range kv {
		plain[k] = toPlain(val)
	}
	if err := v.schema.Validate(plain); err != nil {
		return errs.Atf(errs.KindType, errs.Range{},
			"%s \"%s\" failed schema validation: %s", v.itemType, name, err)
	}
	return errs.Err{}
}

func toPlain(v value.Value) interface{} {
	switch v.Kind() {
	case value.None:
		return nil
	case value.Bool:
		return v.BoolValue()
	case value.Int:
		return v.IntValue()
	case value.String:
		return v.StringValue()
	case value.List:
		out := make([]interface{}, len(v.ListValue()))
		for i, item := range v.ListValue() {
			out[i] = toPlain(item)
		}
		return out
	case value.Scope:
		out := map[string]interface{}{}
		v.ScopeValueRef().ForEach(func(k string, val value.Value) {
			out[k] = toPlain(val)
		})
		return out
	default:
		return nil
	}
}

