package builtins

import (
	"fmt"

	"github.com/declang/declang/ast"
	"github.com/declang/declang/errs"
	"github.com/declang/declang/eval"
	"github.com/declang/declang/item"
	"github.com/declang/declang/scope"
	"github.com/declang/declang/template"
	"github.com/declang/declang/value"
)

// runAssert implements `assert(condition, [message])` (spec §4.6): fails
// the whole run with an AssertionFailed error when condition is false.
func runAssert(e *eval.Evaluator, s *scope.Scope, call *ast.FunctionCall) (value.Value, errs.Err) {
	if len(call.Args) < 1 || len(call.Args) > 2 {
		return value.Value{}, errs.Atf(errs.KindArity, call, "assert() takes one or two arguments, got %d.", len(call.Args))
	}
	cond, err := e.Evaluate(s, call.Args[0])
	if err.HasError() {
		return value.Value{}, err
	}
	var typeErr errs.Err
	if !cond.VerifyTypeIs(value.Bool, &typeErr) {
		return value.Value{}, typeErr
	}
	if cond.BoolValue() {
		return value.None_(), errs.Err{}
	}
	msg := "Assertion failed."
	if len(call.Args) == 2 {
		m, err := e.Evaluate(s, call.Args[1])
		if err.HasError() {
			return value.Value{}, err
		}
		msg = m.Unquoted()
	}
	return value.Value{}, errs.New(errs.KindAssertion, call.Args[0], msg)
}

// runDefined implements `defined(identifier)` / `defined(scope.member)`
// (spec §4.6): reports whether a name resolves, without marking it used
// and without erroring if it doesn't.
func runDefined(e *eval.Evaluator, s *scope.Scope, call *ast.FunctionCall) (value.Value, errs.Err) {
	if len(call.Args) != 1 {
		return value.Value{}, errs.Atf(errs.KindArity, call, "defined() takes exactly one argument, got %d.", len(call.Args))
	}
	switch arg := call.Args[0].(type) {
	case *ast.Identifier:
		_, ok := s.Lookup(arg.Name, false)
		return value.NewBool(ok), errs.Err{}
	case *ast.Accessor:
		if !arg.IsMember() {
			return value.Value{}, errs.Atf(errs.KindParse, arg, "defined() only supports a bare name or a .member access.")
		}
		obj, err := e.Evaluate(s, arg.Object)
		if err.HasError() {
			return value.Value{}, err
		}
		if obj.Kind() != value.Scope {
			return value.NewBool(false), errs.Err{}
		}
		_, ok := obj.ScopeValueRef().Get(arg.Member)
		return value.NewBool(ok), errs.Err{}
	default:
		return value.Value{}, errs.Atf(errs.KindParse, arg, "defined() requires a bare name or a .member access.")
	}
}

// runPrint implements `print(values...)` (spec §4.6): writes each
// argument's unquoted display form, space-separated, to the delegate's
// output sink. It's registered as GenericNoBlock since its arguments need
// no special evaluation treatment.
func runPrint(s *scope.Scope, call *ast.FunctionCall, args []value.Value) (value.Value, errs.Err) {
	out, _ := s.GetProperty(printSinkKey{})
	sink, _ := out.(func(string))
	if sink == nil {
		sink = func(string) {}
	}
	line := ""
	for i, a := range args {
		if i > 0 {
			line += " "
		}
		line += a.Unquoted()
	}
	sink(line)
	return value.None_(), errs.Err{}
}

// printSinkKey is the opaque scope-property key used to thread the host's
// print sink down through nested scopes without a global variable.
type printSinkKey struct{}

// SetPrintSink attaches fn as the destination for print() output visible
// from s and its descendants.
func SetPrintSink(s *scope.Scope, fn func(string)) {
	s.SetProperty(printSinkKey{}, fn)
}

// runForeach implements `foreach(var, list) { ... }` (spec §4.6), grounded
// on original_source/icl/function_impls_foreach.cc: the loop variable is
// restored (or removed, if it didn't exist before) once the loop ends, and
// a pre-loop value of the identifier is exempted from the used-before-
// overwrite check for the duration of the loop.
func runForeach(e *eval.Evaluator, s *scope.Scope, call *ast.FunctionCall) (value.Value, errs.Err) {
	if len(call.Args) != 2 {
		return value.Value{}, errs.Atf(errs.KindArity, call, "foreach() takes exactly two arguments, got %d.", len(call.Args))
	}
	ident, ok := call.Args[0].(*ast.Identifier)
	if !ok {
		return value.Value{}, errs.Atf(errs.KindParse, call.Args[0], "The first argument to foreach() must be a bare variable name.")
	}
	listVal, err := e.Evaluate(s, call.Args[1])
	if err.HasError() {
		return value.Value{}, err
	}
	var typeErr errs.Err
	if !listVal.VerifyTypeIs(value.List, &typeErr) {
		return value.Value{}, typeErr
	}
	if call.Block == nil {
		return value.Value{}, errs.Atf(errs.KindArity, call, "foreach() requires a { ... } block.")
	}

	hadOld := s.HasLocal(ident.Name)
	oldVal, _ := s.Lookup(ident.Name, false)

	for _, item := range listVal.ListValue() {
		s.SetLocal(ident.Name, item)
		if _, err := e.ExecuteBlock(s, call.Block); err.HasError() {
			return value.Value{}, err
		}
	}

	if hadOld {
		s.SetLocal(ident.Name, oldVal)
	} else {
		s.RemoveIdentifier(ident.Name)
	}
	return value.None_(), errs.Err{}
}

// runTemplateDef implements `template("name") { ... }` (spec §4.7),
// grounded on function_impls_template.cc: captures a closure, registers it
// under the given name (erroring on a duplicate definition with a
// sub-error pointing at the original), and marks every value currently in
// scope as used so defining a template doesn't itself trip the unused-
// variable check.
func (r *Registry) runTemplateDef(e *eval.Evaluator, s *scope.Scope, call *ast.FunctionCall) (value.Value, errs.Err) {
	if len(call.Args) != 1 {
		return value.Value{}, errs.Atf(errs.KindArity, call, "template() takes exactly one argument, got %d.", len(call.Args))
	}
	nameVal, err := e.Evaluate(s, call.Args[0])
	if err.HasError() {
		return value.Value{}, err
	}
	var typeErr errs.Err
	if !nameVal.VerifyTypeIs(value.String, &typeErr) {
		return value.Value{}, typeErr
	}
	name := nameVal.StringValue()
	if call.Block == nil {
		return value.Value{}, errs.Atf(errs.KindArity, call, "template() requires a { ... } block.")
	}

	if existing := s.GetTemplate(name); existing != nil {
		dupErr := errs.New(errs.KindName, call, "Duplicate template definition.",
			"A template with this name was already defined.")
		dupErr.AppendSubErr(errs.New(errs.KindName, existing.DefinitionRange(), "Previous definition."))
		return value.Value{}, dupErr
	}

	tmpl := template.New(s, call)
	if !s.AddTemplate(name, tmpl) {
		return value.Value{}, errs.Atf(errs.KindName, call, "Duplicate template definition for \"%s\".", name)
	}
	s.MarkAllUsed()
	return value.None_(), errs.Err{}
}

// runImport implements `import("path")` (spec §4.8): loads and executes
// the target file at most once per process, merging its public surface
// (private identifiers already stripped by the import manager) into the
// importing scope.
func (r *Registry) runImport(e *eval.Evaluator, s *scope.Scope, call *ast.FunctionCall) (value.Value, errs.Err) {
	if len(call.Args) != 1 {
		return value.Value{}, errs.Atf(errs.KindArity, call, "import() takes exactly one argument, got %d.", len(call.Args))
	}
	pathVal, err := e.Evaluate(s, call.Args[0])
	if err.HasError() {
		return value.Value{}, err
	}
	var typeErr errs.Err
	if !pathVal.VerifyTypeIs(value.String, &typeErr) {
		return value.Value{}, typeErr
	}
	if r.importMgr == nil {
		return value.Value{}, errs.Atf(errs.KindContext, call, "This interpreter is not configured for import().")
	}
	imported, importErr := r.importMgr.Import(call, s.SourceDir(), pathVal.StringValue())
	if importErr.HasError() {
		return value.Value{}, importErr
	}
	mergeOpts := scope.MergeOptions{MarkDestUsed: true}
	if mergeErr := imported.NonRecursiveMergeTo(s, mergeOpts, call, fmt.Sprintf("import of %q", pathVal.StringValue())); mergeErr.HasError() {
		return value.Value{}, mergeErr
	}
	return value.None_(), errs.Err{}
}

// runItemDeclarator implements a host item-declarator call (spec §6.2):
// validate is typically schema-backed (see validation.go); on success the
// item is pushed to the scope's collector, erroring with ContextError if
// none is attached or if currently inside an import (grounded on
// original_source/icl/function.h's EnsureNotProcessingImport).
func runItemDeclarator(itemType string, validate func(s *scope.Scope, name string, kv map[string]value.Value) errs.Err, s *scope.Scope, call *ast.FunctionCall, args []value.Value, blockScope *scope.Scope) (value.Value, errs.Err) {
	if s.IsProcessingImport() {
		return value.Value{}, errs.Atf(errs.KindContext, call,
			"Item declarators like \"%s\" cannot be used from within an imported file.", itemType)
	}
	collector := s.ItemCollector()
	if collector == nil {
		return value.Value{}, errs.Atf(errs.KindContext, call,
			"\"%s\" was called where no item collector is attached.", itemType)
	}
	if len(args) != 1 {
		return value.Value{}, errs.Atf(errs.KindArity, call, "%s() takes exactly one argument (the item name), got %d.", itemType, len(args))
	}
	var typeErr errs.Err
	if !args[0].VerifyTypeIs(value.String, &typeErr) {
		return value.Value{}, typeErr
	}
	name := args[0].StringValue()
	kv := blockScope.CurrentScopeValues()
	if validate != nil {
		if verr := validate(s, name, kv); verr.HasError() {
			if !verr.Location().IsValid() {
				verr = errs.New(verr.Kind(), call, verr.Message(), verr.Help())
			}
			return value.Value{}, verr
		}
	}
	collector.Push(item.Item{
		Type:        itemType,
		Name:        name,
		KeyValueMap: kv,
		DefinedFrom: call.ErrRange(),
	})
	return value.None_(), errs.Err{}
}
