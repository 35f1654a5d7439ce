// Package template implements user-defined templates: immutable closures
// captured at `template("name") { ... }` definition time and invoked, when
// called like any other function, by executing the caller's block into an
// `invoker` scope value the template body reads from (spec §4.7), grounded
// on original_source/icl/template.h and function_impls_template.cc.
package template

import (
	"github.com/declang/declang/ast"
	"github.com/declang/declang/errs"
	"github.com/declang/declang/scope"
	"github.com/declang/declang/value"
)

// Executor is the narrow callback template uses to run its body block and
// the caller's invoking block against a prepared scope, implemented by
// package eval's Evaluator. Kept as an interface so package template does
// not import package eval.
type Executor interface {
	ExecuteBlock(s *scope.Scope, b *ast.Block) (value.Value, errs.Err)
	// ExecuteBlockNoUnusedCheck runs the invoking block's statements
	// without an unused-variable check: its locals are data read through
	// `invoker.*`, not local computation, exactly like an item
	// declarator's block (spec §4.9's ExecutedBlock convention).
	ExecuteBlockNoUnusedCheck(s *scope.Scope, b *ast.Block) (value.Value, errs.Err)
}

// Template is an immutable closure plus the block of code to run when
// invoked. It may be invoked repeatedly; each invocation writes only to its
// own fresh scopes, but reads made by the body mark the closure's values as
// used, so concurrent Invoke calls on one Template are not synchronized.
type Template struct {
	closure    *scope.Scope
	definition *ast.FunctionCall
}

// New captures defScope's current state as a closure (collapsing any
// mutable-parent chain, per scope.MakeClosure) and records defNode as the
// call site whose Block is the template body.
func New(defScope *scope.Scope, defNode *ast.FunctionCall) *Template {
	return &Template{closure: defScope.MakeClosure(), definition: defNode}
}

// DefinitionRange implements scope.Template, used to report "previous
// definition" in a duplicate-template-name error.
func (t *Template) DefinitionRange() errs.Range { return t.definition.ErrRange() }

// Invoke runs the template body in a fresh scope chained off the closure
// (spec §4.7):
//  1. the invoking block (if any) is executed in a fresh child of the
//     caller's scope and bound whole as the `invoker` scope value — the
//     body reads caller-supplied fields as `invoker.foo`, not `foo`;
//  2. `target_name` and `item_name` are both bound to the invocation's
//     string argument;
//  3. the template body then executes against this invocation scope.
func (t *Template) Invoke(exec Executor, callerScope *scope.Scope, invocation *ast.FunctionCall, templateName string, args []value.Value, block *ast.Block) (value.Value, errs.Err) {
	body := t.definition.Block
	if body == nil {
		return value.Value{}, errs.Atf(errs.KindContext, invocation, "This template has no body to invoke.")
	}

	invokerScope := scope.NewConstChild(t.closure)

	if len(args) != 1 {
		return value.Value{}, errs.Atf(errs.KindArity, invocation,
			"Template \"%s\" takes exactly one argument (the invocation name), got %d.", templateName, len(args))
	}
	var typeErr errs.Err
	if !args[0].VerifyTypeIs(value.String, &typeErr) {
		return value.Value{}, typeErr
	}
	nameVal := args[0].WithOrigin(invocation)
	invokerScope.SetLocal("target_name", nameVal)
	invokerScope.SetLocal("item_name", nameVal)
	// target_name/item_name are implicit bindings, not user assignments —
	// a template that never reads them shouldn't trip the unused-variable
	// check (spec §4.7).
	invokerScope.MarkUsed("target_name")
	invokerScope.MarkUsed("item_name")

	blockScope := scope.NewChild(callerScope)
	if block != nil {
		if _, err := exec.ExecuteBlockNoUnusedCheck(blockScope, block); err.HasError() {
			return value.Value{}, err
		}
	}
	invokerScope.SetLocal("invoker", value.NewScope(blockScope).WithOrigin(invocation))
	invokerScope.MarkUsed("invoker")

	result, err := exec.ExecuteBlock(invokerScope, body)
	if err.HasError() {
		return value.Value{}, err
	}
	// The invoking block's own unused-variable check is deferred until
	// after the body runs, since `invoker.bar` access (which marks `bar`
	// used) only happens while the body executes (spec §4.7).
	if checkErr := blockScope.CheckForUnusedVars(invocation); checkErr.HasError() {
		return value.Value{}, checkErr
	}
	return result, errs.Err{}
}
