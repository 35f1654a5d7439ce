// Package builtins implements the dispatcher and standard library of
// host-callable functions described in spec §4.6–§4.9: assert, defined,
// print, foreach, import, template, and a registry of host-declared item
// declarators. Grounded on original_source/icl/function.h's five calling
// conventions and functions.cc's dispatch table, with the did-you-mean
// suggestion idiom borrowed from opal-lang-opal/runtime/planner/planner.go.
package builtins

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/declang/declang/ast"
	"github.com/declang/declang/errs"
	"github.com/declang/declang/eval"
	"github.com/declang/declang/importmgr"
	"github.com/declang/declang/scope"
	"github.com/declang/declang/template"
	"github.com/declang/declang/value"
)

// Convention identifies which of the five calling shapes a Function uses
// (spec §4.6, original_source/icl/function.h's Function::Type).
type Convention int

const (
	// SelfEvaluatingArgsBlock functions evaluate their own argument nodes
	// and may execute their own block (assert, foreach, template).
	SelfEvaluatingArgsBlock Convention = iota
	// SelfEvaluatingArgsNoBlock functions evaluate their own argument
	// nodes and take no block (defined).
	SelfEvaluatingArgsNoBlock
	// GenericBlock functions receive pre-evaluated args and an
	// unexecuted block they run themselves (no standard-library function
	// uses this convention).
	GenericBlock
	// ExecutedBlock functions receive pre-evaluated args and the block
	// already executed into a scope (item declarators).
	ExecutedBlock
	// GenericNoBlock functions receive pre-evaluated args and no block
	// (print).
	GenericNoBlock
)

// SelfEvalFn is the signature for SelfEvaluatingArgsBlock/NoBlock
// functions: they're given the raw argument nodes so they can choose
// whether/how to evaluate each (e.g. `defined(x)` must not evaluate `x`).
type SelfEvalFn func(e *eval.Evaluator, s *scope.Scope, call *ast.FunctionCall) (value.Value, errs.Err)

// GenericBlockFn receives already-evaluated arguments and the unexecuted
// block node.
type GenericBlockFn func(e *eval.Evaluator, s *scope.Scope, call *ast.FunctionCall, args []value.Value, block *ast.Block) (value.Value, errs.Err)

// ExecutedBlockFn receives already-evaluated arguments and the scope the
// block was already executed into.
type ExecutedBlockFn func(s *scope.Scope, call *ast.FunctionCall, args []value.Value, blockScope *scope.Scope) (value.Value, errs.Err)

// GenericNoBlockFn receives already-evaluated arguments and no block.
type GenericNoBlockFn func(s *scope.Scope, call *ast.FunctionCall, args []value.Value) (value.Value, errs.Err)

// Function is one registered callable.
type Function struct {
	Convention      Convention
	SelfEval        SelfEvalFn
	GenericBlock    GenericBlockFn
	ExecutedBlock   ExecutedBlockFn
	GenericNoBlock  GenericNoBlockFn
	NonNestableDesc string // non-empty marks this function's block as non-nestable (spec §4.9)
}

// nonNestableKey is the opaque scope-property key Call uses to mark an open
// non-nestable block; its value is that block's NonNestableDesc, which Call
// only checks for presence and quotes in the nesting error.
type nonNestableKey struct{}

// Registry is the dispatcher: a name → Function map (builtins and item
// declarators alike, consulted before templates) plus the list of every
// registered name in registration order, used only for "Did you mean"
// suggestions on an unknown function.
type Registry struct {
	functions map[string]*Function
	importMgr *importmgr.Manager
	names     []string
}

// NewRegistry creates a Registry with assert/defined/print/foreach/import/
// template pre-registered, backed by importMgr for import().
func NewRegistry(importMgr *importmgr.Manager) *Registry {
	r := &Registry{functions: map[string]*Function{}, importMgr: importMgr}
	r.Register("assert", &Function{Convention: SelfEvaluatingArgsBlock, SelfEval: runAssert})
	r.Register("defined", &Function{Convention: SelfEvaluatingArgsNoBlock, SelfEval: runDefined})
	r.Register("print", &Function{Convention: GenericNoBlock, GenericNoBlock: runPrint})
	r.Register("foreach", &Function{Convention: SelfEvaluatingArgsBlock, SelfEval: runForeach})
	r.Register("template", &Function{Convention: SelfEvaluatingArgsBlock, SelfEval: r.runTemplateDef, NonNestableDesc: "template"})
	r.Register("import", &Function{Convention: SelfEvaluatingArgsNoBlock, SelfEval: r.runImport})
	return r
}

// Register adds fn under name, overwriting any previous registration — used
// both for the standard library above and for host-declared item
// declarators (spec §6.2).
func (r *Registry) Register(name string, fn *Function) {
	if _, exists := r.functions[name]; !exists {
		r.names = append(r.names, name)
	}
	r.functions[name] = fn
}

// RegisterItemDeclarator wires a host item-declarator (spec §6.2) under
// the ExecutedBlock convention: the block is executed into a fresh child
// scope first, then validate (typically schema-backed) checks the
// resulting key/value map before the item is pushed to the collector.
func (r *Registry) RegisterItemDeclarator(itemType string, validate func(s *scope.Scope, name string, kv map[string]value.Value) errs.Err) {
	r.Register(itemType, &Function{
		Convention: ExecutedBlock,
		ExecutedBlock: func(s *scope.Scope, call *ast.FunctionCall, args []value.Value, blockScope *scope.Scope) (value.Value, errs.Err) {
			return runItemDeclarator(itemType, validate, s, call, args, blockScope)
		},
		// Item declarators nest the same way template bodies do: one
		// declarator's block can't contain another's (spec §4.9).
		NonNestableDesc: itemType,
	})
}

// Call implements eval.Dispatcher: dispatches call.Name() to a registered
// builtin under its declared calling convention, then falls back to
// invoking a user template of the same name, then reports "Unknown
// function" with a did-you-mean suggestion.
func (r *Registry) Call(e *eval.Evaluator, s *scope.Scope, call *ast.FunctionCall) (value.Value, errs.Err) {
	name := call.Name()
	fn, ok := r.functions[name]
	if !ok {
		return r.callTemplate(e, s, call, name)
	}

	if fn.NonNestableDesc != "" {
		if existing, _ := s.GetProperty(nonNestableKey{}); existing != nil {
			return value.Value{}, errs.Atf(errs.KindNesting, call,
				"A \"%s\" block cannot be nested inside a \"%s\" block.", fn.NonNestableDesc, existing)
		}
		s.SetProperty(nonNestableKey{}, fn.NonNestableDesc)
		defer s.SetProperty(nonNestableKey{}, nil)
	}

	if fn.Convention == SelfEvaluatingArgsNoBlock || fn.Convention == GenericNoBlock {
		if call.Block != nil {
			return value.Value{}, errs.Atf(errs.KindArity, call.Block,
				"\"%s\" does not take a block.", name)
		}
	}

	switch fn.Convention {
	case SelfEvaluatingArgsBlock, SelfEvaluatingArgsNoBlock:
		return fn.SelfEval(e, s, call)
	case GenericBlock:
		args, err := evalArgs(e, s, call)
		if err.HasError() {
			return value.Value{}, err
		}
		return fn.GenericBlock(e, s, call, args, call.Block)
	case ExecutedBlock:
		args, err := evalArgs(e, s, call)
		if err.HasError() {
			return value.Value{}, err
		}
		if call.Block == nil {
			return value.Value{}, errs.Atf(errs.KindArity, call, "The \"%s\" declarator requires a block.", name)
		}
		blockScope := scope.NewChild(s)
		// A host-registered type's defaults (scope.MakeTargetDefaults) are
		// merged into the block scope before the block runs, so the
		// declarator body can see and override them (spec §5.2,
		// icl/function.cc's FillTargetBlockScope).
		if defaults := s.GetTargetDefaults(name); defaults != nil {
			// MarkDestUsed: a declarator block that never reads a default
			// before overriding it (the common case — most scripts just
			// reassign `cflags = [...]` outright) shouldn't trip the
			// unused-before-overwrite check the way a genuinely stale
			// local assignment would.
			mergeOpts := scope.MergeOptions{SkipPrivateVars: true, MarkDestUsed: true}
			if err := defaults.NonRecursiveMergeTo(blockScope, mergeOpts, call, "target defaults"); err.HasError() {
				return value.Value{}, err
			}
		}
		// An item declarator's fields are collected as data, not read
		// inline, so the ordinary unused-variable check doesn't apply here.
		if _, err := e.ExecuteBlockNoUnusedCheck(blockScope, call.Block); err.HasError() {
			return value.Value{}, err
		}
		return fn.ExecutedBlock(s, call, args, blockScope)
	case GenericNoBlock:
		args, err := evalArgs(e, s, call)
		if err.HasError() {
			return value.Value{}, err
		}
		return fn.GenericNoBlock(s, call, args)
	default:
		return value.Value{}, errs.Atf(errs.KindContext, call, "Unreachable calling convention.")
	}
}

func evalArgs(e *eval.Evaluator, s *scope.Scope, call *ast.FunctionCall) ([]value.Value, errs.Err) {
	out := make([]value.Value, 0, len(call.Args))
	for _, a := range call.Args {
		v, err := e.Evaluate(s, a)
		if err.HasError() {
			return nil, err
		}
		out = append(out, v)
	}
	return out, errs.Err{}
}

func (r *Registry) callTemplate(e *eval.Evaluator, s *scope.Scope, call *ast.FunctionCall, name string) (value.Value, errs.Err) {
	tmpl := s.GetTemplate(name)
	if tmpl == nil {
		return value.Value{}, r.unknownFunctionErr(call, name)
	}
	impl, ok := tmpl.(*template.Template)
	if !ok {
		return value.Value{}, errs.Atf(errs.KindContext, call, "\"%s\" is not invocable.", name)
	}
	args, err := evalArgs(e, s, call)
	if err.HasError() {
		return value.Value{}, err
	}
	return impl.Invoke(e, s, call, name, args, call.Block)
}

func (r *Registry) unknownFunctionErr(call *ast.FunctionCall, name string) errs.Err {
	candidates := append([]string{}, r.names...)
	sort.Strings(candidates)
	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return errs.New(errs.KindName, call, fmt.Sprintf("Unknown function \"%s\".", name),
			fmt.Sprintf("Did you mean \"%s\"?", ranks[0].Target))
	}
	return errs.Atf(errs.KindName, call, "Unknown function \"%s\".", name)
}
