// Package declang embeds a small declarative configuration language: a
// GN-style interpreter with a lexer, Pratt/recursive-descent parser,
// dynamically-typed value model, nested scope chain, and a tree-walking
// evaluator with a pluggable builtin/item-declarator dispatcher (spec §1).
//
// Runner ties those pieces together the way opal-lang-opal/pkgs/engine's
// Engine wraps its lexer/parser/execution pipeline behind one constructor
// and a handful of Run-shaped methods.
package declang

import (
	"fmt"

	"github.com/declang/declang/ast"
	"github.com/declang/declang/builtins"
	"github.com/declang/declang/errs"
	"github.com/declang/declang/eval"
	"github.com/declang/declang/importmgr"
	"github.com/declang/declang/item"
	"github.com/declang/declang/parser"
	"github.com/declang/declang/scope"
	"github.com/declang/declang/value"
)

// Delegate is implemented by the host embedding the interpreter: it
// resolves import() targets and receives print() output. A delegate-free
// Runner (see New) still evaluates files that don't call import or print.
type Delegate interface {
	// LoadImport reads the contents of importPath resolved relative to
	// fromDir, returning the loaded text and a canonical name to use in
	// diagnostics and the import cache key.
	LoadImport(fromDir, importPath string) (contents, resolvedName string, err error)
	// Print receives one line of print() output.
	Print(line string)
}

// Item is a host-declared named bag of key/value pairs produced by an item
// declarator during evaluation (spec §6.2). Re-exported from package item
// so callers never need to import it directly.
type Item = item.Item

// RunResult is everything a successful Run produced.
type RunResult struct {
	// Items are the host-declared items pushed during evaluation, in
	// declaration order.
	Items []Item
	// RootValues holds the variables set directly in the file's root
	// scope, useful for inspecting top-level values after a run.
	RootValues map[string]value.Value
}

// Runner evaluates declang source against a fresh root scope each Run,
// sharing one import cache and builtin registry across calls so repeated
// imports of the same file within a process are only evaluated once
// (spec §4.8).
type Runner struct {
	registry  *builtins.Registry
	importMgr *importmgr.Manager
	sourceDir string
}

// New creates a Runner rooted at sourceDir (used to resolve the first
// import() call's relative path). delegate resolves import() calls and may
// be nil if the caller never uses import(); print() output goes to the
// delegate passed to Run.
func New(sourceDir string, delegate Delegate) *Runner {
	r := &Runner{sourceDir: sourceDir}

	var load importmgr.Loader
	if delegate != nil {
		load = delegate.LoadImport
	} else {
		load = func(fromDir, importPath string) (string, string, error) {
			return "", "", fmt.Errorf("no Delegate configured to resolve import(%q)", importPath)
		}
	}

	r.importMgr = importmgr.New(sourceDir, load, parser.Parse, func(s *scope.Scope, root *ast.Block) (value.Value, errs.Err) {
		return eval.New(r.registry).ExecuteBlockNoUnusedCheck(s, root)
	})
	r.registry = builtins.NewRegistry(r.importMgr)
	return r
}

// RegisterItemDeclarator exposes a host-defined item type named itemType,
// validated (if validate is non-nil) against the declarator block's
// contents before the item is collected (spec §6.2). See package builtins
// for the jsonschema-backed SchemaValidator helper.
func (r *Runner) RegisterItemDeclarator(itemType string, validate func(s *scope.Scope, name string, kv map[string]value.Value) errs.Err) {
	r.registry.RegisterItemDeclarator(itemType, validate)
}

// Run parses and executes one file's contents against a fresh root scope.
func (r *Runner) Run(delegate Delegate, fileName, src string) (*RunResult, errs.Err) {
	file, perr := parser.Parse(fileName, src)
	if perr.HasError() {
		return nil, perr
	}

	root := scope.NewRoot(r.sourceDir)
	collector := &item.Collector{}
	root.SetItemCollector(collector)
	if delegate != nil {
		builtins.SetPrintSink(root, delegate.Print)
	}

	e := eval.New(r.registry)
	if _, err := e.ExecuteBlock(root, file.Root); err.HasError() {
		return nil, err
	}

	return &RunResult{
		Items:      collector.Items,
		RootValues: root.CurrentScopeValues(),
	}, errs.Err{}
}
