// Package scope implements the nested variable environment described in
// spec §3: a mutable-or-const parent link, used/unused tracking, target
// defaults, templates, opaque property slots, and an item collector.
package scope

import (
	"github.com/declang/declang/errs"
	"github.com/declang/declang/item"
	"github.com/declang/declang/value"
)

// Template is the narrow view of template.Template that Scope needs to
// store and retrieve templates without importing the template package
// (which itself depends on scope for closures) — mirrors the
// value.ScopeValue seam used to avoid the same cycle.
type Template interface {
	DefinitionRange() errs.Range
}

// record is one local variable binding: its value and whether it has been
// read since it was last set (spec §3's used-flag).
type record struct {
	value value.Value
	used  bool
}

// MergeOptions configures NonRecursiveMergeTo (spec §3's merge invariants,
// used by import and template invocation).
type MergeOptions struct {
	// ClobberExisting overwrites values already present in the
	// destination instead of erroring on a name collision.
	ClobberExisting bool
	// SkipPrivateVars omits names beginning with '_' from the merge.
	SkipPrivateVars bool
	// MarkDestUsed marks every copied value as already-used in the
	// destination, so importing a file doesn't trigger spurious unused
	// warnings for values the importer doesn't reference.
	MarkDestUsed bool
	// Excluded names are never merged.
	Excluded map[string]bool
}

// Scope is a lexical environment. The zero value is not usable; construct
// with NewRoot, NewChild, or NewConstChild.
type Scope struct {
	mutableParent *Scope
	constParent   *Scope

	values map[string]*record

	targetDefaults map[string]*Scope
	templates      map[string]Template

	itemCollector *item.Collector

	properties map[interface{}]interface{}

	providers []func(ident string) (value.Value, bool)

	processingImport bool
	sourceDir        string
}

// NewRoot creates an empty top-level scope rooted at sourceDir (used to
// resolve relative imports, spec §3).
func NewRoot(sourceDir string) *Scope {
	return &Scope{values: map[string]*record{}, sourceDir: sourceDir}
}

// NewChild creates a scope whose containing scope is mutable: Set on a
// name that a scope in the mutable parent chain already owns updates it
// there, and any other name gets a new local binding (spec §3's "mutable
// containing" link).
func NewChild(parent *Scope) *Scope {
	return &Scope{values: map[string]*record{}, mutableParent: parent}
}

// NewConstChild creates a scope whose containing scope is read-only — used
// for template closures and imported scopes, which must be safely readable
// from many evaluations (spec §3's "const containing" link).
func NewConstChild(parent *Scope) *Scope {
	return &Scope{values: map[string]*record{}, constParent: parent}
}

// containing returns whichever of the two parent links is set.
func (s *Scope) containing() *Scope {
	if s.mutableParent != nil {
		return s.mutableParent
	}
	return s.constParent
}

// isConstLink reports whether this scope's containing link (if any) is the
// const kind, meaning writes must land locally rather than mutating it.
func (s *Scope) isConstLink() bool {
	return s.mutableParent == nil && s.constParent != nil
}

// Lookup looks up name in this scope, then programmatic providers
// registered here, then the containing chain. markUsed should be true for
// ordinary reads (identifier evaluation) and false for introspection that
// shouldn't satisfy the unused-variable check (e.g. `defined()`).
func (s *Scope) Lookup(name string, markUsed bool) (value.Value, bool) {
	for cur := s; cur != nil; cur = cur.containing() {
		if rec, ok := cur.values[name]; ok {
			if markUsed {
				rec.used = true
			}
			return rec.value, true
		}
		for _, p := range cur.providers {
			if v, ok := p(name); ok {
				return v, true
			}
		}
	}
	return value.Value{}, false
}

// HasLocal reports whether name is set directly on this scope (not its
// parents).
func (s *Scope) HasLocal(name string) bool {
	_, ok := s.values[name]
	return ok
}

// IsSetButUnused reports whether name is set locally and hasn't been read
// since (spec §3's unused-assignment check, consulted before an
// overwriting Set).
func (s *Scope) IsSetButUnused(name string) bool {
	rec, ok := s.values[name]
	return ok && !rec.used
}

// owningScope returns the scope in the mutable chain (following only
// mutable links) that already has name set locally, or nil if none does.
// Const links stop the search: a const parent can never be the target of
// an ordinary assignment.
func (s *Scope) owningScope(name string) *Scope {
	for cur := s; cur != nil; cur = cur.mutableParent {
		if cur.HasLocal(name) {
			return cur
		}
		if cur.constParent != nil {
			// A name reachable only through a const ancestor is never
			// assignable in place; Set always falls back to creating a
			// new local binding on the original scope.
			return nil
		}
	}
	return nil
}

// Set implements `=`: creates-or-replaces in the innermost scope that
// already owns the name, or creates a new local binding. Per spec §9(a)'s
// resolved open question, overwriting a local value that was never read is
// an UnusedVariableError unless the new value equals the old one.
func (s *Scope) Set(name string, v value.Value, setNode errs.Blamable) errs.Err {
	target := s.owningScope(name)
	if target == nil {
		target = s
	}
	if rec, ok := target.values[name]; ok {
		if !rec.used && !value.Equal(rec.value, v) {
			return errs.Atf(errs.KindUnusedVariable, setNode,
				"You set the variable \"%s\" here but never used its previous value before overwriting it.", name)
		}
		rec.value = v
		rec.used = false
		return errs.Err{}
	}
	target.values[name] = &record{value: v}
	return errs.Err{}
}

// SetOwn creates-or-replaces name directly on this scope, applying the
// same unused-before-overwrite check as Set but without searching the
// containing chain for an existing owner. Used for `.member =` accessor
// assignment: the target there is a scope Value standing in for an
// object, not a lexical environment, so `cfg.x = 1` must land on cfg
// itself even if cfg's containing link (its defining block's enclosing
// scope) happens to already have an "x" of its own.
func (s *Scope) SetOwn(name string, v value.Value, setNode errs.Blamable) errs.Err {
	if rec, ok := s.values[name]; ok {
		if !rec.used && !value.Equal(rec.value, v) {
			return errs.Atf(errs.KindUnusedVariable, setNode,
				"You set the variable \"%s\" here but never used its previous value before overwriting it.", name)
		}
		rec.value = v
		rec.used = false
		return errs.Err{}
	}
	s.values[name] = &record{value: v}
	return errs.Err{}
}

// SetLocal forcibly creates or replaces name in this exact scope, skipping
// the owning-scope search and the unused-value check. Used for binding
// loop variables (foreach), call arguments, and other compiler-internal
// writes that aren't user assignments.
func (s *Scope) SetLocal(name string, v value.Value) {
	if rec, ok := s.values[name]; ok {
		rec.value = v
		rec.used = false
		return
	}
	s.values[name] = &record{value: v}
}

// RemoveIdentifier deletes name from this scope only, if present.
func (s *Scope) RemoveIdentifier(name string) {
	delete(s.values, name)
}

// RemovePrivateIdentifiers strips every locally-set name beginning with
// '_', and every private template, from this scope (spec §5's supplemented
// feature, used after freezing an imported scope's public surface).
func (s *Scope) RemovePrivateIdentifiers() {
	for name := range s.values {
		if isPrivate(name) {
			delete(s.values, name)
		}
	}
	for name := range s.templates {
		if isPrivate(name) {
			delete(s.templates, name)
		}
	}
}

func isPrivate(name string) bool {
	return len(name) > 0 && name[0] == '_'
}

// MarkUsed marks name as read in this scope (not the chain), suppressing
// the unused-variable check for it.
func (s *Scope) MarkUsed(name string) {
	if rec, ok := s.values[name]; ok {
		rec.used = true
	}
}

// MarkAllUsed marks every locally-set name as used. Templates call this on
// their defining scope: the variables a template body references inside
// its closure shouldn't trigger spurious unused-variable errors just
// because the definition itself didn't read them (spec §4.7).
func (s *Scope) MarkAllUsed() {
	for _, rec := range s.values {
		rec.used = true
	}
}

// CheckForUnusedVars returns an UnusedVariableError naming the first
// (in map iteration order — callers doing golden-output comparisons
// should sort by checking CurrentScopeValues themselves) unused local
// variable, or a zero Err if none.
func (s *Scope) CheckForUnusedVars(blockEnd errs.Blamable) errs.Err {
	for name, rec := range s.values {
		if !rec.used {
			return errs.Atf(errs.KindUnusedVariable, blockEnd,
				"Variable \"%s\" was set but never used.", name)
		}
	}
	return errs.Err{}
}

// CurrentScopeValues returns every name/value pair set directly on this
// scope (not its parents), for merge and display.
func (s *Scope) CurrentScopeValues() map[string]value.Value {
	out := make(map[string]value.Value, len(s.values))
	for name, rec := range s.values {
		out[name] = rec.value
	}
	return out
}

// ForEach implements value.ScopeValue: iterates this scope's local values
// only, so a scope produced as the value of a block expression
// (`x = { a = 1 }`) exposes just the fields set in that block.
func (s *Scope) ForEach(fn func(key string, v value.Value)) {
	for name, rec := range s.values {
		fn(name, rec.value)
	}
}

// Get implements value.ScopeValue: a lookup of this scope's local values
// only, without affecting the used-flag. Used for introspection (e.g.
// defined()) that must not satisfy the unused-variable check.
func (s *Scope) Get(name string) (value.Value, bool) {
	rec, ok := s.values[name]
	if !ok {
		return value.Value{}, false
	}
	return rec.value, true
}

// GetUsed implements value.ScopeValue: a lookup of this scope's local
// values that also marks the entry read. Used for ordinary `.member`
// access, so that e.g. `invoker.bar` satisfies the unused-variable check
// on the invoking block the same way reading a bare identifier would
// (spec §4.7).
func (s *Scope) GetUsed(name string) (value.Value, bool) {
	rec, ok := s.values[name]
	if !ok {
		return value.Value{}, false
	}
	rec.used = true
	return rec.value, true
}

// StorageKey returns the canonical key string backing ident — the name as
// stored in whichever scope in the containing chain owns it — or "" if
// ident isn't set anywhere in the chain. Mirrors icl::Scope::GetStorageKey,
// which hands back a StringPiece callers can use as a map key that outlives
// a temporary; Go strings are already immutable and independently owned,
// so the canonical key is simply ident itself once existence is confirmed.
func (s *Scope) StorageKey(ident string) string {
	for cur := s; cur != nil; cur = cur.containing() {
		if cur.HasLocal(ident) {
			return ident
		}
	}
	return ""
}

// AddTemplate registers name, failing if a template with that name already
// exists on this exact scope.
func (s *Scope) AddTemplate(name string, t Template) bool {
	if s.templates == nil {
		s.templates = map[string]Template{}
	}
	if _, exists := s.templates[name]; exists {
		return false
	}
	s.templates[name] = t
	return true
}

// GetTemplate searches this scope and its containing chain.
func (s *Scope) GetTemplate(name string) Template {
	for cur := s; cur != nil; cur = cur.containing() {
		if t, ok := cur.templates[name]; ok {
			return t
		}
	}
	return nil
}

// MakeTargetDefaults creates (or replaces) an empty default scope for the
// given item/target type.
func (s *Scope) MakeTargetDefaults(targetType string) *Scope {
	if s.targetDefaults == nil {
		s.targetDefaults = map[string]*Scope{}
	}
	child := NewChild(s)
	s.targetDefaults[targetType] = child
	return child
}

// GetTargetDefaults searches this scope and its containing chain for the
// default scope registered for targetType.
func (s *Scope) GetTargetDefaults(targetType string) *Scope {
	for cur := s; cur != nil; cur = cur.containing() {
		if d, ok := cur.targetDefaults[targetType]; ok {
			return d
		}
	}
	return nil
}

func (s *Scope) SetProcessingImport() { s.processingImport = true }
func (s *Scope) ClearProcessingImport() { s.processingImport = false }

// IsProcessingImport searches this scope's containing chain, so a
// conditional branch or block nested inside an import still reports true.
func (s *Scope) IsProcessingImport() bool {
	for cur := s; cur != nil; cur = cur.containing() {
		if cur.processingImport {
			return true
		}
	}
	return false
}

// SourceDir returns this scope's source directory, or the first non-empty
// one found walking toward the root.
func (s *Scope) SourceDir() string {
	for cur := s; cur != nil; cur = cur.containing() {
		if cur.sourceDir != "" {
			return cur.sourceDir
		}
	}
	return ""
}

func (s *Scope) SetSourceDir(dir string) { s.sourceDir = dir }

// SetItemCollector attaches (or clears, with nil) the collector
// item-declarators in this scope's descendants push into.
func (s *Scope) SetItemCollector(c *item.Collector) { s.itemCollector = c }

// ItemCollector returns the collector reachable from this scope, searching
// the containing chain, or nil if none is attached (spec §3, §4.9's
// ContextError when a declarator runs with no collector in scope).
func (s *Scope) ItemCollector() *item.Collector {
	for cur := s; cur != nil; cur = cur.containing() {
		if cur.itemCollector != nil {
			return cur.itemCollector
		}
	}
	return nil
}

// SetProperty stores an opaque value keyed by an opaque pointer-sized key,
// used for the non-nestable-block marker (spec §4.9). Setting nil deletes
// the key.
func (s *Scope) SetProperty(key, val interface{}) {
	if val == nil {
		delete(s.properties, key)
		return
	}
	if s.properties == nil {
		s.properties = map[interface{}]interface{}{}
	}
	s.properties[key] = val
}

// GetProperty searches this scope and its containing chain.
func (s *Scope) GetProperty(key interface{}) (interface{}, *Scope) {
	for cur := s; cur != nil; cur = cur.containing() {
		if v, ok := cur.properties[key]; ok {
			return v, cur
		}
	}
	return nil, nil
}

// AddProvider registers a programmatic value provider on this scope (spec
// §5's supplemented ProgrammaticProvider hook).
func (s *Scope) AddProvider(fn func(ident string) (value.Value, bool)) {
	s.providers = append(s.providers, fn)
}

// MakeClosure builds an independent copy of this scope's local values,
// collapsing any chain of mutable parents until a const parent (or the
// root) is reached; the closure's containing link becomes that const
// scope, since its values don't need copying. Used by Template capture
// (spec §3's "Shared templates" design note).
func (s *Scope) MakeClosure() *Scope {
	closure := &Scope{values: map[string]*record{}}
	for name, rec := range s.values {
		closure.values[name] = &record{value: rec.value, used: rec.used}
	}
	cur := s.mutableParent
	for cur != nil {
		for name, rec := range cur.values {
			if _, exists := closure.values[name]; !exists {
				closure.values[name] = &record{value: rec.value, used: rec.used}
			}
		}
		if cur.constParent != nil {
			closure.constParent = cur.constParent
			break
		}
		cur = cur.mutableParent
	}
	if closure.constParent == nil {
		closure.constParent = s.constParent
	}
	closure.sourceDir = s.SourceDir()
	return closure
}

// NonRecursiveMergeTo copies this scope's locally-set values into dest
// (spec §3's merge invariant used by import and template invocation):
// every key absent in dest is inserted; a key present in both is an error
// unless ClobberExisting is set or the two values are structurally equal.
func (s *Scope) NonRecursiveMergeTo(dest *Scope, opts MergeOptions, nodeForErr errs.Blamable, descForErr string) errs.Err {
	for name, rec := range s.values {
		if opts.SkipPrivateVars && isPrivate(name) {
			continue
		}
		if opts.Excluded != nil && opts.Excluded[name] {
			continue
		}
		if existing, ok := dest.values[name]; ok {
			if !opts.ClobberExisting && !value.Equal(existing.value, rec.value) {
				return errs.Atf(errs.KindName, nodeForErr,
					"The %s contains \"%s\" which collides with a value already in scope.", descForErr, name)
			}
		}
		dest.values[name] = &record{value: rec.value, used: opts.MarkDestUsed}
	}
	return errs.Err{}
}
