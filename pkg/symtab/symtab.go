// Package symtab implements the three mutually-exclusive metadata
// tables of spec.md §3 (block-scoped, function-scoped, module-scoped)
// plus the safe-pointer set, with the save/restore discipline each
// table's lifetime requires.
//
// Grounded on spec.md §9's design note ("three ordered maps keyed by
// operand identity; an invariant-checking wrapper routine that asserts
// exclusivity") and on the teacher's scope/enterScope/exitScope chain in
// pkg/codegen/codegen.go, adapted from a push/pop chain to an explicit
// snapshot/restore since block scoping here is flat rather than nested.
package symtab

import "github.com/xplshn/softboundcets-go/pkg/ir"

// Metadata is the four-tuple of spec.md §3: the addresses of the
// shadow-storage cells holding an operand's base, bound, key and lock.
// Per spec.md §9's design note, this stays a flattened flag-bearing
// quadruple rather than a Real|DontCare sum type — don't-care metadata is
// simply one particular Metadata value, not a distinct representation.
type Metadata struct {
	BaseCell  *ir.Local
	BoundCell *ir.Local
	KeyCell   *ir.Local
	LockCell  *ir.Local
}

// Tables holds the three scoped metadata tables and the safe-pointer set
// for one function being processed, per spec.md §3's three lifetime
// classes.
type Tables struct {
	block    map[string]Metadata
	function map[string]Metadata
	module   map[string]Metadata
	safe     map[string]bool
}

// New returns an empty Tables, the module-scoped table pre-populated from
// mod (shared and never torn down across functions, per spec.md §3's
// "Lifecycle": "Global metadata tables are rebuilt per module").
func New(mod map[string]Metadata) *Tables {
	return &Tables{
		block:    make(map[string]Metadata),
		function: make(map[string]Metadata),
		module:   mod,
		safe:     make(map[string]bool),
	}
}

// ConflictError is raised as a panic value by InsertFunction/InsertBlock
// when an operand would appear in both scoped tables at once — spec.md
// §3 invariant 2: "simultaneous presence is a programmer error and must
// fault loudly." Wrapping it in a named type (rather than panicking with
// a diag.FatalError directly) keeps this package free of a diag import
// cycle; pkg/rewriter's insert helpers translate it into a fatal
// diagnostic.
type ConflictError struct {
	Operand string
}

func (e *ConflictError) Error() string {
	return "operand " + e.Operand + " present in both block-scoped and function-scoped tables"
}

// InsertFunction records md for name in the function-scoped table. It
// panics with *ConflictError if name is already present in the
// block-scoped table.
func (t *Tables) InsertFunction(name string, md Metadata) {
	if _, ok := t.block[name]; ok {
		panic(&ConflictError{Operand: name})
	}
	t.function[name] = md
}

// InsertBlock records md for name in the block-scoped table. It panics
// with *ConflictError if name is already present in the function-scoped
// table.
func (t *Tables) InsertBlock(name string, md Metadata) {
	if _, ok := t.function[name]; ok {
		panic(&ConflictError{Operand: name})
	}
	t.block[name] = md
}

// InsertModule records md for name in the module-scoped table.
func (t *Tables) InsertModule(name string, md Metadata) {
	t.module[name] = md
}

// LookupFunction returns the function-scoped metadata for name, if any.
func (t *Tables) LookupFunction(name string) (Metadata, bool) {
	md, ok := t.function[name]
	return md, ok
}

// LookupBlock returns the block-scoped metadata for name, if any.
func (t *Tables) LookupBlock(name string) (Metadata, bool) {
	md, ok := t.block[name]
	return md, ok
}

// LookupModule returns the module-scoped metadata for name, if any.
func (t *Tables) LookupModule(name string) (Metadata, bool) {
	md, ok := t.module[name]
	return md, ok
}

// Lookup checks function scope then block scope (never both at once, by
// invariant) and returns the metadata along with which table it was
// found in ("function" or "block"), or ok=false if absent from either.
func (t *Tables) Lookup(name string) (md Metadata, scope string, ok bool) {
	if md, present := t.function[name]; present {
		if _, alsoBlock := t.block[name]; alsoBlock {
			panic(&ConflictError{Operand: name})
		}
		return md, "function", true
	}
	if md, present := t.block[name]; present {
		return md, "block", true
	}
	return Metadata{}, "", false
}

// DeleteBlock removes name from the block-scoped table, used by the
// shadow-stack protocol after a call site invalidates a passed pointer's
// metadata (spec.md §4.3 step 5).
func (t *Tables) DeleteBlock(name string) { delete(t.block, name) }

// BlockSnapshot is an opaque save point for the block-scoped table,
// taken on block entry and restored on block exit per spec.md §3's
// save/restore discipline.
type BlockSnapshot struct {
	entries map[string]Metadata
}

// SaveBlock snapshots the current block-scoped table.
func (t *Tables) SaveBlock() BlockSnapshot {
	snap := make(map[string]Metadata, len(t.block))
	for k, v := range t.block {
		snap[k] = v
	}
	return BlockSnapshot{entries: snap}
}

// RestoreBlock replaces the block-scoped table with a previously taken
// snapshot, implementing the "save on block entry, restore on block
// exit" rule of spec.md §3.
func (t *Tables) RestoreBlock(snap BlockSnapshot) {
	t.block = make(map[string]Metadata, len(snap.entries))
	for k, v := range snap.entries {
		t.block[k] = v
	}
}

// ResetFunction clears the function-scoped table, used on function entry
// per spec.md §3's "Function-scoped table is re-initialised on function
// entry."
func (t *Tables) ResetFunction() {
	t.function = make(map[string]Metadata)
}

// MarkSafe adds name to the safe-pointer set (spec.md §3 invariant 4 and
// Glossary "Safe pointer").
func (t *Tables) MarkSafe(name string) { t.safe[name] = true }

// IsSafe reports whether name is in the safe-pointer set.
func (t *Tables) IsSafe(name string) bool { return t.safe[name] }

// SafeSetSnapshot is an opaque save point for the safe-pointer set,
// restored around function entry/exit (spec.md §4.6 step 6: "Restore the
// pre-function safe-pointer set on exit").
type SafeSetSnapshot struct {
	entries map[string]bool
}

// SaveSafeSet snapshots the current safe-pointer set.
func (t *Tables) SaveSafeSet() SafeSetSnapshot {
	snap := make(map[string]bool, len(t.safe))
	for k, v := range t.safe {
		snap[k] = v
	}
	return SafeSetSnapshot{entries: snap}
}

// RestoreSafeSet replaces the safe-pointer set with a previously taken
// snapshot.
func (t *Tables) RestoreSafeSet(snap SafeSetSnapshot) {
	t.safe = make(map[string]bool, len(snap.entries))
	for k, v := range snap.entries {
		t.safe[k] = v
	}
}
