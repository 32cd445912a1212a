// Package planner implements the Metadata Storage Planner (spec.md
// §4.2): a two-pass, per-function prologue builder that loads parameter
// metadata off the shadow stack and pre-allocates the shadow cells every
// later rewrite will write into.
//
// Grounded on spec.md §9's design note ("two-pass algorithm; implementers
// should not fuse these") and on pkg/codegen/codegen.go's prologue-block
// construction style for functions (a synthetic entry block built ahead of
// the parsed body, then unconditionally branched into).
package planner

import (
	"sort"

	"github.com/xplshn/softboundcets-go/pkg/config"
	"github.com/xplshn/softboundcets-go/pkg/ir"
	"github.com/xplshn/softboundcets-go/pkg/shadowstack"
	"github.com/xplshn/softboundcets-go/pkg/symtab"
)

// Storage maps an operand's SSA name to the four shadow cells the planner
// pre-allocated for it. This is distinct from the three symbol tables of
// spec.md §3: the tables record where an operand's metadata is *visible*
// at a given program point, while Storage records where its metadata
// *lives*. The Instruction Rewriter consults Storage when it reaches each
// collected operand's defining instruction and installs the looked-up
// cells into the block- or function-scoped table at that point — spec.md
// §4.2's rationale is that every shadow cell must be allocated in the
// prologue so it dominates every later writing and reading site, which
// would not hold if cells were allocated lazily as the rewriter walked
// the body.
type Storage map[string]symtab.Metadata

// Result is everything the planner produces for one function.
type Result struct {
	// DontCare is the function's single don't-care metadata value
	// (spec.md §3: "One per function").
	DontCare symtab.Metadata
	// Cells is the pre-allocated shadow storage for every operand the
	// scan collected, keyed by SSA name.
	Cells Storage
	// Prologue is the synthetic block Plan prepended to the function.
	// The Module Driver splices its own per-function setup (global-lock
	// acquire, stack-frame key/lock creation, spec.md §4.6 step 4) into
	// this block ahead of its terminating branch.
	Prologue *ir.BasicBlock
}

// dontCareLockName is the fixed module-level sentinel every function's
// don't-care lock cell points at: an address whose word always holds 0,
// per spec.md §3.
const dontCareLockName = "__softboundcets_dontcare_lock"

// Plan runs the two-pass planner over fn: it builds a synthetic prologue
// block, installs parameter metadata into the function-scoped table,
// creates the don't-care metadata, scans the body for operands needing
// shadow storage, and prepends the prologue to fn.Blocks.
//
// declared tracks already-emitted external declarations and the
// don't-care sentinel global, shared across every function in the
// module so repeated calls never duplicate them.
func Plan(prog *ir.Program, tables *symtab.Tables, opts *config.Options, declared map[string]bool, fn *ir.Func) Result {
	if fn.IsEmpty() || fn.HasVarargs {
		return Result{}
	}
	originalEntry := fn.Blocks[0]
	prologue := &ir.BasicBlock{Name: prog.NewBlockName(fn.Name + ".prologue")}

	index := int64(1)
	for _, p := range fn.Params {
		if !ir.IsPointerType(p.Typ) || ir.IsFunctionPointerType(p.Typ) {
			continue
		}
		cells := allocCells(prog, prologue)
		prologue.Instructions = append(prologue.Instructions, shadowstack.MoveFromShadowStack(prog, index, cells)...)
		tables.InsertFunction(p.Name, cells)
		index++
	}

	dontCare := planDontCare(prog, prologue, declared)

	storage := make(Storage)
	for _, name := range collect(prog, opts, fn) {
		storage[name] = allocCells(prog, prologue)
	}

	prologue.Instructions = append(prologue.Instructions, &ir.Instruction{
		Op:      ir.OpBr,
		Targets: []*ir.BasicBlock{originalEntry},
	})

	fn.Blocks = append([]*ir.BasicBlock{prologue}, fn.Blocks...)
	return Result{DontCare: dontCare, Cells: storage, Prologue: prologue}
}

// planDontCare creates the fixed don't-care metadata of spec.md §3:
// base=bound=0, key=0, lock pointing at a fixed, module-wide sentinel
// whose word holds 0.
func planDontCare(prog *ir.Program, prologue *ir.BasicBlock, declared map[string]bool) symtab.Metadata {
	if !declared[dontCareLockName] {
		declared[dontCareLockName] = true
		prog.Globals = append(prog.Globals, &ir.GlobalVar{Name: dontCareLockName, Typ: wordType(prog.WordSize), Initialized: true})
	}
	sentinel := &ir.Global{Name: dontCareLockName, Typ: ir.PointerTo(wordType(prog.WordSize))}

	cells := allocCells(prog, prologue)
	nullPtr := &ir.Null{Typ: ir.VoidPtr}
	zeroWord := &ir.Const{Value: 0, Typ: wordType(prog.WordSize)}

	prologue.Instructions = append(prologue.Instructions,
		&ir.Instruction{Op: ir.OpStore, Args: []ir.Value{cells.BaseCell, nullPtr}},
		&ir.Instruction{Op: ir.OpStore, Args: []ir.Value{cells.BoundCell, nullPtr}},
		&ir.Instruction{Op: ir.OpStore, Args: []ir.Value{cells.KeyCell, zeroWord}},
		&ir.Instruction{Op: ir.OpStore, Args: []ir.Value{cells.LockCell, sentinel}},
	)
	return cells
}

// allocCells emits four alloca instructions into prologue (base, bound,
// key, lock) and returns the resulting cell addresses.
func allocCells(prog *ir.Program, prologue *ir.BasicBlock) symtab.Metadata {
	base := newAlloca(prog, prologue, ir.PointerTo(ir.VoidPtr))
	bound := newAlloca(prog, prologue, ir.PointerTo(ir.VoidPtr))
	key := newAlloca(prog, prologue, ir.PointerTo(wordType(prog.WordSize)))
	lock := newAlloca(prog, prologue, ir.PointerTo(ir.VoidPtr))
	return symtab.Metadata{BaseCell: base, BoundCell: bound, KeyCell: key, LockCell: lock}
}

func newAlloca(prog *ir.Program, prologue *ir.BasicBlock, cellType *ir.Type) *ir.Local {
	result := prog.NewTemp(cellType)
	prologue.Instructions = append(prologue.Instructions, &ir.Instruction{Op: ir.OpAlloca, Result: result})
	return result
}

// collect walks every block and terminator of fn and returns the
// deduplicated, sorted set of SSA names needing shadow storage, per
// spec.md §4.2 step 4's five collection rules.
func collect(prog *ir.Program, opts *config.Options, fn *ir.Func) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(v ir.Value) {
		l, ok := v.(*ir.Local)
		if !ok || !ir.IsPointerType(l.Typ) || ir.IsFunctionPointerType(l.Typ) {
			return
		}
		if !seen[l.Name] {
			seen[l.Name] = true
			names = append(names, l.Name)
		}
	}

	for _, b := range fn.Blocks {
		for _, instr := range b.Instructions {
			switch instr.Op {
			case ir.OpLoad:
				add(instr.Args[0])
				if instr.Result != nil && ir.IsPointerType(instr.Result.Typ) {
					add(instr.Result)
				}
			case ir.OpCall:
				if !isInstrumentableCall(prog, opts, instr) {
					continue
				}
				for _, a := range instr.Args {
					if ir.IsPointerType(a.Type()) && !ir.IsFunctionPointerType(a.Type()) {
						add(a)
					}
				}
				if instr.Result != nil && ir.IsPointerType(instr.Result.Typ) {
					add(instr.Result)
				}
			case ir.OpPhi:
				if instr.Result == nil || !ir.IsPointerType(instr.Result.Typ) {
					continue
				}
				add(instr.Result)
				for _, edge := range instr.Incoming {
					if ir.IsLocal(edge.Value) {
						add(edge.Value)
					}
				}
			case ir.OpAlloca:
				if opts.IsEnabled(config.OptInstrumentStack) && instr.Result != nil {
					add(instr.Result)
				}
			case ir.OpRet:
				if len(instr.Args) == 1 && ir.IsLocal(instr.Args[0]) {
					add(instr.Args[0])
				}
			}
		}
	}

	sort.Strings(names)
	return names
}

// isInstrumentableCall reports whether instr is "a call with constant
// named target, not variadic, not ignored" per spec.md §4.2 step 4.
func isInstrumentableCall(prog *ir.Program, opts *config.Options, instr *ir.Instruction) bool {
	callee, ok := instr.Callee.(*ir.Global)
	if !ok {
		return false // computed function pointer
	}
	if config.IsIgnoredName(callee.Name) || opts.IsBlacklisted(callee.Name) {
		return false
	}
	if target := prog.FindFunc(callee.Name); target != nil && target.HasVarargs {
		return false
	}
	return true
}

func wordType(wordSize int) *ir.Type {
	if wordSize == 4 {
		return ir.U32Type
	}
	return ir.U64Type
}
