// Package driver implements the Module Driver (spec.md §4.6): the
// top-level per-definition dispatch that decides which global
// definitions get instrumented, and orchestrates the Metadata Storage
// Planner and Instruction Rewriter across one function's body.
//
// Grounded on pkg/codegen/codegen.go's GenerateProgram walk (the
// teacher's top-level "for each top-level AST node, dispatch by kind"
// loop) and its Context-threading style, generalized from "emit code
// for this AST node" to "instrument this already-typed IR definition."
package driver

import (
	"os"

	"github.com/xplshn/softboundcets-go/pkg/config"
	"github.com/xplshn/softboundcets-go/pkg/diag"
	"github.com/xplshn/softboundcets-go/pkg/ir"
	"github.com/xplshn/softboundcets-go/pkg/planner"
	"github.com/xplshn/softboundcets-go/pkg/rewriter"
	"github.com/xplshn/softboundcets-go/pkg/rtapi"
	"github.com/xplshn/softboundcets-go/pkg/symtab"
)

// specialSections are the global-variable sections the driver emits
// unchanged without registering them as safe pointers, per spec.md
// §4.6's Module Driver dispatch table.
var specialSections = map[string]bool{
	"llvm.global_ctors": true,
	"llvm.global_dtors": true,
	"llvm.metadata":     true,
}

// runtimeNames is every runtime entry point and wrapper this pass may
// call, declared once at module start per spec.md §4.6 step 1.
func runtimeNames() []string {
	return []string{
		rtapi.GetGlobalLock,
		rtapi.MetadataLoad, rtapi.MetadataStore, rtapi.MetadataCheck,
		rtapi.LoadBaseShadowStack, rtapi.LoadBoundShadowStack, rtapi.LoadKeyShadowStack, rtapi.LoadLockShadowStack,
		rtapi.StoreBaseShadowStack, rtapi.StoreBoundShadowStack, rtapi.StoreKeyShadowStack, rtapi.StoreLockShadowStack,
		rtapi.AllocateShadowStackSpace, rtapi.DeallocateShadowStackSpace,
		rtapi.SpatialLoadCheck, rtapi.SpatialStoreCheck,
		rtapi.TemporalLoadCheck, rtapi.TemporalStoreCheck,
		rtapi.CreateStackKey, rtapi.DestroyStackKey,
		"softboundcets_malloc", "softboundcets_calloc", "softboundcets_realloc", "softboundcets_free",
	}
}

// Run instruments prog in place per opts, returning any fatal diagnostic
// as a Go error. Non-fatal diagnostics are flushed to stderr.
func Run(prog *ir.Program, opts *config.Options) (err error) {
	defer diag.Recover(&err)

	log := diag.NewLog()
	defer log.Flush(os.Stderr)

	declared := make(map[string]bool)
	rtapi.Declare(prog, declared, runtimeNames()...)

	moduleMeta := make(map[string]symtab.Metadata)
	tables := symtab.New(moduleMeta)

	for _, g := range prog.Globals {
		dispatchGlobal(tables, g)
	}

	// Snapshot the function list before instrumentation. It includes the
	// declarations Declare appended above; they have no body, so
	// instrumentIfEligible passes them through.
	funcs := make([]*ir.Func, len(prog.Funcs))
	copy(funcs, prog.Funcs)

	for _, fn := range funcs {
		instrumentIfEligible(prog, tables, opts, log, declared, fn)
	}

	return nil
}

func dispatchGlobal(tables *symtab.Tables, g *ir.GlobalVar) {
	if specialSections[g.Section] {
		return
	}
	if !g.Initialized {
		return
	}
	tables.MarkSafe(g.Name)
}

// instrumentIfEligible applies the Module Driver's function dispatch
// table of spec.md §4.6.
func instrumentIfEligible(prog *ir.Program, tables *symtab.Tables, opts *config.Options, log *diag.Log, declared map[string]bool, fn *ir.Func) {
	if fn.IsEmpty() {
		return
	}
	if fn.HasVarargs {
		return
	}
	if config.IsIgnoredName(fn.Name) || opts.IsBlacklisted(fn.Name) {
		return
	}
	if _, hasWrapper := rtapi.WrapperFor(fn.Name); hasWrapper && fn.Name != "main" {
		return
	}
	if fn.Name == "main" {
		fn.Name = "softboundcets_main"
	}
	instrumentFunction(prog, tables, opts, log, declared, fn)
}

// instrumentFunction runs the six function-level instrumentation steps
// of spec.md §4.6 over fn's body.
func instrumentFunction(prog *ir.Program, tables *symtab.Tables, opts *config.Options, log *diag.Log, declared map[string]bool, fn *ir.Func) {
	tables.ResetFunction()
	tables.RestoreBlock(symtab.BlockSnapshot{})
	safeSnap := tables.SaveSafeSet()
	defer tables.RestoreSafeSet(safeSnap)

	result := planner.Plan(prog, tables, opts, declared, fn)
	if result.Prologue == nil {
		return
	}

	stackKey, stackLock := declareStackFrame(prog, result.Prologue)

	ctx := &rewriter.PassContext{
		Prog:      prog,
		Tables:    tables,
		Opts:      opts,
		Log:       log,
		Declared:  declared,
		FuncName:  fn.Name,
		DontCare:  result.DontCare,
		Storage:   result.Cells,
		StackKey:  stackKey,
		StackLock: stackLock,
	}

	for _, b := range fn.Blocks {
		if b == result.Prologue {
			continue
		}
		snap := tables.SaveBlock()
		rewritten := rewriter.RewriteBlock(ctx, b)
		b.Instructions = rewritten.Instructions
		tables.RestoreBlock(snap)
	}
}

// declareStackFrame allocates the function's local stack-frame key and
// lock cells and splices the global-lock acquire and stack-key creation
// calls ahead of the prologue's terminating branch, per spec.md §4.6
// step 4.
func declareStackFrame(prog *ir.Program, prologue *ir.BasicBlock) (key, lock *ir.Local) {
	key = prog.NewTemp(ir.PointerTo(wordType(prog.WordSize)))
	lock = prog.NewTemp(ir.PointerTo(ir.VoidPtr))

	prologue.InsertBeforeTerminator(
		&ir.Instruction{Op: ir.OpAlloca, Result: key},
		&ir.Instruction{Op: ir.OpAlloca, Result: lock},
		rtapi.CallSite(prog, rtapi.GetGlobalLock),
		rtapi.CallSite(prog, rtapi.CreateStackKey, lock, key),
	)
	return key, lock
}

func wordType(wordSize int) *ir.Type {
	if wordSize == 4 {
		return ir.U32Type
	}
	return ir.U64Type
}
