package planner

import (
	"testing"

	"github.com/xplshn/softboundcets-go/pkg/config"
	"github.com/xplshn/softboundcets-go/pkg/ir"
	"github.com/xplshn/softboundcets-go/pkg/symtab"
)

func newProg() *ir.Program { return &ir.Program{WordSize: 8} }

func TestPlanPrependsPrologueBranchingToOriginalEntry(t *testing.T) {
	prog := newProg()
	entry := &ir.BasicBlock{Name: "entry", Instructions: []*ir.Instruction{{Op: ir.OpRet}}}
	fn := &ir.Func{Name: "f", Blocks: []*ir.BasicBlock{entry}}
	tables := symtab.New(nil)
	Plan(prog, tables, config.NewDefaultOptions(), map[string]bool{}, fn)

	if len(fn.Blocks) != 2 {
		t.Fatalf("expected prologue + original entry, got %d blocks", len(fn.Blocks))
	}
	prologue := fn.Blocks[0]
	term := prologue.Terminator()
	if term.Op != ir.OpBr || term.Targets[0] != entry {
		t.Fatal("expected prologue to end with a branch to the original entry block")
	}
}

func TestPlanInstallsParamMetadataInFunctionScope(t *testing.T) {
	prog := newProg()
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{{Op: ir.OpRet}}}
	p := &ir.Param{Name: "buf", Typ: ir.PointerTo(ir.I32Type)}
	fn := &ir.Func{Name: "f", Params: []*ir.Param{p}, Blocks: []*ir.BasicBlock{entry}}
	tables := symtab.New(nil)
	Plan(prog, tables, config.NewDefaultOptions(), map[string]bool{}, fn)

	if _, ok := tables.LookupFunction("buf"); !ok {
		t.Fatal("expected parameter to be installed in the function-scoped table")
	}
}

func TestPlanSkipsFunctionPointerParams(t *testing.T) {
	prog := newProg()
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{{Op: ir.OpRet}}}
	fnType := &ir.Type{Kind: ir.KindFunc, Ret: ir.VoidType}
	p := &ir.Param{Name: "cb", Typ: ir.PointerTo(fnType)}
	fn := &ir.Func{Name: "f", Params: []*ir.Param{p}, Blocks: []*ir.BasicBlock{entry}}
	tables := symtab.New(nil)
	Plan(prog, tables, config.NewDefaultOptions(), map[string]bool{}, fn)

	if _, ok := tables.LookupFunction("cb"); ok {
		t.Fatal("expected function-pointer parameter to be skipped")
	}
}

func TestPlanCollectsLoadSourceAndResult(t *testing.T) {
	prog := newProg()
	addr := &ir.Local{Name: "addr", Typ: ir.PointerTo(ir.PointerTo(ir.I32Type))}
	result := &ir.Local{Name: "loaded", Typ: ir.PointerTo(ir.I32Type)}
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{
		{Op: ir.OpLoad, Result: result, Args: []ir.Value{addr}},
		{Op: ir.OpRet},
	}}
	fn := &ir.Func{Name: "f", Blocks: []*ir.BasicBlock{entry}}
	tables := symtab.New(nil)
	res := Plan(prog, tables, config.NewDefaultOptions(), map[string]bool{}, fn)

	if _, ok := res.Cells["addr"]; !ok {
		t.Error("expected load source address to get shadow storage")
	}
	if _, ok := res.Cells["loaded"]; !ok {
		t.Error("expected load result to get shadow storage")
	}
}

func TestPlanCollectsCallArgsAndResultForNamedNonVariadicTarget(t *testing.T) {
	prog := newProg()
	callee := &ir.Func{Name: "helper", Params: []*ir.Param{{Name: "p", Typ: ir.PointerTo(ir.I32Type)}}, ReturnType: ir.PointerTo(ir.I32Type), Blocks: []*ir.BasicBlock{{Instructions: []*ir.Instruction{{Op: ir.OpRet}}}}}
	prog.Funcs = append(prog.Funcs, callee)

	arg := &ir.Local{Name: "arg", Typ: ir.PointerTo(ir.I32Type)}
	result := &ir.Local{Name: "ret", Typ: ir.PointerTo(ir.I32Type)}
	call := &ir.Instruction{Op: ir.OpCall, Result: result, Callee: &ir.Global{Name: "helper"}, Args: []ir.Value{arg}}
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{call, {Op: ir.OpRet}}}
	fn := &ir.Func{Name: "f", Blocks: []*ir.BasicBlock{entry}}
	tables := symtab.New(nil)
	res := Plan(prog, tables, config.NewDefaultOptions(), map[string]bool{}, fn)

	if _, ok := res.Cells["arg"]; !ok {
		t.Error("expected call argument to get shadow storage")
	}
	if _, ok := res.Cells["ret"]; !ok {
		t.Error("expected call result to get shadow storage")
	}
}

func TestPlanSkipsVariadicCallTarget(t *testing.T) {
	prog := newProg()
	callee := &ir.Func{Name: "variadicFn", HasVarargs: true, Blocks: []*ir.BasicBlock{{Instructions: []*ir.Instruction{{Op: ir.OpRet}}}}}
	prog.Funcs = append(prog.Funcs, callee)

	arg := &ir.Local{Name: "arg", Typ: ir.PointerTo(ir.I32Type)}
	call := &ir.Instruction{Op: ir.OpCall, Callee: &ir.Global{Name: "variadicFn"}, Args: []ir.Value{arg}}
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{call, {Op: ir.OpRet}}}
	fn := &ir.Func{Name: "f", Blocks: []*ir.BasicBlock{entry}}
	tables := symtab.New(nil)
	res := Plan(prog, tables, config.NewDefaultOptions(), map[string]bool{}, fn)

	if _, ok := res.Cells["arg"]; ok {
		t.Error("expected argument to a variadic callee to be skipped")
	}
}

func TestPlanSkipsBlacklistedCallTarget(t *testing.T) {
	prog := newProg()
	arg := &ir.Local{Name: "arg", Typ: ir.PointerTo(ir.I32Type)}
	call := &ir.Instruction{Op: ir.OpCall, Callee: &ir.Global{Name: "ignored"}, Args: []ir.Value{arg}}
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{call, {Op: ir.OpRet}}}
	fn := &ir.Func{Name: "f", Blocks: []*ir.BasicBlock{entry}}
	tables := symtab.New(nil)
	opts := config.NewDefaultOptions()
	opts.AddBlacklist("ignored")
	res := Plan(prog, tables, opts, map[string]bool{}, fn)

	if _, ok := res.Cells["arg"]; ok {
		t.Error("expected argument to a blacklisted callee to be skipped")
	}
}

func TestPlanSkipsIgnoredNameCallTarget(t *testing.T) {
	prog := newProg()
	arg := &ir.Local{Name: "arg", Typ: ir.PointerTo(ir.I32Type)}
	call := &ir.Instruction{Op: ir.OpCall, Callee: &ir.Global{Name: "llvm.memcpy.p0i8.p0i8"}, Args: []ir.Value{arg}}
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{call, {Op: ir.OpRet}}}
	fn := &ir.Func{Name: "f", Blocks: []*ir.BasicBlock{entry}}
	tables := symtab.New(nil)
	res := Plan(prog, tables, config.NewDefaultOptions(), map[string]bool{}, fn)

	if _, ok := res.Cells["arg"]; ok {
		t.Error("expected argument to an ignored-name callee to be skipped, matching rewriteCall's own passthrough")
	}
}

func TestPlanCollectsPhiResultAndLocalIncoming(t *testing.T) {
	prog := newProg()
	a := &ir.Local{Name: "a", Typ: ir.PointerTo(ir.I32Type)}
	result := &ir.Local{Name: "merged", Typ: ir.PointerTo(ir.I32Type)}
	pred := &ir.BasicBlock{Name: "pred"}
	phi := &ir.Instruction{Op: ir.OpPhi, Result: result, Incoming: []ir.PhiEdge{{Block: pred, Value: a}}}
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{phi, {Op: ir.OpRet}}}
	fn := &ir.Func{Name: "f", Blocks: []*ir.BasicBlock{entry}}
	tables := symtab.New(nil)
	res := Plan(prog, tables, config.NewDefaultOptions(), map[string]bool{}, fn)

	if _, ok := res.Cells["a"]; !ok {
		t.Error("expected local phi incoming value to get shadow storage")
	}
	if _, ok := res.Cells["merged"]; !ok {
		t.Error("expected phi result to get shadow storage")
	}
}

func TestPlanCollectsAllocaOnlyWhenStackInstrumentationEnabled(t *testing.T) {
	prog := newProg()
	result := &ir.Local{Name: "buf", Typ: ir.PointerTo(ir.I32Type)}
	alloca := &ir.Instruction{Op: ir.OpAlloca, Result: result}
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{alloca, {Op: ir.OpRet}}}

	opts := config.NewDefaultOptions()
	opts.SetEnabled(config.OptInstrumentStack, false)
	fn := &ir.Func{Name: "f", Blocks: []*ir.BasicBlock{entry}}
	tables := symtab.New(nil)
	res := Plan(prog, tables, opts, map[string]bool{}, fn)
	if _, ok := res.Cells["buf"]; ok {
		t.Error("expected alloca to be skipped when stack instrumentation disabled")
	}

	fn2 := &ir.Func{Name: "f2", Blocks: []*ir.BasicBlock{{Instructions: []*ir.Instruction{alloca, {Op: ir.OpRet}}}}}
	res2 := Plan(prog, symtab.New(nil), config.NewDefaultOptions(), map[string]bool{}, fn2)
	if _, ok := res2.Cells["buf"]; !ok {
		t.Error("expected alloca to be collected when stack instrumentation enabled")
	}
}

func TestPlanCollectsReturnOfLocalPointer(t *testing.T) {
	prog := newProg()
	p := &ir.Local{Name: "p", Typ: ir.PointerTo(ir.I32Type)}
	ret := &ir.Instruction{Op: ir.OpRet, Args: []ir.Value{p}}
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{ret}}
	fn := &ir.Func{Name: "f", Blocks: []*ir.BasicBlock{entry}}
	tables := symtab.New(nil)
	res := Plan(prog, tables, config.NewDefaultOptions(), map[string]bool{}, fn)

	if _, ok := res.Cells["p"]; !ok {
		t.Error("expected returned local pointer to get shadow storage")
	}
}

func TestPlanDontCareSharesOneSentinelGlobalAcrossFunctions(t *testing.T) {
	prog := newProg()
	declared := map[string]bool{}
	fn1 := &ir.Func{Name: "f1", Blocks: []*ir.BasicBlock{{Instructions: []*ir.Instruction{{Op: ir.OpRet}}}}}
	fn2 := &ir.Func{Name: "f2", Blocks: []*ir.BasicBlock{{Instructions: []*ir.Instruction{{Op: ir.OpRet}}}}}
	Plan(prog, symtab.New(nil), config.NewDefaultOptions(), declared, fn1)
	Plan(prog, symtab.New(nil), config.NewDefaultOptions(), declared, fn2)

	count := 0
	for _, g := range prog.Globals {
		if g.Name == dontCareLockName {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one sentinel global across both functions, got %d", count)
	}
}

func TestPlanReturnsEmptyResultForEmptyAndVariadicFunctions(t *testing.T) {
	prog := newProg()
	empty := &ir.Func{Name: "decl"}
	res := Plan(prog, symtab.New(nil), config.NewDefaultOptions(), map[string]bool{}, empty)
	if res.DontCare.BaseCell != nil || res.Cells != nil {
		t.Error("expected empty Result for a declaration-only function")
	}

	variadic := &ir.Func{Name: "vf", HasVarargs: true, Blocks: []*ir.BasicBlock{{Instructions: []*ir.Instruction{{Op: ir.OpRet}}}}}
	res2 := Plan(prog, symtab.New(nil), config.NewDefaultOptions(), map[string]bool{}, variadic)
	if res2.DontCare.BaseCell != nil {
		t.Error("expected empty Result for a variadic function")
	}
	if len(variadic.Blocks) != 1 {
		t.Error("expected variadic function's blocks to be left untouched")
	}
}
