package driver

import (
	"testing"

	"github.com/xplshn/softboundcets-go/pkg/config"
	"github.com/xplshn/softboundcets-go/pkg/ir"
	"github.com/xplshn/softboundcets-go/pkg/rtapi"
	"github.com/xplshn/softboundcets-go/pkg/symtab"
)

func countCallsIn(fn *ir.Func, name string) int {
	n := 0
	for _, b := range fn.Blocks {
		for _, instr := range b.Instructions {
			if instr.Op == ir.OpCall {
				if g, ok := instr.Callee.(*ir.Global); ok && g.Name == name {
					n++
				}
			}
		}
	}
	return n
}

func simpleProgram() (*ir.Program, *ir.Func) {
	entry := &ir.BasicBlock{Name: "entry", Instructions: []*ir.Instruction{
		{Op: ir.OpRet},
	}}
	fn := &ir.Func{Name: "work", ReturnType: ir.VoidType, Blocks: []*ir.BasicBlock{entry}}
	prog := &ir.Program{WordSize: 8, Funcs: []*ir.Func{fn}}
	return prog, fn
}

func TestRunInstrumentsEligibleFunctionWithPrologue(t *testing.T) {
	prog, _ := simpleProgram()
	opts := config.NewDefaultOptions()
	if err := Run(prog, opts); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	fn := prog.FindFunc("work")
	if fn == nil {
		t.Fatal("expected function to still be present")
	}
	if len(fn.Blocks) < 2 {
		t.Fatal("expected a prologue block prepended")
	}
	if countCallsIn(fn, rtapi.GetGlobalLock) != 1 {
		t.Error("expected one global-lock acquire call in the prologue")
	}
	if countCallsIn(fn, rtapi.CreateStackKey) != 1 {
		t.Error("expected one stack-key creation call in the prologue")
	}
	if countCallsIn(fn, rtapi.DestroyStackKey) != 1 {
		t.Error("expected one stack-key destroy call before the return")
	}
}

func TestRunSkipsEmptyFunction(t *testing.T) {
	decl := &ir.Func{Name: "declared_only", HasVarargs: false}
	prog := &ir.Program{WordSize: 8, Funcs: []*ir.Func{decl}}
	if err := Run(prog, config.NewDefaultOptions()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(decl.Blocks) != 0 {
		t.Error("expected an empty function to remain untouched")
	}
}

func TestRunSkipsVariadicFunction(t *testing.T) {
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{{Op: ir.OpRet}}}
	fn := &ir.Func{Name: "logf", HasVarargs: true, Blocks: []*ir.BasicBlock{entry}}
	prog := &ir.Program{WordSize: 8, Funcs: []*ir.Func{fn}}
	if err := Run(prog, config.NewDefaultOptions()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(fn.Blocks) != 1 {
		t.Error("expected a variadic function to remain untouched")
	}
}

func TestRunSkipsBlacklistedFunction(t *testing.T) {
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{{Op: ir.OpRet}}}
	fn := &ir.Func{Name: "hot_path", Blocks: []*ir.BasicBlock{entry}}
	prog := &ir.Program{WordSize: 8, Funcs: []*ir.Func{fn}}
	opts := config.NewDefaultOptions()
	opts.AddBlacklist("hot_path")
	if err := Run(prog, opts); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(fn.Blocks) != 1 {
		t.Error("expected a blacklisted function to remain untouched")
	}
}

func TestRunSkipsIgnoredNames(t *testing.T) {
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{{Op: ir.OpRet}}}
	fn := &ir.Func{Name: "__softboundcets_helper", Blocks: []*ir.BasicBlock{entry}}
	prog := &ir.Program{WordSize: 8, Funcs: []*ir.Func{fn}}
	if err := Run(prog, config.NewDefaultOptions()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(fn.Blocks) != 1 {
		t.Error("expected an ignored-name function to remain untouched")
	}
}

func TestRunSkipsWrappedAllocators(t *testing.T) {
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{{Op: ir.OpRet}}}
	fn := &ir.Func{Name: "malloc", Blocks: []*ir.BasicBlock{entry}}
	prog := &ir.Program{WordSize: 8, Funcs: []*ir.Func{fn}}
	if err := Run(prog, config.NewDefaultOptions()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(fn.Blocks) != 1 {
		t.Error("expected malloc's own definition to remain untouched (call sites are redirected instead)")
	}
}

func TestRunRenamesMainToSoftboundcetsMain(t *testing.T) {
	entry := &ir.BasicBlock{Instructions: []*ir.Instruction{{Op: ir.OpRet}}}
	fn := &ir.Func{Name: "main", ReturnType: ir.I32Type, Blocks: []*ir.BasicBlock{entry}}
	prog := &ir.Program{WordSize: 8, Funcs: []*ir.Func{fn}}
	if err := Run(prog, config.NewDefaultOptions()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if fn.Name != "softboundcets_main" {
		t.Errorf("expected main renamed to softboundcets_main, got %q", fn.Name)
	}
	if prog.FindFunc("main") != nil {
		t.Error("did not expect a function still named main")
	}
}

func TestDispatchGlobalSkipsSpecialSectionsAndUninitialized(t *testing.T) {
	tables := symtab.New(make(map[string]symtab.Metadata))
	dispatchGlobal(tables, &ir.GlobalVar{Name: "ctor_table", Section: "llvm.global_ctors", Initialized: true})
	dispatchGlobal(tables, &ir.GlobalVar{Name: "extern_var", Initialized: false})
	dispatchGlobal(tables, &ir.GlobalVar{Name: "plain_global", Initialized: true})

	if tables.IsSafe("ctor_table") {
		t.Error("did not expect a special-section global registered as safe")
	}
	if tables.IsSafe("extern_var") {
		t.Error("did not expect an uninitialized global registered as safe")
	}
	if !tables.IsSafe("plain_global") {
		t.Error("expected an ordinary initialized global registered as safe")
	}
}

func TestRunEndToEndInstrumentsLoadInBody(t *testing.T) {
	p := &ir.Param{Name: "p", Typ: ir.PointerTo(ir.I32Type)}
	loadResult := &ir.Local{Name: "v", Typ: ir.I32Type}
	entry := &ir.BasicBlock{Name: "entry", Instructions: []*ir.Instruction{
		{Op: ir.OpLoad, Result: loadResult, Args: []ir.Value{&ir.Local{Name: "p", Typ: p.Typ}}},
		{Op: ir.OpRet},
	}}
	fn := &ir.Func{Name: "read_it", ReturnType: ir.VoidType, Params: []*ir.Param{p}, Blocks: []*ir.BasicBlock{entry}}
	prog := &ir.Program{WordSize: 8, Funcs: []*ir.Func{fn}}

	if err := Run(prog, config.NewDefaultOptions()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if countCallsIn(fn, rtapi.SpatialLoadCheck) != 1 {
		t.Error("expected the load of a tracked parameter to gain a spatial check")
	}
	if countCallsIn(fn, rtapi.TemporalLoadCheck) != 1 {
		t.Error("expected the load of a tracked parameter to gain a temporal check")
	}
}
