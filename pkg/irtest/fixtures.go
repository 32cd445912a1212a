// Package irtest builds small, hand-constructed IR modules exercising
// the end-to-end scenarios this pass is expected to instrument
// correctly (spec.md §8), since there is no reference compiler that
// emits this IR from source text for this pass to diff against.
package irtest

import (
	"github.com/xplshn/softboundcets-go/pkg/config"
	"github.com/xplshn/softboundcets-go/pkg/ir"
)

// Fixture is one named, self-contained test module plus the options it
// should be instrumented under.
type Fixture struct {
	Name  string
	Build func() (*ir.Program, *config.Options)
}

// Fixtures is every end-to-end scenario of spec.md §8, in the order
// they are listed there.
var Fixtures = []Fixture{
	{"use_after_free", UseAfterFree},
	{"out_of_bounds_write", OutOfBoundsWrite},
	{"pointer_returned_from_function", PointerReturnedFromFunction},
	{"phi_of_two_heap_pointers", PhiOfTwoHeapPointers},
	{"select_between_pointers", SelectBetweenPointers},
	{"bitcast_chain", BitcastChain},
}

func newProgram() *ir.Program { return &ir.Program{WordSize: 8} }

// UseAfterFree allocates a 10-byte buffer, frees it, then loads from the
// stale pointer — spec.md §8 scenario 1.
func UseAfterFree() (*ir.Program, *config.Options) {
	prog := newProgram()
	buf := &ir.Local{Name: "buf", Typ: ir.PointerTo(ir.U8Type)}
	loaded := &ir.Local{Name: "v", Typ: ir.U8Type}
	entry := &ir.BasicBlock{Name: "entry", Instructions: []*ir.Instruction{
		{Op: ir.OpCall, Result: buf, Callee: &ir.Global{Name: "malloc"}, Args: []ir.Value{&ir.Const{Value: 10, Typ: ir.I64Type}}},
		{Op: ir.OpCall, Callee: &ir.Global{Name: "free"}, Args: []ir.Value{buf}},
		{Op: ir.OpLoad, Result: loaded, Args: []ir.Value{buf}},
		{Op: ir.OpRet},
	}}
	fn := &ir.Func{Name: "use_after_free", ReturnType: ir.VoidType, Blocks: []*ir.BasicBlock{entry}}
	prog.Funcs = []*ir.Func{fn}
	return prog, config.NewDefaultOptions()
}

// OutOfBoundsWrite allocas a 4-element i32 array, GEPs to index 7 (past
// the end), and stores through it — spec.md §8 scenario 2.
func OutOfBoundsWrite() (*ir.Program, *config.Options) {
	prog := newProgram()
	arrTyp := ir.ArrayOf(ir.I32Type, 4)
	arr := &ir.Local{Name: "arr", Typ: ir.PointerTo(arrTyp)}
	elem := &ir.Local{Name: "elem", Typ: ir.PointerTo(ir.I32Type)}
	entry := &ir.BasicBlock{Name: "entry", Instructions: []*ir.Instruction{
		{Op: ir.OpAlloca, Result: arr, Args: []ir.Value{&ir.Const{Value: 1, Typ: ir.I64Type}}},
		{Op: ir.OpGetElementPtr, Result: elem, Args: []ir.Value{arr}, Indices: []ir.Value{&ir.Const{Value: 0, Typ: ir.I64Type}, &ir.Const{Value: 7, Typ: ir.I64Type}}},
		{Op: ir.OpStore, Args: []ir.Value{elem, &ir.Const{Value: 99, Typ: ir.I32Type}}},
		{Op: ir.OpRet},
	}}
	fn := &ir.Func{Name: "out_of_bounds_write", ReturnType: ir.VoidType, Blocks: []*ir.BasicBlock{entry}}
	prog.Funcs = []*ir.Func{fn}
	return prog, config.NewDefaultOptions()
}

// PointerReturnedFromFunction allocas an i32 on the stack and returns
// its address — spec.md §8 scenario 3. The caller's subsequent
// dereference of a dangling stack address is the runtime's job to
// catch via the temporal check this pass installs at the load; this
// fixture models only the callee side.
func PointerReturnedFromFunction() (*ir.Program, *config.Options) {
	prog := newProgram()
	local := &ir.Local{Name: "x", Typ: ir.PointerTo(ir.I32Type)}
	entry := &ir.BasicBlock{Name: "entry", Instructions: []*ir.Instruction{
		{Op: ir.OpAlloca, Result: local, Args: []ir.Value{&ir.Const{Value: 1, Typ: ir.I64Type}}},
		{Op: ir.OpRet, Args: []ir.Value{local}},
	}}
	fn := &ir.Func{Name: "make_dangling", ReturnType: ir.PointerTo(ir.I32Type), Blocks: []*ir.BasicBlock{entry}}
	prog.Funcs = []*ir.Func{fn}
	return prog, config.NewDefaultOptions()
}

// PhiOfTwoHeapPointers branches on a parameter, mallocs a different
// size in each arm, and phis the two heap pointers together — spec.md
// §8 scenario 4.
func PhiOfTwoHeapPointers() (*ir.Program, *config.Options) {
	prog := newProgram()
	cond := &ir.Param{Name: "cond", Typ: ir.I1Type}
	pThen := &ir.Local{Name: "p_then", Typ: ir.PointerTo(ir.U8Type)}
	pElse := &ir.Local{Name: "p_else", Typ: ir.PointerTo(ir.U8Type)}
	merged := &ir.Local{Name: "merged", Typ: ir.PointerTo(ir.U8Type)}

	thenBlock := &ir.BasicBlock{Name: "then", Instructions: []*ir.Instruction{
		{Op: ir.OpCall, Result: pThen, Callee: &ir.Global{Name: "malloc"}, Args: []ir.Value{&ir.Const{Value: 16, Typ: ir.I64Type}}},
	}}
	elseBlock := &ir.BasicBlock{Name: "else", Instructions: []*ir.Instruction{
		{Op: ir.OpCall, Result: pElse, Callee: &ir.Global{Name: "malloc"}, Args: []ir.Value{&ir.Const{Value: 32, Typ: ir.I64Type}}},
	}}
	merge := &ir.BasicBlock{Name: "merge", Instructions: []*ir.Instruction{
		{Op: ir.OpPhi, Result: merged, Incoming: []ir.PhiEdge{
			{Block: thenBlock, Value: pThen},
			{Block: elseBlock, Value: pElse},
		}},
		{Op: ir.OpRet},
	}}
	thenBlock.Instructions = append(thenBlock.Instructions, &ir.Instruction{Op: ir.OpBr, Targets: []*ir.BasicBlock{merge}})
	elseBlock.Instructions = append(elseBlock.Instructions, &ir.Instruction{Op: ir.OpBr, Targets: []*ir.BasicBlock{merge}})
	entry := &ir.BasicBlock{Name: "entry", Instructions: []*ir.Instruction{
		{Op: ir.OpCondBr, Args: []ir.Value{&ir.Local{Name: cond.Name, Typ: cond.Typ}}, Targets: []*ir.BasicBlock{thenBlock, elseBlock}},
	}}
	fn := &ir.Func{Name: "phi_heap_pointers", ReturnType: ir.VoidType, Params: []*ir.Param{cond}, Blocks: []*ir.BasicBlock{entry, thenBlock, elseBlock, merge}}
	prog.Funcs = []*ir.Func{fn}
	return prog, config.NewDefaultOptions()
}

// SelectBetweenPointers selects between two tracked pointer parameters
// under a condition parameter — spec.md §8 scenario 5.
func SelectBetweenPointers() (*ir.Program, *config.Options) {
	prog := newProgram()
	cond := &ir.Param{Name: "cond", Typ: ir.I1Type}
	p := &ir.Param{Name: "p", Typ: ir.PointerTo(ir.I32Type)}
	q := &ir.Param{Name: "q", Typ: ir.PointerTo(ir.I32Type)}
	selected := &ir.Local{Name: "selected", Typ: ir.PointerTo(ir.I32Type)}
	entry := &ir.BasicBlock{Name: "entry", Instructions: []*ir.Instruction{
		{Op: ir.OpSelect, Result: selected, Args: []ir.Value{
			&ir.Local{Name: cond.Name, Typ: cond.Typ},
			&ir.Local{Name: p.Name, Typ: p.Typ},
			&ir.Local{Name: q.Name, Typ: q.Typ},
		}},
		{Op: ir.OpRet},
	}}
	fn := &ir.Func{Name: "select_pointers", ReturnType: ir.VoidType, Params: []*ir.Param{cond, p, q}, Blocks: []*ir.BasicBlock{entry}}
	prog.Funcs = []*ir.Func{fn}
	return prog, config.NewDefaultOptions()
}

// BitcastChain bitcasts a tracked pointer parameter to a different
// pointee type and loads through the result — spec.md §8 scenario 6.
func BitcastChain() (*ir.Program, *config.Options) {
	prog := newProgram()
	p := &ir.Param{Name: "p", Typ: ir.PointerTo(ir.U8Type)}
	q := &ir.Local{Name: "q", Typ: ir.PointerTo(ir.I32Type)}
	loaded := &ir.Local{Name: "v", Typ: ir.I32Type}
	entry := &ir.BasicBlock{Name: "entry", Instructions: []*ir.Instruction{
		{Op: ir.OpBitcast, Result: q, Args: []ir.Value{&ir.Local{Name: p.Name, Typ: p.Typ}}},
		{Op: ir.OpLoad, Result: loaded, Args: []ir.Value{q}},
		{Op: ir.OpRet},
	}}
	fn := &ir.Func{Name: "bitcast_chain", ReturnType: ir.VoidType, Params: []*ir.Param{p}, Blocks: []*ir.BasicBlock{entry}}
	prog.Funcs = []*ir.Func{fn}
	return prog, config.NewDefaultOptions()
}
