package ir

import (
	"strings"
	"testing"
)

func TestEncodeDecodeProgramRoundTripsScalarGlobal(t *testing.T) {
	prog := &Program{WordSize: 8, Globals: []*GlobalVar{
		{Name: "counter", Typ: I32Type, Initialized: true},
		{Name: "ctors", Typ: PointerTo(VoidPtr), Section: "llvm.global_ctors"},
	}}
	data, err := EncodeProgram(prog)
	if err != nil {
		t.Fatalf("EncodeProgram: %v", err)
	}
	got, err := DecodeProgram(data)
	if err != nil {
		t.Fatalf("DecodeProgram: %v", err)
	}
	if len(got.Globals) != 2 {
		t.Fatalf("expected 2 globals, got %d", len(got.Globals))
	}
	if got.Globals[0].Name != "counter" || !got.Globals[0].Initialized {
		t.Errorf("unexpected first global: %+v", got.Globals[0])
	}
	if got.Globals[1].Section != "llvm.global_ctors" {
		t.Errorf("expected section to survive round trip, got %+v", got.Globals[1])
	}
	if got.Globals[1].Typ.Kind != KindPointer || got.Globals[1].Typ.Elem.Kind != KindPointer {
		t.Errorf("expected nested pointer type to survive round trip, got %s", got.Globals[1].Typ)
	}
}

func TestEncodeDecodeProgramRoundTripsBranchAndPhi(t *testing.T) {
	thenBlock := &BasicBlock{Name: "then", Instructions: []*Instruction{{Op: OpBr, Targets: nil}}}
	elseBlock := &BasicBlock{Name: "else", Instructions: []*Instruction{{Op: OpBr, Targets: nil}}}
	joined := &Local{Name: "joined", Typ: I32Type}
	merge := &BasicBlock{Name: "merge", Instructions: []*Instruction{
		{Op: OpPhi, Result: joined, Incoming: []PhiEdge{
			{Block: thenBlock, Value: &Const{Value: 1, Typ: I32Type}},
			{Block: elseBlock, Value: &Const{Value: 2, Typ: I32Type}},
		}},
		{Op: OpRet, Args: []Value{joined}},
	}}
	thenBlock.Instructions[0].Targets = []*BasicBlock{merge}
	elseBlock.Instructions[0].Targets = []*BasicBlock{merge}
	entry := &BasicBlock{Name: "entry", Instructions: []*Instruction{
		{Op: OpCondBr, Args: []Value{&Const{Value: 1, Typ: I1Type}}, Targets: []*BasicBlock{thenBlock, elseBlock}},
	}}
	fn := &Func{Name: "branchy", ReturnType: I32Type, Blocks: []*BasicBlock{entry, thenBlock, elseBlock, merge}}
	prog := &Program{WordSize: 8, Funcs: []*Func{fn}}

	data, err := EncodeProgram(prog)
	if err != nil {
		t.Fatalf("EncodeProgram: %v", err)
	}
	got, err := DecodeProgram(data)
	if err != nil {
		t.Fatalf("DecodeProgram: %v", err)
	}
	gotFn := got.FindFunc("branchy")
	if gotFn == nil || len(gotFn.Blocks) != 4 {
		t.Fatalf("expected 4 blocks back, got %+v", gotFn)
	}
	gotMerge := gotFn.Blocks[3]
	phi := gotMerge.Instructions[0]
	if len(phi.Incoming) != 2 {
		t.Fatalf("expected 2 phi edges, got %d", len(phi.Incoming))
	}
	if phi.Incoming[0].Block != gotFn.Blocks[1] || phi.Incoming[1].Block != gotFn.Blocks[2] {
		t.Error("expected phi edges to resolve back to the decoded then/else block pointers")
	}
	gotEntry := gotFn.Blocks[0]
	condbr := gotEntry.Instructions[0]
	if condbr.Targets[0] != gotFn.Blocks[1] || condbr.Targets[1] != gotFn.Blocks[2] {
		t.Error("expected condbr targets to resolve back to the decoded block pointers")
	}
}

func TestEncodeDecodeProgramRoundTripsCallAndStructType(t *testing.T) {
	point := &Type{Kind: KindStruct, Name: "point", Fields: []*Field{
		{Name: "x", Type: I32Type, Offset: 0},
		{Name: "y", Type: I32Type, Offset: 4},
	}}
	param := &Param{Name: "p", Typ: PointerTo(point)}
	result := &Local{Name: "r", Typ: I32Type}
	entry := &BasicBlock{Name: "entry", Instructions: []*Instruction{
		{Op: OpCall, Result: result, Callee: &Global{Name: "area", Typ: PointerTo(&Type{Kind: KindFunc, Ret: I32Type, Params: []*Type{PointerTo(point)}})}, Args: []Value{&Local{Name: "p", Typ: param.Typ}}},
		{Op: OpRet, Args: []Value{result}},
	}}
	fn := &Func{Name: "area_of", ReturnType: I32Type, Params: []*Param{param}, Blocks: []*BasicBlock{entry}}
	prog := &Program{WordSize: 8, Funcs: []*Func{fn}}

	data, err := EncodeProgram(prog)
	if err != nil {
		t.Fatalf("EncodeProgram: %v", err)
	}
	if !strings.Contains(string(data), "\"point\"") {
		t.Fatalf("expected the struct name to appear in the wire form, got:\n%s", data)
	}
	got, err := DecodeProgram(data)
	if err != nil {
		t.Fatalf("DecodeProgram: %v", err)
	}
	gotFn := got.FindFunc("area_of")
	if gotFn == nil {
		t.Fatal("expected area_of to round trip")
	}
	gotParamType := gotFn.Params[0].Typ
	if gotParamType.Kind != KindPointer || gotParamType.Elem.Kind != KindStruct || gotParamType.Elem.Name != "point" {
		t.Fatalf("expected param type to round trip as pointer-to-struct, got %s", gotParamType)
	}
	if len(gotParamType.Elem.Fields) != 2 {
		t.Fatalf("expected struct fields to round trip, got %+v", gotParamType.Elem.Fields)
	}
	call := gotFn.Blocks[0].Instructions[0]
	callee, ok := call.Callee.(*Global)
	if !ok || callee.Name != "area" {
		t.Fatalf("expected call callee to round trip as a global reference, got %+v", call.Callee)
	}
}

func TestDecodeProgramRejectsUnknownOpcode(t *testing.T) {
	data := []byte(`{"word_size":8,"funcs":[{"name":"f","return_type":{"kind":"void"},"blocks":[{"name":"entry","instructions":[{"op":"frobnicate"}]}]}]}`)
	if _, err := DecodeProgram(data); err == nil {
		t.Fatal("expected an error for an unrecognized opcode")
	}
}

func TestDecodeProgramRejectsUnknownBranchTarget(t *testing.T) {
	data := []byte(`{"word_size":8,"funcs":[{"name":"f","return_type":{"kind":"void"},"blocks":[{"name":"entry","instructions":[{"op":"br","targets":["nowhere"]}]}]}]}`)
	if _, err := DecodeProgram(data); err == nil {
		t.Fatal("expected an error for a branch target that does not name a block in the function")
	}
}
