package ir

// Wire encoding for Program: the in-memory IR graph is pointer-linked
// (instructions reference *BasicBlock targets directly, phi edges
// reference predecessor blocks directly), which plain encoding/json
// cannot round-trip through an interface-typed Value field or a cyclic
// block graph. EncodeProgram/DecodeProgram translate to and from a flat,
// name-referencing wire form: blocks are referenced by name within their
// owning function and resolved back to pointers on decode.
//
// Named struct types are encoded by full definition on first occurrence
// and by name-only reference afterward. On decode a named struct is
// registered under its name before its fields are decoded, so a struct
// that reaches itself through a pointer resolves its name-only reference
// back to the same *Type. A struct that contains itself directly (through
// struct fields with no pointer indirection) is not detected: it decodes
// to a cyclic Type with no finite size.

import (
	"encoding/json"
	"fmt"
)

type wireType struct {
	Kind     string      `json:"kind"`
	Bits     int         `json:"bits,omitempty"`
	Signed   bool        `json:"signed,omitempty"`
	Elem     *wireType   `json:"elem,omitempty"`
	Count    int64       `json:"count,omitempty"`
	Name     string      `json:"name,omitempty"`
	Fields   []wireField `json:"fields,omitempty"`
	Params   []wireType  `json:"params,omitempty"`
	Ret      *wireType   `json:"ret,omitempty"`
	Variadic bool        `json:"variadic,omitempty"`
}

type wireField struct {
	Name   string   `json:"name"`
	Type   wireType `json:"type"`
	Offset int64    `json:"offset"`
}

type wireValue struct {
	Kind   string   `json:"kind"`
	Value  int64    `json:"value,omitempty"`
	FValue float64  `json:"fvalue,omitempty"`
	Name   string   `json:"name,omitempty"`
	ID     int      `json:"id,omitempty"`
	Type   wireType `json:"type,omitempty"`
}

type wirePhiEdge struct {
	Block string    `json:"block"`
	Value wireValue `json:"value"`
}

type wireInstr struct {
	Op       string        `json:"op"`
	Result   *wireValue    `json:"result,omitempty"`
	Args     []wireValue   `json:"args,omitempty"`
	Callee   *wireValue    `json:"callee,omitempty"`
	Indices  []wireValue   `json:"indices,omitempty"`
	Targets  []string      `json:"targets,omitempty"`
	Incoming []wirePhiEdge `json:"incoming,omitempty"`
	Align    int           `json:"align,omitempty"`
}

type wireBlock struct {
	Name         string      `json:"name"`
	Instructions []wireInstr `json:"instructions"`
}

type wireParam struct {
	Name string   `json:"name"`
	Type wireType `json:"type"`
}

type wireFunc struct {
	Name       string      `json:"name"`
	Params     []wireParam `json:"params,omitempty"`
	ReturnType wireType    `json:"return_type"`
	Variadic   bool        `json:"variadic,omitempty"`
	Blocks     []wireBlock `json:"blocks,omitempty"`
}

type wireGlobal struct {
	Name        string   `json:"name"`
	Type        wireType `json:"type"`
	Initialized bool     `json:"initialized,omitempty"`
	Section     string   `json:"section,omitempty"`
}

type wireProgram struct {
	WordSize int          `json:"word_size"`
	Globals  []wireGlobal `json:"globals,omitempty"`
	Funcs    []wireFunc   `json:"funcs,omitempty"`
}

// EncodeProgram renders prog as the flat JSON wire form.
func EncodeProgram(prog *Program) ([]byte, error) {
	seen := make(map[string]bool)
	wp := wireProgram{WordSize: prog.WordSize}
	for _, g := range prog.Globals {
		wp.Globals = append(wp.Globals, wireGlobal{
			Name: g.Name, Type: encodeType(g.Typ, seen), Initialized: g.Initialized, Section: g.Section,
		})
	}
	for _, fn := range prog.Funcs {
		wp.Funcs = append(wp.Funcs, encodeFunc(fn, seen))
	}
	return json.MarshalIndent(wp, "", "  ")
}

func encodeFunc(fn *Func, seen map[string]bool) wireFunc {
	wf := wireFunc{Name: fn.Name, ReturnType: encodeType(fn.ReturnType, seen), Variadic: fn.HasVarargs}
	for _, p := range fn.Params {
		wf.Params = append(wf.Params, wireParam{Name: p.Name, Type: encodeType(p.Typ, seen)})
	}
	for _, b := range fn.Blocks {
		wb := wireBlock{Name: b.Name}
		for _, instr := range b.Instructions {
			wb.Instructions = append(wb.Instructions, encodeInstr(instr, seen))
		}
		wf.Blocks = append(wf.Blocks, wb)
	}
	return wf
}

func encodeInstr(instr *Instruction, seen map[string]bool) wireInstr {
	wi := wireInstr{Op: instr.Op.String(), Align: instr.Align}
	if instr.Result != nil {
		r := encodeValue(instr.Result, seen)
		wi.Result = &r
	}
	for _, a := range instr.Args {
		wi.Args = append(wi.Args, encodeValue(a, seen))
	}
	if instr.Callee != nil {
		c := encodeValue(instr.Callee, seen)
		wi.Callee = &c
	}
	for _, idx := range instr.Indices {
		wi.Indices = append(wi.Indices, encodeValue(idx, seen))
	}
	for _, t := range instr.Targets {
		wi.Targets = append(wi.Targets, t.Name)
	}
	for _, e := range instr.Incoming {
		wi.Incoming = append(wi.Incoming, wirePhiEdge{Block: e.Block.Name, Value: encodeValue(e.Value, seen)})
	}
	return wi
}

func encodeValue(v Value, seen map[string]bool) wireValue {
	switch x := v.(type) {
	case *Const:
		return wireValue{Kind: "const", Value: x.Value, Type: encodeType(x.Typ, seen)}
	case *FloatConst:
		return wireValue{Kind: "float", FValue: x.Value, Type: encodeType(x.Typ, seen)}
	case *Null:
		return wireValue{Kind: "null", Type: encodeType(x.Typ, seen)}
	case *Global:
		return wireValue{Kind: "global", Name: x.Name, Type: encodeType(x.Typ, seen)}
	case *Local:
		return wireValue{Kind: "local", Name: x.Name, ID: x.ID, Type: encodeType(x.Typ, seen)}
	default:
		return wireValue{Kind: "null"}
	}
}

func encodeType(t *Type, seen map[string]bool) wireType {
	if t == nil {
		return wireType{Kind: "void"}
	}
	switch t.Kind {
	case KindVoid:
		return wireType{Kind: "void"}
	case KindInt:
		return wireType{Kind: "int", Bits: t.Bits, Signed: t.Signed}
	case KindFloat:
		return wireType{Kind: "float", Bits: t.Bits}
	case KindPointer:
		elem := encodeType(t.Elem, seen)
		return wireType{Kind: "pointer", Elem: &elem}
	case KindArray:
		elem := encodeType(t.Elem, seen)
		return wireType{Kind: "array", Elem: &elem, Count: t.Count}
	case KindStruct:
		if t.Name != "" && seen[t.Name] {
			return wireType{Kind: "struct", Name: t.Name}
		}
		if t.Name != "" {
			seen[t.Name] = true
		}
		wt := wireType{Kind: "struct", Name: t.Name}
		for _, f := range t.Fields {
			wt.Fields = append(wt.Fields, wireField{Name: f.Name, Type: encodeType(f.Type, seen), Offset: f.Offset})
		}
		return wt
	case KindFunc:
		wt := wireType{Kind: "func", Variadic: t.Variadic}
		ret := encodeType(t.Ret, seen)
		wt.Ret = &ret
		for _, p := range t.Params {
			wt.Params = append(wt.Params, encodeType(p, seen))
		}
		return wt
	default:
		return wireType{Kind: "void"}
	}
}

// DecodeProgram reconstructs a Program from EncodeProgram's wire form.
func DecodeProgram(data []byte) (*Program, error) {
	var wp wireProgram
	if err := json.Unmarshal(data, &wp); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	prog := &Program{WordSize: wp.WordSize}
	named := make(map[string]*Type)

	for _, g := range wp.Globals {
		prog.Globals = append(prog.Globals, &GlobalVar{
			Name: g.Name, Typ: decodeType(g.Type, named), Initialized: g.Initialized, Section: g.Section,
		})
	}
	for _, wf := range wp.Funcs {
		fn, err := decodeFunc(wf, named)
		if err != nil {
			return nil, err
		}
		prog.Funcs = append(prog.Funcs, fn)
	}
	return prog, nil
}

func decodeFunc(wf wireFunc, named map[string]*Type) (*Func, error) {
	fn := &Func{Name: wf.Name, ReturnType: decodeType(wf.ReturnType, named), HasVarargs: wf.Variadic}
	for _, p := range wf.Params {
		fn.Params = append(fn.Params, &Param{Name: p.Name, Typ: decodeType(p.Type, named)})
	}

	blocksByName := make(map[string]*BasicBlock, len(wf.Blocks))
	for _, wb := range wf.Blocks {
		b := &BasicBlock{Name: wb.Name}
		blocksByName[wb.Name] = b
		fn.Blocks = append(fn.Blocks, b)
	}
	for i, wb := range wf.Blocks {
		b := fn.Blocks[i]
		for _, wi := range wb.Instructions {
			instr, err := decodeInstr(wi, named, blocksByName)
			if err != nil {
				return nil, fmt.Errorf("function %s, block %s: %w", fn.Name, wb.Name, err)
			}
			b.Instructions = append(b.Instructions, instr)
		}
	}
	return fn, nil
}

func decodeInstr(wi wireInstr, named map[string]*Type, blocks map[string]*BasicBlock) (*Instruction, error) {
	op, ok := decodeOp(wi.Op)
	if !ok {
		return nil, fmt.Errorf("unknown opcode %q", wi.Op)
	}
	instr := &Instruction{Op: op, Align: wi.Align}
	if wi.Result != nil {
		l, err := decodeValue(*wi.Result, named)
		if err != nil {
			return nil, err
		}
		local, ok := l.(*Local)
		if !ok {
			return nil, fmt.Errorf("instruction result must be a local, got %T", l)
		}
		instr.Result = local
	}
	for _, a := range wi.Args {
		v, err := decodeValue(a, named)
		if err != nil {
			return nil, err
		}
		instr.Args = append(instr.Args, v)
	}
	if wi.Callee != nil {
		v, err := decodeValue(*wi.Callee, named)
		if err != nil {
			return nil, err
		}
		instr.Callee = v
	}
	for _, idx := range wi.Indices {
		v, err := decodeValue(idx, named)
		if err != nil {
			return nil, err
		}
		instr.Indices = append(instr.Indices, v)
	}
	for _, t := range wi.Targets {
		b, ok := blocks[t]
		if !ok {
			return nil, fmt.Errorf("branch target %q not found in function", t)
		}
		instr.Targets = append(instr.Targets, b)
	}
	for _, e := range wi.Incoming {
		b, ok := blocks[e.Block]
		if !ok {
			return nil, fmt.Errorf("phi predecessor %q not found in function", e.Block)
		}
		v, err := decodeValue(e.Value, named)
		if err != nil {
			return nil, err
		}
		instr.Incoming = append(instr.Incoming, PhiEdge{Block: b, Value: v})
	}
	return instr, nil
}

func decodeValue(wv wireValue, named map[string]*Type) (Value, error) {
	switch wv.Kind {
	case "const":
		return &Const{Value: wv.Value, Typ: decodeType(wv.Type, named)}, nil
	case "float":
		return &FloatConst{Value: wv.FValue, Typ: decodeType(wv.Type, named)}, nil
	case "null":
		return &Null{Typ: decodeType(wv.Type, named)}, nil
	case "global":
		return &Global{Name: wv.Name, Typ: decodeType(wv.Type, named)}, nil
	case "local":
		return &Local{Name: wv.Name, ID: wv.ID, Typ: decodeType(wv.Type, named)}, nil
	default:
		return nil, fmt.Errorf("unknown value kind %q", wv.Kind)
	}
}

func decodeType(wt wireType, named map[string]*Type) *Type {
	switch wt.Kind {
	case "", "void":
		return VoidType
	case "int":
		return &Type{Kind: KindInt, Bits: wt.Bits, Signed: wt.Signed}
	case "float":
		return &Type{Kind: KindFloat, Bits: wt.Bits}
	case "pointer":
		return &Type{Kind: KindPointer, Elem: decodeType(derefWireType(wt.Elem), named)}
	case "array":
		return &Type{Kind: KindArray, Elem: decodeType(derefWireType(wt.Elem), named), Count: wt.Count}
	case "struct":
		if len(wt.Fields) == 0 && wt.Name != "" {
			if t, ok := named[wt.Name]; ok {
				return t
			}
			return &Type{Kind: KindStruct, Name: wt.Name}
		}
		t := &Type{Kind: KindStruct, Name: wt.Name}
		if wt.Name != "" {
			named[wt.Name] = t
		}
		for _, f := range wt.Fields {
			t.Fields = append(t.Fields, &Field{Name: f.Name, Type: decodeType(f.Type, named), Offset: f.Offset})
		}
		return t
	case "func":
		t := &Type{Kind: KindFunc, Variadic: wt.Variadic, Ret: decodeType(derefWireType(wt.Ret), named)}
		for _, p := range wt.Params {
			t.Params = append(t.Params, decodeType(p, named))
		}
		return t
	default:
		return VoidType
	}
}

func derefWireType(wt *wireType) wireType {
	if wt == nil {
		return wireType{Kind: "void"}
	}
	return *wt
}

func decodeOp(s string) (Op, bool) {
	ops := map[string]Op{
		"alloca": OpAlloca, "load": OpLoad, "store": OpStore,
		"getelementptr": OpGetElementPtr, "bitcast": OpBitcast, "select": OpSelect,
		"phi": OpPhi, "call": OpCall, "ret": OpRet, "br": OpBr, "condbr": OpCondBr,
		"add": OpAdd, "sub": OpSub, "mul": OpMul, "div": OpDiv, "icmp": OpICmp,
		"trunc": OpTrunc, "sext": OpSExt, "zext": OpZExt,
		"inttoptr": OpIntToPtr, "ptrtoint": OpPtrToInt, "unreachable": OpUnreachable,
	}
	op, ok := ops[s]
	return op, ok
}
