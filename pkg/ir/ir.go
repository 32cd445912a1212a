// Package ir defines the typed SSA intermediate representation that the
// instrumentation passes in this module read and rewrite.
package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Op enumerates the instruction opcodes this IR supports. The set is
// deliberately small: only the opcodes the instrumentation passes need to
// reason about (pointer-producing/consuming constructs) plus a residual
// arithmetic set that is always passed through unchanged.
type Op int

const (
	OpAlloca Op = iota
	OpLoad
	OpStore
	OpGetElementPtr
	OpBitcast
	OpSelect
	OpPhi
	OpCall
	OpRet
	OpBr
	OpCondBr
	// Residual opcodes rewritten arms never touch; they flow through the
	// Instruction Rewriter's default arm unchanged.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpICmp
	OpTrunc
	OpSExt
	OpZExt
	OpIntToPtr
	OpPtrToInt
	OpUnreachable
)

func (op Op) String() string {
	switch op {
	case OpAlloca:
		return "alloca"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpGetElementPtr:
		return "getelementptr"
	case OpBitcast:
		return "bitcast"
	case OpSelect:
		return "select"
	case OpPhi:
		return "phi"
	case OpCall:
		return "call"
	case OpRet:
		return "ret"
	case OpBr:
		return "br"
	case OpCondBr:
		return "condbr"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpICmp:
		return "icmp"
	case OpTrunc:
		return "trunc"
	case OpSExt:
		return "sext"
	case OpZExt:
		return "zext"
	case OpIntToPtr:
		return "inttoptr"
	case OpPtrToInt:
		return "ptrtoint"
	case OpUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// TypeKind distinguishes the shapes a Type can take. Unlike the teacher's
// flat Type enum (which erases pointee information behind a side-channel
// AST type), this Type is a small tree so that GEP type-indexing and
// element-size queries are self-contained.
type TypeKind int

const (
	KindVoid TypeKind = iota
	KindInt
	KindFloat
	KindPointer
	KindArray
	KindStruct
	KindFunc
)

// Type is a node in the IR's type tree.
type Type struct {
	Kind TypeKind

	// KindInt / KindFloat
	Bits   int
	Signed bool

	// KindPointer / KindArray
	Elem *Type

	// KindArray
	Count int64

	// KindStruct
	Name   string
	Fields []*Field

	// KindFunc
	Params   []*Type
	Ret      *Type
	Variadic bool
}

// Field is one member of a struct type.
type Field struct {
	Name   string
	Type   *Type
	Offset int64
}

var (
	VoidType  = &Type{Kind: KindVoid}
	I1Type    = &Type{Kind: KindInt, Bits: 1}
	I8Type    = &Type{Kind: KindInt, Bits: 8, Signed: true}
	U8Type    = &Type{Kind: KindInt, Bits: 8}
	I32Type   = &Type{Kind: KindInt, Bits: 32, Signed: true}
	U32Type   = &Type{Kind: KindInt, Bits: 32}
	I64Type   = &Type{Kind: KindInt, Bits: 64, Signed: true}
	U64Type   = &Type{Kind: KindInt, Bits: 64}
	F32Type   = &Type{Kind: KindFloat, Bits: 32}
	F64Type   = &Type{Kind: KindFloat, Bits: 64}
	VoidPtr   = &Type{Kind: KindPointer, Elem: VoidType}
)

// PointerTo builds a pointer type to elem.
func PointerTo(elem *Type) *Type { return &Type{Kind: KindPointer, Elem: elem} }

// ArrayOf builds an array-of-count-elem type.
func ArrayOf(elem *Type, count int64) *Type { return &Type{Kind: KindArray, Elem: elem, Count: count} }

// IsPointerType reports whether t is a pointer type.
func IsPointerType(t *Type) bool { return t != nil && t.Kind == KindPointer }

// IsFunctionPointerType reports whether t is a pointer to a function type.
func IsFunctionPointerType(t *Type) bool {
	return IsPointerType(t) && t.Elem != nil && t.Elem.Kind == KindFunc
}

// IsFunctionType reports whether t is itself a function type.
func IsFunctionType(t *Type) bool { return t != nil && t.Kind == KindFunc }

// IsAggregateType reports whether t is an array or struct type.
func IsAggregateType(t *Type) bool {
	return t != nil && (t.Kind == KindArray || t.Kind == KindStruct)
}

// SizeOf computes the byte size of t given the pointer width in bytes
// (wordSize). Structs are sized from their last field's offset+size;
// callers that build Field.Offset are responsible for alignment.
func SizeOf(t *Type, wordSize int) int64 {
	if t == nil {
		return int64(wordSize)
	}
	switch t.Kind {
	case KindVoid:
		return 0
	case KindInt, KindFloat:
		bits := t.Bits
		if bits == 0 {
			bits = wordSize * 8
		}
		return int64((bits + 7) / 8)
	case KindPointer, KindFunc:
		return int64(wordSize)
	case KindArray:
		return t.Count * SizeOf(t.Elem, wordSize)
	case KindStruct:
		if len(t.Fields) == 0 {
			return 0
		}
		last := t.Fields[len(t.Fields)-1]
		return last.Offset + SizeOf(last.Type, wordSize)
	default:
		return int64(wordSize)
	}
}

// IndexType resolves the type reached by indexing through t the way a
// GetElementPtr instruction does: the first index steps through an array
// or pointer element (any integer value, size not checked here — that is
// the runtime's job), and every subsequent index steps into an array
// element (any index value) or must be a constant field index into a
// struct. It returns false if t cannot be indexed that way (e.g.
// indexing into a scalar, or a non-constant struct field index).
func IndexType(t *Type, indices []Value) (*Type, bool) {
	cur := t
	for i, idx := range indices {
		switch cur.Kind {
		case KindPointer, KindArray:
			cur = cur.Elem
		case KindStruct:
			c, ok := idx.(*Const)
			if !ok {
				return nil, false
			}
			if c.Value < 0 || int(c.Value) >= len(cur.Fields) {
				return nil, false
			}
			cur = cur.Fields[c.Value].Type
		default:
			return nil, false
		}
		if cur == nil && i != len(indices)-1 {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		if t.Signed {
			return fmt.Sprintf("i%d", t.Bits)
		}
		return fmt.Sprintf("u%d", t.Bits)
	case KindFloat:
		return fmt.Sprintf("f%d", t.Bits)
	case KindPointer:
		return t.Elem.String() + "*"
	case KindArray:
		return fmt.Sprintf("[%d x %s]", t.Count, t.Elem.String())
	case KindStruct:
		if t.Name != "" {
			return "%" + t.Name
		}
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Type.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindFunc:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		variadic := ""
		if t.Variadic {
			variadic = ", ..."
		}
		return fmt.Sprintf("%s (%s%s)", t.Ret.String(), strings.Join(parts, ", "), variadic)
	default:
		return "?"
	}
}

// Value is anything an Instruction can take as an operand or produce as a
// result: a constant, a global reference, or a local SSA name.
type Value interface {
	isValue()
	String() string
	Type() *Type
}

// Const is a constant integer operand.
type Const struct {
	Value int64
	Typ   *Type
}

// FloatConst is a constant floating-point operand.
type FloatConst struct {
	Value float64
	Typ   *Type
}

// Null is the null-pointer constant of a given pointee type.
type Null struct{ Typ *Type }

// Global is a reference to a module-level symbol: a global variable or a
// function.
type Global struct {
	Name string
	Typ  *Type
}

// Local is an SSA-local value: an instruction result, a basic-block
// parameter, or a function parameter.
type Local struct {
	Name string
	ID   int
	Typ  *Type
}

func (c *Const) isValue()      {}
func (f *FloatConst) isValue() {}
func (n *Null) isValue()       {}
func (g *Global) isValue()     {}
func (l *Local) isValue()      {}

func (c *Const) String() string      { return fmt.Sprintf("%d", c.Value) }
func (f *FloatConst) String() string { return fmt.Sprintf("%g", f.Value) }
func (n *Null) String() string       { return "null" }
func (g *Global) String() string     { return "@" + g.Name }
func (l *Local) String() string      { return "%" + l.Name }

func (c *Const) Type() *Type      { return c.Typ }
func (f *FloatConst) Type() *Type { return f.Typ }
func (n *Null) Type() *Type       { return n.Typ }
func (g *Global) Type() *Type     { return g.Typ }
func (l *Local) Type() *Type      { return l.Typ }

// IsConstant reports whether v is a compile-time constant (as opposed to
// a local SSA value produced by some instruction).
func IsConstant(v Value) bool {
	switch v.(type) {
	case *Const, *FloatConst, *Null:
		return true
	default:
		return false
	}
}

// IsGlobalRef reports whether v is a reference to a module-level symbol.
func IsGlobalRef(v Value) bool {
	_, ok := v.(*Global)
	return ok
}

// IsLocal reports whether v is a local SSA value.
func IsLocal(v Value) bool {
	_, ok := v.(*Local)
	return ok
}

// Instruction is one IR instruction. Result is nil for instructions with
// no value result (store, br, condbr, ret).
type Instruction struct {
	Op       Op
	Result   *Local
	Args     []Value
	Callee   Value  // OpCall only
	Indices  []Value // OpGetElementPtr only: indices after the base pointer
	Targets  []*BasicBlock // OpBr (1), OpCondBr (2: true, false)
	Incoming []PhiEdge     // OpPhi only
	Align    int           // OpAlloca only: allocation count operand is Args[0]
}

// PhiEdge is one (predecessor block, incoming value) pair of a phi.
type PhiEdge struct {
	Block *BasicBlock
	Value Value
}

// BasicBlock is a straight-line sequence of instructions ending in a
// terminator (br, condbr, ret, or unreachable).
type BasicBlock struct {
	Name         string
	Instructions []*Instruction
}

// Param is a function parameter.
type Param struct {
	Name string
	Typ  *Type
}

// Func is a function definition. HasVarargs functions and empty-bodied
// (declaration-only) functions are recognized by the Module Driver and
// never instrumented, per spec.md's Non-goals.
type Func struct {
	Name       string
	Params     []*Param
	ReturnType *Type
	HasVarargs bool
	Blocks     []*BasicBlock
}

// IsEmpty reports whether f has no body (a declaration).
func (f *Func) IsEmpty() bool { return len(f.Blocks) == 0 }

// GlobalVar is a module-level variable definition.
type GlobalVar struct {
	Name        string
	Typ         *Type
	Initialized bool
	Section     string // "llvm.global_ctors", "llvm.global_dtors", "llvm.metadata", or ""
}

// Program is a full module: every function and global variable definition
// plus bookkeeping the passes need (the next free temporary ID, so newly
// inserted instructions get names that cannot collide with anything the
// planner already scanned).
type Program struct {
	Globals   []*GlobalVar
	Funcs     []*Func
	WordSize  int
	nextTemp  int
	nextLabel int
}

// NewTemp allocates a fresh Local with a unique name, typed t.
func (p *Program) NewTemp(t *Type) *Local {
	p.nextTemp++
	return &Local{Name: fmt.Sprintf("sbc.%d", p.nextTemp), ID: p.nextTemp, Typ: t}
}

// NewBlockName allocates a fresh, unique basic-block name with the given
// prefix.
func (p *Program) NewBlockName(prefix string) string {
	p.nextLabel++
	return fmt.Sprintf("%s.%d", prefix, p.nextLabel)
}

// FindFunc looks up a function definition or declaration by name.
func (p *Program) FindFunc(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// SortedFuncNames returns the names of every function in deterministic
// (sorted) order.
func (p *Program) SortedFuncNames() []string {
	names := make([]string, len(p.Funcs))
	for i, f := range p.Funcs {
		names[i] = f.Name
	}
	sort.Strings(names)
	return names
}

// AppendInstr appends instr to the end of b.
func (b *BasicBlock) AppendInstr(instr *Instruction) {
	b.Instructions = append(b.Instructions, instr)
}

// InsertInstrBefore inserts instr immediately before the instruction at
// index i in b.
func (b *BasicBlock) InsertInstrBefore(i int, instr *Instruction) {
	b.Instructions = append(b.Instructions[:i], append([]*Instruction{instr}, b.Instructions[i:]...)...)
}

// Terminator returns the last instruction of b, or nil if b is empty.
func (b *BasicBlock) Terminator() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	return b.Instructions[len(b.Instructions)-1]
}

// InsertBeforeTerminator splices instrs immediately before b's
// terminator (or appends them if b has no terminator yet).
func (b *BasicBlock) InsertBeforeTerminator(instrs ...*Instruction) {
	if len(instrs) == 0 {
		return
	}
	n := len(b.Instructions)
	if n > 0 && IsTerminator(b.Instructions[n-1].Op) {
		b.Instructions = append(b.Instructions[:n-1], append(instrs, b.Instructions[n-1:]...)...)
		return
	}
	b.Instructions = append(b.Instructions, instrs...)
}

// IsTerminator reports whether op ends a basic block.
func IsTerminator(op Op) bool {
	switch op {
	case OpRet, OpBr, OpCondBr, OpUnreachable:
		return true
	default:
		return false
	}
}
