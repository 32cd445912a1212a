// Package rtapi is the Runtime API Binding component: the fixed table of
// runtime function prototypes this pass calls into (spec.md §6), and the
// helpers that emit external declarations and typed call sites for them.
package rtapi

import "github.com/xplshn/softboundcets-go/pkg/ir"

// The symbolic names of the runtime entry points, per spec.md §6.
const (
	GetGlobalLock = "__softboundcets_get_global_lock"

	MetadataLoad  = "__softboundcets_metadata_load"
	MetadataStore = "__softboundcets_metadata_store"
	MetadataCheck = "__softboundcets_metadata_check"

	LoadBaseShadowStack  = "__softboundcets_load_base_shadow_stack"
	LoadBoundShadowStack = "__softboundcets_load_bound_shadow_stack"
	LoadKeyShadowStack   = "__softboundcets_load_key_shadow_stack"
	LoadLockShadowStack  = "__softboundcets_load_lock_shadow_stack"

	StoreBaseShadowStack  = "__softboundcets_store_base_shadow_stack"
	StoreBoundShadowStack = "__softboundcets_store_bound_shadow_stack"
	StoreKeyShadowStack   = "__softboundcets_store_key_shadow_stack"
	StoreLockShadowStack  = "__softboundcets_store_lock_shadow_stack"

	AllocateShadowStackSpace   = "__softboundcets_allocate_shadow_stack_space"
	DeallocateShadowStackSpace = "__softboundcets_deallocate_shadow_stack_space"

	SpatialLoadCheck  = "__softboundcets_spatial_load_dereference_check"
	SpatialStoreCheck = "__softboundcets_spatial_store_dereference_check"

	TemporalLoadCheck  = "__softboundcets_temporal_load_dereference_check"
	TemporalStoreCheck = "__softboundcets_temporal_store_dereference_check"

	CreateStackKey  = "__softboundcets_create_stack_key"
	DestroyStackKey = "__softboundcets_destroy_stack_key"
)

// Prototype describes one runtime function's signature, used to emit its
// external declaration and to typecheck call sites built by this pass.
type Prototype struct {
	Name       string
	ParamTypes []*ir.Type
	ReturnType *ir.Type
}

// Table is the fixed set of runtime prototypes declared by this pass,
// indexed by symbolic name. Building it as a table, rather than as ad hoc
// calls scattered through the rewriter, mirrors the teacher's
// config.Config.Features map-of-Info style and gives a single place to
// audit every runtime entry point spec.md §6 enumerates.
func Table(wordSize int) map[string]Prototype {
	word := wordType(wordSize)
	return map[string]Prototype{
		GetGlobalLock: {GetGlobalLock, nil, ir.VoidPtr},

		MetadataLoad: {MetadataLoad, []*ir.Type{ir.VoidPtr,
			ir.PointerTo(ir.VoidPtr), ir.PointerTo(ir.VoidPtr), ir.PointerTo(word), ir.PointerTo(ir.VoidPtr)}, ir.VoidType},
		MetadataStore: {MetadataStore, []*ir.Type{ir.VoidPtr, ir.VoidPtr, ir.VoidPtr, word, ir.VoidPtr}, ir.VoidType},
		MetadataCheck: {MetadataCheck, []*ir.Type{ir.VoidPtr, ir.VoidPtr, word, ir.VoidPtr}, ir.VoidType},

		LoadBaseShadowStack:  {LoadBaseShadowStack, []*ir.Type{word}, ir.VoidPtr},
		LoadBoundShadowStack: {LoadBoundShadowStack, []*ir.Type{word}, ir.VoidPtr},
		LoadKeyShadowStack:   {LoadKeyShadowStack, []*ir.Type{word}, word},
		LoadLockShadowStack:  {LoadLockShadowStack, []*ir.Type{word}, ir.VoidPtr},

		StoreBaseShadowStack:  {StoreBaseShadowStack, []*ir.Type{ir.VoidPtr, word}, ir.VoidType},
		StoreBoundShadowStack: {StoreBoundShadowStack, []*ir.Type{ir.VoidPtr, word}, ir.VoidType},
		StoreKeyShadowStack:   {StoreKeyShadowStack, []*ir.Type{word, word}, ir.VoidType},
		StoreLockShadowStack:  {StoreLockShadowStack, []*ir.Type{ir.VoidPtr, word}, ir.VoidType},

		AllocateShadowStackSpace:   {AllocateShadowStackSpace, []*ir.Type{word}, ir.VoidType},
		DeallocateShadowStackSpace: {DeallocateShadowStackSpace, nil, ir.VoidType},

		SpatialLoadCheck:  {SpatialLoadCheck, []*ir.Type{ir.VoidPtr, ir.VoidPtr, ir.VoidPtr, word}, ir.VoidType},
		SpatialStoreCheck: {SpatialStoreCheck, []*ir.Type{ir.VoidPtr, ir.VoidPtr, ir.VoidPtr, word}, ir.VoidType},

		TemporalLoadCheck:  {TemporalLoadCheck, []*ir.Type{ir.VoidPtr, word}, ir.VoidType},
		TemporalStoreCheck: {TemporalStoreCheck, []*ir.Type{ir.VoidPtr, word}, ir.VoidType},

		CreateStackKey:  {CreateStackKey, []*ir.Type{ir.PointerTo(ir.VoidPtr), ir.PointerTo(word)}, ir.VoidType},
		DestroyStackKey: {DestroyStackKey, []*ir.Type{word}, ir.VoidType},

		// Standard-library wrappers, declared alongside the runtime.
		"softboundcets_malloc":  {"softboundcets_malloc", []*ir.Type{word}, ir.VoidPtr},
		"softboundcets_calloc":  {"softboundcets_calloc", []*ir.Type{word, word}, ir.VoidPtr},
		"softboundcets_realloc": {"softboundcets_realloc", []*ir.Type{ir.VoidPtr, word}, ir.VoidPtr},
		"softboundcets_free":    {"softboundcets_free", []*ir.Type{ir.VoidPtr}, ir.VoidType},
	}
}

func wordType(wordSize int) *ir.Type {
	if wordSize == 4 {
		return ir.U32Type
	}
	return ir.U64Type
}

// wrappers is the fixed standard-library wrapper set of spec.md §6: the
// only four symbols ever redirected at call sites.
var wrappers = map[string]string{
	"malloc":  "softboundcets_malloc",
	"calloc":  "softboundcets_calloc",
	"realloc": "softboundcets_realloc",
	"free":    "softboundcets_free",
}

// WrapperFor returns the runtime wrapper name for a standard-library
// allocation function, and whether one exists.
func WrapperFor(name string) (string, bool) {
	w, ok := wrappers[name]
	return w, ok
}

// Declare ensures prog's declaration list contains every runtime
// prototype and wrapper function referenced at least once, emitting each
// as an ir.Func with no body (an external declaration) exactly
// once. Declared is the set of already-declared names, threaded in so
// repeated calls across functions do not duplicate declarations.
func Declare(prog *ir.Program, declared map[string]bool, names ...string) {
	protos := Table(prog.WordSize)
	for _, name := range names {
		if declared[name] {
			continue
		}
		declared[name] = true
		proto, ok := protos[name]
		if !ok {
			continue
		}
		fn := &ir.Func{
			Name:       proto.Name,
			ReturnType: proto.ReturnType,
		}
		for i, pt := range proto.ParamTypes {
			fn.Params = append(fn.Params, &ir.Param{Name: paramName(i), Typ: pt})
		}
		prog.Funcs = append(prog.Funcs, fn)
	}
}

func paramName(i int) string {
	const letters = "abcdefghijklmnop"
	if i < len(letters) {
		return string(letters[i])
	}
	return "p"
}

// CallSite builds a Call instruction to the named runtime function with
// the given arguments, typed from the Table. It does not insert the
// instruction; callers append it to the block they are building.
func CallSite(prog *ir.Program, name string, args ...ir.Value) *ir.Instruction {
	proto := Table(prog.WordSize)[name]
	instr := &ir.Instruction{
		Op:     ir.OpCall,
		Callee: &ir.Global{Name: name, Typ: ir.PointerTo(&ir.Type{Kind: ir.KindFunc, Ret: proto.ReturnType, Params: proto.ParamTypes})},
		Args:   args,
	}
	if proto.ReturnType != nil && proto.ReturnType.Kind != ir.KindVoid {
		instr.Result = prog.NewTemp(proto.ReturnType)
	}
	return instr
}
