// Package inspector implements the Pointer Inspector (spec.md §4.1):
// given a pointer-valued IR operand, classify it and return its metadata
// four-tuple, or report that no instrumentation is needed.
package inspector

import (
	"github.com/xplshn/softboundcets-go/pkg/diag"
	"github.com/xplshn/softboundcets-go/pkg/ir"
	"github.com/xplshn/softboundcets-go/pkg/symtab"
)

// Result is the outcome of inspecting one operand.
type Result struct {
	// None is true when no instrumentation is needed (rule 1, 2 or 5 of
	// spec.md §4.1): the pointer is to a function type, or is a local or
	// global name in the safe-pointer set.
	None bool
	// Metadata is valid whenever None is false.
	Metadata symtab.Metadata
	// DontCare is true when Metadata is the function's don't-care
	// placeholder rather than real tracked metadata (rule 6).
	DontCare bool
}

// Inspect classifies operand per spec.md §4.1's rule order. funcName
// names the enclosing function, for diagnostics. dontCare is the
// function's don't-care metadata, installed by the planner.
//
// Inspect panics via diag.Fatalf (kind KindNonPointerOperand) if operand
// is not a pointer-typed value, per rule 7.
func Inspect(log *diag.Log, tables *symtab.Tables, funcName string, operand ir.Value, dontCare symtab.Metadata) Result {
	t := operand.Type()
	if !ir.IsPointerType(t) {
		diag.Fatalf(diag.KindNonPointerOperand, funcName, operand, "Inspect called on non-pointer operand of type %s", t)
	}

	// Rule 1: pointer to function type.
	if ir.IsFunctionPointerType(t) {
		return Result{None: true}
	}

	switch v := operand.(type) {
	case *ir.Local:
		// Rule 2: local SSA pointer whose name is in safe pointers.
		if tables.IsSafe(v.Name) {
			return Result{None: true}
		}
		// Rule 3 and 4: function-scoped, else block-scoped. Tables.Lookup
		// itself enforces mutual exclusivity (spec.md §3 invariant 2).
		if md, _, ok := tables.Lookup(v.Name); ok {
			return Result{Metadata: md}
		}
		// Unrecognized local pointer form (e.g. a value the planner never
		// scanned): rule 6.
		log.Report(diag.KindUnsupportedConstruct, funcName, "local pointer has no tracked metadata; using don't-care", v)
		return Result{Metadata: dontCare, DontCare: true}

	case *ir.Global:
		// Rule 5: constant global reference to a name in safe pointers.
		if tables.IsSafe(v.Name) {
			return Result{None: true}
		}
		if md, ok := tables.LookupModule(v.Name); ok {
			return Result{Metadata: md}
		}
		log.Report(diag.KindUnsupportedConstruct, funcName, "global pointer has no module-scoped metadata; using don't-care", v)
		return Result{Metadata: dontCare, DontCare: true}

	default:
		// Rule 6: any other constant-pointer expression (Const as a
		// pointer-typed integer, Null, FloatConst never reaches here since
		// it is never pointer-typed) or unrecognized form.
		log.Report(diag.KindUnsupportedConstruct, funcName, "unrecognized constant pointer expression; using don't-care", operand)
		return Result{Metadata: dontCare, DontCare: true}
	}
}
