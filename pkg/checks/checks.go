// Package checks implements the Check Emitter (spec.md §4.4): builders
// for the spatial/temporal dereference checks the Instruction Rewriter
// inserts around loads and stores, plus the element-byte-size query that
// sizes them.
//
// Grounded on pkg/ir's SizeOf helper for the size query, and pkg/rtapi's
// call-site builder for every emitted runtime call — this package adds
// no new calling convention of its own, it only picks the right runtime
// entry point and argument order for each check kind.
package checks

import (
	"github.com/xplshn/softboundcets-go/pkg/config"
	"github.com/xplshn/softboundcets-go/pkg/ir"
	"github.com/xplshn/softboundcets-go/pkg/rtapi"
)

// ElementSize returns a 64-bit constant holding the byte size of
// pointee, per spec.md §4.4: "Element byte size is computed from the
// pointee type of the dereferenced address using a 64-bit size query."
func ElementSize(prog *ir.Program, pointee *ir.Type) *ir.Const {
	return &ir.Const{Value: ir.SizeOf(pointee, prog.WordSize), Typ: ir.I64Type}
}

// SpatialLoad builds the spatial-load check: base, bound, the address
// about to be dereferenced, and its element size.
func SpatialLoad(prog *ir.Program, base, bound, addr, size ir.Value) *ir.Instruction {
	return rtapi.CallSite(prog, rtapi.SpatialLoadCheck, base, bound, addr, size)
}

// TemporalLoad builds the temporal-load check: lock and key, emitted
// immediately after the spatial-load check per spec.md §4.4.
func TemporalLoad(prog *ir.Program, lock, key ir.Value) *ir.Instruction {
	return rtapi.CallSite(prog, rtapi.TemporalLoadCheck, lock, key)
}

// SpatialStore builds the spatial-store check, symmetric to SpatialLoad.
func SpatialStore(prog *ir.Program, base, bound, addr, size ir.Value) *ir.Instruction {
	return rtapi.CallSite(prog, rtapi.SpatialStoreCheck, base, bound, addr, size)
}

// TemporalStore builds the temporal-store check, symmetric to
// TemporalLoad.
func TemporalStore(prog *ir.Program, lock, key ir.Value) *ir.Instruction {
	return rtapi.CallSite(prog, rtapi.TemporalStoreCheck, lock, key)
}

// LoadChecks returns, in emission order, the spatial-load check followed
// by the temporal-load check — spec.md §4.4 requires this exact order
// ("Temporal load check immediately after").
func LoadChecks(prog *ir.Program, base, bound, lock, key, addr, size ir.Value) []*ir.Instruction {
	return []*ir.Instruction{
		SpatialLoad(prog, base, bound, addr, size),
		TemporalLoad(prog, lock, key),
	}
}

// StoreChecks returns, in emission order, the spatial-store check
// followed by the temporal-store check.
func StoreChecks(prog *ir.Program, base, bound, lock, key, addr, size ir.Value) []*ir.Instruction {
	return []*ir.Instruction{
		SpatialStore(prog, base, bound, addr, size),
		TemporalStore(prog, lock, key),
	}
}

// EmitConsistencyCheck builds the optional metadata-self-consistency
// check of spec.md §4.4, gated by config.OptEmitChecks. It returns nil
// when the option is off, so callers can append its result unconditionally
// without a separate branch.
func EmitConsistencyCheck(prog *ir.Program, opts *config.Options, base, bound, key, lock ir.Value) *ir.Instruction {
	if !opts.IsEnabled(config.OptEmitChecks) {
		return nil
	}
	return rtapi.CallSite(prog, rtapi.MetadataCheck, base, bound, key, lock)
}
