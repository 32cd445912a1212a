// Package shadowstack implements the Shadow-Stack Protocol (spec.md
// §4.3): the caller/callee ABI for passing pointer metadata alongside
// arguments and return values.
package shadowstack

import (
	"github.com/xplshn/softboundcets-go/pkg/ir"
	"github.com/xplshn/softboundcets-go/pkg/rtapi"
	"github.com/xplshn/softboundcets-go/pkg/symtab"
)

// Allocate builds the call that reserves n shadow-stack slots
// (spec.md §4.3 step 2). Slot 0 is always reserved for the return value,
// so callers pass n = 1 + number of pointer arguments.
func Allocate(prog *ir.Program, n int64) *ir.Instruction {
	return rtapi.CallSite(prog, rtapi.AllocateShadowStackSpace, &ir.Const{Value: n, Typ: ir.I32Type})
}

// Deallocate builds the call that releases the slots most recently
// allocated (spec.md §4.3 step 7).
func Deallocate(prog *ir.Program) *ir.Instruction {
	return rtapi.CallSite(prog, rtapi.DeallocateShadowStackSpace)
}

// MoveToShadowStack reads md's four shadow cells and stores their
// contents into shadow-stack slot index, in base/bound/key/lock order.
// It is used both for caller-side argument passing (spec.md §4.3 step 3)
// and for the Return instruction's slot-0 store (spec.md §4.5 Return),
// since both are "take a pointer's metadata and push it onto the shadow
// stack" — the only difference is which slot index is used.
func MoveToShadowStack(prog *ir.Program, index int64, md symtab.Metadata) []*ir.Instruction {
	idx := &ir.Const{Value: index, Typ: ir.I32Type}

	loadBase := LoadCell(prog, md.BaseCell)
	loadBound := LoadCell(prog, md.BoundCell)
	loadKey := LoadCell(prog, md.KeyCell)
	loadLock := LoadCell(prog, md.LockCell)

	storeBase := rtapi.CallSite(prog, rtapi.StoreBaseShadowStack, loadBase.Result, idx)
	storeBound := rtapi.CallSite(prog, rtapi.StoreBoundShadowStack, loadBound.Result, idx)
	storeKey := rtapi.CallSite(prog, rtapi.StoreKeyShadowStack, loadKey.Result, idx)
	storeLock := rtapi.CallSite(prog, rtapi.StoreLockShadowStack, loadLock.Result, idx)

	return []*ir.Instruction{loadBase, storeBase, loadBound, storeBound, loadKey, storeKey, loadLock, storeLock}
}

// MoveFromShadowStack reads shadow-stack slot index and writes
// base/bound/key/lock into md's four shadow cells. It is used both for
// callee-side parameter metadata (spec.md §4.3 "Callee side", mirroring
// the caller's store sequence) and for the caller reading back a
// pointer-valued return from slot 0 (spec.md §4.3 step 6).
func MoveFromShadowStack(prog *ir.Program, index int64, md symtab.Metadata) []*ir.Instruction {
	idx := &ir.Const{Value: index, Typ: ir.I32Type}

	loadBase := rtapi.CallSite(prog, rtapi.LoadBaseShadowStack, idx)
	loadBound := rtapi.CallSite(prog, rtapi.LoadBoundShadowStack, idx)
	loadKey := rtapi.CallSite(prog, rtapi.LoadKeyShadowStack, idx)
	loadLock := rtapi.CallSite(prog, rtapi.LoadLockShadowStack, idx)

	storeBase := StoreCell(prog, md.BaseCell, loadBase.Result)
	storeBound := StoreCell(prog, md.BoundCell, loadBound.Result)
	storeKey := StoreCell(prog, md.KeyCell, loadKey.Result)
	storeLock := StoreCell(prog, md.LockCell, loadLock.Result)

	return []*ir.Instruction{loadBase, storeBase, loadBound, storeBound, loadKey, storeKey, loadLock, storeLock}
}

// LoadCell builds a plain (uninstrumented — shadow cells are always
// safe, per spec.md §3 invariant 4) load of cell's current value.
// Exported so pkg/rewriter can read a shadow cell's
// current value without duplicating this shape.
func LoadCell(prog *ir.Program, cell *ir.Local) *ir.Instruction {
	elemType := cell.Typ.Elem
	result := prog.NewTemp(elemType)
	return &ir.Instruction{Op: ir.OpLoad, Result: result, Args: []ir.Value{cell}}
}

// StoreCell builds a plain store of value into cell.
func StoreCell(prog *ir.Program, cell *ir.Local, value ir.Value) *ir.Instruction {
	return &ir.Instruction{Op: ir.OpStore, Args: []ir.Value{cell, value}}
}
