// Package emit implements a textual dump of an instrumented IR module,
// used by cmd/softboundcets's -d flag and the golden-file test harness.
//
// Grounded on pkg/codegen/qbe_backend.go's Generate/gen walk (globals,
// then funcs, then blocks and instructions, built into a
// strings.Builder) — this pass has no backend code generator of its
// own, so the walk is repurposed as a plain printer rather than a QBE
// lowering.
package emit

import (
	"fmt"
	"strings"

	"github.com/xplshn/softboundcets-go/pkg/ir"
)

type dumper struct {
	out  *strings.Builder
	prog *ir.Program
}

// Dump renders prog as readable text: one line per global declaration,
// then one function block per definition with labeled basic blocks and
// one instruction per line.
func Dump(prog *ir.Program) string {
	d := &dumper{out: &strings.Builder{}, prog: prog}
	d.gen()
	return d.out.String()
}

func (d *dumper) gen() {
	for _, g := range d.prog.Globals {
		d.genGlobal(g)
	}
	for _, fn := range d.prog.Funcs {
		d.genFunc(fn)
	}
}

func (d *dumper) genGlobal(g *ir.GlobalVar) {
	kind := "declared"
	if g.Initialized {
		kind = "initialized"
	}
	section := ""
	if g.Section != "" {
		section = fmt.Sprintf(" section=%q", g.Section)
	}
	fmt.Fprintf(d.out, "global %s %s %s%s\n", g.Typ, g.Name, kind, section)
}

func (d *dumper) genFunc(fn *ir.Func) {
	params := paramList(fn)
	if fn.IsEmpty() {
		fmt.Fprintf(d.out, "declare %s %s(%s)\n", fn.ReturnType, fn.Name, params)
		return
	}
	variadic := ""
	if fn.HasVarargs {
		variadic = ", ..."
	}
	fmt.Fprintf(d.out, "\nfunc %s %s(%s%s) {\n", fn.ReturnType, fn.Name, params, variadic)
	for _, b := range fn.Blocks {
		d.genBlock(b)
	}
	d.out.WriteString("}\n")
}

func paramList(fn *ir.Func) string {
	parts := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		parts[i] = fmt.Sprintf("%s %s", p.Typ, p.Name)
	}
	return strings.Join(parts, ", ")
}

func (d *dumper) genBlock(b *ir.BasicBlock) {
	fmt.Fprintf(d.out, "%s:\n", b.Name)
	for _, instr := range b.Instructions {
		d.genInstr(instr)
	}
}

func (d *dumper) genInstr(instr *ir.Instruction) {
	d.out.WriteString("\t")
	if instr.Result != nil {
		fmt.Fprintf(d.out, "%s = ", instr.Result)
	}
	switch instr.Op {
	case ir.OpCall:
		fmt.Fprintf(d.out, "call %s(%s)\n", instr.Callee, argList(instr.Args))
	case ir.OpBr:
		fmt.Fprintf(d.out, "br %s\n", instr.Targets[0].Name)
	case ir.OpCondBr:
		fmt.Fprintf(d.out, "condbr %s, %s, %s\n", instr.Args[0], instr.Targets[0].Name, instr.Targets[1].Name)
	case ir.OpRet:
		if len(instr.Args) == 1 {
			fmt.Fprintf(d.out, "ret %s\n", instr.Args[0])
		} else {
			d.out.WriteString("ret\n")
		}
	case ir.OpPhi:
		fmt.Fprintf(d.out, "phi %s\n", phiList(instr.Incoming))
	case ir.OpGetElementPtr:
		fmt.Fprintf(d.out, "getelementptr %s, %s\n", instr.Args[0], argList(instr.Indices))
	case ir.OpAlloca:
		if len(instr.Args) == 1 {
			fmt.Fprintf(d.out, "alloca %s, %s\n", elemTypeOf(instr.Result), instr.Args[0])
		} else {
			fmt.Fprintf(d.out, "alloca %s\n", elemTypeOf(instr.Result))
		}
	default:
		fmt.Fprintf(d.out, "%s %s\n", instr.Op, argList(instr.Args))
	}
}

func elemTypeOf(l *ir.Local) *ir.Type {
	if l == nil || l.Typ == nil {
		return ir.VoidType
	}
	return l.Typ.Elem
}

func argList(args []ir.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

func phiList(edges []ir.PhiEdge) string {
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = fmt.Sprintf("[%s, %%%s]", e.Value, e.Block.Name)
	}
	return strings.Join(parts, ", ")
}
