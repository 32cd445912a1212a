package inspector

import (
	"strings"
	"testing"

	"github.com/xplshn/softboundcets-go/pkg/diag"
	"github.com/xplshn/softboundcets-go/pkg/ir"
	"github.com/xplshn/softboundcets-go/pkg/symtab"
)

func TestInspectFunctionPointerIsNone(t *testing.T) {
	log := diag.NewLog()
	tables := symtab.New(nil)
	fnPtr := &ir.Local{Name: "f", Typ: ir.PointerTo(&ir.Type{Kind: ir.KindFunc, Ret: ir.VoidType})}
	res := Inspect(log, tables, "caller", fnPtr, symtab.Metadata{})
	if !res.None {
		t.Error("expected function pointer to be None")
	}
}

func TestInspectSafeLocalIsNone(t *testing.T) {
	log := diag.NewLog()
	tables := symtab.New(nil)
	tables.MarkSafe("buf")
	p := &ir.Local{Name: "buf", Typ: ir.PointerTo(ir.I32Type)}
	res := Inspect(log, tables, "f", p, symtab.Metadata{})
	if !res.None {
		t.Error("expected safe local pointer to be None")
	}
}

func TestInspectFunctionScoped(t *testing.T) {
	log := diag.NewLog()
	tables := symtab.New(nil)
	want := symtab.Metadata{BaseCell: &ir.Local{Name: "base"}}
	tables.InsertFunction("p", want)
	p := &ir.Local{Name: "p", Typ: ir.PointerTo(ir.I32Type)}
	res := Inspect(log, tables, "f", p, symtab.Metadata{})
	if res.None || res.DontCare {
		t.Fatal("expected real function-scoped metadata")
	}
	if res.Metadata.BaseCell != want.BaseCell {
		t.Error("expected returned metadata to match inserted metadata")
	}
}

func TestInspectBlockScoped(t *testing.T) {
	log := diag.NewLog()
	tables := symtab.New(nil)
	want := symtab.Metadata{BaseCell: &ir.Local{Name: "base"}}
	tables.InsertBlock("p", want)
	p := &ir.Local{Name: "p", Typ: ir.PointerTo(ir.I32Type)}
	res := Inspect(log, tables, "f", p, symtab.Metadata{})
	if res.None || res.DontCare {
		t.Fatal("expected real block-scoped metadata")
	}
}

func TestInspectUnknownLocalGetsDontCareAndDiagnostic(t *testing.T) {
	log := diag.NewLog()
	tables := symtab.New(nil)
	p := &ir.Local{Name: "mystery", Typ: ir.PointerTo(ir.I32Type)}
	dc := symtab.Metadata{KeyCell: &ir.Local{Name: "dontcare.key"}}
	res := Inspect(log, tables, "f", p, dc)
	if !res.DontCare {
		t.Fatal("expected don't-care metadata for unknown local")
	}
	if res.Metadata.KeyCell != dc.KeyCell {
		t.Error("expected don't-care metadata to be returned verbatim")
	}
	if len(log.Entries()) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %d", len(log.Entries()))
	}
}

func TestInspectSafeGlobalIsNone(t *testing.T) {
	log := diag.NewLog()
	tables := symtab.New(nil)
	tables.MarkSafe("myGlobal")
	g := &ir.Global{Name: "myGlobal", Typ: ir.PointerTo(ir.I32Type)}
	res := Inspect(log, tables, "f", g, symtab.Metadata{})
	if !res.None {
		t.Error("expected safe global to be None")
	}
}

func TestInspectUnrecognizedConstantGetsDontCare(t *testing.T) {
	log := diag.NewLog()
	tables := symtab.New(nil)
	n := &ir.Null{Typ: ir.PointerTo(ir.I32Type)}
	dc := symtab.Metadata{}
	res := Inspect(log, tables, "f", n, dc)
	if !res.DontCare {
		t.Error("expected null constant to receive don't-care metadata")
	}
	if !strings.Contains(log.Entries()[0].String(), "unrecognized") {
		t.Errorf("expected diagnostic to mention unrecognized form, got %q", log.Entries()[0].String())
	}
}

func TestInspectNonPointerOperandFatals(t *testing.T) {
	log := diag.NewLog()
	tables := symtab.New(nil)
	var err error
	func() {
		defer diag.Recover(&err)
		Inspect(log, tables, "f", &ir.Const{Value: 1, Typ: ir.I32Type}, symtab.Metadata{})
	}()
	if err == nil {
		t.Fatal("expected Inspect to fatal on a non-pointer operand")
	}
}
