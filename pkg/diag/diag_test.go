package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogReportAndFlush(t *testing.T) {
	l := NewLog()
	l.Report(KindUnsupportedConstruct, "f", "unsupported pointer form", nil)
	if len(l.Entries()) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(l.Entries()))
	}
	var buf bytes.Buffer
	l.Flush(&buf)
	if !strings.Contains(buf.String(), "unsupported-ir-construct") {
		t.Errorf("flushed output missing kind: %s", buf.String())
	}
	if len(l.Entries()) != 0 {
		t.Error("expected Flush to clear the log")
	}
}

func TestReportPanicsOnFatalKind(t *testing.T) {
	l := NewLog()
	defer func() {
		if recover() == nil {
			t.Fatal("expected Report to panic when given a fatal kind")
		}
	}()
	l.Report(KindScopeConflict, "f", "bad", nil)
}

func TestFatalfAndRecover(t *testing.T) {
	var err error
	func() {
		defer Recover(&err)
		Fatalf(KindMissingShadowStorage, "myFunc", nil, "no shadow cell for %%v")
	}()
	if err == nil {
		t.Fatal("expected Recover to populate err")
	}
	if !strings.Contains(err.Error(), "myFunc") {
		t.Errorf("expected error to name the function, got: %s", err.Error())
	}
}

func TestRecoverRepanicsOnOtherPanics(t *testing.T) {
	var err error
	defer func() {
		if recover() == nil {
			t.Fatal("expected non-FatalError panic to propagate")
		}
	}()
	func() {
		defer Recover(&err)
		panic("some other bug")
	}()
}
