// Package diag implements the pass's diagnostic model, per spec.md §7.
//
// Non-fatal diagnostics accumulate in a Log and are flushed once, after
// the module is produced. Fatal diagnostics abort the pass immediately;
// since this pass is a library (unlike the teacher's util.Error, which
// calls os.Exit directly), fatal diagnostics panic with a *FatalError
// that the module driver recovers at its boundary and returns as a
// normal Go error.
package diag

import (
	"fmt"
	"io"
)

// Kind identifies which of spec.md §7's five diagnostic kinds a
// Diagnostic or FatalError represents.
type Kind int

const (
	KindUnsupportedConstruct Kind = iota
	KindScopeConflict
	KindMissingShadowStorage
	KindNonPointerOperand
	KindKilledMetadataReload
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedConstruct:
		return "unsupported-ir-construct"
	case KindScopeConflict:
		return "metadata-scope-conflict"
	case KindMissingShadowStorage:
		return "missing-shadow-storage"
	case KindNonPointerOperand:
		return "non-pointer-operand"
	case KindKilledMetadataReload:
		return "killed-metadata-reload"
	default:
		return "unknown"
	}
}

// Fatal reports whether diagnostics of kind k are fatal (spec.md §7
// kinds 2-4) as opposed to non-fatal/continuable (kinds 1 and 5).
func (k Kind) Fatal() bool {
	switch k {
	case KindScopeConflict, KindMissingShadowStorage, KindNonPointerOperand:
		return true
	default:
		return false
	}
}

// Diagnostic is one non-fatal entry in the pass's log.
type Diagnostic struct {
	Kind     Kind
	Func     string
	Message  string
	Operand  string
}

func (d Diagnostic) String() string {
	if d.Operand != "" {
		return fmt.Sprintf("%s: in function %s: %s (operand: %s)", d.Kind, d.Func, d.Message, d.Operand)
	}
	return fmt.Sprintf("%s: in function %s: %s", d.Kind, d.Func, d.Message)
}

// FatalError is the payload of a panic raised by Fatalf. It names the
// offending function and prints the IR operand, per spec.md §7's
// requirement for fatal-error messages.
type FatalError struct {
	Kind    Kind
	Func    string
	Message string
	Operand string
}

func (e *FatalError) Error() string {
	if e.Operand != "" {
		return fmt.Sprintf("%s: in function %s: %s (operand: %s)", e.Kind, e.Func, e.Message, e.Operand)
	}
	return fmt.Sprintf("%s: in function %s: %s", e.Kind, e.Func, e.Message)
}

// Log accumulates non-fatal diagnostics across an entire module pass.
type Log struct {
	entries []Diagnostic
}

// NewLog returns an empty Log.
func NewLog() *Log { return &Log{} }

// Report records a non-fatal diagnostic. It panics if called with a Kind
// that is fatal — callers must use Fatalf for those.
func (l *Log) Report(kind Kind, funcName, message string, operand fmt.Stringer) {
	if kind.Fatal() {
		panic(fmt.Sprintf("diag: Report called with fatal kind %s; use Fatalf", kind))
	}
	op := ""
	if operand != nil {
		op = operand.String()
	}
	l.entries = append(l.entries, Diagnostic{Kind: kind, Func: funcName, Message: message, Operand: op})
}

// Entries returns every diagnostic recorded so far.
func (l *Log) Entries() []Diagnostic { return l.entries }

// Flush writes every accumulated diagnostic to w, one per line, and
// clears the log.
func (l *Log) Flush(w io.Writer) {
	for _, d := range l.entries {
		fmt.Fprintln(w, d.String())
	}
	l.entries = nil
}

// Fatalf raises a fatal diagnostic of the given kind by panicking with a
// *FatalError. It must only be called with a Kind whose Fatal() is true.
func Fatalf(kind Kind, funcName string, operand fmt.Stringer, format string, args ...any) {
	if !kind.Fatal() {
		panic(fmt.Sprintf("diag: Fatalf called with non-fatal kind %s; use Report", kind))
	}
	op := ""
	if operand != nil {
		op = operand.String()
	}
	panic(&FatalError{Kind: kind, Func: funcName, Message: fmt.Sprintf(format, args...), Operand: op})
}

// Recover turns a panic carrying a *FatalError into a returned error via
// *errOut. It is a no-op (re-panics) for any other panic value, so that
// genuine programmer bugs in this codebase are not silently swallowed.
func Recover(errOut *error) {
	if r := recover(); r != nil {
		if fe, ok := r.(*FatalError); ok {
			*errOut = fe
			return
		}
		panic(r)
	}
}
