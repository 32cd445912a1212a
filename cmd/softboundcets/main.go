// Command softboundcets reads a typed SSA IR module, instruments it for
// SoftBound+CETS spatial and temporal memory safety, and writes the
// instrumented module back out.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/xplshn/softboundcets-go/pkg/config"
	"github.com/xplshn/softboundcets-go/pkg/driver"
	"github.com/xplshn/softboundcets-go/pkg/emit"
	"github.com/xplshn/softboundcets-go/pkg/ir"
)

// skipList collects repeated -skip flags into a []string, the flag
// package's usual pattern for a multi-valued option (flag.Value on a
// named slice type).
type skipList []string

func (s *skipList) String() string     { return strings.Join(*s, ",") }
func (s *skipList) Set(v string) error { *s = append(*s, v); return nil }

var (
	outFile = flag.String("o", "", "write the instrumented module to this file instead of stdout")
	dumpIR  = flag.Bool("d", false, "print the instrumented module as readable text instead of JSON")
	skip    skipList
)

func main() {
	flag.Var(&skip, "skip", "never instrument a function with this exact name (repeatable)")

	opts := config.NewDefaultOptions()
	toggles := opts.RegisterFlags(flag.CommandLine)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <input.ir.json>\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Instruments a typed SSA IR module with SoftBound+CETS spatial and temporal pointer checks.")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "softboundcets: expected exactly one input file, got %d\n", flag.NArg())
		flag.Usage()
		os.Exit(1)
	}

	opts.ApplyFlags(toggles)
	opts.AddBlacklist(skip...)

	if err := run(flag.Arg(0), opts); err != nil {
		fmt.Fprintln(os.Stderr, "softboundcets:", err)
		os.Exit(1)
	}
}

func run(inputFile string, opts *config.Options) error {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("could not read %q: %w", inputFile, err)
	}
	prog, err := ir.DecodeProgram(data)
	if err != nil {
		return fmt.Errorf("could not decode %q: %w", inputFile, err)
	}

	if err := driver.Run(prog, opts); err != nil {
		return fmt.Errorf("instrumentation failed: %w", err)
	}

	out := os.Stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			return fmt.Errorf("could not create %q: %w", *outFile, err)
		}
		defer f.Close()
		out = f
	}

	if *dumpIR {
		fmt.Fprint(out, emit.Dump(prog))
		return nil
	}

	encoded, err := ir.EncodeProgram(prog)
	if err != nil {
		return fmt.Errorf("could not encode instrumented module: %w", err)
	}
	fmt.Fprintln(out, string(encoded))
	return nil
}
