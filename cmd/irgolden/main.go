// Command irgolden runs every fixture in pkg/irtest through the
// instrumentation pass and compares the result against a saved golden
// text dump, the way cmd/gtest compared a target compiler's runtime
// output against a reference. There is no reference implementation to
// run here, so the golden files are curated by hand with
// -generate-golden once a fixture's output has been reviewed.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/softboundcets-go/pkg/driver"
	"github.com/xplshn/softboundcets-go/pkg/emit"
	"github.com/xplshn/softboundcets-go/pkg/irtest"
)

var (
	dir            = flag.String("dir", "testdata/golden", "directory holding golden dump files")
	generateGolden = flag.Bool("generate-golden", false, "write the current dump of every fixture as its golden file instead of comparing")
	verbose        = flag.Bool("v", false, "print every fixture's name as it runs")
)

// goldenPath derives a golden file's name from the fixture's own Name
// rather than a content hash of a source file — fixtures are Go
// functions, not files on disk, so there is nothing to hash until
// after the fixture has already been built and run. The xxhash of the
// fixture name itself still gives a short, stable, collision-resistant
// suffix in the spirit of cmd/gtest's hashFile, without needing source
// bytes to hash.
func goldenPath(name string) string {
	sum := xxhash.Sum64String(name)
	return filepath.Join(*dir, fmt.Sprintf("%s.%016x.golden", name, sum))
}

func main() {
	flag.Parse()

	if *generateGolden {
		if err := os.MkdirAll(*dir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "irgolden:", err)
			os.Exit(1)
		}
		for _, f := range irtest.Fixtures {
			if err := generateOne(f); err != nil {
				fmt.Fprintln(os.Stderr, "irgolden:", err)
				os.Exit(1)
			}
		}
		return
	}

	failed := false
	for _, f := range irtest.Fixtures {
		if *verbose {
			fmt.Println("running", f.Name)
		}
		diff, err := compareOne(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", f.Name, err)
			failed = true
			continue
		}
		if diff != "" {
			fmt.Printf("%s: golden mismatch:\n%s\n", f.Name, diff)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func generateOne(f irtest.Fixture) error {
	prog, opts := f.Build()
	if err := driver.Run(prog, opts); err != nil {
		return fmt.Errorf("%s: instrumentation failed: %w", f.Name, err)
	}
	return os.WriteFile(goldenPath(f.Name), []byte(emit.Dump(prog)), 0o644)
}

func compareOne(f irtest.Fixture) (string, error) {
	prog, opts := f.Build()
	if err := driver.Run(prog, opts); err != nil {
		return "", fmt.Errorf("instrumentation failed: %w", err)
	}
	got := emit.Dump(prog)

	want, err := os.ReadFile(goldenPath(f.Name))
	if err != nil {
		return "", fmt.Errorf("no golden file (run with -generate-golden first): %w", err)
	}

	return cmp.Diff(string(want), got), nil
}
