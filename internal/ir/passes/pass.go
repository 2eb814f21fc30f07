// Package passes holds the IR pass pipeline.
package passes

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/bolide-lang/bolide/internal/ir"
	"github.com/bolide-lang/bolide/internal/logger"
)

// Pass describes a single IR pass. Fn returns the number of changes made.
type Pass struct {
	Name string
	Fn   func(f *ir.Func) int
}

// Config controls pass execution behavior.
type Config struct {
	DumpBefore string    // dump IR before this pass ("*" for all)
	DumpAfter  string    // dump IR after this pass ("*" for all)
	Verify     bool      // verify IR before/after each pass
	DumpFunc   string    // restrict dumps to this function name
	Out        io.Writer // dump destination; stderr when nil
}

// Default returns the standard pipeline.
func Default() []Pass {
	return []Pass{
		{Name: "deadblocks", Fn: DeadBlocks},
		{Name: "deadvalues", Fn: DeadValues},
	}
}

// Run executes the given passes on f in order.
func Run(f *ir.Func, passes []Pass, cfg Config) error {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	for _, p := range passes {
		if shouldDump(cfg.DumpBefore, p.Name) && matchFunc(cfg.DumpFunc, f.Name) {
			fmt.Fprintf(out, "--- before %s (%s) ---\n", p.Name, f.Name)
			ir.Fprint(out, f)
			fmt.Fprintln(out)
		}

		if cfg.Verify {
			if err := ir.Verify(f); err != nil {
				return errors.Wrapf(err, "verify before %s", p.Name)
			}
		}

		changes := p.Fn(f)
		logger.LogPass(p.Name, f.Name, changes)

		if cfg.Verify {
			if err := ir.Verify(f); err != nil {
				return errors.Wrapf(err, "verify after %s", p.Name)
			}
		}

		if shouldDump(cfg.DumpAfter, p.Name) && matchFunc(cfg.DumpFunc, f.Name) {
			fmt.Fprintf(out, "--- after %s (%s) ---\n", p.Name, f.Name)
			ir.Fprint(out, f)
			fmt.Fprintln(out)
		}
	}
	return nil
}

// RunModule runs the passes over every function of m, then verifies the
// whole module when cfg.Verify is set.
func RunModule(m *ir.Module, passes []Pass, cfg Config) error {
	for _, f := range m.Funcs {
		if err := Run(f, passes, cfg); err != nil {
			return err
		}
	}
	if cfg.Verify {
		return errors.Wrap(ir.VerifyModule(m), "verify module")
	}
	return nil
}

func shouldDump(pattern, name string) bool {
	return pattern == "*" || pattern == name
}

func matchFunc(filter, name string) bool {
	return filter == "" || filter == name
}
