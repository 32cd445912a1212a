// Package config holds the recognized options for the instrumentation
// pass, modeled on the teacher's Feature/Warning map-of-Info pattern.
package config

import (
	"flag"
	"strings"
)

// Option identifies one recognized instrumentation category, per
// spec.md §6.
type Option int

const (
	OptInstrumentLoad Option = iota
	OptInstrumentStore
	OptInstrumentCall
	OptInstrumentStack
	OptInstrumentBitcast
	OptEmitChecks
	optCount
)

// Info mirrors the teacher's config.Info: a flag's CLI name, default
// state, and one-line description.
type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// Options is the full configuration surface of the pass: which
// instrumentation categories are active, and which function symbols are
// exempted regardless of category.
type Options struct {
	flags      map[Option]Info
	flagMap    map[string]Option
	Blacklist  map[string]bool
}

// NewDefaultOptions returns an Options with every instrumentation
// category enabled, emit-checks (the optional metadata-consistency
// check) disabled, and an empty blacklist, matching the teacher's
// NewConfig default of enabling every feature unless a standard
// explicitly disables it.
func NewDefaultOptions() *Options {
	o := &Options{
		flags:     make(map[Option]Info),
		flagMap:   make(map[string]Option),
		Blacklist: make(map[string]bool),
	}
	defaults := map[Option]Info{
		OptInstrumentLoad:    {"instrument-load", true, "Emit checks and metadata loads at loads."},
		OptInstrumentStore:   {"instrument-store", true, "Emit checks and metadata stores at stores."},
		OptInstrumentCall:    {"instrument-call", true, "Apply shadow-stack protocol at call sites."},
		OptInstrumentStack:   {"instrument-stack", true, "Track metadata for allocas."},
		OptInstrumentBitcast: {"instrument-bitcast", true, "Propagate metadata through bitcasts."},
		OptEmitChecks:        {"emit-checks", false, "Emit optional metadata-self-consistency checks."},
	}
	o.flags = defaults
	for opt, info := range defaults {
		o.flagMap[info.Name] = opt
	}
	return o
}

// IsEnabled reports whether the given instrumentation category is active.
func (o *Options) IsEnabled(opt Option) bool { return o.flags[opt].Enabled }

// SetEnabled enables or disables an instrumentation category.
func (o *Options) SetEnabled(opt Option, enabled bool) {
	if info, ok := o.flags[opt]; ok {
		info.Enabled = enabled
		o.flags[opt] = info
	}
}

// SetByName enables or disables the named instrumentation category,
// returning false if the name is not recognized.
func (o *Options) SetByName(name string, enabled bool) bool {
	opt, ok := o.flagMap[name]
	if !ok {
		return false
	}
	o.SetEnabled(opt, enabled)
	return true
}

// AddBlacklist marks names as exempt from instrumentation regardless of
// what category flags are set.
func (o *Options) AddBlacklist(names ...string) {
	for _, n := range names {
		o.Blacklist[n] = true
	}
}

// IsBlacklisted reports whether name was added via AddBlacklist.
func (o *Options) IsBlacklisted(name string) bool { return o.Blacklist[name] }

// ignoredSubstrings is the fixed, unconditional ignored-name filter of
// spec.md §4.6: any symbol containing one of these is passed through
// untouched regardless of the blacklist.
var ignoredSubstrings = []string{"__softboundcets", "isoc99", "llvm."}

// IsIgnoredName reports whether name matches the unconditional
// ignored-symbol filter. It does not consult a per-run blacklist — use
// Options.IsBlacklisted for that — since the filter applies the same way
// to every module regardless of configuration.
func IsIgnoredName(name string) bool {
	for _, s := range ignoredSubstrings {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// toggle pairs one instrumentation category's Enable/Disable flags with
// the Option they govern, so ApplyFlags can fold them back in
// regardless of what order RegisterFlags built them in.
type toggle struct {
	opt               Option
	enabled, disabled *bool
}

// RegisterFlags registers a -<name>/-no-<name> pair per recognized
// instrumentation category on fs. The returned toggles must be passed
// to ApplyFlags after fs.Parse: an enabled flag that was passed turns
// the category on, a disabled flag turns it off, and disabled wins if
// both were somehow passed (last-one-wins would require tracking
// argument order flag.FlagSet does not expose).
func (o *Options) RegisterFlags(fs *flag.FlagSet) []toggle {
	toggles := make([]toggle, 0, optCount)
	for opt := Option(0); opt < optCount; opt++ {
		info := o.flags[opt]
		enabled := new(bool)
		disabled := new(bool)
		fs.BoolVar(enabled, info.Name, false, info.Description)
		fs.BoolVar(disabled, "no-"+info.Name, false, "Disable "+info.Name+" ("+info.Description+")")
		toggles = append(toggles, toggle{opt: opt, enabled: enabled, disabled: disabled})
	}
	return toggles
}

// ApplyFlags folds the enabled/disabled pairs RegisterFlags registered
// back into o.
func (o *Options) ApplyFlags(toggles []toggle) {
	for _, t := range toggles {
		if *t.disabled {
			o.SetEnabled(t.opt, false)
		} else if *t.enabled {
			o.SetEnabled(t.opt, true)
		}
	}
}

// All returns every recognized Option with its current Info, in a stable
// order, for help text and introspection.
func (o *Options) All() []struct {
	Opt  Option
	Info Info
} {
	out := make([]struct {
		Opt  Option
		Info Info
	}, 0, optCount)
	for opt := Option(0); opt < optCount; opt++ {
		out = append(out, struct {
			Opt  Option
			Info Info
		}{opt, o.flags[opt]})
	}
	return out
}
