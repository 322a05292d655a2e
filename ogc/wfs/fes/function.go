package fes

import (
	"fmt"

	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// FunctionDef registers one FES function's signature. Functions are
// evaluated by the datastore (compiled to a native SQL expression); this
// registry only validates arity at compile time, per spec §4.4. Argument
// types are not checked.
type FunctionDef struct {
	Name       string
	MinArgs    int
	MaxArgs    int // -1 means unbounded
	ReturnType xsd.AtomicType
	// SQLTemplate renders the function to the target dialect, with a single
	// %s placeholder receiving the already-rendered arguments in order
	// (joined with " || " for Concatenate, ", " otherwise).
	SQLTemplate string
}

// FunctionRegistry is a process-wide, read-only (after bootstrap) set of FES
// functions, per spec §9's "Global registries". It is pre-populated with a
// modest built-in set commonly implemented by WFS 2.0 servers.
type FunctionRegistry struct {
	byName map[string]FunctionDef
}

func NewFunctionRegistry() *FunctionRegistry {
	r := &FunctionRegistry{byName: make(map[string]FunctionDef)}
	for _, def := range builtinFunctions {
		r.Register(def)
	}
	return r
}

func (r *FunctionRegistry) Register(def FunctionDef) {
	r.byName[def.Name] = def
}

func (r *FunctionRegistry) Lookup(name string) (FunctionDef, error) {
	def, ok := r.byName[name]
	if !ok {
		return FunctionDef{}, fmt.Errorf("unknown function %q", name)
	}
	return def, nil
}

// All returns every registered function definition, for enumeration in
// GetCapabilities' fes:Functions block. Order is unspecified.
func (r *FunctionRegistry) All() []FunctionDef {
	out := make([]FunctionDef, 0, len(r.byName))
	for _, def := range r.byName {
		out = append(out, def)
	}
	return out
}

// CheckArity validates the number of arguments against a function's declared
// signature.
func (def FunctionDef) CheckArity(n int) error {
	if n < def.MinArgs || (def.MaxArgs >= 0 && n > def.MaxArgs) {
		return fmt.Errorf("function %q takes %d-%s arguments, got %d",
			def.Name, def.MinArgs, maxArgsLabel(def.MaxArgs), n)
	}
	return nil
}

func maxArgsLabel(max int) string {
	if max < 0 {
		return "unbounded"
	}
	return fmt.Sprintf("%d", max)
}

var builtinFunctions = []FunctionDef{
	{Name: "strToUpper", MinArgs: 1, MaxArgs: 1, ReturnType: xsd.XsString, SQLTemplate: "upper(%s)"},
	{Name: "strToLower", MinArgs: 1, MaxArgs: 1, ReturnType: xsd.XsString, SQLTemplate: "lower(%s)"},
	{Name: "length", MinArgs: 1, MaxArgs: 1, ReturnType: xsd.XsInt, SQLTemplate: "length(%s)"},
	{Name: "Concatenate", MinArgs: 2, MaxArgs: -1, ReturnType: xsd.XsString, SQLTemplate: "(%s)"},
	{Name: "abs", MinArgs: 1, MaxArgs: 1, ReturnType: xsd.XsDouble, SQLTemplate: "abs(%s)"},
	{Name: "round", MinArgs: 1, MaxArgs: 1, ReturnType: xsd.XsDouble, SQLTemplate: "round(%s)"},
}
