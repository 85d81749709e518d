package closure

const (
	// RewriteHook is the binding name the host test framework's assertion
	// rewriter injects into captured globals. It drags the whole defining
	// module along with it and is always dropped, never cloned.
	RewriteHook = "@pytest_ar"

	// SentinelModule is the module identity written onto sanitized
	// functions. It forces whole-object transport instead of a
	// by-reference lookup the remote side could never resolve.
	SentinelModule = "__mp_main__"
)

// Import is a module-level import binding: "import json" yields
// {Module: "json"}, "from math import sqrt" yields {Module: "math",
// Attr: "sqrt"}. The bound name is the key under which the Import is
// stored in a binding map.
type Import struct {
	Module string
	Attr   string
}

// Class is a module-level class definition captured as source text. It
// travels whole; the remote side executes the definition in the rehomed
// namespace. Pos records the definition's position within its module so
// base classes are always defined before their subclasses.
type Class struct {
	Name   string
	Module string
	Source string
	Pos    int
}

// Func is a callable captured together with its environment: its source
// text and the global bindings it may reference. Globals values are
// constants, Import bindings, or *Func and *Class siblings; functions
// produced by ParseModule all share the module's binding map, so
// transitive helper-to-helper references come along for free.
type Func struct {
	Name    string
	Module  string
	Source  string
	Globals map[string]any
}

// Module is a parsed test module: an ordered bag of top-level bindings.
type Module struct {
	Name     string
	Bindings map[string]any
}

// Func returns the named top-level function, or false if the binding is
// missing or not a function.
func (m *Module) Func(name string) (*Func, bool) {
	fn, ok := m.Bindings[name].(*Func)
	return fn, ok
}
