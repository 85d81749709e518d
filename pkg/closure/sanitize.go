package closure

import (
	"fmt"
	"sort"
	"strings"
)

// Recompile re-derives a function purely from its own source text:
// decorator lines above the definition are discarded and the result is
// rebound to an empty namespace. The function loses all module context,
// so this form is only suitable for self-contained bodies with no
// outer-scope references, shipped by reference.
func Recompile(fn *Func) (*Func, error) {
	src, err := bareSource(fn)
	if err != nil {
		return nil, err
	}
	return &Func{
		Name:    fn.Name,
		Module:  SentinelModule,
		Source:  src,
		Globals: map[string]any{},
	}, nil
}

// SanitizedClosure is a callable rehomed into a self-contained namespace:
// every same-module function and class it transitively reaches is cloned
// into the shared Globals map, non-callable bindings are copied, and the
// instrumentation hook is gone. It is executable in a process that never
// loaded the defining module.
type SanitizedClosure struct {
	Entry   *Func
	Globals map[string]any
}

// Rehome builds a SanitizedClosure from fn. The walk covers fn's captured
// globals and, transitively, the globals of every same-module function
// found there, so helper-to-helper calls and class instantiations still
// resolve after transfer.
// Rehoming an already-rehomed function is a no-op with respect to
// observable behavior.
func Rehome(fn *Func) (*SanitizedClosure, error) {
	if fn.Source == "" {
		return nil, fmt.Errorf("function %q has no source", fn.Name)
	}
	origModule := fn.Module

	clean := make(map[string]any)
	toPatch := make(map[string]*Func)

	worklist := []*Func{fn}
	visited := map[*Func]bool{fn: true}
	for len(worklist) > 0 {
		cur := worklist[0]
		worklist = worklist[1:]
		for k, v := range cur.Globals {
			if k == RewriteHook {
				continue
			}
			if g, ok := v.(*Func); ok && g.Module == origModule {
				if _, seen := toPatch[k]; !seen {
					toPatch[k] = g
					if !visited[g] {
						visited[g] = true
						worklist = append(worklist, g)
					}
				}
				continue
			}
			if cl, ok := v.(*Class); ok && cl.Module == origModule {
				if _, seen := clean[k]; !seen {
					clean[k] = &Class{
						Name:   cl.Name,
						Module: SentinelModule,
						Source: cl.Source,
						Pos:    cl.Pos,
					}
				}
				continue
			}
			if _, seen := clean[k]; !seen {
				clean[k] = v
			}
		}
	}

	// Clone pass: every same-module function is rebound to the shared
	// clean namespace under its original key, so collisions between
	// original and clone are impossible by construction.
	for k, orig := range toPatch {
		clean[k] = &Func{
			Name:    orig.Name,
			Module:  SentinelModule,
			Source:  orig.Source,
			Globals: clean,
		}
	}

	entry := &Func{
		Name:    fn.Name,
		Module:  SentinelModule,
		Source:  fn.Source,
		Globals: clean,
	}
	clean[fn.Name] = entry

	return &SanitizedClosure{Entry: entry, Globals: clean}, nil
}

// Payload is the by-value wire form of a SanitizedClosure: cloned
// function and class sources, namespace constants, import specs, and the
// entry point, packaged as one self-contained unit.
type Payload struct {
	Entry     string                `cbor:"entry"`
	Functions map[string]string     `cbor:"functions"`
	Classes   []ClassSpec           `cbor:"classes,omitempty"`
	Values    map[string]any        `cbor:"values,omitempty"`
	Imports   map[string]ImportSpec `cbor:"imports,omitempty"`
	Args      []any                 `cbor:"args,omitempty"`
	Kwargs    map[string]any        `cbor:"kwargs,omitempty"`
}

// ImportSpec is the wire form of an Import binding.
type ImportSpec struct {
	Module string `cbor:"module"`
	Attr   string `cbor:"attr,omitempty"`
}

// ClassSpec is the wire form of a Class binding. Classes are a list, not
// a map: their bodies execute eagerly on the remote side, so definition
// order must survive for inheritance to resolve.
type ClassSpec struct {
	Name   string `cbor:"name"`
	Source string `cbor:"source"`
}

// Payload flattens the closure for transport. Function sources are
// stripped of decorator lines: decorators reference host-side tooling the
// remote namespace does not carry. Class sources travel unchanged, in
// definition order.
func (sc *SanitizedClosure) Payload() (*Payload, error) {
	p := &Payload{
		Entry:     sc.Entry.Name,
		Functions: make(map[string]string),
		Values:    make(map[string]any),
		Imports:   make(map[string]ImportSpec),
	}
	var classes []*Class
	for k, v := range sc.Globals {
		switch b := v.(type) {
		case *Func:
			src, err := bareSource(b)
			if err != nil {
				return nil, err
			}
			p.Functions[k] = src
		case *Class:
			classes = append(classes, b)
		case Import:
			p.Imports[k] = ImportSpec{Module: b.Module, Attr: b.Attr}
		default:
			p.Values[k] = v
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Pos < classes[j].Pos })
	for _, cl := range classes {
		p.Classes = append(p.Classes, ClassSpec{Name: cl.Name, Source: cl.Source})
	}
	if _, ok := p.Functions[sc.Entry.Name]; !ok {
		src, err := bareSource(sc.Entry)
		if err != nil {
			return nil, err
		}
		p.Functions[sc.Entry.Name] = src
	}
	return p, nil
}

// bareSource returns the dedented definition with any decorator lines
// above it dropped.
func bareSource(fn *Func) (string, error) {
	lines := strings.Split(dedent(fn.Source), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "def ") {
			return strings.TrimRight(strings.Join(lines[i:], "\n"), "\n") + "\n", nil
		}
	}
	return "", fmt.Errorf("no function definition found in source of %q", fn.Name)
}

// dedent strips the longest common leading whitespace from all non-empty
// lines.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	margin := -1
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin <= 0 {
		return s
	}
	for i, line := range lines {
		if len(line) >= margin {
			lines[i] = line[margin:]
		}
	}
	return strings.Join(lines, "\n")
}
