package closure

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mesa-dot-dev/pytest-in-docker/pkg/debug"
)

var (
	defRe    = regexp.MustCompile(`^def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	classRe  = regexp.MustCompile(`^class\s+([A-Za-z_][A-Za-z0-9_]*)\s*[(:]`)
	assignRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+?)\s*$`)
	importRe = regexp.MustCompile(`^import\s+([A-Za-z_][A-Za-z0-9_.]*)(?:\s+as\s+([A-Za-z_][A-Za-z0-9_]*))?\s*$`)
	fromRe   = regexp.MustCompile(`^from\s+([A-Za-z_][A-Za-z0-9_.]*)\s+import\s+(.+?)\s*$`)
)

// ParseModule captures the top-level bindings of a Python test module:
// function and class definitions (decorators included in their source),
// imports, and constant assignments with simple literal values. All
// captured functions share the module's binding map, mirroring how an
// interpreter shares one globals dict across a module's functions.
//
// Bindings whose right-hand side is not a recognized literal are skipped;
// remote test bodies may only depend on what the capture can carry.
func ParseModule(name, source string) *Module {
	m := &Module{Name: name, Bindings: make(map[string]any)}
	lines := strings.Split(source, "\n")

	classPos := 0
	var pending []string // decorator lines awaiting a def or class
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "@"):
			pending = append(pending, line)

		case defRe.MatchString(line):
			block := append(append([]string{}, pending...), line)
			pending = nil
			block, i = captureBlock(lines, i, block)
			fnName := defRe.FindStringSubmatch(line)[1]
			m.Bindings[fnName] = &Func{
				Name:    fnName,
				Module:  name,
				Source:  strings.TrimRight(strings.Join(block, "\n"), "\n") + "\n",
				Globals: m.Bindings,
			}

		case classRe.MatchString(line):
			block := append(append([]string{}, pending...), line)
			pending = nil
			block, i = captureBlock(lines, i, block)
			clName := classRe.FindStringSubmatch(line)[1]
			m.Bindings[clName] = &Class{
				Name:   clName,
				Module: name,
				Source: strings.TrimRight(strings.Join(block, "\n"), "\n") + "\n",
				Pos:    classPos,
			}
			classPos++

		case importRe.MatchString(line):
			pending = nil
			parts := importRe.FindStringSubmatch(line)
			alias := parts[2]
			if alias == "" {
				// "import a.b" binds the top-level package name.
				alias = strings.SplitN(parts[1], ".", 2)[0]
			}
			m.Bindings[alias] = Import{Module: parts[1]}

		case fromRe.MatchString(line):
			pending = nil
			parts := fromRe.FindStringSubmatch(line)
			for _, item := range strings.Split(parts[2], ",") {
				item = strings.TrimSpace(item)
				attr, alias := item, item
				if before, after, found := strings.Cut(item, " as "); found {
					attr, alias = strings.TrimSpace(before), strings.TrimSpace(after)
				}
				if attr == "" || alias == "" {
					continue
				}
				m.Bindings[alias] = Import{Module: parts[1], Attr: attr}
			}

		case assignRe.MatchString(line):
			pending = nil
			parts := assignRe.FindStringSubmatch(line)
			value, ok := parseLiteral(parts[2])
			if !ok {
				debug.Log("closure", "skipping non-literal binding", "module", name, "name", parts[1])
				continue
			}
			m.Bindings[parts[1]] = value

		default:
			if strings.TrimSpace(line) != "" && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
				pending = nil
			}
		}
	}
	return m
}

// captureBlock extends block with the indented (or blank) lines that
// follow lines[i], returning the index of the last consumed line.
func captureBlock(lines []string, i int, block []string) ([]string, int) {
	for i+1 < len(lines) {
		next := lines[i+1]
		if next != "" && !strings.HasPrefix(next, " ") && !strings.HasPrefix(next, "\t") {
			break
		}
		block = append(block, next)
		i++
	}
	return block, i
}

// parseLiteral converts a Python literal expression to a Go value.
// Strings, ints, floats, booleans, None, and flat lists of those are
// supported.
func parseLiteral(expr string) (any, bool) {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "True":
		return true, true
	case "False":
		return false, true
	case "None":
		return nil, true
	}
	if len(expr) >= 2 {
		if expr[0] == '"' && expr[len(expr)-1] == '"' {
			if s, err := strconv.Unquote(expr); err == nil {
				return s, true
			}
		}
		if expr[0] == '\'' && expr[len(expr)-1] == '\'' {
			inner := expr[1 : len(expr)-1]
			if !strings.ContainsAny(inner, `"'`) {
				if s, err := strconv.Unquote(`"` + inner + `"`); err == nil {
					return s, true
				}
			}
		}
		if expr[0] == '[' && expr[len(expr)-1] == ']' {
			inner := strings.TrimSpace(expr[1 : len(expr)-1])
			if inner == "" {
				return []any{}, true
			}
			if strings.ContainsAny(inner, "[]{}()") {
				return nil, false
			}
			var items []any
			for _, part := range strings.Split(inner, ",") {
				item, ok := parseLiteral(part)
				if !ok {
					return nil, false
				}
				items = append(items, item)
			}
			return items, true
		}
	}
	if n, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(expr, 64); err == nil {
		return f, true
	}
	return nil, false
}
