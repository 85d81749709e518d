// Package closure models a test callable together with its captured
// module environment, and produces transportable, side-effect-free
// equivalents of it.
//
// Two sanitization strategies coexist because they solve different
// transport constraints. Recompile re-derives a function purely from its
// own source text, discarding decorators and all module context; it suits
// self-contained functions shipped by reference. Rehome walks the
// function's captured global bindings and clones every same-module
// function into one shared clean namespace, copying constants and imports
// and dropping host-tooling instrumentation, so module-level state and
// transitive helper calls survive by-value transport into a process that
// never loaded the defining module.
package closure
