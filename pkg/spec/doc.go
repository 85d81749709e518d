// Package spec resolves caller-supplied container specifications into a
// closed set of variants: a pullable image, a Dockerfile build context, or
// a user-provided container factory.
//
// Resolution is a pure function over the argument shapes accepted by the
// in-container decorator and marker surfaces. When several shapes are
// supplied at once, precedence is: factory, explicit image, path+tag,
// then an "image" entry from parametrized funcargs.
package spec
