// Package runtime defines the value model shared by the symbol registry
// and the pattern engine: the Callable abstraction applied by call and
// bind nodes, the Arguments union that carries positional, keyword or
// single-value argument shapes, partial application, and structural
// attribute lookup.
package runtime
