package intscan

import "golang.org/x/exp/constraints"

// Parser is a scan specialized for target type T and ignored set I.
// A Parser is immutable and safe for concurrent use.
type Parser[T constraints.Integer, I Set] struct {
	ignored I
}

// New creates a new parser for T bound to ignored.
func New[T constraints.Integer, I Set](ignored I) Parser[T, I] {
	return Parser[T, I]{ignored: ignored}
}

// Ignored returns the set the parser is bound to.
func (p Parser[T, I]) Ignored() I { return p.ignored }

// Parse scans b, see Scan.
func (p Parser[T, I]) Parse(b []byte) (T, Result) {
	return Scan[T](b, p.ignored)
}

// ParseString scans s, see Scan.
func (p Parser[T, I]) ParseString(s string) (T, Result) {
	return Scan[T](s, p.ignored)
}
