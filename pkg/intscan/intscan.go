// Package intscan provides allocation-free parsing of []byte and string
// into fixed-width integers with base prefix detection
// and optional skipping of ignored characters such as digit separators.
package intscan

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Status is the outcome of a scan.
type Status uint8

const (
	// OK means the value was parsed successfully.
	OK Status = iota

	// InvalidArgument means nothing was consumed beyond the sign.
	InvalidArgument

	// OutOfRange means digits were consumed but the value
	// doesn't fit into the target type.
	OutOfRange
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case InvalidArgument:
		return "invalid argument"
	case OutOfRange:
		return "out of range"
	}
	return "unknown"
}

// Result is returned by every scan.
type Result struct {
	// End is the offset of the first byte that wasn't consumed.
	// End is 0 when Status is InvalidArgument.
	End    int
	Status Status
}

// Parse is equivalent to Scan(s, None).
func Parse[T constraints.Integer, S []byte | string](s S) (T, Result) {
	return Scan[T](s, None)
}

// Scan parses an integer of type T from the beginning of s
// skipping every byte that's a member of ignored.
//
// A leading '-' is accepted for signed types only, '+' is never accepted.
// The base is 16 for a "0x" or "0X" prefix, 2 for "0b" or "0B",
// 8 for a leading '0' followed by anything else and 10 otherwise.
// Scanning stops at the first byte that's not a digit in the selected base.
// Overflow doesn't stop the scan, the returned Result.End is always
// the offset at which a non-overflowing scan would have stopped.
//
// The returned value is zero unless the status is OK.
func Scan[T constraints.Integer, S []byte | string, I Set](
	s S, ignored I,
) (v T, r Result) {
	signed := ^T(0) < 0
	bits := uint(unsafe.Sizeof(v)) * 8

	next, sign := 0, 0
	if signed && len(s) > 0 && s[0] == '-' {
		sign = 1
		next = 1
	}

	base := uint64(10)
	if next < len(s) && s[next] == '0' {
		next++
		if next < len(s) {
			switch s[next] {
			case 'x', 'X':
				base = 16
				next++
			case 'b', 'B':
				base = 2
				next++
			default:
				base = 8
			}
		}
	}

	var limit uint64
	switch {
	case !signed:
		limit = ^uint64(0) >> (64 - bits)
	case sign == 1:
		// |min| fits the unsigned accumulator for every width.
		limit = 1 << (bits - 1)
	default:
		limit = 1<<(bits-1) - 1
	}
	risky, maxDigit := limit/base, limit%base

	var acc uint64
	overflow := false
	for ; next < len(s); next++ {
		d := ignored.class(s[next])
		if d == classSkip {
			continue
		}
		if uint64(d) >= base {
			break
		}
		if acc < risky || (acc == risky && uint64(d) <= maxDigit) {
			acc = acc*base + uint64(d)
		} else {
			// Keep going, the end offset still needs to be found.
			overflow = true
		}
	}

	if next == sign {
		return 0, Result{End: 0, Status: InvalidArgument}
	}
	if overflow {
		return 0, Result{End: next, Status: OutOfRange}
	}
	if sign == 1 {
		acc = -acc
	}
	return T(acc), Result{End: next, Status: OK}
}
