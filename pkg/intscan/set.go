package intscan

const (
	// classNotDigit is greater than any supported base.
	classNotDigit = 0xfe
	classSkip     = 0xff
)

// digitTable maps every byte to its value in base 36
// or to classNotDigit.
var digitTable = func() (t [256]uint8) {
	for i := range t {
		t[i] = classNotDigit
	}
	for c := '0'; c <= '9'; c++ {
		t[c] = uint8(c - '0')
	}
	for c := 'a'; c <= 'z'; c++ {
		t[c] = uint8(c-'a') + 10
	}
	for c := 'A'; c <= 'Z'; c++ {
		t[c] = uint8(c-'A') + 10
	}
	return t
}()

// Set is a set of ignored bytes bound to a scan.
// Implemented by Pack and *Table only.
type Set interface {
	class(c byte) uint8
}

// None ignores nothing.
const None = Pack("")

// Pack is a short set of ignored bytes that's tested by comparing
// each scanned byte against every member.
// Prefer Table for sets with more than a couple of members.
type Pack string

func (p Pack) class(c byte) uint8 {
	for i := 0; i < len(p); i++ {
		if p[i] == c {
			return classSkip
		}
	}
	return digitTable[c]
}

// Table is a set of ignored bytes baked into a copy of the digit table.
// A Table is immutable and safe for concurrent use.
type Table struct {
	t       [256]uint8
	ignored string
}

// NewTable creates a new table ignoring every byte in ignored.
// Ignored bytes take precedence over digits.
func NewTable(ignored string) *Table {
	t := &Table{t: digitTable}
	var seen [256]bool
	b := make([]byte, 0, len(ignored))
	for i := 0; i < len(ignored); i++ {
		c := ignored[i]
		t.t[c] = classSkip
		if !seen[c] {
			seen[c] = true
			b = append(b, c)
		}
	}
	t.ignored = string(b)
	return t
}

// Ignored returns the deduplicated ignored bytes in order of appearance.
func (t *Table) Ignored() string { return t.ignored }

func (t *Table) class(c byte) uint8 { return t.t[c] }
