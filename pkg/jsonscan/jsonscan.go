// Package jsonscan extracts integers from JSON documents
// by path using a parser profile.
package jsonscan

import (
	"errors"

	"github.com/graph-guard/intscan/pkg/profile"
	"github.com/tidwall/gjson"
)

var ErrInvalidJSON = errors.New("invalid JSON")
var ErrNotScalar = errors.New("value is neither a string nor a number")

// Field is the outcome of extracting a single path.
type Field struct {
	Path  string
	Found bool

	// Raw is the text that was parsed. For JSON strings it's
	// the unquoted content, for JSON numbers it's the literal.
	Raw string

	// Err is ErrNotScalar if the value at Path was found but
	// is neither a string nor a number.
	Err error

	Outcome profile.Outcome
}

// Extract parses the value at every path in doc using p.
// Paths follow the gjson path syntax.
func Extract(doc []byte, p *profile.Profile, paths ...string) ([]Field, error) {
	if !gjson.ValidBytes(doc) {
		return nil, ErrInvalidJSON
	}
	results := gjson.GetManyBytes(doc, paths...)
	fields := make([]Field, len(paths))
	for i, r := range results {
		f := &fields[i]
		f.Path = paths[i]
		if !r.Exists() {
			continue
		}
		f.Found = true
		switch r.Type {
		case gjson.String:
			f.Raw = r.Str
		case gjson.Number:
			f.Raw = r.Raw
		default:
			f.Err = ErrNotScalar
			continue
		}
		f.Outcome = p.Parse([]byte(f.Raw))
	}
	return fields, nil
}
