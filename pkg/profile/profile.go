// Package profile provides named parser specializations that are selected
// at runtime by target kind, ignored set and strategy.
package profile

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/graph-guard/intscan/pkg/intscan"
	"golang.org/x/exp/constraints"
)

// Kind is a target integer type.
type Kind uint8

const (
	_ Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindInt
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindUint
)

var kindNames = [...]string{
	KindInt8:   "int8",
	KindInt16:  "int16",
	KindInt32:  "int32",
	KindInt64:  "int64",
	KindInt:    "int",
	KindUint8:  "uint8",
	KindUint16: "uint16",
	KindUint32: "uint32",
	KindUint64: "uint64",
	KindUint:   "uint",
}

func (k Kind) String() string {
	if k == 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Signed returns true for signed kinds.
func (k Kind) Signed() bool { return k >= KindInt8 && k <= KindInt }

// ParseKind returns the kind named s.
func ParseKind(s string) (Kind, error) {
	for k := KindInt8; k <= KindUint; k++ {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown type %q", s)
}

// Strategy is the way ignored bytes are tested.
type Strategy uint8

const (
	// StrategyTable bakes ignored bytes into a lookup table.
	StrategyTable Strategy = iota

	// StrategyPack compares against every ignored byte.
	StrategyPack
)

func (s Strategy) String() string {
	switch s {
	case StrategyTable:
		return "table"
	case StrategyPack:
		return "pack"
	}
	return "Strategy(" + strconv.Itoa(int(s)) + ")"
}

// ParseStrategy returns the strategy named s.
// An empty s selects StrategyTable.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "table":
		return StrategyTable, nil
	case "pack":
		return StrategyPack, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// Value is a parsed integer of any kind.
type Value struct {
	Signed bool
	Int    int64  // Set when Signed
	Uint   uint64 // Set when !Signed
}

// Int creates a signed value.
func Int(v int64) Value { return Value{Signed: true, Int: v} }

// Uint creates an unsigned value.
func Uint(v uint64) Value { return Value{Uint: v} }

// String returns the decimal representation of v.
func (v Value) String() string {
	if v.Signed {
		return strconv.FormatInt(v.Int, 10)
	}
	return strconv.FormatUint(v.Uint, 10)
}

// Grouped returns the decimal representation of v
// with thousands separated by commas.
func (v Value) Grouped() string {
	if v.Signed {
		return humanize.Comma(v.Int)
	}
	return humanize.BigComma(new(big.Int).SetUint64(v.Uint))
}

// Outcome is the result of Profile.Parse.
// Value is zero unless Result.Status is intscan.OK.
type Outcome struct {
	Value  Value
	Result intscan.Result
}

// Profile is a named parser specialization.
// A Profile is immutable and safe for concurrent use.
type Profile struct {
	ID       string
	Name     string
	Kind     Kind
	Strategy Strategy
	Ignored  string

	parse func(b []byte) Outcome
}

// New compiles a new profile.
func New(
	id, name string,
	kind Kind,
	strategy Strategy,
	ignored string,
) (*Profile, error) {
	p := &Profile{
		ID:       id,
		Name:     name,
		Kind:     kind,
		Strategy: strategy,
		Ignored:  ignored,
	}
	switch strategy {
	case StrategyTable:
		t := intscan.NewTable(ignored)
		p.Ignored = t.Ignored()
		p.parse = compile(kind, t)
	case StrategyPack:
		p.parse = compile(kind, intscan.Pack(ignored))
	default:
		return nil, fmt.Errorf("unknown strategy: %s", strategy)
	}
	if p.parse == nil {
		return nil, fmt.Errorf("unknown kind: %s", kind)
	}
	return p, nil
}

// Parse parses b.
func (p *Profile) Parse(b []byte) Outcome { return p.parse(b) }

func compile[I intscan.Set](k Kind, set I) func([]byte) Outcome {
	switch k {
	case KindInt8:
		return signed(intscan.New[int8](set))
	case KindInt16:
		return signed(intscan.New[int16](set))
	case KindInt32:
		return signed(intscan.New[int32](set))
	case KindInt64:
		return signed(intscan.New[int64](set))
	case KindInt:
		return signed(intscan.New[int](set))
	case KindUint8:
		return unsigned(intscan.New[uint8](set))
	case KindUint16:
		return unsigned(intscan.New[uint16](set))
	case KindUint32:
		return unsigned(intscan.New[uint32](set))
	case KindUint64:
		return unsigned(intscan.New[uint64](set))
	case KindUint:
		return unsigned(intscan.New[uint](set))
	}
	return nil
}

func signed[T constraints.Signed, I intscan.Set](
	p intscan.Parser[T, I],
) func([]byte) Outcome {
	return func(b []byte) (o Outcome) {
		v, r := p.Parse(b)
		if o.Result = r; r.Status == intscan.OK {
			o.Value = Int(int64(v))
		}
		return o
	}
}

func unsigned[T constraints.Unsigned, I intscan.Set](
	p intscan.Parser[T, I],
) func([]byte) Outcome {
	return func(b []byte) (o Outcome) {
		v, r := p.Parse(b)
		if o.Result = r; r.Status == intscan.OK {
			o.Value = Uint(uint64(v))
		}
		return o
	}
}
