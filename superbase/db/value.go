package db

import (
	"fmt"
	"strconv"
)

type Kind uint8

const (
	// KindNull only appears when a short row is padded to its table width.
	KindNull Kind = iota
	KindText
	KindUint16
	KindUint32
	KindDouble
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindDouble:
		return "double"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is one decoded field. Only the member selected by Kind is meaningful.
type Value struct {
	Kind Kind
	Text string
	Uint uint32
	Real float64
}

func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

func Uint16Value(v uint16) Value {
	return Value{Kind: KindUint16, Uint: uint32(v)}
}

func Uint32Value(v uint32) Value {
	return Value{Kind: KindUint32, Uint: v}
}

func DoubleValue(v float64) Value {
	return Value{Kind: KindDouble, Real: v}
}

func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindUint16, KindUint32:
		return strconv.FormatUint(uint64(v.Uint), 10)
	case KindDouble:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	default:
		return "NULL"
	}
}

type Row []Value

// Pad extends a short row with null values up to width. Rows are never cut.
func (r Row) Pad(width int) Row {
	if len(r) >= width {
		return r
	}
	padded := make(Row, width)
	copy(padded, r)
	return padded
}
