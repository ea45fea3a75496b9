package db

import (
	"bytes"

	"golang.org/x/text/encoding"

	"superbase-golang/superbase/util"
)

// UnterminatedPolicy decides what happens to a text field that runs to the end
// of the record without its null terminator.
type UnterminatedPolicy uint8

const (
	UnterminatedError UnterminatedPolicy = iota
	UnterminatedTakeRemainder
)

func (p UnterminatedPolicy) String() string {
	switch p {
	case UnterminatedError:
		return "error"
	case UnterminatedTakeRemainder:
		return "remainder"
	default:
		return "unknown"
	}
}

type TokenizerOptions struct {
	// Encoding of text fields. Nil keeps the raw bytes.
	Encoding     encoding.Encoding
	Unterminated UnterminatedPolicy
}

// FieldTokenizer splits raw records into values. It holds a text decoder and
// must not be shared between goroutines.
type FieldTokenizer struct {
	decoder      *encoding.Decoder
	unterminated UnterminatedPolicy
}

func NewFieldTokenizer(opts TokenizerOptions) *FieldTokenizer {
	ft := &FieldTokenizer{
		unterminated: opts.Unterminated,
	}
	if opts.Encoding != nil {
		ft.decoder = opts.Encoding.NewDecoder()
	}
	return ft
}

// Tokenize decodes at most n values from record, scanning left to right.
// A record may hold fewer than n fields; bytes after the n-th field are ignored.
//
// Field layout:
//
//	0xFF size value    numeric; size 0x02 uint16, 0x04 uint32, 0x08 float64
//	text 0x00          anything else, up to the next null byte
func (ft *FieldTokenizer) Tokenize(record []byte, n int) (Row, error) {
	values := make(Row, 0, n)
	cursor := 0
	for cursor < len(record) && len(values) < n {
		if record[cursor] == kNumericTag {
			value, size, err := decodeNumeric(record, cursor)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
			cursor += 2 + size
			continue
		}

		end := bytes.IndexByte(record[cursor:], kTextEnd)
		if end < 0 {
			if ft.unterminated != UnterminatedTakeRemainder {
				return nil, util.NewSuperbaseError(util.ErrUnterminatedField,
					"field %d at offset %d has no terminator", len(values)+1, cursor)
			}
			end = len(record) - cursor
		}

		text, err := ft.decodeText(record[cursor : cursor+end])
		if err != nil {
			return nil, util.NewSuperbaseError(util.ErrUnknown,
				"failed to decode field %d at offset %d, error: [%v]", len(values)+1, cursor, err)
		}
		values = append(values, TextValue(text))
		cursor += end + 1
	}

	return values, nil
}

func decodeNumeric(record []byte, cursor int) (Value, int, error) {
	if cursor+1 >= len(record) {
		return Value{}, 0, util.NewSuperbaseError(util.ErrTruncatedField,
			"numeric tag at offset %d has no size byte", cursor)
	}

	sizeByte := record[cursor+1]
	size := int(sizeByte)
	switch sizeByte {
	case kUint16Size, kUint32Size, kDoubleSize:
	default:
		return Value{}, 0, util.NewSuperbaseError(util.ErrUnknownFieldTag,
			"size byte 0x%02x at offset %d", sizeByte, cursor+1)
	}

	start := cursor + 2
	if start+size > len(record) {
		return Value{}, 0, util.NewSuperbaseError(util.ErrTruncatedField,
			"numeric field at offset %d needs %d bytes, %d left", cursor, size, len(record)-start)
	}

	data := record[start : start+size]
	switch sizeByte {
	case kUint16Size:
		return Uint16Value(util.DecodeFixedUint16(data)), size, nil
	case kUint32Size:
		return Uint32Value(util.DecodeFixedUint32(data)), size, nil
	default:
		return DoubleValue(util.DecodeFixedFloat64(data)), size, nil
	}
}

func (ft *FieldTokenizer) decodeText(raw []byte) (string, error) {
	if ft.decoder == nil {
		return string(raw), nil
	}
	return ft.decoder.String(string(raw))
}
