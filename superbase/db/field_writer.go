package db

import (
	"bytes"

	"superbase-golang/superbase/util"
)

// FieldWriter builds a raw record in the tagged field format read by
// FieldTokenizer.
type FieldWriter struct {
	data Slice
}

func NewFieldWriter() *FieldWriter {
	return &FieldWriter{
		data: make(Slice, 0),
	}
}

// AppendText adds a null terminated text field. Text holding a null byte, or
// starting with the numeric tag, cannot be read back and is rejected.
func (fw *FieldWriter) AppendText(text []byte) *util.SuperbaseError {
	if bytes.IndexByte(text, kTextEnd) >= 0 {
		return util.NewSuperbaseError(util.ErrInvalidFieldValue, "text field %q contains a null byte", text)
	}
	if len(text) > 0 && text[0] == kNumericTag {
		return util.NewSuperbaseError(util.ErrInvalidFieldValue, "text field %q starts with the numeric tag", text)
	}
	fw.data = append(fw.data, text...)
	fw.data = append(fw.data, kTextEnd)
	return nil
}

func (fw *FieldWriter) AppendUint16(value uint16) {
	fw.data = append(fw.data, kNumericTag, kUint16Size, 0, 0)
	util.EncodeFixedUint16(fw.data[len(fw.data)-2:], value)
}

func (fw *FieldWriter) AppendUint32(value uint32) {
	fw.data = append(fw.data, kNumericTag, kUint32Size, 0, 0, 0, 0)
	util.EncodeFixedUint32(fw.data[len(fw.data)-4:], value)
}

func (fw *FieldWriter) AppendDouble(value float64) {
	fw.data = append(fw.data, kNumericTag, kDoubleSize, 0, 0, 0, 0, 0, 0, 0, 0)
	util.EncodeFixedFloat64(fw.data[len(fw.data)-8:], value)
}

// AppendValue dispatches on the value kind. Null values have no encoding and
// end the record, so they are rejected.
func (fw *FieldWriter) AppendValue(value Value) *util.SuperbaseError {
	switch value.Kind {
	case KindText:
		return fw.AppendText([]byte(value.Text))
	case KindUint16:
		fw.AppendUint16(uint16(value.Uint))
	case KindUint32:
		fw.AppendUint32(value.Uint)
	case KindDouble:
		fw.AppendDouble(value.Real)
	default:
		return util.NewSuperbaseError(util.ErrInvalidFieldValue, "cannot encode %s value", value.Kind)
	}
	return nil
}

// Bytes returns the record built so far. Reset reuses its backing array.
func (fw *FieldWriter) Bytes() Slice {
	return fw.data
}

func (fw *FieldWriter) Reset() {
	fw.data = fw.data[:0]
}
