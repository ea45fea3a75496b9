package util

import (
	"encoding/binary"
	"math"
)

// All on-disk integers are little endian.

func EncodeFixedUint16(data []byte, value uint16) {
	binary.LittleEndian.PutUint16(data, value)
}

func DecodeFixedUint16(data []byte) uint16 {
	return binary.LittleEndian.Uint16(data)
}

func EncodeFixedUint32(data []byte, value uint32) {
	binary.LittleEndian.PutUint32(data, value)
}

func DecodeFixedUint32(data []byte) uint32 {
	return binary.LittleEndian.Uint32(data)
}

func EncodeFixedFloat64(data []byte, value float64) {
	binary.LittleEndian.PutUint64(data, math.Float64bits(value))
}

func DecodeFixedFloat64(data []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(data))
}
