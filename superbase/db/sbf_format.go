package db

// SBF file layout:
//
//	header block:  60 byte header, then BlockSize-60 bytes of padding
//	data blocks:   BlockSize bytes each, addressed 1-based in file order
//
// Header (little endian):
//
//	[0:12]   reserved
//	[12:16]  record count
//	[16:20]  block count
//	[20:22]  block size
//	[22:60]  reserved
//
// Every data block starts with a 4 byte word: bit 31 marks the first block of a
// record, bit 30 marks a deleted record, bits 0-29 hold the index of the next
// block of the same record (0 terminates the chain).
const (
	kHeaderSize      uint32 = 60
	kBlockHeaderSize uint32 = 4

	kRecordCountOffset = 12
	kBlockCountOffset  = 16
	kBlockSizeOffset   = 20

	kFirstFlag   uint32 = 0x80000000
	kDeletedFlag uint32 = 0x40000000
	kNextMask    uint32 = 0x3FFFFFFF
)

// Field encoding inside a reassembled record.
const (
	kNumericTag byte = 0xFF
	kTextEnd    byte = 0x00

	kUint16Size byte = 0x02
	kUint32Size byte = 0x04
	kDoubleSize byte = 0x08
)

type Header struct {
	RecordCount uint32
	BlockCount  uint32
	BlockSize   uint16
}

// PayloadSize is the number of record bytes carried by one data block.
func (h Header) PayloadSize() uint32 {
	return uint32(h.BlockSize) - kBlockHeaderSize
}

type Block struct {
	First   bool
	Deleted bool
	Next    uint32
	Payload Slice
}

type Slice []byte

func decodeBlockWord(word uint32) (first, deleted bool, next uint32) {
	return word&kFirstFlag != 0, word&kDeletedFlag != 0, word & kNextMask
}

func encodeBlockWord(first, deleted bool, next uint32) uint32 {
	word := next & kNextMask
	if first {
		word |= kFirstFlag
	}
	if deleted {
		word |= kDeletedFlag
	}
	return word
}
