package db

import (
	"errors"
	"io"

	"superbase-golang/superbase/util"
)

// Reporter is told about bytes the reader dropped or header values it could not
// reconcile. None of these stop the read.
type Reporter interface {
	Corruption(n uint32, err error)
}

// blocks are preallocated up to this many entries, whatever the header claims
const kMaxPreallocatedBlocks = 1 << 16

type BlockReader struct {
	source       io.Reader
	reporter     Reporter
	header       Header
	headerRead   bool
	backingStore []byte // 重复利用，每个 block 读进同一块内存
	offset       uint64
	blocksRead   uint32
	eof          bool
}

func NewBlockReader(source io.Reader, reporter Reporter) *BlockReader {
	return &BlockReader{
		source:   source,
		reporter: reporter,
	}
}

// ReadHeader reads the 60 byte header and skips the rest of the header block.
// Calling it again returns the header read the first time.
func (br *BlockReader) ReadHeader() (Header, error) {
	if br.headerRead {
		return br.header, nil
	}

	raw := make([]byte, kHeaderSize)
	n, err := io.ReadFull(br.source, raw)
	br.offset += uint64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, util.NewSuperbaseError(util.ErrTruncatedHeader,
				"read %d of %d header bytes", n, kHeaderSize)
		}
		return Header{}, util.NewSuperbaseError(util.ErrReadFileFailed,
			"failed to read header, error: [%v]", err)
	}

	header := Header{
		RecordCount: util.DecodeFixedUint32(raw[kRecordCountOffset:]),
		BlockCount:  util.DecodeFixedUint32(raw[kBlockCountOffset:]),
		BlockSize:   util.DecodeFixedUint16(raw[kBlockSizeOffset:]),
	}
	// kHeaderSize > kBlockHeaderSize, so this also keeps payloads non-empty
	if uint32(header.BlockSize) < kHeaderSize {
		return Header{}, util.NewSuperbaseError(util.ErrInvalidBlockSize,
			"block size %d at offset %d, must be at least %d", header.BlockSize, kBlockSizeOffset, kHeaderSize)
	}

	padding := int64(header.BlockSize) - int64(kHeaderSize)
	skipped, err := io.CopyN(io.Discard, br.source, padding)
	br.offset += uint64(skipped)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Header{}, util.NewSuperbaseError(util.ErrTruncatedHeader,
				"header block padding ended after %d of %d bytes", skipped, padding)
		}
		return Header{}, util.NewSuperbaseError(util.ErrReadFileFailed,
			"failed to skip header padding, error: [%v]", err)
	}

	br.header = header
	br.headerRead = true
	br.backingStore = make([]byte, header.BlockSize)
	return header, nil
}

// ReadBlock
// 第二个返回值为 false 表示已经没有完整的 block 可读
// A trailing chunk shorter than a block ends the stream; its size goes to the
// reporter and is not an error.
func (br *BlockReader) ReadBlock() (Block, bool, error) {
	if !br.headerRead {
		if _, err := br.ReadHeader(); err != nil {
			return Block{}, false, err
		}
	}
	if br.eof {
		return Block{}, false, nil
	}

	blockOffset := br.offset
	n, err := io.ReadFull(br.source, br.backingStore)
	br.offset += uint64(n)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		br.eof = true
		return Block{}, false, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		br.eof = true
		br.report(uint32(n), util.NewSuperbaseError(util.ErrShortTrailingBlock,
			"dropped %d trailing bytes at offset %d", n, blockOffset))
		return Block{}, false, nil
	default:
		br.eof = true
		return Block{}, false, util.NewSuperbaseError(util.ErrReadFileFailed,
			"failed to read block %d at offset %d, error: [%v]", br.blocksRead+1, blockOffset, err)
	}

	first, deleted, next := decodeBlockWord(util.DecodeFixedUint32(br.backingStore))
	payload := make(Slice, br.header.PayloadSize())
	copy(payload, br.backingStore[kBlockHeaderSize:])
	br.blocksRead++

	return Block{
		First:   first,
		Deleted: deleted,
		Next:    next,
		Payload: payload,
	}, true, nil
}

// ReadBlocks reads the header and every complete block. Index 0 of the result
// is the block addressed as 1 by next links.
func (br *BlockReader) ReadBlocks() (Header, []Block, error) {
	header, err := br.ReadHeader()
	if err != nil {
		return Header{}, nil, err
	}

	blocks := make([]Block, 0, min(header.BlockCount, kMaxPreallocatedBlocks))
	for {
		block, ok, err := br.ReadBlock()
		if err != nil {
			return header, nil, err
		}
		if !ok {
			break
		}
		blocks = append(blocks, block)
	}

	if header.BlockCount != uint32(len(blocks)) {
		br.report(0, util.NewSuperbaseError(util.ErrBlockCountMismatch,
			"header declares %d blocks, file holds %d", header.BlockCount, len(blocks)))
	}
	return header, blocks, nil
}

// Offset is the number of bytes consumed from the source so far.
func (br *BlockReader) Offset() uint64 {
	return br.offset
}

func (br *BlockReader) BlocksRead() uint32 {
	return br.blocksRead
}

func (br *BlockReader) report(n uint32, err error) {
	if br.reporter != nil {
		br.reporter.Corruption(n, err)
	}
}
