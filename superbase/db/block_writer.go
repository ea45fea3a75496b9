package db

import (
	"io"

	"superbase-golang/superbase/util"
)

type WriteableFile interface {
	io.Writer

	Flush() error
}

// BlockWriter lays records out over fixed size blocks in the SBF format.
// Blocks are kept in memory until Finish, because the header counts them.
type BlockWriter struct {
	dest      WriteableFile
	blockSize uint16
	blocks    []Block
	records   uint32
}

func NewBlockWriter(dest WriteableFile, blockSize uint16) (*BlockWriter, error) {
	if uint32(blockSize) < kHeaderSize {
		return nil, util.NewSuperbaseError(util.ErrInvalidBlockSize,
			"block size %d, must be at least %d", blockSize, kHeaderSize)
	}
	return &BlockWriter{
		dest:      dest,
		blockSize: blockSize,
	}, nil
}

func (bw *BlockWriter) payloadSize() uint32 {
	return uint32(bw.blockSize) - kBlockHeaderSize
}

// AddRecord chains a copy of record over as many consecutive blocks as it
// needs and returns the 1-based index of its first block. Note that an empty
// record still takes one block.
func (bw *BlockWriter) AddRecord(record Slice) uint32 {
	bw.records++
	return bw.addChain(record, false)
}

// AddDeletedRecord writes a chain whose first block carries the deleted flag.
func (bw *BlockWriter) AddDeletedRecord(record Slice) uint32 {
	return bw.addChain(record, true)
}

func (bw *BlockWriter) addChain(record Slice, deleted bool) uint32 {
	anchor := uint32(len(bw.blocks)) + 1
	startIdx, totalLength := uint32(0), uint32(len(record))
	avail := bw.payloadSize()

	for {
		fragmentLength := avail
		end := false
		if startIdx+fragmentLength >= totalLength {
			fragmentLength = totalLength - startIdx
			end = true
		}

		var next uint32
		if !end {
			next = uint32(len(bw.blocks)) + 2
		}
		bw.blocks = append(bw.blocks, Block{
			First:   startIdx == 0,
			Deleted: startIdx == 0 && deleted,
			Next:    next,
			Payload: append(Slice(nil), record[startIdx:startIdx+fragmentLength]...),
		})

		startIdx += fragmentLength
		if end {
			return anchor
		}
	}
}

// AddBlock appends a block verbatim, for layouts AddRecord cannot produce
// (interleaved chains, broken links). Payloads are padded or cut to fit.
func (bw *BlockWriter) AddBlock(block Block) uint32 {
	if block.First && !block.Deleted {
		bw.records++
	}
	bw.blocks = append(bw.blocks, block)
	return uint32(len(bw.blocks))
}

// Finish writes the header block followed by every data block.
func (bw *BlockWriter) Finish() *util.SuperbaseError {
	header := make([]byte, bw.blockSize)
	util.EncodeFixedUint32(header[kRecordCountOffset:], bw.records)
	util.EncodeFixedUint32(header[kBlockCountOffset:], uint32(len(bw.blocks)))
	util.EncodeFixedUint16(header[kBlockSizeOffset:], bw.blockSize)
	if _, err := bw.dest.Write(header); err != nil {
		return util.NewSuperbaseError(util.ErrWriteFileFailed, "failed to write, error: [%v]", err)
	}

	for _, block := range bw.blocks {
		if err := bw.EmitBlock(block); err != nil {
			return err
		}
	}

	if err := bw.dest.Flush(); err != nil {
		return util.NewSuperbaseError(util.ErrWriteFileFailed, "failed to write, error: [%v]", err)
	}
	return nil
}

func (bw *BlockWriter) EmitBlock(block Block) *util.SuperbaseError {
	data := make([]byte, bw.blockSize)
	util.EncodeFixedUint32(data, encodeBlockWord(block.First, block.Deleted, block.Next))
	copy(data[kBlockHeaderSize:], block.Payload)

	if _, err := bw.dest.Write(data); err != nil {
		return util.NewSuperbaseError(util.ErrWriteFileFailed, "failed to write, error: [%v]", err)
	}
	return nil
}
