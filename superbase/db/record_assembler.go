package db

import (
	"superbase-golang/superbase/util"
)

// RecordAssembler walks the block arena and rebuilds one raw record per live
// first block, in the physical order of those first blocks.
type RecordAssembler struct {
	blocks  []Block
	cursor  int // index of the next block to inspect for an anchor
	anchors int
	err     error
}

func NewRecordAssembler(blocks []Block) *RecordAssembler {
	return &RecordAssembler{
		blocks: blocks,
	}
}

// Next
// 第一个返回值表示本次读取到的 record，只有当第二个返回值为 true 时才有意义
// Once an error is returned every later call returns it again.
func (ra *RecordAssembler) Next() (Slice, bool, error) {
	if ra.err != nil {
		return nil, false, ra.err
	}

	for ra.cursor < len(ra.blocks) {
		anchorIdx := ra.cursor
		ra.cursor++

		anchor := &ra.blocks[anchorIdx]
		if !anchor.First || anchor.Deleted {
			continue
		}

		record, err := ra.followChain(anchorIdx)
		if err != nil {
			ra.err = err
			return nil, false, err
		}
		ra.anchors++
		return record, true, nil
	}

	return nil, false, nil
}

// followChain concatenates the payloads starting at blocks[anchorIdx]. A chain
// can never be longer than the arena; reaching that length means it loops.
func (ra *RecordAssembler) followChain(anchorIdx int) (Slice, error) {
	blockCount := uint32(len(ra.blocks))
	anchor := &ra.blocks[anchorIdx]

	record := make(Slice, 0, len(anchor.Payload))
	record = append(record, anchor.Payload...)

	chainLength := uint32(1)
	next := anchor.Next
	for next > 0 {
		if next > blockCount {
			return nil, util.NewSuperbaseError(util.ErrDanglingBlockReference,
				"record %d (anchor block %d): link %d points to block %d, file has %d blocks",
				ra.anchors+1, anchorIdx+1, chainLength, next, blockCount)
		}
		if chainLength >= blockCount {
			return nil, util.NewSuperbaseError(util.ErrCycleDetected,
				"record %d (anchor block %d): chain exceeds %d blocks",
				ra.anchors+1, anchorIdx+1, blockCount)
		}

		block := &ra.blocks[next-1]
		record = append(record, block.Payload...)
		chainLength++
		next = block.Next
	}

	return record, nil
}

// Anchors is the number of records produced so far.
func (ra *RecordAssembler) Anchors() int {
	return ra.anchors
}

// AssembleRecords returns every live record, or the first chain error.
func AssembleRecords(blocks []Block) ([]Slice, error) {
	assembler := NewRecordAssembler(blocks)
	records := make([]Slice, 0)
	for {
		record, ok, err := assembler.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return records, nil
		}
		records = append(records, record)
	}
}
