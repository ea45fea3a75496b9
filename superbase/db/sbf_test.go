package db

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"superbase-golang/superbase/util"
)

const kTestBlockSize uint16 = 64

type StringDest struct {
	data []byte
}

func NewStringDest() *StringDest {
	return &StringDest{
		data: make([]byte, 0),
	}
}

func (sd *StringDest) Write(p []byte) (n int, err error) {
	sd.data = append(sd.data, p...)
	return len(p), nil
}

func (sd *StringDest) Flush() error {
	return nil
}

func (sd *StringDest) Len() int {
	return len(sd.data)
}

func (sd *StringDest) Data() []byte {
	return sd.data
}

// SetBlockWord overwrites the header word of the 1-based data block idx.
func (sd *StringDest) SetBlockWord(blockSize uint16, idx int, word uint32) {
	util.EncodeFixedUint32(sd.data[idx*int(blockSize):], word)
}

func (sd *StringDest) ShrinkSize(size int) {
	sd.data = sd.data[:len(sd.data)-size]
}

type StringSource struct {
	source *bytes.Reader

	forceErrorAfter int
	read            int
}

func NewStringSource(data []byte) *StringSource {
	return &StringSource{
		source:          bytes.NewReader(data),
		forceErrorAfter: -1,
	}
}

func (ss *StringSource) Read(p []byte) (n int, err error) {
	if ss.forceErrorAfter >= 0 && ss.read >= ss.forceErrorAfter {
		return 0, fmt.Errorf("read error")
	}
	n, err = ss.source.Read(p)
	ss.read += n
	return n, err
}

// ForceError makes every read after the first n bytes fail.
func (ss *StringSource) ForceError(n int) {
	ss.forceErrorAfter = n
}

type ReportCollector struct {
	droppedBytes uint32
	reports      int
	err          error
}

func NewReportCollector() *ReportCollector {
	return &ReportCollector{}
}

func (rc *ReportCollector) Corruption(n uint32, err error) {
	rc.droppedBytes += n
	rc.reports++
	rc.err = err
}

func (rc *ReportCollector) DroppedBytes() uint32 {
	return rc.droppedBytes
}

func (rc *ReportCollector) Error() error {
	return rc.err
}

type SbfTest struct {
	t *testing.T

	dest     *StringDest
	writer   *BlockWriter
	reporter *ReportCollector
	written  bool
}

func NewSbfTest(t *testing.T, blockSize uint16) *SbfTest {
	dest := NewStringDest()
	writer, err := NewBlockWriter(dest, blockSize)
	require.Nil(t, err)

	return &SbfTest{
		t:        t,
		dest:     dest,
		writer:   writer,
		reporter: NewReportCollector(),
	}
}

func (st *SbfTest) Write(msg string) uint32 {
	assert.Falsef(st.t, st.written, "Write after Finish")
	return st.writer.AddRecord([]byte(msg))
}

func (st *SbfTest) WriteDeleted(msg string) uint32 {
	assert.Falsef(st.t, st.written, "Write after Finish")
	return st.writer.AddDeletedRecord([]byte(msg))
}

func (st *SbfTest) Finish() {
	if !st.written {
		st.written = true
		assert.Nil(st.t, st.writer.Finish())
	}
}

func (st *SbfTest) Blocks() (Header, []Block, error) {
	st.Finish()
	reader := NewBlockReader(NewStringSource(st.dest.Data()), st.reporter)
	return reader.ReadBlocks()
}

// Records decodes the written file and returns every record with the zero
// padding of its last block stripped.
func (st *SbfTest) Records() ([]string, error) {
	_, blocks, err := st.Blocks()
	if err != nil {
		return nil, err
	}
	records, err := AssembleRecords(blocks)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(records))
	for _, record := range records {
		result = append(result, string(bytes.TrimRight(record, "\x00")))
	}
	return result, nil
}

func BigString(partialString string, n int) string {
	data := make([]byte, 0, n+len(partialString))
	partial := []byte(partialString)
	for len(data) < n {
		data = append(data, partial...)
	}
	data = data[:n]
	return string(data)
}

func TestEmptyFile(t *testing.T) {
	reader := NewBlockReader(NewStringSource(nil), nil)
	_, _, err := reader.ReadBlocks()
	assert.Equal(t, util.ErrTruncatedHeader, util.GetErrorNo(err))
}

func TestTruncatedHeader(t *testing.T) {
	reader := NewBlockReader(NewStringSource(make([]byte, 30)), nil)
	_, err := reader.ReadHeader()
	assert.Equal(t, util.ErrTruncatedHeader, util.GetErrorNo(err))
	assert.True(t, util.IsFormatError(err))
	assert.Equal(t, uint64(30), reader.Offset())
}

func TestTruncatedHeaderPadding(t *testing.T) {
	raw := make([]byte, 70)
	util.EncodeFixedUint16(raw[kBlockSizeOffset:], 128)
	reader := NewBlockReader(NewStringSource(raw), nil)
	_, err := reader.ReadHeader()
	assert.Equal(t, util.ErrTruncatedHeader, util.GetErrorNo(err))
}

func TestInvalidBlockSize(t *testing.T) {
	for _, blockSize := range []uint16{0, 4, 5, 59} {
		raw := make([]byte, 256)
		util.EncodeFixedUint16(raw[kBlockSizeOffset:], blockSize)
		reader := NewBlockReader(NewStringSource(raw), nil)
		_, err := reader.ReadHeader()
		assert.Equal(t, util.ErrInvalidBlockSize, util.GetErrorNo(err), "block size %d", blockSize)
	}

	_, err := NewBlockWriter(NewStringDest(), 59)
	assert.Equal(t, util.ErrInvalidBlockSize, util.GetErrorNo(err))
}

func TestMinimalBlockSize(t *testing.T) {
	st := NewSbfTest(t, 60)
	st.Write("hello world")
	records, err := st.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world"}, records)
}

func TestHeaderOnly(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	header, blocks, err := st.Blocks()
	require.NoError(t, err)
	assert.Equal(t, Header{BlockSize: kTestBlockSize}, header)
	assert.Empty(t, blocks)
	assert.Equal(t, 0, st.reporter.reports)
}

func TestReadHeaderFields(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.Write("foo")
	st.Write(BigString("bar", 100))
	st.WriteDeleted("baz")

	header, blocks, err := st.Blocks()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), header.RecordCount)
	assert.Equal(t, uint32(4), header.BlockCount)
	assert.Equal(t, kTestBlockSize, header.BlockSize)
	assert.Equal(t, uint32(60), header.PayloadSize())
	require.Len(t, blocks, 4)

	assert.Equal(t, Block{First: true, Next: 0}, Block{First: blocks[0].First, Deleted: blocks[0].Deleted, Next: blocks[0].Next})
	assert.True(t, blocks[1].First)
	assert.Equal(t, uint32(3), blocks[1].Next)
	assert.False(t, blocks[2].First)
	assert.Equal(t, uint32(0), blocks[2].Next)
	assert.True(t, blocks[3].First)
	assert.True(t, blocks[3].Deleted)
	for _, block := range blocks {
		assert.Len(t, block.Payload, 60)
	}
}

func TestCorruptedBlockWord(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.Write("foo")
	st.Write("bar")
	st.Finish()
	// second record now claims to continue in a block that does not exist
	st.dest.SetBlockWord(kTestBlockSize, 2, encodeBlockWord(true, false, 3))

	_, err := st.Records()
	assert.Equal(t, util.ErrDanglingBlockReference, util.GetErrorNo(err))

	// and with the deleted flag set it is skipped entirely
	st.dest.SetBlockWord(kTestBlockSize, 2, encodeBlockWord(true, true, 3))
	records, err := st.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, records)
}

func TestBlockWord(t *testing.T) {
	first, deleted, next := decodeBlockWord(0xC0000005)
	assert.True(t, first)
	assert.True(t, deleted)
	assert.Equal(t, uint32(5), next)

	first, deleted, next = decodeBlockWord(0x3FFFFFFF)
	assert.False(t, first)
	assert.False(t, deleted)
	assert.Equal(t, uint32(0x3FFFFFFF), next)

	assert.Equal(t, uint32(0x80000000), encodeBlockWord(true, false, 0))
	assert.Equal(t, uint32(0x40000007), encodeBlockWord(false, true, 7))
	// next never spills into the flag bits
	assert.Equal(t, uint32(0x3FFFFFFF), encodeBlockWord(false, false, 0xFFFFFFFF))
}

func TestShortTrailingBlockIsIgnored(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.Write("foo")
	st.Write("bar")
	st.Finish()
	st.dest.ShrinkSize(1)

	_, blocks, err := st.Blocks()
	require.NoError(t, err)
	assert.Len(t, blocks, 1)
	assert.Equal(t, uint32(kTestBlockSize)-1, st.reporter.DroppedBytes())
	assert.Equal(t, util.ErrBlockCountMismatch, util.GetErrorNo(st.reporter.Error()))
	assert.Equal(t, 2, st.reporter.reports)
}

func TestShortTrailingBlockReport(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.Write("foo")
	st.Finish()
	st.dest.data = append(st.dest.data, 1, 2, 3)

	reader := NewBlockReader(NewStringSource(st.dest.Data()), st.reporter)
	_, ok, err := reader.ReadBlock()
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = reader.ReadBlock()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint32(3), st.reporter.DroppedBytes())
	assert.Equal(t, util.ErrShortTrailingBlock, util.GetErrorNo(st.reporter.Error()))

	// stays at end of stream
	_, ok, err = reader.ReadBlock()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint32(1), reader.BlocksRead())
}

func TestReadError(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.Write("foo")
	st.Finish()

	source := NewStringSource(st.dest.Data())
	source.ForceError(int(kTestBlockSize))
	reader := NewBlockReader(source, st.reporter)
	_, _, err := reader.ReadBlocks()
	assert.Equal(t, util.ErrReadFileFailed, util.GetErrorNo(err))
	assert.False(t, util.IsFormatError(err))
}

func TestReadWrite(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.Write("foo")
	st.Write("bar")
	st.Write("")
	st.Write("xxxx")
	records, err := st.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar", "", "xxxx"}, records)
}

func TestFragmentation(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.Write("small")
	st.Write(BigString("medium", 500))
	st.Write(BigString("large", 1000))
	records, err := st.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{"small", BigString("medium", 500), BigString("large", 1000)}, records)
}

func TestDeletedRecordsAreSkipped(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.Write("one")
	st.WriteDeleted(BigString("gone", 300))
	st.Write("two")
	st.WriteDeleted("also gone")
	st.Write(BigString("three", 130))
	records, err := st.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", BigString("three", 130)}, records)
}

func TestExactPayloadMultiple(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	payload := BigString("abcdef", 120)
	st.Write(payload)

	_, blocks, err := st.Blocks()
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	records, err := AssembleRecords(blocks)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, payload, string(records[0]))
}

func TestRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(301))
	for _, blockSize := range []uint16{60, 64, 97, 512} {
		st := NewSbfTest(t, blockSize)
		payloadSize := int(blockSize) - 4

		var expected [][]byte
		for i := 0; i < 50; i++ {
			// multiples of the payload size survive padding byte for byte
			record := make([]byte, payloadSize*(1+rnd.Intn(5)))
			rnd.Read(record)
			expected = append(expected, record)
			st.writer.AddRecord(record)
		}

		_, blocks, err := st.Blocks()
		require.NoError(t, err)
		records, err := AssembleRecords(blocks)
		require.NoError(t, err)
		require.Len(t, records, len(expected))
		for i := range expected {
			assert.Equal(t, expected[i], []byte(records[i]), "block size %d record %d", blockSize, i)
		}
	}
}

func TestInterleavedChains(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	// two records whose blocks alternate: A1 B1 A2 B2
	st.writer.AddBlock(Block{First: true, Next: 3, Payload: []byte(BigString("a", 60))})
	st.writer.AddBlock(Block{First: true, Next: 4, Payload: []byte(BigString("b", 60))})
	st.writer.AddBlock(Block{Payload: []byte("A")})
	st.writer.AddBlock(Block{Payload: []byte("B")})

	records, err := st.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{BigString("a", 60) + "A", BigString("b", 60) + "B"}, records)
}

func TestChainFollowsLinksBackwards(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.writer.AddBlock(Block{Payload: []byte("tail")})
	st.writer.AddBlock(Block{First: true, Next: 1, Payload: []byte(BigString("h", 60))})

	records, err := st.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{BigString("h", 60) + "tail"}, records)
}

func TestDanglingBlockReference(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.Write("fine")
	st.writer.AddBlock(Block{First: true, Next: 9, Payload: []byte("broken")})
	st.Write("never reached")

	records, err := st.Records()
	assert.Nil(t, records)
	assert.Equal(t, util.ErrDanglingBlockReference, util.GetErrorNo(err))
	assert.True(t, util.IsFormatError(err))
	assert.Contains(t, err.Error(), "anchor block 2")
}

func TestCycleDetected(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.writer.AddBlock(Block{First: true, Next: 2, Payload: []byte("a")})
	st.writer.AddBlock(Block{Next: 1, Payload: []byte("b")})

	_, err := st.Records()
	assert.Equal(t, util.ErrCycleDetected, util.GetErrorNo(err))
}

func TestSelfLoop(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.writer.AddBlock(Block{First: true, Next: 1, Payload: []byte("a")})

	_, err := st.Records()
	assert.Equal(t, util.ErrCycleDetected, util.GetErrorNo(err))
}

func TestChainSpanningEveryBlock(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	st.writer.AddBlock(Block{First: true, Next: 2, Payload: []byte(BigString("x", 60))})
	st.writer.AddBlock(Block{Next: 3, Payload: []byte(BigString("y", 60))})
	st.writer.AddBlock(Block{Payload: []byte("z")})

	records, err := st.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{BigString("x", 60) + BigString("y", 60) + "z"}, records)
}

func TestAssemblerErrorIsSticky(t *testing.T) {
	blocks := []Block{
		{First: true, Next: 5, Payload: []byte("a")},
		{First: true, Payload: []byte("b")},
	}
	assembler := NewRecordAssembler(blocks)
	_, ok, err := assembler.Next()
	assert.False(t, ok)
	assert.Error(t, err)

	_, ok, err2 := assembler.Next()
	assert.False(t, ok)
	assert.Equal(t, err, err2)
	assert.Equal(t, 0, assembler.Anchors())
}

func TestAssemblerAnchorsOnly(t *testing.T) {
	// continuation blocks are never anchors, even when nothing links to them
	blocks := []Block{
		{Payload: []byte("orphan")},
		{First: true, Deleted: true, Next: 3, Payload: []byte("dead")},
		{Payload: []byte("dead tail")},
		{First: true, Payload: []byte("live")},
	}
	records, err := AssembleRecords(blocks)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "live", string(records[0]))
}

func TestManyRecords(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	for i := 0; i < 10000; i++ {
		st.Write(fmt.Sprintf("%d.", i))
	}
	records, err := st.Records()
	require.NoError(t, err)
	require.Len(t, records, 10000)
	for i := 0; i < 10000; i++ {
		assert.Equal(t, fmt.Sprintf("%d.", i), records[i])
	}
}

func TestEndToEndSingleBlock(t *testing.T) {
	raw := make([]byte, 128)
	util.EncodeFixedUint32(raw[12:], 1)
	util.EncodeFixedUint32(raw[16:], 1)
	util.EncodeFixedUint16(raw[20:], 64)
	util.EncodeFixedUint32(raw[64:], 0x80000000)
	copy(raw[68:], "X\x00")

	reporter := NewReportCollector()
	header, blocks, err := NewBlockReader(NewStringSource(raw), reporter).ReadBlocks()
	require.NoError(t, err)
	assert.Equal(t, Header{RecordCount: 1, BlockCount: 1, BlockSize: 64}, header)
	assert.Equal(t, 0, reporter.reports)

	records, err := AssembleRecords(blocks)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "X\x00"+strings.Repeat("\x00", 58), string(records[0]))

	row, err := NewFieldTokenizer(TokenizerOptions{}).Tokenize(records[0], 1)
	require.NoError(t, err)
	assert.Equal(t, Row{TextValue("X")}, row)
}

func TestFieldWriterReusedAcrossRecords(t *testing.T) {
	st := NewSbfTest(t, kTestBlockSize)
	fw := NewFieldWriter()
	for _, text := range []string{"first", "second", BigString("third", 150)} {
		fw.Reset()
		require.Nil(t, fw.AppendText([]byte(text)))
		st.writer.AddRecord(fw.Bytes())
	}

	records, err := st.Records()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", BigString("third", 150)}, records)
}

type failingDest struct{}

func (failingDest) Write(p []byte) (int, error) {
	return 0, errors.New("volume 100% full")
}

func (failingDest) Flush() error {
	return nil
}

func TestWriteErrorKeepsMessage(t *testing.T) {
	writer, err := NewBlockWriter(failingDest{}, kTestBlockSize)
	require.NoError(t, err)
	writer.AddRecord([]byte("x"))

	werr := writer.Finish()
	require.NotNil(t, werr)
	assert.Equal(t, util.ErrWriteFileFailed, werr.ErrorNo())
	assert.Contains(t, werr.Error(), "volume 100% full")
	assert.NotContains(t, werr.Error(), "MISSING")
}
