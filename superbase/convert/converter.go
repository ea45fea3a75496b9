// Package convert turns catalogued .SBD/.SBF pairs into typed tables. Each
// pair converts on its own: a decode error fails only that table, and a failed
// table never yields partial rows.
package convert

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"superbase-golang/superbase/catalog"
	"superbase-golang/superbase/db"
	"superbase-golang/superbase/schema"
	"superbase-golang/superbase/util"
)

type Status uint8

const (
	StatusConverted Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConverted:
		return "converted"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// TableError ties a conversion error to the table it aborted.
type TableError struct {
	Table string
	Err   error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("table %s: %v", e.Table, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

// Result is the outcome for one pair. Table is set only when Status is
// StatusConverted. Err explains skipped and failed pairs.
type Result struct {
	Pair   *catalog.Pair
	Status Status
	Table  *Table
	Err    error
}

// Sink receives converted tables in catalog order.
type Sink interface {
	WriteTable(t *Table) error
}

type Converter struct {
	cfg       Config
	tokenizer db.TokenizerOptions
	inferrer  TypeInferrer
	logger    log.Logger
	metrics   *Metrics
}

func New(cfg Config, logger log.Logger, metrics *Metrics) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid conversion config: %w", err)
	}
	opts, err := cfg.TokenizerOptions()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &Converter{
		cfg:       cfg,
		tokenizer: opts,
		inferrer:  FirstCompleteRow{},
		logger:    log.With(logger, "component", "converter"),
		metrics:   metrics,
	}, nil
}

// WithInferrer replaces the column typing strategy.
func (c *Converter) WithInferrer(inferrer TypeInferrer) *Converter {
	c.inferrer = inferrer
	return c
}

// ConvertAll converts every pair, up to Config.Parallelism at a time. Results
// come back in the order of pairs whatever the outcome.
func (c *Converter) ConvertAll(ctx context.Context, fsys fs.FS, pairs []*catalog.Pair) []Result {
	results := make([]Result, len(pairs))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(c.cfg.Parallelism)
	for i, pair := range pairs {
		i, pair := i, pair
		group.Go(func() error {
			results[i] = c.convertOne(ctx, fsys, pair)
			return nil
		})
	}
	_ = group.Wait()

	return results
}

func (c *Converter) convertOne(ctx context.Context, fsys fs.FS, pair *catalog.Pair) Result {
	if err := pair.Validate(); err != nil {
		level.Warn(c.logger).Log("msg", "skipping incomplete pair", "table", pair.Name, "err", err)
		c.countTable(StatusSkipped)
		return Result{Pair: pair, Status: StatusSkipped, Err: err}
	}

	table, err := c.ConvertPair(ctx, fsys, pair)
	if err != nil {
		level.Error(c.logger).Log("msg", "table conversion failed", "table", pair.Name, "err", err)
		c.countTable(StatusFailed)
		return Result{Pair: pair, Status: StatusFailed, Err: err}
	}
	if table.Empty() {
		level.Info(c.logger).Log("msg", "skipping table without rows", "table", pair.Name)
		c.countTable(StatusSkipped)
		return Result{Pair: pair, Status: StatusSkipped, Err: fmt.Errorf("table %s has no rows", pair.Name)}
	}

	c.countTable(StatusConverted)
	return Result{Pair: pair, Status: StatusConverted, Table: table}
}

// ConvertPair decodes one complete pair. Any error is a *TableError and no
// table is returned with it. A table with no rows is not an error.
func (c *Converter) ConvertPair(ctx context.Context, fsys fs.FS, pair *catalog.Pair) (*Table, error) {
	start := time.Now()
	level.Debug(c.logger).Log("msg", "converting table", "table", pair.Name, "schema", pair.SchemaPath, "data", pair.DataPath)

	table, err := c.convertPair(ctx, fsys, pair)
	if err != nil {
		return nil, &TableError{Table: pair.Name, Err: err}
	}

	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.Rows.Add(float64(len(table.Rows)))
		c.metrics.Duration.Observe(elapsed.Seconds())
	}
	level.Info(c.logger).Log("msg", "converted table", "table", pair.Name,
		"rows", len(table.Rows), "columns", len(table.Columns),
		"blocks", table.Header.BlockCount, "block_size", table.Header.BlockSize, "checksum", fmt.Sprintf("%08x", table.Checksum),
		"duration", elapsed)
	return table, nil
}

func (c *Converter) convertPair(ctx context.Context, fsys fs.FS, pair *catalog.Pair) (*Table, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}

	fields, err := c.readFields(fsys, pair.SchemaPath)
	if err != nil {
		return nil, err
	}

	header, blocks, err := c.readBlocks(fsys, pair)
	if err != nil {
		return nil, err
	}

	tokenizer := db.NewFieldTokenizer(c.tokenizer)
	assembler := db.NewRecordAssembler(blocks)
	rows := make([]db.Row, 0, min(header.RecordCount, uint32(len(blocks))))
	var checksum uint32
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, ok, err := assembler.Next()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pair.DataPath, err)
		}
		if !ok {
			break
		}

		row, err := tokenizer.Tokenize(record, len(fields))
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", pair.DataPath, len(rows)+1, err)
		}
		checksum = util.Hash(record, checksum)
		rows = append(rows, row)
	}

	if header.RecordCount != uint32(len(rows)) {
		level.Debug(c.logger).Log("msg", "record count differs from header", "table", pair.Name,
			"header", header.RecordCount, "decoded", len(rows))
	}

	columns := c.inferrer.InferColumns(fields, rows)
	for i := range rows {
		rows[i] = rows[i].Pad(len(fields))
	}

	return &Table{
		Name:     pair.Name,
		Columns:  columns,
		Rows:     rows,
		Header:   header,
		Checksum: checksum,
	}, nil
}

func (c *Converter) readFields(fsys fs.FS, name string) ([]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, util.NewSuperbaseError(util.ErrReadFileFailed, "failed to open %s, error: [%v]", name, err)
	}
	defer f.Close()

	fields, err := schema.ParseFields(f, c.tokenizer.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return fields, nil
}

func (c *Converter) readBlocks(fsys fs.FS, pair *catalog.Pair) (db.Header, []db.Block, error) {
	f, err := fsys.Open(pair.DataPath)
	if err != nil {
		return db.Header{}, nil, util.NewSuperbaseError(util.ErrReadFileFailed, "failed to open %s, error: [%v]", pair.DataPath, err)
	}
	defer f.Close()

	reporter := &tableReporter{logger: c.logger, metrics: c.metrics, table: pair.Name}
	reader := db.NewBlockReader(bufio.NewReader(f), reporter)
	header, blocks, err := reader.ReadBlocks()
	if c.metrics != nil {
		c.metrics.BlocksRead.Add(float64(reader.BlocksRead()))
	}
	if err != nil {
		return db.Header{}, nil, fmt.Errorf("%s at offset %d: %w", pair.DataPath, reader.Offset(), err)
	}
	return header, blocks, nil
}

func (c *Converter) countTable(status Status) {
	if c.metrics != nil {
		c.metrics.Tables.WithLabelValues(status.String()).Inc()
	}
}

// WriteTables hands every converted table to sink, in result order, and
// returns how many were written.
func WriteTables(sink Sink, results []Result) (int, error) {
	written := 0
	for _, result := range results {
		if result.Status != StatusConverted {
			continue
		}
		if err := sink.WriteTable(result.Table); err != nil {
			return written, &TableError{Table: result.Table.Name, Err: err}
		}
		written++
	}
	return written, nil
}

type tableReporter struct {
	logger  log.Logger
	metrics *Metrics
	table   string
}

func (r *tableReporter) Corruption(n uint32, err error) {
	if r.metrics != nil {
		r.metrics.DroppedBytes.Add(float64(n))
	}
	level.Warn(r.logger).Log("msg", "block reader report", "table", r.table, "dropped_bytes", n, "err", err)
}
