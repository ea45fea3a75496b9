// Package sqlout renders converted tables as a self-contained SQL script of
// create statements and literal inserts.
package sqlout

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"superbase-golang/superbase/convert"
	"superbase-golang/superbase/db"
	"superbase-golang/superbase/util"
)

func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func CreateTable(t *convert.Table) string {
	columns := make([]string, 0, len(t.Columns))
	for _, column := range t.Columns {
		columns = append(columns, QuoteIdent(column.Name)+" "+column.Kind.String())
	}
	return "create table " + QuoteIdent(t.Name) + " (" + strings.Join(columns, ", ") + ")"
}

// Literal renders a value as an SQL literal. SQL has no literal for NaN or
// infinities, so those render as NULL like missing fields.
func Literal(value db.Value) string {
	switch value.Kind {
	case db.KindText:
		return "'" + strings.ReplaceAll(value.Text, "'", "''") + "'"
	case db.KindUint16, db.KindUint32:
		return strconv.FormatUint(uint64(value.Uint), 10)
	case db.KindDouble:
		if math.IsNaN(value.Real) || math.IsInf(value.Real, 0) {
			return "NULL"
		}
		return strconv.FormatFloat(value.Real, 'g', -1, 64)
	default:
		return "NULL"
	}
}

// ScriptWriter writes tables as one transaction of create and insert
// statements. It implements convert.Sink.
type ScriptWriter struct {
	w      *bufio.Writer
	began  bool
	tables int
	rows   int
}

func NewScriptWriter(w io.Writer) *ScriptWriter {
	return &ScriptWriter{
		w: bufio.NewWriter(w),
	}
}

func (s *ScriptWriter) WriteTable(t *convert.Table) error {
	if !s.began {
		s.began = true
		if _, err := s.w.WriteString("begin transaction;\n"); err != nil {
			return util.NewSuperbaseError(util.ErrWriteFileFailed, "failed to write, error: [%v]", err)
		}
	}

	if _, err := s.w.WriteString(CreateTable(t) + ";\n"); err != nil {
		return util.NewSuperbaseError(util.ErrWriteFileFailed, "failed to write, error: [%v]", err)
	}

	prefix := "insert into " + QuoteIdent(t.Name) + " values ("
	values := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range values {
			values[i] = "NULL"
			if i < len(row) {
				values[i] = Literal(row[i])
			}
		}
		if _, err := s.w.WriteString(prefix + strings.Join(values, ", ") + ");\n"); err != nil {
			return util.NewSuperbaseError(util.ErrWriteFileFailed, "failed to write, error: [%v]", err)
		}
		s.rows++
	}
	s.tables++
	return nil
}

// Close commits the transaction, if one was started, and flushes. It does not
// close the underlying writer.
func (s *ScriptWriter) Close() error {
	if s.began {
		if _, err := s.w.WriteString("commit;\n"); err != nil {
			return util.NewSuperbaseError(util.ErrWriteFileFailed, "failed to write, error: [%v]", err)
		}
	}
	if err := s.w.Flush(); err != nil {
		return util.NewSuperbaseError(util.ErrWriteFileFailed, "failed to write, error: [%v]", err)
	}
	return nil
}

func (s *ScriptWriter) Tables() int {
	return s.tables
}

func (s *ScriptWriter) Rows() int {
	return s.rows
}
