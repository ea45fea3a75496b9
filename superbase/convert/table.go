package convert

import (
	"fmt"

	"superbase-golang/superbase/db"
)

type ColumnKind uint8

const (
	ColumnText ColumnKind = iota
	ColumnInteger
	ColumnReal
)

func (k ColumnKind) String() string {
	switch k {
	case ColumnText:
		return "text"
	case ColumnInteger:
		return "integer"
	case ColumnReal:
		return "real"
	default:
		return fmt.Sprintf("ColumnKind(%d)", uint8(k))
	}
}

// ColumnKindOf maps a value kind onto the column kind that stores it. Null
// carries no type information and maps to text.
func ColumnKindOf(kind db.Kind) ColumnKind {
	switch kind {
	case db.KindUint16, db.KindUint32:
		return ColumnInteger
	case db.KindDouble:
		return ColumnReal
	default:
		return ColumnText
	}
}

type Column struct {
	Name string
	Kind ColumnKind
}

// Table is one fully decoded .SBF/.SBD pair. Every row has exactly
// len(Columns) values; fields missing from a short record are null.
type Table struct {
	Name    string
	Columns []Column
	Rows    []db.Row
	Header  db.Header
	// Checksum is a murmur3 chain over the raw records in row order.
	Checksum uint32
}

func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

func (t *Table) FieldNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, column := range t.Columns {
		names = append(names, column.Name)
	}
	return names
}

// TypeInferrer picks the column kinds of a table from its decoded rows. Rows
// are passed before short ones are padded.
type TypeInferrer interface {
	InferColumns(fields []string, rows []db.Row) []Column
}

// FirstCompleteRow types columns after the first row carrying every field, or
// the first row when none does. Columns the sample row does not reach are text.
type FirstCompleteRow struct{}

func (FirstCompleteRow) InferColumns(fields []string, rows []db.Row) []Column {
	var sample db.Row
	if len(rows) > 0 {
		sample = rows[0]
	}
	for _, row := range rows {
		if len(row) == len(fields) {
			sample = row
			break
		}
	}

	columns := make([]Column, len(fields))
	for i, name := range fields {
		columns[i] = Column{Name: name, Kind: ColumnText}
		if i < len(sample) {
			columns[i].Kind = ColumnKindOf(sample[i].Kind)
		}
	}
	return columns
}
