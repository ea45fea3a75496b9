package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"superbase-golang/superbase/db"
)

const (
	demoTable     = "inventory"
	demoBlockSize = 128
)

var demoSchema = strings.Join([]string{
	"INVENTORY",
	"ITEM;T;30",
	"QTY;N;2",
	"STOCK;N;4",
	"PRICE;N;8",
	"NOTE;T;200",
	"    indexed",
	"",
}, "\r\n") + "\r\n"

var demoRows = []db.Row{
	{db.TextValue("Widget"), db.Uint16Value(12), db.Uint32Value(120000), db.DoubleValue(2.5), db.TextValue("")},
	{db.TextValue("Sprocket"), db.Uint16Value(0), db.Uint32Value(7), db.DoubleValue(11.75), db.TextValue("back order")},
	{db.TextValue("Gear"), db.Uint16Value(3), db.Uint32Value(42), db.DoubleValue(0.125),
		db.TextValue(strings.Repeat("long note spanning several blocks. ", 8))},
}

// writeDemo writes inventory.sbd and inventory.sbf into dir. The data file
// holds a deleted record between the live ones.
func writeDemo(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, demoTable+".sbd"), []byte(demoSchema), 0o644); err != nil {
		return err
	}

	records := make([]db.Slice, 0, len(demoRows)+1)
	deleted := 0
	for i, row := range demoRows {
		record, err := encodeRow(row)
		if err != nil {
			return err
		}
		records = append(records, record)
		if i == 0 {
			record, err = encodeRow(db.Row{db.TextValue("Discontinued"), db.Uint16Value(1)})
			if err != nil {
				return err
			}
			records = append(records, record)
			deleted = len(records) - 1
		}
	}

	f, err := os.Create(filepath.Join(dir, demoTable+".sbf"))
	if err != nil {
		return err
	}
	writer, err := db.NewBlockWriter(bufio.NewWriter(f), demoBlockSize)
	if err != nil {
		f.Close()
		return err
	}
	for i, record := range records {
		if i == deleted {
			writer.AddDeletedRecord(record)
		} else {
			writer.AddRecord(record)
		}
	}
	if err := writer.Finish(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encodeRow(row db.Row) (db.Slice, error) {
	fw := db.NewFieldWriter()
	for _, value := range row {
		if err := fw.AppendValue(value); err != nil {
			return nil, err
		}
	}
	return fw.Bytes(), nil
}
