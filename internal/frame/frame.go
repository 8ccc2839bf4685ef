// Package frame holds the tabular record set the pipeline enriches:
// ordered named columns over string cells, with CSV read/write.
package frame

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
)

// Row is one record keyed by column name.
type Row map[string]string

// Frame is an ordered set of rows sharing one column list. Column order
// is preserved from input to output; enrichment appends new columns in
// first-set order.
type Frame struct {
	Columns []string
	Rows    []Row
}

// New creates an empty frame with the given columns.
func New(columns ...string) *Frame {
	return &Frame{Columns: columns}
}

// HasColumn reports whether the frame carries the named column.
func (f *Frame) HasColumn(name string) bool {
	for _, c := range f.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the subset of names absent from the frame.
func (f *Frame) MissingColumns(names ...string) []string {
	var missing []string
	for _, n := range names {
		if !f.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Append adds a row. Cells for unknown columns are ignored on write.
func (f *Frame) Append(row Row) {
	f.Rows = append(f.Rows, row)
}

// Set writes a cell, registering the column on first use.
func (f *Frame) Set(rowIdx int, col, val string) {
	if !f.HasColumn(col) {
		f.Columns = append(f.Columns, col)
	}
	f.Rows[rowIdx][col] = val
}

// Float parses a row's cell as a float64.
func (r Row) Float(col string) (float64, error) {
	v, err := strconv.ParseFloat(r[col], 64)
	if err != nil {
		return 0, eris.Wrapf(err, "frame: column %q is not numeric", col)
	}
	return v, nil
}

// ReadCSV parses a header-led CSV stream into a frame.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("frame: empty input")
	}
	if err != nil {
		return nil, eris.Wrap(err, "frame: read header")
	}

	f := New(header...)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return f, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "frame: read row")
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		f.Append(row)
	}
}

// WriteCSV writes the frame as header + rows in stable column order.
func (f *Frame) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Columns); err != nil {
		return eris.Wrap(err, "frame: write header")
	}
	record := make([]string, len(f.Columns))
	for _, row := range f.Rows {
		for i, col := range f.Columns {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			return eris.Wrap(err, "frame: write row")
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "frame: flush")
}
