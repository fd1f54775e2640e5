package storage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/san-kum/brownwork/internal/dynamo"
)

const (
	WorkColumn      = "w"
	DirectionColumn = "isForward"
)

// Header returns x_0..x_steps,w,isForward.
func Header(steps int) []string {
	header := make([]string, 0, steps+3)
	for i := 0; i <= steps; i++ {
		header = append(header, fmt.Sprintf("x_%d", i))
	}
	return append(header, WorkColumn, DirectionColumn)
}

// FormatRow renders r as one table record.
func FormatRow(r dynamo.Row) []string {
	record := make([]string, 0, len(r.Trajectory)+2)
	for _, x := range r.Trajectory {
		record = append(record, formatFloat(x))
	}
	return append(record, formatFloat(r.Work), r.Direction.Label())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Table writes a dataset as CSV. Rows go to a temporary file next to the
// destination, which is renamed into place by Close. A table that is
// aborted, or whose Close fails, never appears at the destination.
type Table struct {
	path    string
	tmp     *os.File
	buf     *bufio.Writer
	w       *csv.Writer
	columns int
	rows    int
	closed  bool
}

// CreateTable opens a table that will be published at path.
func CreateTable(path string) (*Table, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("table destination %s is a directory", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, err
	}

	buf := bufio.NewWriterSize(tmp, 1<<20)
	return &Table{
		path: path,
		tmp:  tmp,
		buf:  buf,
		w:    csv.NewWriter(buf),
	}, nil
}

func (t *Table) Path() string { return t.path }

// Rows is the number of data rows written so far.
func (t *Table) Rows() int { return t.rows }

func (t *Table) WriteHeader(steps int) error {
	if t.closed {
		return dynamo.ErrSinkClosed
	}
	if t.columns != 0 {
		return fmt.Errorf("%w: header already written", dynamo.ErrMalformedTable)
	}
	header := Header(steps)
	t.columns = len(header)
	return t.w.Write(header)
}

// WriteRow appends one row. The record is fully formatted before anything
// is handed to the writer.
func (t *Table) WriteRow(r dynamo.Row) error {
	if t.closed {
		return dynamo.ErrSinkClosed
	}
	record := FormatRow(r)
	if t.columns == 0 {
		return fmt.Errorf("%w: row written before header", dynamo.ErrMalformedTable)
	}
	if len(record) != t.columns {
		return fmt.Errorf("%w: row has %d columns, header has %d", dynamo.ErrMalformedTable, len(record), t.columns)
	}
	if err := t.w.Write(record); err != nil {
		return err
	}
	t.rows++
	return nil
}

// Close flushes the table and publishes it at its destination.
func (t *Table) Close() error {
	if t.closed {
		return dynamo.ErrSinkClosed
	}
	t.closed = true

	t.w.Flush()
	if err := t.w.Error(); err != nil {
		t.discard()
		return err
	}
	if err := t.buf.Flush(); err != nil {
		t.discard()
		return err
	}
	if err := t.tmp.Sync(); err != nil {
		t.discard()
		return err
	}
	if err := t.tmp.Close(); err != nil {
		os.Remove(t.tmp.Name())
		return err
	}
	if err := os.Rename(t.tmp.Name(), t.path); err != nil {
		os.Remove(t.tmp.Name())
		return err
	}
	return nil
}

// Abort drops everything written so far. It is safe to call after Close.
func (t *Table) Abort() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.discard()
}

func (t *Table) discard() error {
	t.tmp.Close()
	return os.Remove(t.tmp.Name())
}

// ScanTable reads a table and calls fn for every row in order. It returns
// the number of steps implied by the header.
func ScanTable(path string, fn func(dynamo.Row) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReadTable(f, fn)
}

func ReadTable(src io.Reader, fn func(dynamo.Row) error) (int, error) {
	r := csv.NewReader(bufio.NewReaderSize(src, 1<<20))
	r.ReuseRecord = true

	header, err := r.Read()
	if err == io.EOF {
		return 0, fmt.Errorf("%w: empty table", dynamo.ErrMalformedTable)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: header: %v", dynamo.ErrMalformedTable, err)
	}
	steps, err := parseHeader(header)
	if err != nil {
		return 0, err
	}

	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			return steps, nil
		}
		if err != nil {
			return steps, fmt.Errorf("%w: line %d: %v", dynamo.ErrMalformedTable, line+1, err)
		}
		line++

		row, err := parseRecord(record, steps)
		if err != nil {
			return steps, fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(row); err != nil {
			return steps, err
		}
	}
}

func parseHeader(header []string) (int, error) {
	if len(header) < 3 {
		return 0, fmt.Errorf("%w: header has %d columns", dynamo.ErrMalformedTable, len(header))
	}
	steps := len(header) - 3
	want := Header(steps)
	for i := range want {
		if header[i] != want[i] {
			return 0, fmt.Errorf("%w: column %d is %q, want %q", dynamo.ErrMalformedTable, i, header[i], want[i])
		}
	}
	return steps, nil
}

func parseRecord(record []string, steps int) (dynamo.Row, error) {
	traj := make(dynamo.Trajectory, steps+1)
	for i := range traj {
		v, err := strconv.ParseFloat(record[i], 64)
		if err != nil {
			return dynamo.Row{}, fmt.Errorf("%w: x_%d: %v", dynamo.ErrMalformedTable, i, err)
		}
		traj[i] = v
	}
	w, err := strconv.ParseFloat(record[steps+1], 64)
	if err != nil {
		return dynamo.Row{}, fmt.Errorf("%w: w: %v", dynamo.ErrMalformedTable, err)
	}
	dir, err := dynamo.ParseLabel(record[steps+2])
	if err != nil {
		return dynamo.Row{}, err
	}
	return dynamo.Row{Trajectory: traj, Work: w, Direction: dir}, nil
}
