// Package table stores calibration and visibility columns as a directory of
// LZ4-compressed column files described by a YAML descriptor.
//
// A table is opened read-only unless WithWritable is given. Columns written
// with PutColumn stay pending until Flush (or Close) persists them, and
// DataChanged reports whether such a write is outstanding.
package table

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pierrec/lz4/v4"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640
)

// Sentinel errors.
var (
	ErrReadOnly          = errors.New("table opened read-only")
	ErrClosed            = errors.New("table is closed")
	ErrNoColumn          = errors.New("no such column")
	ErrColumnMismatch    = errors.New("column type or shape mismatch")
	ErrInvalidDescriptor = errors.New("invalid table descriptor")
	ErrExists            = errors.New("table already exists")
	ErrNoTable           = errors.New("table does not exist")
	// ErrWriteBack reports that a write-back was expected but nothing is pending.
	ErrWriteBack         = errors.New("no data change pending on table")
)

// Option configures Open.
type Option func(*Table)

// WithWritable opens the table for writing.
func WithWritable() Option {
	return func(t *Table) {
		t.writable = true
	}
}

// Table is an open table directory.
type Table struct {
	path     string
	desc     *Descriptor
	pending  map[string]Column
	writable bool
	closed   bool
}

// Open opens an existing table directory.
func Open(path string, opts ...Option) (*Table, error) {
	desc, err := ReadDescriptor(path)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", path, err)
	}

	t := &Table{
		path:    path,
		desc:    desc,
		pending: make(map[string]Column),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// Create makes a new writable table with the given columns and flushes it.
func Create(path string, columns map[string]Column) (*Table, error) {
	_, statErr := os.Stat(path)
	if statErr == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, path)
	}

	mkErr := os.MkdirAll(path, dirPerm)
	if mkErr != nil {
		return nil, fmt.Errorf("create table dir: %w", mkErr)
	}

	t := &Table{
		path:     path,
		desc:     &Descriptor{Format: FormatVersion},
		pending:  make(map[string]Column),
		writable: true,
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		putErr := t.PutColumn(name, columns[name])
		if putErr != nil {
			return nil, putErr
		}
	}

	flushErr := t.Flush()
	if flushErr != nil {
		return nil, flushErr
	}

	return t, nil
}

// Path returns the table directory.
func (t *Table) Path() string {
	return t.path
}

// Descriptor returns a copy of the column descriptions.
func (t *Table) Descriptor() Descriptor {
	cols := make([]ColumnDesc, len(t.desc.Columns))
	for i, c := range t.desc.Columns {
		c.Shape = slices.Clone(c.Shape)
		cols[i] = c
	}

	return Descriptor{Format: t.desc.Format, Columns: cols}
}

// Columns returns the names of the stored columns in descriptor order.
func (t *Table) Columns() []string {
	names := make([]string, 0, len(t.desc.Columns))
	for _, c := range t.desc.Columns {
		names = append(names, c.Name)
	}

	return names
}

// GetColumn reads the named column as an Array of T.
// Pending writes are visible before they are flushed.
func GetColumn[T Element](t *Table, name string) (*Array[T], error) {
	if t.closed {
		return nil, ErrClosed
	}

	if col, ok := t.pending[name]; ok {
		arr, typed := col.(*Array[T])
		if !typed {
			return nil, fmt.Errorf("%w: %s is %s", ErrColumnMismatch, name, col.DType())
		}

		return arr.Clone(), nil
	}

	cd, ok := t.desc.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
	}

	if cd.DType != dtypeOf[T]() {
		return nil, fmt.Errorf("%w: %s is %s, requested %s", ErrColumnMismatch, name, cd.DType, dtypeOf[T]())
	}

	f, err := os.Open(filepath.Join(t.path, cd.File))
	if err != nil {
		return nil, fmt.Errorf("open column %s: %w", name, err)
	}
	defer f.Close()

	arr, err := decodeArray[T](lz4.NewReader(f), cd.Shape)
	if err != nil {
		return nil, fmt.Errorf("read column %s: %w", name, err)
	}

	return arr, nil
}

// GetComplex reads a complex64 column.
func (t *Table) GetComplex(name string) (*Array[complex64], error) {
	return GetColumn[complex64](t, name)
}

// GetBool reads a bool column.
func (t *Table) GetBool(name string) (*Array[bool], error) {
	return GetColumn[bool](t, name)
}

// GetInt32 reads an int32 column.
func (t *Table) GetInt32(name string) (*Array[int32], error) {
	return GetColumn[int32](t, name)
}

// PutColumn stages col for writing under name. An existing column must keep
// its element type and shape.
func (t *Table) PutColumn(name string, col Column) error {
	if t.closed {
		return ErrClosed
	}

	if !t.writable {
		return fmt.Errorf("put %s: %w", name, ErrReadOnly)
	}

	validErr := col.validate()
	if validErr != nil {
		return fmt.Errorf("put %s: %w", name, validErr)
	}

	if cd, ok := t.desc.Column(name); ok {
		if cd.DType != col.DType() || !slices.Equal(cd.Shape, col.Dims()) {
			return fmt.Errorf("%w: %s is %s%v, got %s%v",
				ErrColumnMismatch, name, cd.DType, cd.Shape, col.DType(), col.Dims())
		}
	}

	t.pending[name] = col.clone()

	return nil
}

// DataChanged reports whether column writes are pending since the last flush.
func (t *Table) DataChanged() bool {
	return len(t.pending) > 0
}

// Flush persists pending columns and the descriptor.
func (t *Table) Flush() error {
	if t.closed {
		return ErrClosed
	}

	if !t.writable {
		return ErrReadOnly
	}

	names := make([]string, 0, len(t.pending))
	for name := range t.pending {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		col := t.pending[name]

		cd := ColumnDesc{
			Name:  name,
			DType: col.DType(),
			Shape: col.Dims(),
			File:  columnFileName(name),
		}

		writeErr := writeColumn(filepath.Join(t.path, cd.File), col)
		if writeErr != nil {
			return fmt.Errorf("flush column %s: %w", name, writeErr)
		}

		t.desc.upsert(cd)
	}

	descErr := writeDescriptor(t.path, t.desc)
	if descErr != nil {
		return fmt.Errorf("flush descriptor: %w", descErr)
	}

	clear(t.pending)

	return nil
}

// Close flushes pending writes of a writable table and releases it.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}

	var flushErr error
	if t.writable && t.DataChanged() {
		flushErr = t.Flush()
	}

	t.closed = true

	return flushErr
}

// Size returns the on-disk size of the named column file.
func (t *Table) Size(name string) (int64, error) {
	cd, ok := t.desc.Column(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoColumn, name)
	}

	info, err := os.Stat(filepath.Join(t.path, cd.File))
	if err != nil {
		return 0, fmt.Errorf("stat column %s: %w", name, err)
	}

	return info.Size(), nil
}

func writeColumn(path string, col Column) error {
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("create column file: %w", err)
	}

	zw := lz4.NewWriter(f)

	encodeErr := col.encode(zw)
	if encodeErr != nil {
		f.Close()

		return encodeErr
	}

	closeErr := zw.Close()
	if closeErr != nil {
		f.Close()

		return fmt.Errorf("finish lz4 frame: %w", closeErr)
	}

	fileErr := f.Close()
	if fileErr != nil {
		return fmt.Errorf("close column file: %w", fileErr)
	}

	renameErr := os.Rename(tmp, path)
	if renameErr != nil {
		return fmt.Errorf("rename column file: %w", renameErr)
	}

	return nil
}
