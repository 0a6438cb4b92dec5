package table

import (
	"encoding/binary"
	"fmt"
	"io"
	"slices"
)

// DType names the element type stored in a column file.
type DType string

// Supported column element types.
const (
	DTypeComplex64 DType = "complex64"
	DTypeBool      DType = "bool"
	DTypeInt32     DType = "int32"
)

// Element is the set of Go types a column can hold.
type Element interface {
	complex64 | bool | int32
}

// Column is a typed N-dimensional array that can be written to a table.
type Column interface {
	// DType returns the on-disk element type.
	DType() DType
	// Dims returns a copy of the array shape.
	Dims() []int

	encode(w io.Writer) error
	clone() Column
	validate() error
}

// Array is a dense row-major N-dimensional array.
type Array[T Element] struct {
	Shape []int
	Data  []T
}

// NewArray allocates a zero-filled array with the given shape.
func NewArray[T Element](shape ...int) *Array[T] {
	return &Array[T]{
		Shape: slices.Clone(shape),
		Data:  make([]T, numElements(shape)),
	}
}

// Len returns the number of elements.
func (a *Array[T]) Len() int {
	return len(a.Data)
}

// Offset returns the flat index of the element at idx.
// Panics when the index arity or any coordinate is out of range.
func (a *Array[T]) Offset(idx ...int) int {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("table: index arity %d for %d-d array", len(idx), len(a.Shape)))
	}

	off := 0

	for axis, i := range idx {
		if i < 0 || i >= a.Shape[axis] {
			panic(fmt.Sprintf("table: index %d out of range on axis %d (len %d)", i, axis, a.Shape[axis]))
		}

		off = off*a.Shape[axis] + i
	}

	return off
}

// At returns the element at idx.
func (a *Array[T]) At(idx ...int) T {
	return a.Data[a.Offset(idx...)]
}

// Set stores v at idx.
func (a *Array[T]) Set(v T, idx ...int) {
	a.Data[a.Offset(idx...)] = v
}

// Clone returns a deep copy.
func (a *Array[T]) Clone() *Array[T] {
	return &Array[T]{
		Shape: slices.Clone(a.Shape),
		Data:  slices.Clone(a.Data),
	}
}

// DType implements Column.
func (a *Array[T]) DType() DType {
	return dtypeOf[T]()
}

// Dims implements Column.
func (a *Array[T]) Dims() []int {
	return slices.Clone(a.Shape)
}

func (a *Array[T]) encode(w io.Writer) error {
	err := binary.Write(w, binary.LittleEndian, a.Data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", a.DType(), err)
	}

	return nil
}

func (a *Array[T]) clone() Column {
	return a.Clone()
}

func (a *Array[T]) validate() error {
	want := numElements(a.Shape)
	if want != len(a.Data) {
		return fmt.Errorf("%w: shape %v holds %d elements, data has %d", ErrColumnMismatch, a.Shape, want, len(a.Data))
	}

	return nil
}

func decodeArray[T Element](r io.Reader, shape []int) (*Array[T], error) {
	arr := NewArray[T](shape...)

	err := binary.Read(r, binary.LittleEndian, arr.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", arr.DType(), err)
	}

	return arr, nil
}

func dtypeOf[T Element]() DType {
	var zero T

	switch any(zero).(type) {
	case complex64:
		return DTypeComplex64
	case bool:
		return DTypeBool
	default:
		return DTypeInt32
	}
}

func numElements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}

	n := 1

	for _, dim := range shape {
		n *= dim
	}

	return n
}
