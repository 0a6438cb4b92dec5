package table

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// DescriptorFile is the name of the table descriptor inside a table directory.
const DescriptorFile = "table.yaml"

// FormatVersion is the descriptor format written by this package.
const FormatVersion = 1

const columnFileExt = ".lz4"

// descriptorSchema constrains table.yaml before it is trusted.
const descriptorSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["format", "columns"],
  "properties": {
    "format": {"type": "integer", "minimum": 1, "maximum": 1},
    "columns": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "dtype", "shape", "file"],
        "properties": {
          "name": {"type": "string", "pattern": "^[A-Z][A-Z0-9_]*$"},
          "dtype": {"enum": ["complex64", "bool", "int32"]},
          "shape": {"type": "array", "minItems": 1, "items": {"type": "integer", "minimum": 0}},
          "file": {"type": "string", "pattern": "^[^/\\\\]+$"}
        }
      }
    }
  }
}`

// Descriptor lists the columns of a table.
type Descriptor struct {
	Format  int          `yaml:"format"`
	Columns []ColumnDesc `yaml:"columns"`
}

// ColumnDesc describes one column file.
type ColumnDesc struct {
	Name  string `yaml:"name"`
	DType DType  `yaml:"dtype"`
	Shape []int  `yaml:"shape"`
	File  string `yaml:"file"`
}

// Column returns the description of the named column.
func (d *Descriptor) Column(name string) (ColumnDesc, bool) {
	idx := slices.IndexFunc(d.Columns, func(c ColumnDesc) bool { return c.Name == name })
	if idx < 0 {
		return ColumnDesc{}, false
	}

	return d.Columns[idx], true
}

func (d *Descriptor) upsert(col ColumnDesc) {
	idx := slices.IndexFunc(d.Columns, func(c ColumnDesc) bool { return c.Name == col.Name })
	if idx < 0 {
		d.Columns = append(d.Columns, col)

		return
	}

	d.Columns[idx] = col
}

// ReadDescriptor loads and validates the descriptor of the table at dir.
func ReadDescriptor(dir string) (*Descriptor, error) {
	raw, err := os.ReadFile(filepath.Join(dir, DescriptorFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoTable, dir)
	}

	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}

	validateErr := validateDescriptor(raw)
	if validateErr != nil {
		return nil, validateErr
	}

	var desc Descriptor

	unmarshalErr := yaml.Unmarshal(raw, &desc)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDescriptor, unmarshalErr)
	}

	for _, col := range desc.Columns {
		if !filepath.IsLocal(col.File) || filepath.Base(col.File) != col.File {
			return nil, fmt.Errorf("%w: column %s file %q escapes the table", ErrInvalidDescriptor, col.Name, col.File)
		}
	}

	return &desc, nil
}

func writeDescriptor(dir string, desc *Descriptor) error {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	encodeErr := enc.Encode(desc)
	if encodeErr != nil {
		return fmt.Errorf("encode descriptor: %w", encodeErr)
	}

	closeErr := enc.Close()
	if closeErr != nil {
		return fmt.Errorf("encode descriptor: %w", closeErr)
	}

	return writeFileAtomic(filepath.Join(dir, DescriptorFile), buf.Bytes())
}

func validateDescriptor(raw []byte) error {
	var doc any

	unmarshalErr := yaml.Unmarshal(raw, &doc)
	if unmarshalErr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDescriptor, unmarshalErr)
	}

	if doc == nil {
		return fmt.Errorf("%w: empty document", ErrInvalidDescriptor)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(descriptorSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))

	for _, verr := range result.Errors() {
		problems = append(problems, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s", ErrInvalidDescriptor, strings.Join(problems, "; "))
}

func columnFileName(name string) string {
	return name + columnFileExt
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"

	writeErr := os.WriteFile(tmp, data, filePerm)
	if writeErr != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), writeErr)
	}

	renameErr := os.Rename(tmp, path)
	if renameErr != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), renameErr)
	}

	return nil
}
