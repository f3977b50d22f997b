package seekpager

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"

	"gorm.io/gorm/schema"
)

var _encoder = base64.RawURLEncoding

// Cursor is the ordered tuple of sort-key values captured from the last
// emitted row. It marks the position a traversal resumes strictly after.
// A nil or empty cursor means the beginning of the dataset.
//
// IMPORTANT:
// The tuple ALWAYS has to include a unique column's value, otherwise rows
// sharing the last tuple are skipped on resume.
type Cursor struct {
	values []any
}

func NewCursor(values ...any) *Cursor {
	return &Cursor{
		values: values,
	}
}

// DecodeCursorToken attempts to parse a base64-encoded token back into a
// *Cursor. An empty token decodes to a nil cursor (start of the dataset).
func DecodeCursorToken(b64String string) (*Cursor, error) {
	if len(b64String) == 0 {
		return nil, nil
	}

	jsonData, err := _encoder.DecodeString(b64String)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 encoded cursor: %w", err)
	}

	var values []any
	if err = json.Unmarshal(jsonData, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json encoded cursor: %w", err)
	}

	return &Cursor{
		values: values,
	}, nil
}

// Token encodes the cursor as an opaque string safe to hand to clients.
// An empty cursor encodes to "".
func (c *Cursor) Token() string {
	if c.IsEmpty() {
		return ""
	}

	jTok, err := json.Marshal(c.values)
	if err != nil {
		panic(fmt.Errorf("cannot marshal cursor value: %w", err))
	}

	var buf bytes.Buffer
	if err = json.Compact(&buf, jTok); err != nil {
		panic(fmt.Errorf("cannot compact cursor value: %w", err))
	}

	return _encoder.EncodeToString(buf.Bytes())
}

// String - implements fmt.Stringer.
func (c *Cursor) String() string {
	return c.Token()
}

func (c *Cursor) IsEmpty() bool {
	return c == nil || len(c.values) == 0
}

// Values returns the cursor tuple as-is, in sort-key order.
func (c *Cursor) Values() []any {
	if c == nil {
		return nil
	}

	return c.values
}

func (c *Cursor) validate(spec *SortSpec) error {
	if c.IsEmpty() {
		return nil
	}

	// Do not tolerate a mismatch between the cursor arity and the number
	// of sort keys.
	if len(c.values) != spec.Len() {
		return fmt.Errorf("cursor value count mismatch: %d values for %d sort keys", len(c.values), spec.Len())
	}

	return nil
}

var _ fmt.Stringer = (*Cursor)(nil)

// CursorFrom captures the cursor tuple off a row, resolving each sort
// key's value source in order. Returns an error if a named column cannot
// be found on the row.
func (s *SortSpec) CursorFrom(row any) (*Cursor, error) {
	values := make([]any, 0, len(s.keys))
	for _, key := range s.keys {
		value, err := key.source.resolve(row)
		if err != nil {
			return nil, fmt.Errorf("cannot capture cursor: %w", err)
		}

		values = append(values, value)
	}

	return &Cursor{values: values}, nil
}

func (v ValueSource) resolve(row any) (any, error) {
	if v.compute != nil {
		return v.compute(row), nil
	}

	if v.column == "" {
		return nil, fmt.Errorf("value source has neither a column nor a computed function")
	}

	return fieldByColumn(row, v.column)
}

var _namer = schema.NamingStrategy{}

// fieldByColumn reads the value of the field mapped to the given column
// name off a struct or map row.
func fieldByColumn(row any, column string) (any, error) {
	v := reflect.ValueOf(row)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("cannot read column '%s' off a nil row", column)
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		mv := v.MapIndex(reflect.ValueOf(column))
		if !mv.IsValid() {
			return nil, fmt.Errorf("column '%s' not found on row", column)
		}

		return mv.Interface(), nil
	case reflect.Struct:
		if value, ok := structFieldByColumn(v, column); ok {
			return value, nil
		}

		return nil, fmt.Errorf("column '%s' not found on row of type %s", column, v.Type())
	default:
		return nil, fmt.Errorf("cannot read column '%s' off a row of kind %s", column, v.Kind())
	}
}

func structFieldByColumn(v reflect.Value, column string) (any, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		// Embedded structs are flattened, same as gorm does for models
		// embedding gorm.Model.
		if field.Anonymous {
			fv := v.Field(i)
			for fv.Kind() == reflect.Pointer && !fv.IsNil() {
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				if value, ok := structFieldByColumn(fv, column); ok {
					return value, true
				}
			}

			continue
		}

		if columnNameForField(field) == column {
			return v.Field(i).Interface(), true
		}
	}

	return nil, false
}

// columnNameForField resolves a struct field's column name the way gorm
// would: an explicit gorm "column" tag wins, otherwise the default naming
// strategy applies.
func columnNameForField(field reflect.StructField) string {
	settings := schema.ParseTagSetting(field.Tag.Get("gorm"), ";")
	if name := settings["COLUMN"]; name != "" {
		return name
	}

	return _namer.ColumnName("", field.Name)
}
