// Package util provides utility functions for reflection and struct operations.
package util

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ColumnInfo describes one struct field mapped to a column.
type ColumnInfo struct {
	Index      int    // struct field index
	FieldName  string // Go field name
	Column     string // column name from the db tag or the field name
	PrimaryKey bool   // db:"col,pk"
	References string // db:"col,fk=table.col"
}

// ParseDBTag parses a db tag.
//
// Supported formats:
//   - "column"              -> plain column
//   - "column,pk"           -> primary key
//   - "column,fk=user.id"   -> foreign key referencing user.id
//   - "-"                   -> skip field
func ParseDBTag(tag string) ColumnInfo {
	parts := strings.Split(tag, ",")
	info := ColumnInfo{Column: strings.TrimSpace(parts[0])}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch {
		case part == "pk":
			info.PrimaryKey = true
		case strings.HasPrefix(part, "fk="):
			info.References = strings.TrimPrefix(part, "fk=")
		}
	}

	return info
}

// indirectType strips pointers from t.
func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// StructColumns lists the mapped columns of a struct type in declaration
// order. Unexported fields and db:"-" fields are skipped.
func StructColumns(model interface{}) ([]ColumnInfo, error) {
	if model == nil {
		return nil, errors.New("StructColumns: nil model")
	}
	t := indirectType(reflect.TypeOf(model))
	if t.Kind() != reflect.Struct {
		return nil, errors.New("StructColumns: expected struct, got " + t.Kind().String())
	}

	columns := make([]ColumnInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		info := ColumnInfo{Column: field.Name}
		if tag, ok := field.Tag.Lookup("db"); ok {
			info = ParseDBTag(tag)
			if info.Column == "-" {
				continue
			}
			if info.Column == "" {
				info.Column = field.Name
			}
		}
		info.Index = i
		info.FieldName = field.Name
		columns = append(columns, info)
	}

	return columns, nil
}

// TypeName returns the struct type name of model, dereferencing pointers.
func TypeName(model interface{}) string {
	if model == nil {
		return ""
	}
	return indirectType(reflect.TypeOf(model)).Name()
}

// structValue returns the addressable struct behind data.
func structValue(data interface{}, caller string) (reflect.Value, error) {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, errors.New(caller + ": nil pointer")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, errors.New(caller + ": expected struct, got " + v.Kind().String())
	}
	return v, nil
}

// StructToMap converts a struct to map[string]interface{} using db tags.
//
// Rules:
//   - Unexported fields are skipped.
//   - db:"-" fields are skipped.
//   - Fields without db tag use field name.
//   - Zero values are included.
func StructToMap(data interface{}) (map[string]interface{}, error) {
	v, err := structValue(data, "StructToMap")
	if err != nil {
		return nil, err
	}

	columns, err := StructColumns(data)
	if err != nil {
		return nil, err
	}

	result := make(map[string]interface{}, len(columns))
	for _, col := range columns {
		result[col.Column] = v.Field(col.Index).Interface()
	}

	return result, nil
}

// MapToStruct copies values into the db-tagged fields of dest, which must
// be a non-nil pointer to a struct. Keys without a matching field are
// ignored; nil values leave the field untouched.
func MapToStruct(data map[string]interface{}, dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("MapToStruct: dest must be a non-nil pointer")
	}
	v := rv.Elem()
	if v.Kind() != reflect.Struct {
		return errors.New("MapToStruct: expected pointer to struct, got " + v.Kind().String())
	}

	columns, err := StructColumns(dest)
	if err != nil {
		return err
	}

	for _, col := range columns {
		value, ok := data[col.Column]
		if !ok || value == nil {
			continue
		}
		if err := AssignValue(v.Field(col.Index), value); err != nil {
			return fmt.Errorf("MapToStruct: field %s: %w", col.FieldName, err)
		}
	}

	return nil
}

// AssignValue stores value into field, converting driver representations
// (int64, []byte, string timestamps) to the field's type.
//
//nolint:cyclop // One branch per reflect.Kind family.
func AssignValue(field reflect.Value, value interface{}) error {
	if !field.CanSet() {
		return errors.New("field is not settable")
	}

	if field.Kind() == reflect.Ptr {
		if value == nil {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return AssignValue(field.Elem(), value)
	}

	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(field.Type()) {
		field.Set(src)
		return nil
	}

	if field.Type() == reflect.TypeOf(time.Time{}) {
		ts, err := cast.ToTimeE(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(ts))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(value)
		if err != nil {
			return err
		}
		field.SetString(s)
	case reflect.Bool:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(value)
		if err != nil {
			return err
		}
		if field.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, field.Kind())
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(value)
		if err != nil {
			return err
		}
		if field.OverflowUint(n) {
			return fmt.Errorf("value %d overflows %s", n, field.Kind())
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		if src.Type().ConvertibleTo(field.Type()) {
			field.Set(src.Convert(field.Type()))
			return nil
		}
		return fmt.Errorf("cannot assign %T to %s", value, field.Type())
	}

	return nil
}

// SetField assigns value to the struct field mapped to column.
func SetField(dest interface{}, column string, value interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("SetField: dest must be a non-nil pointer")
	}

	columns, err := StructColumns(dest)
	if err != nil {
		return err
	}
	for _, col := range columns {
		if col.Column == column {
			return AssignValue(rv.Elem().Field(col.Index), value)
		}
	}
	return fmt.Errorf("SetField: no field mapped to column %q", column)
}

// IsZero reports whether v is the zero value of its type.
// Used to leave unset auto-increment keys out of INSERT statements.
func IsZero(v interface{}) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}
