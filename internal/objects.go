package internal

import (
	"fmt"
	"iter"
	"maps"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// FieldMapping selects how row values are assigned to struct fields.
type FieldMapping int

const (
	// ByName matches columns to fields by `report:"..."` tag, then by field name.
	// Column names are compared without namespace prefix and case-insensitively.
	ByName FieldMapping = iota
	// ByPosition assigns the i-th column to the i-th exported field.
	ByPosition
)

const fieldTag = "report"

// Converter turns a column value into a value of a field's type.
type Converter func(value any) (any, error)

type conversion struct {
	from reflect.Type
	to   reflect.Type
}

// Registry holds value converters used by the typed-object projection. It is a
// plain value: Register and Init return new registries and never modify their input.
type Registry struct {
	converters map[conversion]Converter
}

func NewRegistry() Registry {
	return Registry{converters: map[conversion]Converter{}}
}

// Register returns a copy of r that converts From values to To fields with convert.
func Register[From, To any](r Registry, convert func(From) (To, error)) Registry {
	next := Registry{converters: maps.Clone(r.converters)}
	if next.converters == nil {
		next.converters = map[conversion]Converter{}
	}
	key := conversion{from: reflect.TypeFor[From](), to: reflect.TypeFor[To]()}
	next.converters[key] = func(value any) (any, error) {
		return convert(value.(From))
	}
	return next
}

// Init returns a copy of r with the default converters registered for every
// conversion r does not already cover. Call it once when wiring the application.
func Init(r Registry) Registry {
	next := Registry{converters: maps.Clone(r.converters)}
	if next.converters == nil {
		next.converters = map[conversion]Converter{}
	}
	for key, converter := range defaultRegistry().converters {
		if _, exists := next.converters[key]; !exists {
			next.converters[key] = converter
		}
	}
	return next
}

func defaultRegistry() Registry {
	r := NewRegistry()
	r = Register(r, func(d civil.Date) (time.Time, error) { return d.In(time.UTC), nil })
	r = Register(r, func(d civil.Date) (string, error) { return d.String(), nil })
	r = Register(r, func(d Decimal) (float64, error) { return d.Float64() })
	r = Register(r, func(d Decimal) (string, error) { return d.String(), nil })
	r = Register(r, func(i int64) (string, error) { return strconv.FormatInt(i, 10), nil })
	r = Register(r, func(f float64) (string, error) { return strconv.FormatFloat(f, 'f', -1, 64), nil })
	return r
}

func (r Registry) lookup(from, to reflect.Type) (Converter, bool) {
	converter, ok := r.converters[conversion{from: from, to: to}]
	return converter, ok
}

// Objects lazily maps each row onto a T (a struct type) using the default
// registry. Each call returns a fresh sequence; the table is never modified.
func Objects[T any](data TabularData, mapping FieldMapping) iter.Seq2[T, error] {
	return ObjectsWith[T](data, mapping, Init(NewRegistry()))
}

// ObjectsWith is Objects with an explicit converter registry.
func ObjectsWith[T any](data TabularData, mapping FieldMapping, registry Registry) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		targets, err := planFields(reflect.TypeFor[T](), data.columns, mapping)
		if err != nil {
			yield(zero, err)
			return
		}

		for r, row := range data.rows {
			var obj T
			target := reflect.ValueOf(&obj).Elem()
			if err := assignRow(target, targets, row, data.columns, registry); err != nil {
				if !yield(zero, fmt.Errorf("row %d: %w", r, err)) {
					return
				}
				continue
			}
			if !yield(obj, nil) {
				return
			}
		}
	}
}

// ToObjects collects the by-name projection, stopping at the first error.
func ToObjects[T any](data TabularData) ([]T, error) {
	result := make([]T, 0, data.RowCount())
	for obj, err := range Objects[T](data, ByName) {
		if err != nil {
			return nil, err
		}
		result = append(result, obj)
	}
	return result, nil
}

// planFields resolves, per column, the struct field index it is assigned to
// (-1 when the column has no field).
func planFields(t reflect.Type, columns []Column, mapping FieldMapping) ([]int, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: object type %s is not a struct", ErrInvalidArgument, t)
	}

	var fields []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get(fieldTag) == "-" {
			continue
		}
		fields = append(fields, field)
	}

	targets := make([]int, len(columns))
	for i, column := range columns {
		targets[i] = -1
		switch mapping {
		case ByPosition:
			if i < len(fields) {
				targets[i] = fields[i].Index[0]
			}
		case ByName:
			targets[i] = fieldForColumn(fields, column.Name())
		default:
			return nil, fmt.Errorf("%w: unknown field mapping %d", ErrInvalidArgument, mapping)
		}
	}
	return targets, nil
}

func fieldForColumn(fields []reflect.StructField, column string) int {
	bare := RemovePrefix(column)
	for _, field := range fields {
		if tag := field.Tag.Get(fieldTag); tag != "" && (tag == column || strings.EqualFold(tag, bare)) {
			return field.Index[0]
		}
	}
	for _, field := range fields {
		if field.Tag.Get(fieldTag) == "" && strings.EqualFold(field.Name, bare) {
			return field.Index[0]
		}
	}
	return -1
}

func assignRow(target reflect.Value, targets []int, row []any, columns []Column, registry Registry) error {
	for i, value := range row {
		if targets[i] < 0 {
			continue
		}
		field := target.Field(targets[i])
		if err := assignValue(field, value, registry); err != nil {
			return fmt.Errorf("column %s: %w", columns[i].Name(), err)
		}
	}
	return nil
}

func assignValue(field reflect.Value, value any, registry Registry) error {
	if value == nil {
		return nil
	}
	fieldType := field.Type()

	if fieldType.Kind() == reflect.Pointer {
		elem := reflect.New(fieldType.Elem())
		if err := assignValue(elem.Elem(), value, registry); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	source := reflect.ValueOf(value)
	if source.Type().AssignableTo(fieldType) {
		field.Set(source)
		return nil
	}

	if converter, ok := registry.lookup(source.Type(), fieldType); ok {
		converted, err := converter(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(converted).Convert(fieldType))
		return nil
	}

	if isNumeric(source.Kind()) && isNumeric(fieldType.Kind()) {
		converted, err := convertNumber(source, fieldType)
		if err != nil {
			return err
		}
		field.Set(converted)
		return nil
	}

	if fieldType.Kind() == reflect.String {
		if stringer, ok := value.(fmt.Stringer); ok {
			field.SetString(stringer.String())
			return nil
		}
	}

	return fmt.Errorf("%w: cannot assign %T to field of type %s", ErrInvalidArgument, value, fieldType)
}

// convertNumber converts between numeric kinds and fails rather than wrap,
// truncate or overflow.
func convertNumber(source reflect.Value, target reflect.Type) (reflect.Value, error) {
	probe := reflect.New(target).Elem()
	lossy := func() (reflect.Value, error) {
		return reflect.Value{}, fmt.Errorf("%w: %v does not fit a field of type %s", ErrInvalidArgument, source.Interface(), target)
	}

	switch {
	case source.CanInt():
		v := source.Int()
		switch {
		case probe.CanInt() && probe.OverflowInt(v):
			return lossy()
		case probe.CanUint() && (v < 0 || probe.OverflowUint(uint64(v))):
			return lossy()
		}
	case source.CanUint():
		v := source.Uint()
		switch {
		case probe.CanInt() && (v > math.MaxInt64 || probe.OverflowInt(int64(v))):
			return lossy()
		case probe.CanUint() && probe.OverflowUint(v):
			return lossy()
		}
	case source.CanFloat():
		v := source.Float()
		switch {
		case probe.CanFloat():
			if probe.OverflowFloat(v) {
				return lossy()
			}
		case math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v):
			return lossy()
		case probe.CanInt() && (v < math.MinInt64 || v >= math.MaxInt64 || probe.OverflowInt(int64(v))):
			return lossy()
		case probe.CanUint() && (v < 0 || v >= math.MaxUint64 || probe.OverflowUint(uint64(v))):
			return lossy()
		}
	}
	return source.Convert(target), nil
}

func isNumeric(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
