package internal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/chrisconley/gareport/specs"
)

// wireDateLayout is the fixed yyyyMMdd layout of date cells.
const wireDateLayout = "20060102"

// ColumnKind is the concrete scalar type a column materializes to.
type ColumnKind int

const (
	KindString ColumnKind = iota
	KindInteger
	KindDouble
	KindCurrency
	KindTime
	KindDate
)

func (k ColumnKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindDouble:
		return "double"
	case KindCurrency:
		return "currency"
	case KindTime:
		return "time"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// Column is a named, typed column of a TabularData.
type Column struct {
	name string
	kind ColumnKind
}

func NewColumn(name string, kind ColumnKind) (Column, error) {
	if isBlank(name) {
		return Column{}, fmt.Errorf("%w: column name is required", ErrInvalidArgument)
	}
	return Column{name: name, kind: kind}, nil
}

// ColumnFromSpec infers the column kind from the declared wire kind.
func ColumnFromSpec(spec specs.ColumnSpec) (Column, error) {
	return NewColumn(spec.Name, InferKind(spec.Name, spec.Kind))
}

func (c Column) Name() string {
	return c.name
}

func (c Column) Kind() ColumnKind {
	return c.kind
}

// InferKind maps a declared wire kind to a column kind. Declared numeric kinds
// win; otherwise the date dimension is a calendar date and everything else text.
func InferKind(name, declared string) ColumnKind {
	switch strings.ToLower(declared) {
	case "integer":
		return KindInteger
	case "double":
		return KindDouble
	case "currency":
		return KindCurrency
	case "time":
		return KindTime
	}
	if strings.EqualFold(name, DateDimension) {
		return KindDate
	}
	return KindString
}

// ParseCell converts a wire cell to the column's Go type: int64, float64,
// Decimal, civil.Date or string.
func (c Column) ParseCell(cell string) (any, error) {
	switch c.kind {
	case KindInteger:
		v, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: invalid integer %q: %w", c.name, cell, err)
		}
		return v, nil
	case KindDouble, KindTime:
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: invalid %s %q: %w", c.name, c.kind, cell, err)
		}
		return v, nil
	case KindCurrency:
		v, err := NewDecimal(strings.TrimSpace(cell))
		if err != nil {
			return nil, fmt.Errorf("column %s: invalid currency %q: %w", c.name, cell, err)
		}
		return v, nil
	case KindDate:
		return parseWireDate(c.name, cell)
	default:
		return cell, nil
	}
}

func parseWireDate(column, cell string) (civil.Date, error) {
	if len(cell) != len(wireDateLayout) {
		return civil.Date{}, fmt.Errorf("column %s: invalid date %q: expected yyyyMMdd", column, cell)
	}
	t, err := time.Parse(wireDateLayout, cell)
	if err != nil {
		return civil.Date{}, fmt.Errorf("column %s: invalid date %q: %w", column, cell, err)
	}
	return civil.DateOf(t), nil
}

// valueMatchesKind reports whether v has the Go type a column of kind holds.
func valueMatchesKind(kind ColumnKind, v any) bool {
	if v == nil {
		return true
	}
	switch kind {
	case KindInteger:
		_, ok := v.(int64)
		return ok
	case KindDouble, KindTime:
		_, ok := v.(float64)
		return ok
	case KindCurrency:
		_, ok := v.(Decimal)
		return ok
	case KindDate:
		_, ok := v.(civil.Date)
		return ok
	default:
		_, ok := v.(string)
		return ok
	}
}
