package internal

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"

	"github.com/chrisconley/gareport/specs"
)

// TabularData is an ordered set of uniquely named, typed columns plus positional
// rows. Every row carries exactly one value per column.
type TabularData struct {
	columns []Column
	index   map[string]int
	rows    [][]any
}

func NewTabularData(columns ...Column) (TabularData, error) {
	index := make(map[string]int, len(columns))
	for i, column := range columns {
		if _, exists := index[column.Name()]; exists {
			return TabularData{}, fmt.Errorf("%w: duplicate column %q", ErrInvalidArgument, column.Name())
		}
		index[column.Name()] = i
	}
	return TabularData{
		columns: slices.Clone(columns),
		index:   index,
		rows:    [][]any{},
	}, nil
}

// TabularDataFromPage types a transport page using column-type inference.
func TabularDataFromPage(page specs.PageSpec) (TabularData, error) {
	columns := make([]Column, len(page.Columns))
	for i, spec := range page.Columns {
		column, err := ColumnFromSpec(spec)
		if err != nil {
			return TabularData{}, fmt.Errorf("invalid column %d: %w", i, err)
		}
		columns[i] = column
	}

	data, err := NewTabularData(columns...)
	if err != nil {
		return TabularData{}, err
	}
	if err := data.appendPage(page); err != nil {
		return TabularData{}, err
	}
	return data, nil
}

// AppendRow adds one row. The value count must match the column count and each
// value must have its column's Go type (nil is allowed).
func (t *TabularData) AppendRow(values ...any) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("%w: row has %d values, table has %d columns", ErrInvalidArgument, len(values), len(t.columns))
	}
	for i, value := range values {
		if !valueMatchesKind(t.columns[i].Kind(), value) {
			return fmt.Errorf("%w: column %s holds %s values, got %T", ErrInvalidArgument, t.columns[i].Name(), t.columns[i].Kind(), value)
		}
	}
	t.rows = append(t.rows, slices.Clone(values))
	return nil
}

// appendPage parses and appends the rows of a page whose columns match t.
func (t *TabularData) appendPage(page specs.PageSpec) error {
	if !t.sameColumns(page.Columns) {
		return fmt.Errorf("page columns %v do not match table columns %v", columnSpecNames(page.Columns), t.ColumnNames())
	}
	for r, cells := range page.Rows {
		if len(cells) != len(t.columns) {
			return fmt.Errorf("%w: row %d has %d cells, table has %d columns", ErrInvalidArgument, r, len(cells), len(t.columns))
		}
		values := make([]any, len(cells))
		for i, cell := range cells {
			value, err := t.columns[i].ParseCell(cell)
			if err != nil {
				return fmt.Errorf("row %d: %w", r, err)
			}
			values[i] = value
		}
		t.rows = append(t.rows, values)
	}
	return nil
}

func (t *TabularData) sameColumns(columns []specs.ColumnSpec) bool {
	if len(columns) != len(t.columns) {
		return false
	}
	for i, spec := range columns {
		column := t.columns[i]
		if spec.Name != column.Name() || InferKind(spec.Name, spec.Kind) != column.Kind() {
			return false
		}
	}
	return true
}

// Columns returns a copy of the column set.
func (t TabularData) Columns() []Column {
	return slices.Clone(t.columns)
}

func (t TabularData) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, column := range t.columns {
		names[i] = column.Name()
	}
	return names
}

// ColumnIndex returns the position of the named column.
func (t TabularData) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

func (t TabularData) RowCount() int {
	return len(t.rows)
}

// Row returns a copy of row i.
func (t TabularData) Row(i int) []any {
	return slices.Clone(t.rows[i])
}

// Rows returns a copy of all rows.
func (t TabularData) Rows() [][]any {
	rows := make([][]any, len(t.rows))
	for i, row := range t.rows {
		rows[i] = slices.Clone(row)
	}
	return rows
}

// AsTable is the identity projection.
func (t TabularData) AsTable() TabularData {
	return t
}

// AsJSON renders the table as an array of row objects keyed by column name,
// keys in column order.
func (t TabularData) AsJSON() ([]byte, error) {
	keys := make([][]byte, len(t.columns))
	for i, column := range t.columns {
		key, err := json.Marshal(column.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to encode column name %q: %w", column.Name(), err)
		}
		keys[i] = key
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for r, row := range t.rows {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for i, value := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			encoded, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("failed to encode row %d column %s: %w", r, t.columns[i].Name(), err)
			}
			buf.Write(keys[i])
			buf.WriteByte(':')
			buf.Write(encoded)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// AsArrowRecord renders the table as an Arrow record. Currency columns are
// carried as their exact decimal text. The caller must Release the record.
func (t TabularData) AsArrowRecord(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	fields := make([]arrow.Field, len(t.columns))
	for i, column := range t.columns {
		fields[i] = arrow.Field{Name: column.Name(), Type: arrowType(column.Kind()), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for r, row := range t.rows {
		for i, value := range row {
			if err := appendArrowValue(builder.Field(i), value); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", r, t.columns[i].Name(), err)
			}
		}
	}
	return builder.NewRecord(), nil
}

func arrowType(kind ColumnKind) arrow.DataType {
	switch kind {
	case KindInteger:
		return arrow.PrimitiveTypes.Int64
	case KindDouble, KindTime:
		return arrow.PrimitiveTypes.Float64
	case KindDate:
		return arrow.FixedWidthTypes.Date32
	default:
		return arrow.BinaryTypes.String
	}
}

func appendArrowValue(b array.Builder, value any) error {
	if value == nil {
		b.AppendNull()
		return nil
	}
	switch builder := b.(type) {
	case *array.Int64Builder:
		builder.Append(value.(int64))
	case *array.Float64Builder:
		builder.Append(value.(float64))
	case *array.Date32Builder:
		builder.Append(arrow.Date32FromTime(value.(civil.Date).In(time.UTC)))
	case *array.StringBuilder:
		switch v := value.(type) {
		case string:
			builder.Append(v)
		case Decimal:
			builder.Append(v.String())
		default:
			return fmt.Errorf("unexpected %T in string column", value)
		}
	default:
		return fmt.Errorf("unsupported arrow builder %T", b)
	}
	return nil
}

func columnSpecNames(columns []specs.ColumnSpec) []string {
	names := make([]string, len(columns))
	for i, column := range columns {
		names[i] = column.Name
	}
	return names
}
