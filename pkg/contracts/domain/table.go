package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical text form of date cell values.
const DateLayout = "2006-01-02"

// ValueKind identifies which variant of Value is populated
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindText
	KindDate
)

// String returns the lower-case name of the kind
func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// Value is a single spreadsheet cell: a number, a piece of text, a date, or nothing.
// The zero Value is null.
type Value struct {
	kind ValueKind
	num  float64
	text string
	date time.Time
}

// Null returns an absent cell value
func Null() Value { return Value{} }

// Number returns a numeric cell value
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text returns a text cell value
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Date returns a date cell value
func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

// Kind reports the populated variant
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the cell is absent
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsBlank reports whether the cell is absent or holds only whitespace text
func (v Value) IsBlank() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return strings.TrimSpace(v.text) == ""
	default:
		return false
	}
}

// Float returns the numeric payload and whether the value is a number
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Time returns the date payload and whether the value is a date
func (v Value) Time() (time.Time, bool) {
	return v.date, v.kind == KindDate
}

// String renders the value the way it appears in findings and reports.
// Whole numbers render without a fractional part.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.text
	case KindDate:
		return v.date.Format(DateLayout)
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and payload
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == other.num
	case KindText:
		return v.text == other.text
	case KindDate:
		return v.date.Equal(other.date)
	default:
		return true
	}
}

// MarshalJSON encodes null as null, numbers as numbers and everything else as strings
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindText, KindDate:
		return json.Marshal(v.String())
	default:
		return []byte("null"), nil
	}
}

// FormatNumber renders a float with the shortest exact representation
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Row holds the cells of one table row, positionally aligned with Table.Columns
type Row []Value

// Table is one sheet of tabular data as produced by a loader
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"-"`
}

// NewTable creates a table with the given schema
func NewTable(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: columns}
}

// AddRow appends a row to the table. The row is not checked against the schema here; see CheckShape.
func (t *Table) AddRow(values ...Value) *Table {
	t.Rows = append(t.Rows, Row(values))
	return t
}

// ColumnIndex returns the position of the first column with the given name, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// CheckShape verifies that every row has exactly one cell per column
func (t *Table) CheckShape() error {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, expected %d", i+1, len(row), len(t.Columns))
		}
	}
	return nil
}
