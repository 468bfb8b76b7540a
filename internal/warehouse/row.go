package warehouse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field is one named column value.
type Field struct {
	Name  string
	Value any
}

// Row is a result row that keeps the column order of the SELECT list.
type Row []Field

// NewRow builds a row from alternating name/value pairs.
func NewRow(kv ...any) Row {
	if len(kv)%2 != 0 {
		panic("warehouse.NewRow: odd number of arguments")
	}
	row := make(Row, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("warehouse.NewRow: column name %v is not a string", kv[i]))
		}
		row = append(row, Field{Name: name, Value: kv[i+1]})
	}
	return row
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, f := range r {
		cols[i] = f.Name
	}
	return cols
}

// Get returns a column value. Column names match case-insensitively.
func (r Row) Get(name string) (any, bool) {
	for _, f := range r {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return nil, false
}

// Value returns a column value or nil.
func (r Row) Value(name string) any {
	v, _ := r.Get(name)
	return v
}

// Float returns a numeric column as float64. Missing and NULL columns
// report false.
func (r Row) Float(name string) (float64, bool) {
	v, ok := r.Get(name)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FloatOr returns the column as float64, or def when it is missing or NULL.
// A stored zero is a real value and is returned as zero.
func (r Row) FloatOr(name string, def float64) float64 {
	if f, ok := r.Float(name); ok {
		return f
	}
	return def
}

// IntOr returns the column truncated to int, or def when missing or NULL.
func (r Row) IntOr(name string, def int) int {
	if f, ok := r.Float(name); ok {
		return int(f)
	}
	return def
}

// String returns the column rendered as text; NULL renders as "".
func (r Row) String(name string) string {
	v, ok := r.Get(name)
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

// Bool reports whether the column holds a truthy value.
func (r Row) Bool(name string) bool {
	v, ok := r.Get(name)
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "t", "yes", "y":
			return true
		}
		return false
	}
	f, ok := r.Float(name)
	return ok && f != 0
}

// MarshalJSON encodes the row as an object whose keys keep column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v := f.Value
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal column %s: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
