package storage

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Row is an ordered mapping of column name to value. Order is the query's
// column order for results and the caller's insertion order for writes.
// The zero value is not usable; build rows with NewRow.
type Row struct {
	m *orderedmap.OrderedMap[string, any]
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{m: orderedmap.New[string, any]()}
}

// RowOf builds a row from alternating name/value arguments. It panics on an
// odd argument count or a non-string name, which is a programming error.
func RowOf(kv ...any) *Row {
	if len(kv)%2 != 0 {
		panic("storage.RowOf: odd number of arguments")
	}
	r := &Row{m: orderedmap.New[string, any](orderedmap.WithCapacity[string, any](len(kv) / 2))}
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("storage.RowOf: column name at %d is %T, not string", i, kv[i]))
		}
		r.m.Set(name, kv[i+1])
	}
	return r
}

// Set stores v under name. Re-setting an existing column keeps its position.
func (r *Row) Set(name string, v any) *Row {
	r.m.Set(name, v)
	return r
}

// Get returns the value stored under name.
func (r *Row) Get(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	return r.m.Get(name)
}

// Len is the number of columns; a nil row has none.
func (r *Row) Len() int {
	if r == nil {
		return 0
	}
	return r.m.Len()
}

// Columns returns column names in order.
func (r *Row) Columns() []string {
	out := make([]string, 0, r.Len())
	r.Each(func(name string, _ any) { out = append(out, name) })
	return out
}

// Values returns values in column order.
func (r *Row) Values() []any {
	out := make([]any, 0, r.Len())
	r.Each(func(_ string, v any) { out = append(out, v) })
	return out
}

// Each calls fn for every column in order.
func (r *Row) Each(fn func(name string, v any)) {
	if r == nil {
		return
	}
	for p := r.m.Oldest(); p != nil; p = p.Next() {
		fn(p.Key, p.Value)
	}
}

// Map copies the row into an unordered map.
func (r *Row) Map() map[string]any {
	out := make(map[string]any, r.Len())
	r.Each(func(name string, v any) { out[name] = v })
	return out
}

func (r *Row) String() string {
	var b strings.Builder
	b.WriteByte('{')
	i := 0
	r.Each(func(name string, v any) {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", name, v)
		i++
	})
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the row as a JSON object with keys in column order.
func (r *Row) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return r.m.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object keeping key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	if r.m == nil {
		r.m = orderedmap.New[string, any]()
	}
	return r.m.UnmarshalJSON(data)
}
