package storage

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ColumnSchema maps column name to its declared type, in ordinal order. Type
// strings use the engine's own vocabulary ("integer", "double precision",
// "timestamp without time zone", "INTEGER", ...).
type ColumnSchema struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewColumnSchema returns an empty schema.
func NewColumnSchema() *ColumnSchema {
	return &ColumnSchema{m: orderedmap.New[string, string]()}
}

// Add appends a column. Adding a known column replaces its type in place.
func (s *ColumnSchema) Add(name, declaredType string) *ColumnSchema {
	s.m.Set(name, declaredType)
	return s
}

// Type returns the declared type of name.
func (s *ColumnSchema) Type(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	return s.m.Get(name)
}

// Has reports whether the schema declares name.
func (s *ColumnSchema) Has(name string) bool {
	_, ok := s.Type(name)
	return ok
}

func (s *ColumnSchema) Len() int {
	if s == nil {
		return 0
	}
	return s.m.Len()
}

// Columns returns column names in ordinal order.
func (s *ColumnSchema) Columns() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, s.m.Len())
	for p := s.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Map copies the schema into an unordered map.
func (s *ColumnSchema) Map() map[string]string {
	out := make(map[string]string, s.Len())
	if s == nil {
		return out
	}
	for p := s.m.Oldest(); p != nil; p = p.Next() {
		out[p.Key] = p.Value
	}
	return out
}

// MarshalJSON encodes the schema as {"column": "type"} in ordinal order.
func (s *ColumnSchema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return s.m.MarshalJSON()
}

// SchemaFromRows builds a schema from catalog rows whose first two columns
// are the column name and its type.
func SchemaFromRows(rows []*Row) *ColumnSchema {
	s := NewColumnSchema()
	for _, r := range rows {
		vals := r.Values()
		if len(vals) < 2 {
			continue
		}
		name := asText(vals[0])
		typ := asText(vals[1])
		if name == "" {
			continue
		}
		s.Add(name, strings.TrimSpace(typ))
	}
	return s
}

func asText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
