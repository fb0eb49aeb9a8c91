package storage

import (
	"fmt"
	"strings"
)

// Identifiers are emitted verbatim: callers own quoting, as they do in
// hand-written statements passed to Select and Execute.

// BuildInsert renders INSERT INTO table (c1, c2) VALUES (ph, ph).
func BuildInsert(table string, columns []string, ph string) string {
	marks := make([]string, len(columns))
	for i := range marks {
		marks[i] = ph
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(marks, ", "))
}

// BuildUpdate renders UPDATE table SET c1 = ph, c2 = ph WHERE where.
func BuildUpdate(table string, columns []string, where, ph string) string {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = c + " = " + ph
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where)
}

// BuildDelete renders DELETE FROM table WHERE where.
func BuildDelete(table, where string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s", table, where)
}

// BuildSelect renders SELECT cols FROM target [WHERE where]. No columns
// selects "*".
func BuildSelect(target string, columns []string, where string) string {
	cols := "*"
	if len(columns) > 0 {
		cols = strings.Join(columns, ", ")
	}
	q := fmt.Sprintf("SELECT %s FROM %s", cols, target)
	if strings.TrimSpace(where) != "" {
		q += " WHERE " + where
	}
	return q
}

// ParseQualifiedName splits "schema.table" into its parts. An unqualified
// name returns an empty schema, meaning the backend's default. Quote
// characters around each part are removed.
func ParseQualifiedName(name string) (schema, table string) {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return unquoteIdent(name[:i]), unquoteIdent(name[i+1:])
	}
	return "", unquoteIdent(name)
}

func unquoteIdent(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch {
		case s[0] == '"' && s[len(s)-1] == '"',
			s[0] == '`' && s[len(s)-1] == '`',
			s[0] == '[' && s[len(s)-1] == ']':
			return s[1 : len(s)-1]
		}
	}
	return s
}
