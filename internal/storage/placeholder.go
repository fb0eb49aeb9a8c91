package storage

import (
	"strconv"
	"strings"
)

// Rebind rewrites every "%s" marker in query to bind(i) with i counting from
// 1, and "%%" to a literal "%". Queries without arguments are returned
// untouched so literal percent signs in parameterless statements survive.
func Rebind(query string, nargs int, bind func(i int) string) string {
	if nargs == 0 || !strings.Contains(query, "%") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + nargs*2)
	n := 0
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '%' || i+1 >= len(query) {
			b.WriteByte(c)
			continue
		}
		switch query[i+1] {
		case 's':
			n++
			b.WriteString(bind(n))
			i++
		case '%':
			b.WriteByte('%')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// DollarBind produces PostgreSQL markers ($1, $2, ...).
func DollarBind(i int) string { return "$" + strconv.Itoa(i) }

// AtBind produces SQL Server markers (@p1, @p2, ...).
func AtBind(i int) string { return "@p" + strconv.Itoa(i) }

// QuestionBind produces MySQL/SQLite markers.
func QuestionBind(int) string { return "?" }
