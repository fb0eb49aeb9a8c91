// Package normalize coerces raw cell values to the canonical Go type implied
// by a column's declared type, as reported by the engine catalog.
//
// Canonical values are one of: nil, int64, float64, civil.Date, time.Time or
// string. Declared types are engine vocabulary ("integer", "bigint",
// "timestamp without time zone", "numeric(10,2)", ...) and are matched by
// substring, so "interval" also matches "int".
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"dbaccess/internal/storage"

	"github.com/cockroachdb/errors"
	"github.com/golang-sql/civil"
)

// TextLayout renders time.Time values stored into text columns.
const TextLayout = "2006-01-02 15:04:05"

// Value maps raw to its canonical form for declaredType. Only the integer
// rule can fail; every other type falls through to text.
func Value(raw any, declaredType string) (any, error) {
	if isMissing(raw) {
		return nil, nil
	}
	t := strings.ToLower(strings.TrimSpace(declaredType))

	switch {
	case strings.Contains(t, "timestamp"):
		return timestamp(raw), nil
	case t == "date":
		return date(raw), nil
	case strings.Contains(t, "int"):
		return toInt(raw)
	case strings.Contains(t, "double"), strings.Contains(t, "numeric"):
		return toFloat(raw), nil
	default:
		return Text(raw), nil
	}
}

// Row normalizes the columns present in both row and schema, keeping row
// order. Columns the schema does not know are dropped; schema columns the
// row lacks are not defaulted. The first failing column aborts the row with
// an error marked storage.ErrRow.
func Row(row *storage.Row, schema *storage.ColumnSchema) (*storage.Row, error) {
	out := storage.NewRow()
	var err error
	row.Each(func(name string, v any) {
		if err != nil {
			return
		}
		typ, ok := schema.Type(name)
		if !ok {
			return
		}
		nv, cerr := Value(v, typ)
		if cerr != nil {
			err = errors.Mark(errors.Wrapf(cerr, "column %s (%s)", name, typ), storage.ErrRow)
			return
		}
		out.Set(name, nv)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

func timestamp(raw any) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}
	if ts, ok := parseYYMMDDHHMM(s); ok {
		return ts
	}
	return s
}

func date(raw any) any {
	switch x := raw.(type) {
	case time.Time:
		return civil.DateOf(x)
	case string:
		if d, ok := parseDDMMYY(x); ok {
			return d
		}
	}
	return raw
}

// parseYYMMDDHHMM reads a fixed-width "2512090506" as 2025-12-09 05:06 UTC.
func parseYYMMDDHHMM(s string) (time.Time, bool) {
	if len(s) != 10 {
		return time.Time{}, false
	}
	var f [5]int
	for i := range f {
		n, ok := twoDigits(s[2*i], s[2*i+1])
		if !ok {
			return time.Time{}, false
		}
		f[i] = n
	}
	yy, mon, day, hh, mm := f[0], f[1], f[2], f[3], f[4]
	if mon < 1 || mon > 12 || day < 1 || day > daysIn(2000+yy, mon) || hh > 23 || mm > 59 {
		return time.Time{}, false
	}
	return time.Date(2000+yy, time.Month(mon), day, hh, mm, 0, 0, time.UTC), true
}

// parseDDMMYY reads a fixed-width "090125" as 2025-01-09.
func parseDDMMYY(s string) (civil.Date, bool) {
	if len(s) != 6 {
		return civil.Date{}, false
	}
	day, ok1 := twoDigits(s[0], s[1])
	mon, ok2 := twoDigits(s[2], s[3])
	yy, ok3 := twoDigits(s[4], s[5])
	if !ok1 || !ok2 || !ok3 {
		return civil.Date{}, false
	}
	if mon < 1 || mon > 12 || day < 1 || day > daysIn(2000+yy, mon) {
		return civil.Date{}, false
	}
	return civil.Date{Year: 2000 + yy, Month: time.Month(mon), Day: day}, true
}

func twoDigits(a, b byte) (int, bool) {
	a, b = a-'0', b-'0'
	if a > 9 || b > 9 {
		return 0, false
	}
	return int(a)*10 + int(b), true
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// toInt follows integer-conversion semantics: strings are trimmed and parsed
// in base 10, floats truncate toward zero, bools become 0 or 1.
func toInt(raw any) (any, error) {
	switch x := raw.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, errors.Newf("integer %d out of range", x)
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, errors.Newf("integer %d out of range", x)
		}
		return int64(x), nil
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		return parseInt(x)
	case []byte:
		return parseInt(string(x))
	default:
		return nil, errors.Newf("cannot convert %T to integer", raw)
	}
}

func parseInt(s string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, errors.Newf("invalid integer literal %q", s)
	}
	return n, nil
}

func floatToInt(f float64) (any, error) {
	if math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, errors.Newf("float %v out of integer range", f)
	}
	return int64(f), nil
}

// toFloat never fails: a string that is not a number is kept as text and left
// for the engine to accept or reject.
func toFloat(raw any) any {
	switch x := raw.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case bool:
		if x {
			return 1.0
		}
		return 0.0
	case string, []byte:
		s := strings.TrimSpace(Text(x))
		if s == "" {
			return 0.0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Text(x)
		}
		return f
	default:
		return Text(raw)
	}
}

// Text renders v the way it is stored in a text column.
func Text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(TextLayout)
	case civil.Date:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}
