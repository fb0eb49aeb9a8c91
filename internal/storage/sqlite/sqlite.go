// Package sqlite registers the SQLite backend. It uses the pure-Go
// modernc.org/sqlite driver through database/sql; the database parameter is
// the file path (or ":memory:").
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dbaccess/internal/storage"
	"dbaccess/internal/storage/sqldb"

	"github.com/golang-sql/civil"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// BusyTimeout is how long a session waits for another connection's lock on
// the same file before failing with SQLITE_BUSY.
const BusyTimeout = 5 * time.Second

// openDB is a test hook that points to sql.Open by default.
var openDB = sql.Open

var dialect = sqldb.Dialect{
	Name:    "sqlite",
	Catalog: catalog,
	Arg:     arg,
}

// catalog lists columns with pragma_table_info; its second argument selects
// an attached schema ("main", "temp", ...).
func catalog(schema, table string) (string, []any) {
	if schema == "" {
		return "SELECT name, type FROM pragma_table_info(?)", []any{table}
	}
	return "SELECT name, type FROM pragma_table_info(?, ?)", []any{table, schema}
}

// arg stores dates as ISO-8601 text, SQLite's conventional date form.
func arg(v any) any {
	if d, ok := v.(civil.Date); ok {
		return d.String()
	}
	return v
}

// DSN returns the driver name for path with a busy timeout pragma appended.
// In-memory databases and paths that already set busy_timeout are returned
// unchanged.
func DSN(path string) string {
	if path == "" || strings.HasPrefix(path, ":memory:") || strings.Contains(path, "busy_timeout") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", path, sep, BusyTimeout.Milliseconds())
}

// Connector opens one database/sql handle per session.
type Connector struct {
	Path string
}

// Open implements storage.Connector.
func (c Connector) Open(ctx context.Context) (storage.Session, error) {
	s, err := sqldb.Open(ctx, openDB, driverName, DSN(c.Path), dialect)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func init() {
	storage.Register(storage.KindSQLite, func(p storage.ConnectionParams) (storage.Connector, error) {
		return Connector{Path: p.Database}, nil
	})
}
