// Package mysql registers the MySQL/MariaDB backend, built on
// go-sql-driver/mysql through database/sql. Callers write "%s" placeholders;
// they are rewritten to "?" before reaching the driver.
package mysql

import (
	"context"
	"database/sql"
	"net"
	"strconv"

	"dbaccess/internal/storage"
	"dbaccess/internal/storage/sqldb"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-sql/civil"
)

const driverName = "mysql"

// openDB is a test hook that points to sql.Open by default.
var openDB = sql.Open

var dialect = sqldb.Dialect{
	Name:    "mysql",
	Bind:    storage.QuestionBind,
	Catalog: catalog,
	Arg:     arg,
}

// catalog falls back to the connection's current database when the table
// name is unqualified.
func catalog(schema, table string) (string, []any) {
	const q = `SELECT COLUMN_NAME, DATA_TYPE
FROM information_schema.columns
WHERE table_schema = COALESCE(?, DATABASE()) AND table_name = ?
ORDER BY ORDINAL_POSITION`
	if schema == "" {
		return q, []any{nil, table}
	}
	return q, []any{schema, table}
}

func arg(v any) any {
	if d, ok := v.(civil.Date); ok {
		return d.String()
	}
	return v
}

// DSN renders connection parameters in the driver's DSN format with
// DATETIME columns scanned into time.Time.
func DSN(p storage.ConnectionParams) string {
	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	cfg.DBName = p.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Connector opens one database/sql handle per session.
type Connector struct {
	DSN string
}

// Open implements storage.Connector.
func (c Connector) Open(ctx context.Context) (storage.Session, error) {
	s, err := sqldb.Open(ctx, openDB, driverName, c.DSN, dialect)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func init() {
	storage.Register(storage.KindMySQL, func(p storage.ConnectionParams) (storage.Connector, error) {
		return Connector{DSN: DSN(p)}, nil
	})
}
