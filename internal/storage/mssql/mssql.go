// Package mssql registers the Microsoft SQL Server backend, built on
// go-mssqldb through database/sql. Callers write "%s" placeholders; they are
// rewritten to @p1, @p2, ... before reaching the driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"dbaccess/internal/storage"
	"dbaccess/internal/storage/sqldb"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

const (
	driverName    = "sqlserver"
	defaultSchema = "dbo"
)

// openDB is a test hook that points to sql.Open by default.
var openDB = sql.Open

var dialect = sqldb.Dialect{
	Name:    "mssql",
	Bind:    storage.AtBind,
	Catalog: catalog,
}

func catalog(schema, table string) (string, []any) {
	if schema == "" {
		schema = defaultSchema
	}
	return `SELECT COLUMN_NAME, DATA_TYPE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION`, []any{schema, table}
}

// DSN renders connection parameters as a sqlserver:// URL.
func DSN(p storage.ConnectionParams) string {
	u := url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
	}
	q := url.Values{}
	q.Set("database", p.Database)
	u.RawQuery = q.Encode()
	return u.String()
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

// newConnector validates the DSN early to fail fast on obvious mistakes.
func newConnector(p storage.ConnectionParams) (storage.Connector, error) {
	dsn := DSN(p)
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	return Connector{DSN: dsn}, nil
}

func init() {
	storage.Register(storage.KindMSSQL, newConnector)
}
