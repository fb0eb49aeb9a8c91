// Package sqldb implements storage.Session on top of database/sql. The
// mssql, mysql and sqlite backends share it and differ only in their
// Dialect.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"dbaccess/internal/storage"
)

// Dialect carries the per-engine details of a database/sql session.
type Dialect struct {
	// Name prefixes error messages, e.g. "mssql".
	Name string
	// Bind renders the i-th (1-based) native placeholder. Nil leaves
	// statements untouched.
	Bind func(i int) string
	// Catalog returns the query and arguments listing (name, type) pairs for
	// a table in ordinal order. Arguments use native placeholders.
	Catalog func(schema, table string) (string, []any)
	// Arg converts a bound value into something the driver accepts. Nil
	// passes values through.
	Arg func(v any) any
}

// Session is a storage.Session over one *sql.DB. The DB is expected to be
// opened for this session alone and is closed with it.
type Session struct {
	db *sql.DB
	d  Dialect
}

var _ storage.Session = (*Session)(nil)

// New wraps db.
func New(db *sql.DB, d Dialect) *Session {
	return &Session{db: db, d: d}
}

// Open opens a database with open (normally sql.Open), pings it so that
// connection failures surface here, and wraps it in a Session.
func Open(ctx context.Context, open func(driver, dsn string) (*sql.DB, error), driver, dsn string, d Dialect) (*Session, error) {
	db, err := open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.Name, err)
	}
	// Sessions are single-connection by contract.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.Name, err)
	}
	return New(db, d), nil
}

func (s *Session) rebind(q string, args []any) (string, []any) {
	if s.d.Bind != nil {
		q = storage.Rebind(q, len(args), s.d.Bind)
	}
	if s.d.Arg == nil || len(args) == 0 {
		return q, args
	}
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = s.d.Arg(a)
	}
	return q, out
}

// Query implements storage.Session.
func (s *Session) Query(ctx context.Context, query string, args ...any) ([]*storage.Row, error) {
	q, a := s.rebind(query, args)
	rows, err := s.db.QueryContext(ctx, q, a...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", s.d.Name, err)
	}
	defer rows.Close()

	out, err := ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: scan: %w", s.d.Name, err)
	}
	return out, nil
}

// Exec implements storage.Session: begin, exec, commit.
func (s *Session) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	q, a := s.rebind(stmt, args)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", s.d.Name, err)
	}
	res, err := tx.ExecContext(ctx, q, a...)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%s: exec: %w", s.d.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some statements (DDL) report no count; that is not a failure.
		n = 0
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", s.d.Name, err)
	}
	return n, nil
}

// TableSchema implements storage.Session using the dialect's catalog query.
func (s *Session) TableSchema(ctx context.Context, schema, table string) (*storage.ColumnSchema, error) {
	if s.d.Catalog == nil {
		return nil, fmt.Errorf("%s: table schema: no catalog query", s.d.Name)
	}
	q, args := s.d.Catalog(schema, table)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: table schema %s: %w", s.d.Name, table, err)
	}
	defer rows.Close()

	out, err := ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: table schema %s: %w", s.d.Name, table, err)
	}
	return storage.SchemaFromRows(out), nil
}

// Close implements storage.Session.
func (s *Session) Close() error {
	return s.db.Close()
}

// ScanRows drains rows into ordered storage rows. Byte slices become
// strings; drivers hand text and decimal columns back that way.
func ScanRows(rows *sql.Rows) ([]*storage.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []*storage.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := storage.NewRow()
		for i, c := range cols {
			r.Set(c, fromDriver(vals[i]))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func fromDriver(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
