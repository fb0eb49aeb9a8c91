// Package postgres registers the PostgreSQL backend, built directly on pgx v5
// (no database/sql layer). Each session is a single *pgx.Conn; callers write
// "%s" placeholders, rewritten to $1, $2, ... before reaching the server.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"dbaccess/internal/storage"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const defaultSchema = "public"

const catalogQuery = `SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

// DSN renders connection parameters as a postgres:// URL.
func DSN(p storage.ConnectionParams) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.Database,
	}
	return u.String()
}

// connect is a test hook that points to pgx.ConnectConfig by default.
var connect = pgx.ConnectConfig

// Connector opens one *pgx.Conn per session. The DSN is parsed on Open
// because pgx also reads PG* variables and password/service files then.
type Connector struct {
	dsn string
}

func newConnector(p storage.ConnectionParams) (storage.Connector, error) {
	return Connector{dsn: DSN(p)}, nil
}

// Open implements storage.Connector.
func (c Connector) Open(ctx context.Context) (storage.Session, error) {
	cfg, err := pgx.ParseConfig(c.dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: dsn: %w", err)
	}
	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", pgError(err))
	}
	return &session{conn: conn}, nil
}

type session struct {
	conn *pgx.Conn
}

func (s *session) Query(ctx context.Context, query string, args ...any) ([]*storage.Row, error) {
	q := storage.Rebind(query, len(args), storage.DollarBind)
	rows, err := s.conn.Query(ctx, q, toArgs(args)...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", pgError(err))
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	var out []*storage.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		r := storage.NewRow()
		for i, fd := range fds {
			r.Set(fd.Name, fromPG(vals[i]))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query: %w", pgError(err))
	}
	return out, nil
}

func (s *session) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	q := storage.Rebind(stmt, len(args), storage.DollarBind)

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin tx: %w", pgError(err))
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, q, toArgs(args)...)
	if err != nil {
		return 0, fmt.Errorf("postgres: exec: %w", pgError(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", pgError(err))
	}
	return tag.RowsAffected(), nil
}

func (s *session) TableSchema(ctx context.Context, schema, table string) (*storage.ColumnSchema, error) {
	if schema == "" {
		schema = defaultSchema
	}
	rows, err := s.Query(ctx, catalogQuery, schema, table)
	if err != nil {
		return nil, fmt.Errorf("postgres: table schema %s.%s: %w", schema, table, err)
	}
	return storage.SchemaFromRows(rows), nil
}

func (s *session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.conn.Close(ctx)
}

// pgError surfaces the server's detail and SQLSTATE, which pgx keeps out of
// the default message.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w: %s (%s)", err, pgErr.Detail, pgErr.SQLState())
	}
	return err
}

// toArgs converts values pgx cannot encode on its own.
func toArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}
	out := make([]any, len(args))
	for i, a := range args {
		if d, ok := a.(civil.Date); ok {
			out[i] = pgtype.Date{Time: d.In(time.UTC), Valid: true}
			continue
		}
		out[i] = a
	}
	return out
}

// fromPG maps pgx's decoded values onto the plain Go types callers expect.
func fromPG(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		if !t.Valid {
			return nil
		}
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return t
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(t).String()
	default:
		return v
	}
}

func init() {
	storage.Register(storage.KindPostgres, newConnector)
}
