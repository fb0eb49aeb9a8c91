package storage

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Session is one live connection to an engine. Backends implement it; the
// shared CRUD logic in this package drives it.
//
// Statements arrive with the kind's caller-facing placeholder ("%s" or "?");
// sessions rewrite them to the driver's native binding.
type Session interface {
	// Query runs a read-only statement and returns all rows.
	Query(ctx context.Context, query string, args ...any) ([]*Row, error)
	// Exec runs a mutating statement in its own transaction, commits it,
	// and returns the number of affected rows.
	Exec(ctx context.Context, stmt string, args ...any) (int64, error)
	// TableSchema reads column names and declared types from the catalog.
	// An empty schema selects the backend's default.
	TableSchema(ctx context.Context, schema, table string) (*ColumnSchema, error)
	Close() error
}

// Connector opens sessions. Opening is the only place an adapter does
// network or file I/O to reach the engine.
type Connector interface {
	Open(ctx context.Context) (Session, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (Session, error)

func (f ConnectorFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

// WithSession opens a session, runs fn on it, and closes it on every exit
// path, panics included. Open failures are marked ErrConnection. A close
// failure is reported only when fn itself succeeded.
func WithSession(ctx context.Context, c Connector, fn func(Session) error) (err error) {
	s, err := c.Open(ctx)
	if err != nil {
		return errors.Mark(err, ErrConnection)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close session")
		}
	}()
	return fn(s)
}

// pinned keeps a session open across operations; Close is a no-op so that
// per-operation scoping does not tear it down.
type pinned struct{ Session }

func (pinned) Close() error { return nil }
