package storage

import (
	"context"
	"strings"
	"time"

	"dbaccess/internal/metrics"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Operations is the uniform CRUD contract every engine honors.
//
// Statements use the kind's placeholder ("%s" for server engines, "?" for
// SQLite). Reads propagate errors; writes report them in an
// OperationResult instead.
type Operations interface {
	// Select runs a read-only statement and returns every row.
	Select(ctx context.Context, query string, params ...any) ([]*Row, error)

	// SelectWhere has two modes. With no columns and an empty where, target
	// is a complete query and runs as-is. Otherwise target is a table name
	// and the statement is SELECT {columns or *} FROM target [WHERE where].
	SelectWhere(ctx context.Context, target string, columns []string, where string, params ...any) ([]*Row, error)

	// Execute runs one mutating statement in its own transaction.
	Execute(ctx context.Context, statement string, params ...any) OperationResult

	// Insert writes one row, columns in row order.
	Insert(ctx context.Context, table string, data *Row) OperationResult

	// Update sets data's columns on rows matching where. Data values bind
	// before params.
	Update(ctx context.Context, table string, data *Row, where string, params ...any) OperationResult

	// Delete removes rows matching where.
	Delete(ctx context.Context, table string, where string, params ...any) OperationResult

	// TableSchema returns declared column types for a bare or
	// schema-qualified table name.
	TableSchema(ctx context.Context, table string) (*ColumnSchema, error)
}

// Adapter is an engine-bound Operations set. Adapters hold no connection
// between calls: each operation opens and releases its own session. An
// adapter is not meant to be shared between goroutines; build one per
// worker instead.
type Adapter interface {
	Operations

	Kind() Kind
	Params() ConnectionParams

	// Connect opens a live session that Conn reuses for every operation
	// until Close.
	Connect(ctx context.Context) (*Conn, error)
}

// ops implements Operations over a Connector.
type ops struct {
	kind      Kind
	connector Connector
	log       *zap.SugaredLogger
}

func (o *ops) run(ctx context.Context, op string, fn func(Session) error) error {
	start := time.Now()
	err := WithSession(ctx, o.connector, fn)
	err = queryError(err)
	d := time.Since(start)
	metrics.RecordOp(string(o.kind), op, err, d)
	if err != nil {
		o.log.Debugw("operation failed", "kind", o.kind, "op", op, "duration", d, "error", err)
	} else {
		o.log.Debugw("operation done", "kind", o.kind, "op", op, "duration", d)
	}
	return err
}

func (o *ops) Select(ctx context.Context, query string, params ...any) ([]*Row, error) {
	var out []*Row
	err := o.run(ctx, "select", func(s Session) error {
		rows, err := s.Query(ctx, query, params...)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (o *ops) SelectWhere(ctx context.Context, target string, columns []string, where string, params ...any) ([]*Row, error) {
	if len(columns) == 0 && strings.TrimSpace(where) == "" {
		return o.Select(ctx, target, params...)
	}
	return o.Select(ctx, BuildSelect(target, columns, where), params...)
}

func (o *ops) Execute(ctx context.Context, statement string, params ...any) OperationResult {
	var n int64
	err := o.run(ctx, "execute", func(s Session) error {
		var err error
		n, err = s.Exec(ctx, statement, params...)
		return err
	})
	if err != nil {
		return Failed(err)
	}
	return Succeeded(n)
}

func (o *ops) Insert(ctx context.Context, table string, data *Row) OperationResult {
	if data.Len() == 0 {
		return Failed(errors.Mark(errors.Newf("insert into %s: no columns", table), ErrQuery))
	}
	stmt := BuildInsert(table, data.Columns(), o.kind.Placeholder())
	return o.Execute(ctx, stmt, data.Values()...)
}

func (o *ops) Update(ctx context.Context, table string, data *Row, where string, params ...any) OperationResult {
	if data.Len() == 0 {
		return Failed(errors.Mark(errors.Newf("update %s: no columns", table), ErrQuery))
	}
	if strings.TrimSpace(where) == "" {
		return Failed(errors.WithHint(
			errors.Mark(errors.Newf("update %s: empty where clause", table), ErrQuery),
			"use Execute for statements that touch every row"))
	}
	stmt := BuildUpdate(table, data.Columns(), where, o.kind.Placeholder())
	args := append(data.Values(), params...)
	return o.Execute(ctx, stmt, args...)
}

func (o *ops) Delete(ctx context.Context, table string, where string, params ...any) OperationResult {
	if strings.TrimSpace(where) == "" {
		return Failed(errors.WithHint(
			errors.Mark(errors.Newf("delete from %s: empty where clause", table), ErrQuery),
			"use Execute for statements that touch every row"))
	}
	return o.Execute(ctx, BuildDelete(table, where), params...)
}

func (o *ops) TableSchema(ctx context.Context, table string) (*ColumnSchema, error) {
	schema, name := ParseQualifiedName(table)
	if name == "" {
		return nil, errors.Mark(errors.New("table schema: empty table name"), ErrQuery)
	}
	var out *ColumnSchema
	err := o.run(ctx, "table_schema", func(s Session) error {
		cs, err := s.TableSchema(ctx, schema, name)
		if err != nil {
			return err
		}
		if cs.Len() == 0 {
			return errors.Newf("table %s not found or has no columns", table)
		}
		out = cs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// adapter is the Adapter returned by the factory.
type adapter struct {
	ops
	params ConnectionParams
}

var _ Adapter = (*adapter)(nil)

func (a *adapter) Kind() Kind               { return a.kind }
func (a *adapter) Params() ConnectionParams { return a.params }

func (a *adapter) Connect(ctx context.Context) (*Conn, error) {
	s, err := a.connector.Open(ctx)
	if err != nil {
		return nil, errors.Mark(err, ErrConnection)
	}
	a.log.Debugw("session opened", "kind", a.kind, "target", a.params.String())
	return &Conn{
		ops: ops{
			kind: a.kind,
			connector: ConnectorFunc(func(context.Context) (Session, error) {
				return pinned{s}, nil
			}),
			log: a.log,
		},
		session: s,
	}, nil
}

// Conn runs Operations on a single live session. Close releases it.
type Conn struct {
	ops
	session Session
	closed  bool
}

var _ Operations = (*Conn)(nil)

// Close releases the session. Calling it twice is harmless.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.session.Close()
}
