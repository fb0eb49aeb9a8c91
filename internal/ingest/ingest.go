// Package ingest loads tabular rows into a table one insert at a time.
//
// Every row is normalized against the table's catalog schema and handed to
// the adapter's Insert. A failing row is recorded in the Result and the loop
// moves on; only a schema lookup failure or context cancellation stops a run.
//
// Logging: every Options.ProgressEvery rows a progress line is emitted with
// running totals and rows/sec since the previous line.
package ingest

import (
	"context"
	"fmt"
	"iter"
	"time"

	"dbaccess/internal/metrics"
	"dbaccess/internal/normalize"
	"dbaccess/internal/storage"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultProgressEvery is used when Options.ProgressEvery is zero.
const DefaultProgressEvery = 10_000

// Target is the part of storage.Operations a pipeline needs. Both adapters
// and *storage.Conn satisfy it.
type Target interface {
	TableSchema(ctx context.Context, table string) (*storage.ColumnSchema, error)
	Insert(ctx context.Context, table string, data *storage.Row) storage.OperationResult
}

// Options tune a Pipeline. The zero value is usable.
type Options struct {
	Logger *zap.SugaredLogger
	// ProgressEvery is the progress log interval in rows; negative disables it.
	ProgressEvery int
}

// Pipeline ingests rows into tables reachable through one Target. Like the
// adapters it wraps, a Pipeline is not meant for concurrent use.
type Pipeline struct {
	target Target
	log    *zap.SugaredLogger
	every  int
}

// New returns a pipeline writing through target.
func New(target Target, opts Options) *Pipeline {
	p := &Pipeline{target: target, log: opts.Logger, every: opts.ProgressEvery}
	if p.log == nil {
		p.log = zap.NewNop().Sugar()
	}
	if p.every == 0 {
		p.every = DefaultProgressEvery
	}
	return p
}

// RowError is one failed row. Index is the 1-based position of the row in
// the source iteration order.
type RowError struct {
	Index   int
	Message string
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %s", e.Index, e.Message) }

// Is makes every RowError match storage.ErrRow.
func (e RowError) Is(target error) bool { return target == storage.ErrRow }

// Result summarizes a run. Attempted == Succeeded + Failed and
// len(Errors) == Failed, with Errors ordered by Index.
type Result struct {
	RunID     string
	Table     string
	Attempted int
	Succeeded int
	Failed    int
	Errors    []RowError
	Elapsed   time.Duration
}

func (r *Result) fail(index int, msg string) {
	r.Failed++
	r.Errors = append(r.Errors, RowError{Index: index, Message: msg})
}

// Ingest loads rows into table.
func (p *Pipeline) Ingest(ctx context.Context, table string, rows []*storage.Row) (Result, error) {
	return p.IngestSeq(ctx, table, func(yield func(*storage.Row, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	})
}

// IngestSeq loads rows produced by seq into table. A non-nil error yielded
// by seq counts as a failed row at that position.
//
// The schema is fetched once up front; if that fails nothing is attempted
// and the error is returned. On cancellation the partial Result is returned
// together with ctx.Err().
func (p *Pipeline) IngestSeq(ctx context.Context, table string, seq iter.Seq2[*storage.Row, error]) (res Result, err error) {
	res = Result{RunID: uuid.NewString(), Table: table}
	start := time.Now()
	log := p.log.With("run_id", res.RunID, "table", table)

	defer func() {
		res.Elapsed = time.Since(start)
		metrics.RecordIngest(table, err, res.Elapsed)
		metrics.RecordRows(table, "attempted", int64(res.Attempted))
		metrics.RecordRows(table, "succeeded", int64(res.Succeeded))
		metrics.RecordRows(table, "failed", int64(res.Failed))
	}()

	schema, err := p.target.TableSchema(ctx, table)
	if err != nil {
		log.Errorw("ingest: schema lookup failed", "err", err)
		return res, errors.Wrapf(err, "ingest %s: schema", table)
	}
	log.Infow("ingest: start", "columns", schema.Columns())

	var (
		lastTS    = start
		lastCount int
	)
	progress := func() {
		now := time.Now()
		sinceLast := now.Sub(lastTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(res.Attempted-lastCount) / sinceLast.Seconds()
		}
		log.Infow("ingest: progress",
			"attempted", res.Attempted,
			"succeeded", res.Succeeded,
			"failed", res.Failed,
			"rps", fmt.Sprintf("%.0f", rps),
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
		)
		lastTS, lastCount = now, res.Attempted
	}

	for row, srcErr := range seq {
		if err = ctx.Err(); err != nil {
			break
		}
		res.Attempted++
		idx := res.Attempted

		if srcErr != nil {
			res.fail(idx, srcErr.Error())
		} else if msg, ok := p.one(ctx, table, row, schema); ok {
			res.Succeeded++
		} else {
			res.fail(idx, msg)
			log.Debugw("ingest: row failed", "row", idx, "err", msg)
		}

		if p.every > 0 && res.Attempted%p.every == 0 {
			progress()
		}
	}

	log.Infow("ingest: done",
		"attempted", res.Attempted,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"elapsed", time.Since(start).Truncate(time.Millisecond),
	)
	if err != nil {
		return res, errors.Wrapf(err, "ingest %s: stopped after %d rows", table, res.Attempted)
	}
	return res, nil
}

// one normalizes and inserts a single row, returning the failure message.
func (p *Pipeline) one(ctx context.Context, table string, row *storage.Row, schema *storage.ColumnSchema) (string, bool) {
	nr, err := normalize.Row(row, schema)
	if err != nil {
		return err.Error(), false
	}
	op := p.target.Insert(ctx, table, nr)
	if !op.Success {
		return op.Error, false
	}
	return "", true
}

// Indexes returns the row indexes of the failed rows.
func (r Result) Indexes() []int {
	out := make([]int, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Index
	}
	return out
}
