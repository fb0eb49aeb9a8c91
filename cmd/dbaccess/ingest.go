package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"dbaccess/internal/config"
	"dbaccess/internal/ingest"
	"dbaccess/internal/source/csv"
	"dbaccess/internal/source/fetch"

	"github.com/cockroachdb/errors"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type ingestFlags struct {
	job        config.Job
	strict     bool
	showErrors int
}

// jobOutcome is one job's result; err is set when the job could not run.
type jobOutcome struct {
	job config.Job
	res ingest.Result
	err error
}

func newIngestCmd(a *app) *cobra.Command {
	f := &ingestFlags{}
	cmd := &cobra.Command{
		Use:   "ingest [--table TABLE --file FILE]",
		Short: "Load CSV files into tables row by row and report per-row failures",
		Long: `Each CSV record is converted to the target column types taken from the
table catalog and inserted on its own. Rows that fail are reported and the
load continues. A file given as an http(s) URL is streamed with retries
(ingest.http). Without --table/--file the jobs from ingest.jobs in the
config file run, up to ingest.concurrency at a time, each on its own
connection.`,
		Example: `  dbaccess --kind sqlite --database local.db ingest --table t --file t.csv
  dbaccess --config jobs.yaml ingest --concurrency 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs := a.cfg.Ingest.Jobs
			if f.job.Table != "" || f.job.File != "" {
				if f.job.Table == "" || f.job.File == "" {
					return errors.New("--table and --file go together")
				}
				jobs = []config.Job{f.job}
			}
			if len(jobs) == 0 {
				return errors.WithHint(errors.New("nothing to ingest"),
					"pass --table and --file, or list ingest.jobs in the config file")
			}

			outcomes := a.runJobs(cmd.Context(), jobs)
			w := cmd.OutOrStdout()
			renderOutcomes(w, outcomes, f.showErrors)

			var err error
			for _, o := range outcomes {
				switch {
				case o.err != nil:
					err = errors.CombineErrors(err, errors.Wrapf(o.err, "job %s", o.job.Table))
				case f.strict && o.res.Failed > 0:
					err = errors.CombineErrors(err, errors.Newf("job %s: %d rows failed", o.job.Table, o.res.Failed))
				}
			}
			return err
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.job.Table, "table", "", "target table, optionally schema-qualified")
	fl.StringVar(&f.job.File, "file", "", "CSV file with a header line, or an http(s) URL")
	fl.StringVar(&f.job.CSV.Comma, "comma", ",", "field delimiter")
	fl.StringVar(&f.job.CSV.Encoding, "encoding", "utf-8", "input charset: utf-8, windows-1250, windows-1252, iso-8859-1, iso-8859-2")
	fl.BoolVar(&f.job.CSV.TrimSpace, "trim", false, "trim white space around cells")
	fl.BoolVar(&f.job.CSV.LazyQuotes, "lazy-quotes", false, "accept quotes inside unquoted fields")
	fl.BoolVar(&f.job.CSV.FoldHeaders, "fold-headers", false, "turn headers into lowercase ASCII identifiers")
	fl.BoolVar(&f.job.CSV.KeepEmpty, "keep-empty", false, "keep empty cells as empty strings instead of NULL")
	fl.StringToStringVar(&f.job.CSV.HeaderMap, "header-map", nil, "rename headers, e.g. \"Order No=order_id\"")
	fl.Int("progress-every", 10_000, "log progress every N rows (negative: never)")
	fl.Int("concurrency", 1, "jobs run at once")
	fl.BoolVar(&f.strict, "strict", false, "exit non-zero when any row fails")
	fl.IntVar(&f.showErrors, "show-errors", 10, "row errors printed per job")
	return cmd
}

// runJobs runs every job with its own adapter and connection. A failing job
// does not stop the others.
func (a *app) runJobs(ctx context.Context, jobs []config.Job) []jobOutcome {
	out := make([]jobOutcome, len(jobs))

	hc := a.cfg.Ingest.HTTP.Fetch()
	hc.Logger = a.log
	client := fetch.NewClient(hc)

	var g errgroup.Group
	if n := a.cfg.Ingest.Concurrency; n > 0 {
		g.SetLimit(n)
	}
	for i, job := range jobs {
		g.Go(func() error {
			res, err := a.runJob(ctx, client, job)
			out[i] = jobOutcome{job: job, res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *app) runJob(ctx context.Context, client *fetch.Client, job config.Job) (ingest.Result, error) {
	var (
		src *csv.Reader
		err error
	)
	if fetch.IsURL(job.File) {
		var body io.ReadCloser
		if body, err = client.Get(ctx, job.File); err == nil {
			src, err = csv.FromReadCloser(body, job.CSV.Options())
		}
	} else {
		src, err = csv.Open(job.File, job.CSV.Options())
	}
	if err != nil {
		return ingest.Result{}, err
	}
	defer src.Close()

	ad, err := a.adapter()
	if err != nil {
		return ingest.Result{}, err
	}
	conn, err := ad.Connect(ctx)
	if err != nil {
		return ingest.Result{}, err
	}
	defer conn.Close()

	p := ingest.New(conn, ingest.Options{
		Logger:        a.log.With("file", job.File),
		ProgressEvery: a.cfg.Ingest.ProgressEvery,
	})
	return p.IngestSeq(ctx, job.Table, src.Rows())
}

func renderOutcomes(w io.Writer, outcomes []jobOutcome, showErrors int) {
	t := newTable(w, "table", "file", "attempted", "succeeded", "failed", "elapsed", "status")
	for _, o := range outcomes {
		status := "ok"
		switch {
		case o.err != nil:
			status = "aborted"
		case o.res.Failed > 0:
			status = "partial"
		}
		t.AppendRow(table.Row{
			o.job.Table, o.job.File,
			o.res.Attempted, o.res.Succeeded, o.res.Failed,
			o.res.Elapsed.Truncate(time.Millisecond), status,
		})
	}
	t.Render()

	for _, o := range outcomes {
		if o.err != nil {
			_, _ = fmt.Fprintf(w, "%s: %v\n", o.job.Table, o.err)
			continue
		}
		for i, e := range o.res.Errors {
			if i == showErrors {
				_, _ = fmt.Fprintf(w, "%s: ... %d more failed rows\n", o.job.Table, len(o.res.Errors)-i)
				break
			}
			_, _ = fmt.Fprintf(w, "%s: %v\n", o.job.Table, e)
		}
	}
}
