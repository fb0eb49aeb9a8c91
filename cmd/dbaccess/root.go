package main

import (
	"context"
	"strings"

	"dbaccess/internal/config"
	"dbaccess/internal/logging"
	"dbaccess/internal/metrics"
	"dbaccess/internal/metrics/datadog"
	"dbaccess/internal/metrics/prompush"
	"dbaccess/internal/storage"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	// every backend is linked in; backend.kind picks one at run time.
	_ "dbaccess/internal/storage/all"
)

// app carries state shared by subcommands for one invocation.
type app struct {
	cfgFile string
	envFile string

	cfg *config.Config
	log *zap.SugaredLogger
}

// execute runs root and then flushes metrics and syncs the log, also when
// the command failed.
func execute(root *cobra.Command, a *app) error {
	defer a.teardown()
	return root.Execute()
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{log: zap.NewNop().Sugar()}

	root := &cobra.Command{
		Use:   "dbaccess",
		Short: "Uniform CRUD and CSV ingestion for postgresql, mssql, mysql and sqlite",
		Long: `dbaccess talks to one relational backend through a single interface.

Statements use %s placeholders for server engines and ? for sqlite. Write
%% for a literal percent sign in statements that take parameters.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML or JSON config file")
	pf.StringVar(&a.envFile, "env-file", "", "dotenv file (default: ./.env when present)")
	pf.String("kind", "", "backend kind: postgresql, mssql, mysql, sqlite")
	pf.String("host", "", "database host")
	pf.String("database", "", "database name, or file path for sqlite")
	pf.String("user", "", "database user")
	pf.String("password", "", "database password (prefer DBACCESS_BACKEND__PASSWORD)")
	pf.Int("port", 0, "database port (0: backend default)")
	pf.String("log-level", "info", "debug, info, warn or error")
	pf.Bool("log-json", false, "log JSON lines instead of console text")
	pf.String("metrics-backend", "none", "none, prometheus or datadog")

	root.AddCommand(
		newQueryCmd(a),
		newSelectCmd(a),
		newExecCmd(a),
		newInsertCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newSchemaCmd(a),
		newIngestCmd(a),
		newValidateCmd(a),
	)
	return root, a
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Sources{File: a.cfgFile, EnvFile: a.envFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logging.NewTo(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return errors.WithHint(err, "set log.level to debug, info, warn or error")
	}
	a.log = log

	if cmd.Name() == "validate" {
		return nil
	}
	issues := config.Validate(*cfg)
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			a.log.Warnw("config", "path", iss.Path, "msg", iss.Message)
		}
	}
	if config.HasErrors(issues) {
		return issuesError(issues)
	}
	return a.setupMetrics()
}

func (a *app) setupMetrics() error {
	m := a.cfg.Metrics
	switch strings.ToLower(m.Backend) {
	case "", "none":
		return nil
	case "prometheus":
		b, err := prompush.NewBackend(m.Job, m.PushgatewayURL)
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  "dbaccess.",
			GlobalTags: []string{"job:" + m.Job},
		})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	}
	a.log.Debugw("metrics enabled", "backend", m.Backend, "job", m.Job)
	return nil
}

func (a *app) teardown() {
	if err := metrics.Flush(); err != nil {
		a.log.Warnw("metrics flush failed", "err", err)
	}
	_ = a.log.Sync()
}

// adapter builds a fresh adapter from the loaded backend section.
func (a *app) adapter() (storage.Adapter, error) {
	kind, err := storage.ParseKind(a.cfg.Backend.Kind)
	if err != nil {
		return nil, err
	}
	return storage.New(kind, a.cfg.Backend.Params(), storage.WithLogger(a.log))
}

// withAdapter runs fn with one explicit session, so multi-statement commands
// (schema lookup then write) share a connection.
func (a *app) withAdapter(ctx context.Context, fn func(storage.Operations) error) error {
	ad, err := a.adapter()
	if err != nil {
		return err
	}
	conn, err := ad.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

func issuesError(issues []config.Issue) error {
	var msgs []string
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			msgs = append(msgs, iss.Error())
		}
	}
	return errors.WithHint(
		errors.Newf("invalid configuration: %s", strings.Join(msgs, "; ")),
		"run `dbaccess validate` to list every issue")
}
