package main

import (
	"strings"

	"dbaccess/internal/normalize"
	"dbaccess/internal/storage"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// nullLiteral in a --set value stores NULL.
const nullLiteral = `\N`

func params(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func newQueryCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "query SQL [PARAM...]",
		Short: "Run a read-only statement and print its rows",
		Example: `  dbaccess query "SELECT id, name FROM tst.test WHERE state = %s" 0
  dbaccess --kind sqlite --database local.db query "SELECT * FROM t WHERE id = ?" 1 -f json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ad, err := a.adapter()
			if err != nil {
				return err
			}
			rows, err := ad.Select(cmd.Context(), args[0], params(args[1:])...)
			if err != nil {
				return err
			}
			return renderRows(cmd.OutOrStdout(), rows, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json, csv, md")
	return cmd
}

func newSelectCmd(a *app) *cobra.Command {
	var (
		format  string
		columns []string
		where   string
	)
	cmd := &cobra.Command{
		Use:   "select TARGET [PARAM...]",
		Short: "Select from a table, or run TARGET as a query when no --columns/--where is given",
		Example: `  dbaccess select tst.test --columns id,name --where "state = %s" 1
  dbaccess select "SELECT count(*) AS n FROM tst.test"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ad, err := a.adapter()
			if err != nil {
				return err
			}
			rows, err := ad.SelectWhere(cmd.Context(), args[0], columns, where, params(args[1:])...)
			if err != nil {
				return err
			}
			return renderRows(cmd.OutOrStdout(), rows, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json, csv, md")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to select (default *)")
	cmd.Flags().StringVar(&where, "where", "", "WHERE clause, with placeholders for PARAMs")
	return cmd
}

func newExecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec STATEMENT [PARAM...]",
		Short: "Run a statement in its own transaction and print the outcome",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ad, err := a.adapter()
			if err != nil {
				return err
			}
			return renderResult(cmd.OutOrStdout(), ad.Execute(cmd.Context(), args[0], params(args[1:])...))
		},
	}
}

// parseSet turns col=value pairs into a row, keeping flag order.
func parseSet(pairs []string) (*storage.Row, error) {
	row := storage.NewRow()
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.WithHint(errors.Newf("bad --set %q", p), "use --set column=value")
		}
		if value == nullLiteral {
			row.Set(name, nil)
			continue
		}
		row.Set(name, value)
	}
	return row, nil
}

// typedRow normalizes data against table's catalog types unless raw is set.
func typedRow(cmd *cobra.Command, ops storage.Operations, table string, data *storage.Row, raw bool) (*storage.Row, error) {
	if raw {
		return data, nil
	}
	cs, err := ops.TableSchema(cmd.Context(), table)
	if err != nil {
		return nil, err
	}
	for _, c := range data.Columns() {
		if !cs.Has(c) {
			return nil, errors.Newf("table %s has no column %s", table, c)
		}
	}
	return normalize.Row(data, cs)
}

func newInsertCmd(a *app) *cobra.Command {
	var (
		set []string
		raw bool
	)
	cmd := &cobra.Command{
		Use:     "insert TABLE --set col=value...",
		Short:   "Insert one row; values are converted to the column types unless --raw",
		Example: `  dbaccess insert tst.test --set id=5 --set name=5Name --set updated=2512090506`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseSet(set)
			if err != nil {
				return err
			}
			return a.withAdapter(cmd.Context(), func(ops storage.Operations) error {
				row, err := typedRow(cmd, ops, args[0], data, raw)
				if err != nil {
					return err
				}
				return renderResult(cmd.OutOrStdout(), ops.Insert(cmd.Context(), args[0], row))
			})
		},
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, `column=value; \N stores NULL`)
	cmd.Flags().BoolVar(&raw, "raw", false, "bind values as text without catalog conversion")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var (
		set   []string
		where string
		raw   bool
	)
	cmd := &cobra.Command{
		Use:     "update TABLE --set col=value... --where CLAUSE [PARAM...]",
		Short:   "Update rows matching --where",
		Example: `  dbaccess update tst.test --set state=2 --where "id = %s" 3`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseSet(set)
			if err != nil {
				return err
			}
			return a.withAdapter(cmd.Context(), func(ops storage.Operations) error {
				row, err := typedRow(cmd, ops, args[0], data, raw)
				if err != nil {
					return err
				}
				return renderResult(cmd.OutOrStdout(), ops.Update(cmd.Context(), args[0], row, where, params(args[1:])...))
			})
		},
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, `column=value; \N stores NULL`)
	cmd.Flags().StringVar(&where, "where", "", "WHERE clause (required)")
	cmd.Flags().BoolVar(&raw, "raw", false, "bind values as text without catalog conversion")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var where string
	cmd := &cobra.Command{
		Use:     "delete TABLE --where CLAUSE [PARAM...]",
		Short:   "Delete rows matching --where",
		Example: `  dbaccess delete tst.test --where "id = %s" 4`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ad, err := a.adapter()
			if err != nil {
				return err
			}
			return renderResult(cmd.OutOrStdout(), ad.Delete(cmd.Context(), args[0], where, params(args[1:])...))
		},
	}
	cmd.Flags().StringVar(&where, "where", "", "WHERE clause (required)")
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "schema TABLE",
		Short: "Print a table's columns and declared types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ad, err := a.adapter()
			if err != nil {
				return err
			}
			cs, err := ad.TableSchema(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderSchema(cmd.OutOrStdout(), args[0], cs, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json, csv, md")
	return cmd
}
