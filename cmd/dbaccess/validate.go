package main

import (
	"fmt"

	"dbaccess/internal/config"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the merged configuration and list issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues := config.Validate(*a.cfg)
			w := cmd.OutOrStdout()
			for _, iss := range issues {
				_, _ = fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return errors.New("configuration is invalid")
			}
			_, _ = fmt.Fprintf(w, "configuration is valid (%s %s)\n", a.cfg.Backend.Kind, a.cfg.Backend.Params())
			return nil
		},
	}
}
