package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/storeadmin/health"
)

// errUnhealthy makes the command exit non-zero after printing the report.
var errUnhealthy = errors.New("unhealthy")

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the backend, session, guard and cache; print a JSON report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				report := a.health().Report(cmd.Context())
				if err := report.WriteJSON(opts.out); err != nil {
					return err
				}
				if report.Status == health.StatusUnhealthy {
					return errUnhealthy
				}
				return nil
			})
		},
	}
}
