// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkepg/epgstitch/internal/jobs"
)

func newAggregateCommand(cc *commandContext) *cobra.Command {
	var names []string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Merge per-channel documents into the configured guides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cc.config()
			if err != nil {
				return err
			}
			deps := buildDeps(cfg)

			var results []jobs.GuideResult
			runErr := withRunLock(cfg, func() error {
				var err error
				results, err = jobs.Aggregate(cmd.Context(), cfg, deps, names)
				return err
			})
			if len(results) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), guideTable(results))
			}
			return runErr
		},
	}

	cmd.Flags().StringSliceVar(&names, "name", nil, "guide to aggregate (repeatable, default all)")
	return cmd
}
