// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkepg/epgstitch/internal/jobs"
)

func newRunCommand(cc *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Mirror feeds, generate every channel and aggregate every guide",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cc.config()
			if err != nil {
				return err
			}
			deps := buildDeps(cfg)

			var report *jobs.RunReport
			runErr := withRunLock(cfg, func() error {
				var err error
				report, err = jobs.Run(cmd.Context(), cfg, deps, force)
				return err
			})
			if report != nil {
				out := cmd.OutOrStdout()
				if len(report.Feeds) > 0 {
					fmt.Fprintln(out, feedTable(report.Feeds))
				}
				if report.Generate != nil {
					fmt.Fprintln(out, channelTable(report.Generate))
				}
				if len(report.Guides) > 0 {
					fmt.Fprintln(out, guideTable(report.Guides))
				}
			}
			return runErr
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "ignore the once-a-day freshness guard")
	return cmd
}
