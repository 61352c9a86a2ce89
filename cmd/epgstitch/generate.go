// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkepg/epgstitch/internal/jobs"
)

func newGenerateCommand(cc *commandContext) *cobra.Command {
	var (
		channels []string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate per-channel XMLTV documents",
		Long: "Fetch the listings of every configured channel (or the ones named with\n" +
			"--channel), stitch them into a timeline and write one document per channel.\n" +
			"Channels already generated today are skipped unless --force is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cc.config()
			if err != nil {
				return err
			}
			deps := buildDeps(cfg)

			var report *jobs.Report
			runErr := withRunLock(cfg, func() error {
				var err error
				report, err = jobs.Generate(cmd.Context(), cfg, deps, jobs.GenerateOptions{
					Channels: channels,
					Force:    force,
				})
				return err
			})
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), channelTable(report))
				fmt.Fprintf(cmd.OutOrStdout(), "generated %d, fallback %d, fresh %d, failed %d\n",
					report.Count(jobs.OutcomeGenerated),
					report.Count(jobs.OutcomeFallback),
					report.Count(jobs.OutcomeFresh),
					report.Count(jobs.OutcomeFailed))
			}
			return runErr
		},
	}

	cmd.Flags().StringSliceVar(&channels, "channel", nil, "channel id to generate (repeatable)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "regenerate channels already written today")
	return cmd
}
