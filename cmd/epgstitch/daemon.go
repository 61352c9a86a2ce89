// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	"github.com/pkepg/epgstitch/internal/daemon"
)

func newDaemonCommand(cc *commandContext) *cobra.Command {
	var (
		schedule   string
		runOnStart bool
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run on a cron schedule and serve the documents",
		Long: "Hold the instance lock, run on the configured cron schedule and serve\n" +
			"the data directory until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cc.config()
			if err != nil {
				return err
			}
			if schedule != "" {
				cfg.Daemon.Schedule = schedule
			}
			if cmd.Flags().Changed("run-on-start") {
				cfg.Daemon.RunOnStart = runOnStart
			}
			deps := buildDeps(cfg)

			m, err := daemon.NewManager(daemon.Deps{
				Daemon: cfg.Daemon,
				Server: cfg.Server,
				Store:  deps.Store,
				Guides: guideOutputs(cfg),
				Run:    runner(cfg, deps),
			})
			if err != nil {
				return err
			}
			return m.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression (overrides daemon.schedule)")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run once before waiting for the schedule")
	return cmd
}
