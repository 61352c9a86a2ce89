// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	"github.com/pkepg/epgstitch/internal/api"
)

func newServeCommand(cc *commandContext) *cobra.Command {
	var (
		listen string
		noRun  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generated documents over HTTP",
		Long: "Serve the data directory under /guides/, with health, readiness and\n" +
			"metrics endpoints. POST /api/v1/run triggers a run unless --no-run is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cc.config()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			deps := buildDeps(cfg)

			opts := api.Options{
				Config: cfg.Server,
				Store:  deps.Store,
				Guides: guideOutputs(cfg),
			}
			if !noRun {
				opts.Run = lockedRunner(cfg, deps)
			}
			return api.New(opts).ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen)")
	cmd.Flags().BoolVar(&noRun, "no-run", false, "disable the on-demand run endpoint")
	return cmd
}
