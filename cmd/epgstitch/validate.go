// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkepg/epgstitch/internal/config"
)

func newValidateCommand(cc *commandContext) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cc.config()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !quiet {
				fmt.Fprintln(out, configChannelTable(cfg))
			}
			fmt.Fprintf(out, "configuration ok: %d channels, %d feeds, %d guides (timezone %s, %d days)\n",
				len(cfg.Channels), len(cfg.Feeds), len(cfg.Guides), cfg.Timezone, cfg.Days)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the summary line")
	return cmd
}

func configChannelTable(cfg config.AppConfig) string {
	rows := make([][]string, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		src := strings.Join(ch.URLs, " ")
		if ch.Feed != "" {
			src = "feed:" + ch.Feed
		}
		tz := ch.Timezone
		if tz == "" {
			tz = cfg.Timezone
		}
		rows = append(rows, []string{ch.ID, ch.Name, ch.Kind, tz, src, strings.Join(ch.Outputs, ", ")})
	}
	return renderTable(
		[]string{"ID", "Name", "Kind", "Timezone", "Source", "Outputs"},
		rows,
		nil,
	)
}
