// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pkepg/epgstitch/internal/config"
	xglog "github.com/pkepg/epgstitch/internal/log"
	"github.com/pkepg/epgstitch/internal/validate"
	"github.com/pkepg/epgstitch/internal/version"
)

// commandContext loads the configuration once per process, after the flags
// have been parsed.
type commandContext struct {
	configPath string
	envFile    string
	logLevel   string
	logOut     io.Writer

	once sync.Once
	cfg  config.AppConfig
	err  error
}

func (c *commandContext) config() (config.AppConfig, error) {
	c.once.Do(func() {
		if err := loadEnvFile(c.envFile); err != nil {
			c.err = err
			return
		}
		c.cfg, c.err = config.NewLoader(strings.TrimSpace(c.configPath), version.Version).Load()
		if c.err != nil {
			return
		}
		if c.logLevel != "" {
			c.cfg.LogLevel = c.logLevel
		}
		xglog.Configure(xglog.Config{
			Level:   c.cfg.LogLevel,
			Output:  c.logOut,
			Service: "epgstitch",
			File: xglog.FileConfig{
				Path:       c.cfg.LogFile.Path,
				MaxSizeMB:  c.cfg.LogFile.MaxSizeMB,
				MaxBackups: c.cfg.LogFile.MaxBackups,
				MaxAgeDays: c.cfg.LogFile.MaxAgeDays,
				Compress:   c.cfg.LogFile.Compress,
			},
		})
	})
	return c.cfg, c.err
}

// loadEnvFile loads KEY=VALUE pairs without overriding the real
// environment. A missing file is fine.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	root := &cobra.Command{
		Use:           "epgstitch",
		Short:         "Build XMLTV guides from weekly broadcaster listings",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cc.logLevel != "" {
				if _, err := validate.ParseLogLevel(cc.logLevel); err != nil {
					return err
				}
			}
			cc.logOut = cmd.ErrOrStderr()
			xglog.Configure(xglog.Config{Level: cc.logLevel, Service: "epgstitch", Output: cc.logOut})
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetVersionTemplate("epgstitch {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVarP(&cc.configPath, "config", "c", "", "configuration file (YAML)")
	flags.StringVar(&cc.envFile, "env-file", ".env", "file with EPGSTITCH_* variables, loaded when present")
	flags.StringVar(&cc.logLevel, "log-level", "", "log level ("+strings.Join(validate.LogLevels, ", ")+")")

	root.AddCommand(
		newGenerateCommand(cc),
		newAggregateCommand(cc),
		newRunCommand(cc),
		newServeCommand(cc),
		newDaemonCommand(cc),
		newValidateCommand(cc),
		newVersionCommand(),
	)
	return root
}
