// SPDX-License-Identifier: MIT

// Package config loads the application configuration with precedence
// ENV > file > defaults, then validates it as a whole.
package config

import (
	"time"
)

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	DataDir  string        `yaml:"dataDir"`
	LogLevel string        `yaml:"logLevel"`
	LogFile  LogFileConfig `yaml:"logFile"`

	// Timezone is the fixed offset every document is written in, and the
	// default offset of schedule sources.
	Timezone string `yaml:"timezone"`
	// Days is the stitching window length (3..7).
	Days int `yaml:"days"`
	// IDSuffix is appended to derived channel ids ("PTV News" -> "PTV.News.pk").
	IDSuffix    string `yaml:"idSuffix"`
	Concurrency int    `yaml:"concurrency"`
	// Gzip writes a .gz companion next to every document.
	Gzip bool `yaml:"gzip"`

	HTTP     HTTPConfig     `yaml:"http"`
	Gap      FillerConfig   `yaml:"gap"`
	Fallback FallbackConfig `yaml:"fallback"`

	Feeds    []FeedConfig    `yaml:"feeds"`
	Channels []ChannelConfig `yaml:"channels"`
	Guides   []GuideConfig   `yaml:"guides"`

	Server ServerConfig `yaml:"server"`
	Daemon DaemonConfig `yaml:"daemon"`

	// Version is stamped from the binary, never read from the file.
	Version string `yaml:"-"`
}

// LogFileConfig enables a rotated log file next to stdout.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// HTTPConfig tunes the source transport.
type HTTPConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	Retries          int           `yaml:"retries"`
	Backoff          time.Duration `yaml:"backoff"`
	MaxBackoff       time.Duration `yaml:"maxBackoff"`
	RatePerHost      float64       `yaml:"ratePerHost"`
	Burst            int           `yaml:"burst"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
	MaxBodyMB        int           `yaml:"maxBodyMB"`
	UserAgent        string        `yaml:"userAgent"`
}

// FillerConfig is the text of synthetic programmes.
type FillerConfig struct {
	Title    string `yaml:"title"`
	SubTitle string `yaml:"subTitle"`
	Desc     string `yaml:"desc"`
}

// FallbackConfig shapes the grid used for channels without listings.
type FallbackConfig struct {
	FillerConfig `yaml:",inline"`
	Days         int           `yaml:"days"`
	Slot         time.Duration `yaml:"slot"`
}

// FeedConfig is a bulk XMLTV feed mirrored into the data directory.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// Output is relative to the data directory; default feeds/<name>.xml.
	Output string `yaml:"output"`
}

// SelectorConfig picks HTML elements by tag and class.
type SelectorConfig struct {
	Tag   string `yaml:"tag"`
	Class string `yaml:"class"`
}

// ReferenceConfig names a feed channel whose descriptions fill ours.
type ReferenceConfig struct {
	Feed      string  `yaml:"feed"`
	URL       string  `yaml:"url"`
	Channel   string  `yaml:"channel"`
	Threshold float64 `yaml:"threshold"`
}

// ChannelConfig describes one generated channel.
type ChannelConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Logo string `yaml:"logo"`

	Kind string   `yaml:"kind"`
	URLs []string `yaml:"urls"`
	// Feed names a mirrored feed for kind xmltv.
	Feed          string         `yaml:"feed"`
	SourceChannel string         `yaml:"sourceChannel"`
	TimeSelector  SelectorConfig `yaml:"timeSelector"`
	TitleSelector SelectorConfig `yaml:"titleSelector"`
	// Timezone is the offset the source's clock times are in; default is
	// the global timezone.
	Timezone string `yaml:"timezone"`

	Outputs           []string         `yaml:"outputs"`
	FillGaps          *bool            `yaml:"fillGaps"`
	TitleCase         bool             `yaml:"titleCase"`
	DescribeFromTitle bool             `yaml:"describeFromTitle"`
	Reference         *ReferenceConfig `yaml:"reference"`
	// Refresh skips the freshness guard.
	Refresh bool `yaml:"refresh"`
}

// GuideConfig is one aggregated document.
type GuideConfig struct {
	Name string `yaml:"name"`
	// Inputs are directories under the data directory.
	Inputs  []string `yaml:"inputs"`
	Pattern string   `yaml:"pattern"`
	Output  string   `yaml:"output"`
}

// ServerConfig configures serve mode.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit       int           `yaml:"rateLimit"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DaemonConfig configures the scheduled runner.
type DaemonConfig struct {
	Schedule string `yaml:"schedule"`
	LockFile string `yaml:"lockFile"`
	// RunOnStart triggers one run before waiting for the schedule.
	RunOnStart bool `yaml:"runOnStart"`
}

// Defaults used when neither file nor environment set a value.
const (
	DefaultTimezone    = "+05:00"
	DefaultDays        = 7
	DefaultIDSuffix    = "pk"
	DefaultConcurrency = 4
	DefaultListen      = ":8080"
	DefaultSchedule    = "0 */6 * * *"
	DefaultPattern     = "*.xml"
	DefaultThreshold   = 0.45
)

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		DataDir:     "data",
		LogLevel:    "info",
		Timezone:    DefaultTimezone,
		Days:        DefaultDays,
		IDSuffix:    DefaultIDSuffix,
		Concurrency: DefaultConcurrency,
		Gzip:        true,
		HTTP: HTTPConfig{
			Timeout:          30 * time.Second,
			Retries:          3,
			Backoff:          500 * time.Millisecond,
			MaxBackoff:       10 * time.Second,
			RatePerHost:      2,
			Burst:            4,
			BreakerThreshold: 5,
			BreakerReset:     time.Minute,
			MaxBodyMB:        256,
		},
		Gap: FillerConfig{
			Title: "Special Programme",
			Desc:  "Special Programme",
		},
		Fallback: FallbackConfig{
			FillerConfig: FillerConfig{
				Title:    "Generic Show",
				SubTitle: "Generic Show Category",
				Desc:     "Regular programming. Listings for this channel are not available.",
			},
			Days: 3,
			Slot: time.Hour,
		},
		Server: ServerConfig{
			Listen:          DefaultListen,
			RateLimit:       120,
			ShutdownTimeout: 10 * time.Second,
		},
		Daemon: DaemonConfig{
			Schedule: DefaultSchedule,
		},
	}
}

// GapsEnabled reports whether gap filling applies to the channel (default on).
func (c ChannelConfig) GapsEnabled() bool {
	return c.FillGaps == nil || *c.FillGaps
}

// FeedOutput is the data-relative path of a mirrored feed.
func (f FeedConfig) FeedOutput() string {
	if f.Output != "" {
		return f.Output
	}
	return "feeds/" + f.Name + ".xml"
}

// FindFeed returns the feed with the given name.
func (c AppConfig) FindFeed(name string) (FeedConfig, bool) {
	for _, f := range c.Feeds {
		if f.Name == name {
			return f, true
		}
	}
	return FeedConfig{}, false
}
