// SPDX-License-Identifier: MIT

package validate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// LogLevels lists the accepted log levels, most verbose first.
var LogLevels = []string{"debug", "info", "warn", "error"}

// ErrInvalidLogLevel is returned by ParseLogLevel.
var ErrInvalidLogLevel = Error{
	Field:   "logLevel",
	Message: fmt.Sprintf("invalid log level (must be: %s)", strings.Join(LogLevels, ", ")),
}

// ParseLogLevel maps a configured level onto zerolog. Levels zerolog knows
// but the configuration does not offer (trace, panic) are rejected.
func ParseLogLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(LogLevels, s) {
		return zerolog.NoLevel, ErrInvalidLogLevel
	}
	return zerolog.ParseLevel(s)
}
