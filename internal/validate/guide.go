// SPDX-License-Identifier: MIT

package validate

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pkepg/epgstitch/internal/epg"
)

// cronParser accepts standard five-field specs and descriptors like @daily.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Offset validates a fixed UTC offset such as "+05:00".
func (v *Validator) Offset(field, value string) {
	if _, err := epg.ParseOffset(value); err != nil {
		v.AddError(field, err.Error(), value)
	}
}

// CronSpec validates a schedule expression.
func (v *Validator) CronSpec(field, spec string) {
	if _, err := cronParser.Parse(spec); err != nil {
		v.AddError(field, fmt.Sprintf("invalid cron spec: %v", err), spec)
	}
}

// SlotLength validates a fallback slot: positive, whole minutes, and a
// divisor of one day.
func (v *Validator) SlotLength(field string, d time.Duration) {
	switch {
	case d <= 0:
		v.AddError(field, fmt.Sprintf("slot must be positive, got %s", d), d)
	case d%time.Minute != 0:
		v.AddError(field, fmt.Sprintf("slot must be whole minutes, got %s", d), d)
	case (24*time.Hour)%d != 0:
		v.AddError(field, fmt.Sprintf("slot %s does not divide 24h", d), d)
	}
}

// PositiveDuration validates d > 0.
func (v *Validator) PositiveDuration(field string, d time.Duration) {
	if d <= 0 {
		v.AddError(field, fmt.Sprintf("duration must be positive, got %s", d), d)
	}
}

// Threshold validates a similarity threshold in (0, 1].
func (v *Validator) Threshold(field string, f float64) {
	if f <= 0 || f > 1 {
		v.AddError(field, fmt.Sprintf("threshold must be in (0, 1], got %g", f), f)
	}
}
