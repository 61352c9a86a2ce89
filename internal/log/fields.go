// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Guide fields
	FieldChannel = "channel"
	FieldGuide   = "guide"
	FieldSource  = "source"
	FieldFeed    = "feed"

	// Path / URL fields
	FieldPath = "path"
	FieldURL  = "url"
)
