// SPDX-License-Identifier: MIT

package epg

import (
	"errors"
	"fmt"
)

// ErrAggregationInput classifies per-document failures at merge time.
var ErrAggregationInput = errors.New("aggregation input rejected")

// InputError reports a per-channel document that is missing or malformed.
// The aggregator skips it and merges the rest.
type InputError struct {
	Document string
	Err      error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("aggregation input %s: %v", e.Document, e.Err)
}

func (e *InputError) Unwrap() []error {
	return []error{ErrAggregationInput, e.Err}
}
