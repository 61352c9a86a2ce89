// SPDX-License-Identifier: MIT

// Package validate accumulates configuration errors so a bad config file is
// reported in one pass instead of one field at a time.
package validate

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
)

// Error is one failed check. Field is the dotted path into the config,
// e.g. "channels[2].feed".
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// ValidationError bundles every failed check of one pass.
type ValidationError struct {
	errors []Error
}

// Errors returns the individual failures in the order they were found.
func (e ValidationError) Errors() []Error {
	return e.errors
}

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual failures to errors.As.
func (e ValidationError) Unwrap() []error {
	out := make([]error, len(e.errors))
	for i, err := range e.errors {
		out[i] = err
	}
	return out
}

// Validator accumulates failures. Scoped validators share the list of
// their parent and prefix every field name.
type Validator struct {
	prefix string
	errs   *[]Error
}

func New() *Validator {
	return &Validator{errs: new([]Error)}
}

// Scope returns a validator whose fields are reported under prefix.
func (v *Validator) Scope(prefix string) *Validator {
	return &Validator{prefix: v.name(prefix), errs: v.errs}
}

func (v *Validator) name(field string) string {
	switch {
	case v.prefix == "":
		return field
	case field == "":
		return v.prefix
	case strings.HasPrefix(field, "["):
		return v.prefix + field
	default:
		return v.prefix + "." + field
	}
}

// AddError records a failure. An empty field reports the scope itself.
func (v *Validator) AddError(field, message string, value any) {
	*v.errs = append(*v.errs, Error{Field: v.name(field), Value: value, Message: message})
}

// IsValid reports whether nothing has failed, in any scope.
func (v *Validator) IsValid() bool {
	return len(*v.errs) == 0
}

// Errors returns every failure recorded so far, in any scope.
func (v *Validator) Errors() []Error {
	return *v.errs
}

// Err returns a ValidationError, or nil when everything passed.
func (v *Validator) Err() error {
	if v.IsValid() {
		return nil
	}
	return ValidationError{errors: slices.Clone(*v.errs)}
}

// URL validates an absolute URL with one of the allowed schemes.
func (v *Validator) URL(field, value string, allowedSchemes []string) {
	if value == "" {
		v.AddError(field, "URL cannot be empty", value)
		return
	}
	u, err := url.Parse(value)
	switch {
	case err != nil:
		v.AddError(field, fmt.Sprintf("invalid URL: %v", err), value)
	case u.Host == "":
		v.AddError(field, "URL must have a host", value)
	case len(allowedSchemes) > 0 && !slices.Contains(allowedSchemes, u.Scheme):
		v.AddError(field, fmt.Sprintf("unsupported URL scheme %q (allowed: %v)", u.Scheme, allowedSchemes), value)
	}
}

// Range validates minVal <= value <= maxVal.
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("value must be between %d and %d, got %d", minVal, maxVal, value), value)
	}
}

func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("value must be one of %v, got %q", allowed, value), value)
	}
}

func (v *Validator) Positive(field string, value int) {
	if value <= 0 {
		v.AddError(field, fmt.Sprintf("value must be positive, got %d", value), value)
	}
}

// RelativePath validates a path that is joined onto the data directory.
func (v *Validator) RelativePath(field, path string) {
	switch {
	case path == "":
		v.AddError(field, "path cannot be empty", path)
	case filepath.IsAbs(path):
		v.AddError(field, fmt.Sprintf("must be relative path, got absolute: %s", path), path)
	case !filepath.IsLocal(filepath.Clean(path)):
		v.AddError(field, fmt.Sprintf("is not a local path: %s", path), path)
	}
}

// Unique reports each duplicated value once.
func (v *Validator) Unique(field string, values []string) {
	seen := make(map[string]int, len(values))
	for _, value := range values {
		seen[value]++
		if seen[value] == 2 {
			v.AddError(field, fmt.Sprintf("duplicate value %q", value), value)
		}
	}
}
