// SPDX-License-Identifier: MIT

package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every failure returned by Client.
	ErrTransport = errors.New("source transport failed")

	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound       = errors.New("source: resource not found")
	ErrRejected       = errors.New("source: request rejected (4xx)")
	ErrUnavailable    = errors.New("source: host unreachable or transport failure")
	ErrUpstream       = errors.New("source: server error (5xx)")
	ErrThrottled      = errors.New("source: too many requests")
	ErrBadResponse    = errors.New("source: invalid or oversized response")
	ErrTimeout        = errors.New("source: request timed out")
	ErrCircuitOpen    = errors.New("source: circuit breaker open")
	ErrInvalidRequest = errors.New("source: invalid request")
)

// Error wraps a sentinel with the request that produced it.
type Error struct {
	Sentinel  error
	Operation string
	URL       string
	Status    int
	Attempts  uint
	Err       error // lower-level cause (net.Error, gzip, ...)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("fetch: %s %s: %v", e.Operation, e.URL, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Attempts)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := []error{ErrTransport, e.Sentinel}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// retryable reports whether another attempt may succeed.
func retryable(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Sentinel {
	case ErrUnavailable, ErrUpstream, ErrThrottled, ErrTimeout:
		return true
	}
	return false
}

// countsAgainstHost reports whether err says something about the host's
// health rather than about the one resource.
func countsAgainstHost(err error) bool {
	return retryable(err)
}
