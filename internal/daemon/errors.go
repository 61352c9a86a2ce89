// SPDX-License-Identifier: MIT

package daemon

import (
	"errors"

	"github.com/pkepg/epgstitch/internal/api"
)

var (
	// ErrMissingRunner is returned when a manager is created without a run function.
	ErrMissingRunner = errors.New("run function is required")

	// ErrMissingStore is returned when a manager is created without a store.
	ErrMissingStore = errors.New("store is required")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("manager already started")

	// ErrRunInProgress is returned when a run is requested while one is going.
	ErrRunInProgress = api.ErrRunInProgress

	// ErrLocked is returned when another process holds the instance lock.
	ErrLocked = errors.New("another instance holds the lock")
)
