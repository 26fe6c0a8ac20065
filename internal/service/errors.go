package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a local precondition failure. It never reaches the network.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an operation on an id absent from the current cache.
	ErrNotFound = errors.New("not found")

	// ErrRemoteUnavailable marks a failed load from the remote store.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrSyncFailure marks a mutation whose remote step failed and was rolled back.
	ErrSyncFailure = errors.New("sync failed")
)

// ValidationError describes which input was rejected.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Op names the mutation kind a SyncError belongs to.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpToggle Op = "toggle"
)

// SyncError is returned when a mutation was applied optimistically,
// the remote request failed, and the cache was rolled back.
// Draft is set for creates so the caller can offer a retry.
type SyncError struct {
	Op    Op
	ID    string
	Draft *Draft
	Err   error
}

func (e *SyncError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.ID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func (e *SyncError) Is(target error) bool { return target == ErrSyncFailure }
