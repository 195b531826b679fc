package scheduler

import "errors"

var (
	// ErrAdmissionFailed is returned when a process cannot reserve its memory.
	// The returned error also wraps the allocator cause.
	ErrAdmissionFailed = errors.New("scheduler: admission failed")

	// ErrNotFound is returned when a process id is not in the running table.
	ErrNotFound = errors.New("scheduler: process not found")

	// ErrStopped is returned when admitting into a stopped scheduler.
	ErrStopped = errors.New("scheduler: stopped")

	// ErrInvalidArgument indicates an empty label or a zero memory request.
	ErrInvalidArgument = errors.New("scheduler: invalid argument")
)
