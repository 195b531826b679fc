package memory

import "errors"

var (
	// ErrOutOfMemory is returned when no free region can hold the request.
	// Total free space may still exceed the request when it is fragmented.
	ErrOutOfMemory = errors.New("memory: out of memory")

	// ErrInvalidAddress is returned when releasing an address that does not
	// start a currently occupied region (unknown address or double free).
	ErrInvalidAddress = errors.New("memory: invalid address")

	// ErrInvalidSize indicates a zero-sized request or address space.
	ErrInvalidSize = errors.New("memory: invalid size")
)
