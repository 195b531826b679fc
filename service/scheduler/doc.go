// Package scheduler admits tasks into a FIFO ready queue, reserving their
// memory at admission, and runs a single dispatch loop that launches every
// queued task as a concurrently executing unit. Units release their memory
// exactly once when they finish.
//
// Termination is not preemptive: TerminateProcess and Stop wait for running
// units to complete naturally and then reclaim their resources.
//
// Lock order is always scheduler before allocator; execution units release
// memory without holding the scheduler lock.
//
// Lifecycle events are queued while the lock is held and published in order
// once it is released. Stop cancels any publish still waiting on a full queue.
package scheduler
