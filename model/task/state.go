package task

// State represents the lifecycle state of a task
type State string

const (
	// StateReady marks an admitted task waiting in the ready queue
	StateReady State = "ready"
	// StateRunning marks a dispatched task executing on its own unit
	StateRunning State = "running"
	// StateFinished marks a task that completed and released its memory
	StateFinished State = "finished"
	// StateCancelled marks a task dropped from the ready queue on stop
	StateCancelled State = "cancelled"
)

// IsTerminal returns true when the task no longer holds memory
func (s State) IsTerminal() bool {
	return s == StateFinished || s == StateCancelled
}
