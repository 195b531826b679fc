package event

import "time"

// Type identifies a task lifecycle transition
type Type string

const (
	TypeAdmitted   Type = "admitted"
	TypeRejected   Type = "rejected"
	TypeDispatched Type = "dispatched"
	TypeFinished   Type = "finished"
	TypeCancelled  Type = "cancelled"
	TypeTerminated Type = "terminated"
)

// Context describes where an event originated
type Context struct {
	RunID     string `json:"runID"`
	TaskID    int    `json:"taskID"`
	EventType Type   `json:"eventType"`
	Label     string `json:"label,omitempty"`
}

// Event wraps a payload with its origin and timestamp
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
