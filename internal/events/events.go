// Package events provides an event system for pool dispatch and worker
// lifecycle notifications.
package events

import (
	"fmt"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// EventTaskAssigned is emitted when the controller places a task in a worker slot
	EventTaskAssigned EventType = "task_assigned"
	// EventTaskProcessed is emitted when a worker finishes checking a task
	EventTaskProcessed EventType = "task_processed"
	// EventShutdown is emitted once the backlog is drained and shutdown is raised
	EventShutdown EventType = "shutdown"
	// EventWorkerExited is emitted when a worker leaves its poll loop
	EventWorkerExited EventType = "worker_exited"
)

// Event represents a pool event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Worker    int       `json:"worker"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Task  uint64 `json:"task,omitempty"`
	Prime bool   `json:"prime,omitempty"`
	Error string `json:"error,omitempty"`
}

// WorkerName returns the display name of worker i, e.g. "T-3".
func WorkerName(i int) string {
	return fmt.Sprintf("T-%d", i)
}

// NewTaskAssignedEvent creates a task assignment event
func NewTaskAssignedEvent(worker int, task uint64) Event {
	return Event{
		Type:      EventTaskAssigned,
		Timestamp: time.Now(),
		Worker:    worker,
		Data: EventData{
			Task: task,
		},
	}
}

// NewTaskProcessedEvent creates a task result event
func NewTaskProcessedEvent(worker int, task uint64, prime bool) Event {
	return Event{
		Type:      EventTaskProcessed,
		Timestamp: time.Now(),
		Worker:    worker,
		Data: EventData{
			Task:  task,
			Prime: prime,
		},
	}
}

// NewShutdownEvent creates a shutdown event. Worker is -1 since the
// controller raises it.
func NewShutdownEvent() Event {
	return Event{
		Type:      EventShutdown,
		Timestamp: time.Now(),
		Worker:    -1,
	}
}

// NewWorkerExitedEvent creates a worker exit event. err is nil on a normal
// shutdown exit.
func NewWorkerExitedEvent(worker int, err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventWorkerExited,
		Timestamp: time.Now(),
		Worker:    worker,
		Data: EventData{
			Error: errMsg,
		},
	}
}
