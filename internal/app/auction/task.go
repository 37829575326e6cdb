package auction

import (
	"errors"

	"spotbroker/internal/domain/model"
)

// ErrJobEnded is returned when terminating a job that already exited or was
// already terminated.
var ErrJobEnded = errors.New("job already ended")

// Task is the capability set the auction needs from something executable.
type Task interface {
	// Start launches the job. onExit is called at most once, from another
	// goroutine, when the job exits on its own. It is never called after
	// Terminate and never from inside Start.
	Start(onExit func(model.JobOutput)) error
	// Terminate stops a started job. It fails if the job was never started
	// or has already exited.
	Terminate() error
}

type EventKind int

const (
	EventStarted    EventKind = iota // Admitted and running
	EventFinished                    // Exited on its own, or ended by the client
	EventTerminated                  // Evicted by the scheduler
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventFinished:
		return "finished"
	case EventTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Event is a job lifecycle notification. Output is set only for
// EventFinished when the job exited on its own.
type Event struct {
	Kind   EventKind
	Output *model.JobOutput
}
