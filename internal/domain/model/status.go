package model

const (
	SessionStatusSubmitted      = "submitted"
	SessionStatusTaskStart      = "task-start"
	SessionStatusTaskContinued  = "task-continued"
	SessionStatusTaskFinished   = "task-finished"
	SessionStatusTaskTerminated = "task-terminated"
	SessionStatusChargingError  = "charging-error"
	SessionStatusError          = "error"
)

// StatusMessage is every outbound message of a client session.
type StatusMessage struct {
	Status string     `json:"status"`
	Output *JobOutput `json:"output,omitempty"` // task-finished only; nil when the client ended the job
	Data   string     `json:"data,omitempty"`   // error details for "error" and "charging-error"
}
