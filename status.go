package indexerd

// Status is the lifecycle state of a single indexer execution session (§4.5).
type Status string

const (
	StatusRegistered Status = "registered"
	StatusRunning    Status = "running"
	StatusStopped    Status = "stopped"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRegistered, StatusRunning, StatusStopped, StatusCompleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether an indexer in this status will not process any
// further batches without external intervention (a restart for Stopped, or
// nothing for Completed since the end-block was reached).
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusCompleted
}
