package dto

// IncomingVoice is a voice message received from the chat platform.
type IncomingVoice struct {
	ChatID       int64
	UserID       int64
	MessageID    int
	FileID       string
	FileUniqueID string
	Duration     int
	// Timestamp is the message date in unix seconds.
	Timestamp int64
}

// TranscriptMessage is one assistant reply produced after the user's message.
type TranscriptMessage struct {
	ID   string
	Text string
}

// RunStatus mirrors the assistant run lifecycle states.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusIncomplete     RunStatus = "incomplete"
	RunStatusExpired        RunStatus = "expired"
)

// Terminal reports whether polling can stop. requires_action is treated as
// terminal since the assistant has no tools to satisfy it.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusQueued, RunStatusInProgress, RunStatusCancelling:
		return false
	default:
		return true
	}
}

// Run is the state of an assistant run on a thread.
type Run struct {
	ID       string
	ThreadID string
	Status   RunStatus
	// LastError is set by the backend for failed runs.
	LastError string
}

// MessagePage is one page of thread messages in ascending order.
type MessagePage struct {
	Messages []TranscriptMessage
	HasMore  bool
	LastID   string
}
