package inbox

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when no session or stored tokens
	// exist for the requesting user.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrIntegrationUnavailable is returned when tokens exist but a
	// working Gmail client could not be established.
	ErrIntegrationUnavailable = errors.New("gmail integration unavailable")
)

// CallError wraps a failed provider call with the operation name and the
// identifiers involved, so handlers can report which thread or message a
// failure belongs to.
type CallError struct {
	Op        string
	ThreadID  string
	MessageID string
	Err       error
}

func (e *CallError) Error() string {
	switch {
	case e.ThreadID != "" && e.MessageID != "":
		return fmt.Sprintf("%s: thread %s message %s: %v", e.Op, e.ThreadID, e.MessageID, e.Err)
	case e.ThreadID != "":
		return fmt.Sprintf("%s: thread %s: %v", e.Op, e.ThreadID, e.Err)
	case e.MessageID != "":
		return fmt.Sprintf("%s: message %s: %v", e.Op, e.MessageID, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// callErr builds a CallError for an operation on a thread.
func callErr(op, threadID, messageID string, err error) *CallError {
	return &CallError{Op: op, ThreadID: threadID, MessageID: messageID, Err: err}
}
