package apperrors

import "fmt"

// ConfigurationError reports a missing or invalid setting found at startup.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

// RemoteServiceError wraps any failure returned by the AI backend or the chat
// platform. Op names the remote call that failed.
type RemoteServiceError struct {
	Op  string
	Err error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("remote service error during %s: %v", e.Op, e.Err)
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteServiceError{Op: op, Err: err}
}
