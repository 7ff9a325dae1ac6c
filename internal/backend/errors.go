package backend

import (
	"errors"
	"fmt"
)

// ValidationError is a local, pre-network rejection. The user corrects the
// selection and retries; no request was sent.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NetworkError is a transport-level failure talking to the accounting
// backend. Surfaced as retryable; the client itself never retries.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend unreachable during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RemoteError is a non-2xx answer from the backend. Detail carries the
// backend-supplied message when one was present.
type RemoteError struct {
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// IsAuthError reports whether err is a backend 401/403.
func IsAuthError(err error) bool {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Status == 401 || remote.Status == 403
	}
	return false
}
