package engine

import (
	"errors"
	"fmt"
)

// ErrStopped is returned to callers whose request arrives after Stop, or
// that were still queued when Run returned.
var ErrStopped = errors.New("engine stopped")

// RuntimeError represents an error detected while applying a request.
//
// The arena itself never fails (saturation degrades to the empty label), so
// runtime errors come from the surrounding machinery: the op log and the
// snapshot path.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Session identifies the caller's session, if any.
	Session string

	// Seq is the logical clock value of the affected op.
	Seq int64

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodePersist indicates the op was applied in memory but could not
	// be appended to the op log.
	ErrCodePersist RuntimeErrorCode = "PERSIST_FAILED"

	// ErrCodeSnapshot indicates a snapshot could not be built or stored.
	ErrCodeSnapshot RuntimeErrorCode = "SNAPSHOT_FAILED"

	// ErrCodeUnknownRequest indicates a request kind the loop cannot handle.
	ErrCodeUnknownRequest RuntimeErrorCode = "UNKNOWN_REQUEST"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Session != "" {
		msg = fmt.Sprintf("%s (session=%s, seq=%d)", msg, e.Session, e.Seq)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsPersistError returns true if the error is an op log write failure.
// Uses errors.As to handle wrapped errors.
func IsPersistError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodePersist
	}
	return false
}

func newPersistError(session string, seq int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodePersist,
		Message: "op applied but not recorded",
		Session: session,
		Seq:     seq,
		Err:     err,
	}
}
