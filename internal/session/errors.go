package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/srg/acinf/internal/connection"
)

// ErrTimeout is wrapped by TimeoutError.
var ErrTimeout = errors.New("session deadline exceeded")

// TimeoutError is returned when no attempt succeeded before the deadline.
type TimeoutError struct {
	Attempts   int
	Elapsed    time.Duration
	LastReason connection.Reason
	Last       error
}

func (e *TimeoutError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%v after %d attempts in %s", ErrTimeout, e.Attempts, e.Elapsed.Round(time.Millisecond))
	}
	return fmt.Sprintf("%v after %d attempts in %s, last failure %s: %v",
		ErrTimeout, e.Attempts, e.Elapsed.Round(time.Millisecond), e.LastReason, e.Last)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// FatalError is returned when an attempt failed in a way no retry can fix.
type FatalError struct {
	Reason   connection.Reason
	Attempts int
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
