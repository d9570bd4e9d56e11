package recovery

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAttemptTimeout    = errors.New("failed to reconnect in a timely manner")
	ErrAttemptFailed     = errors.New("failed to reconnect")
	ErrRecoveryExhausted = errors.New("unable to recover")
)

// AttemptTimeoutError is emitted when an attempt outlives its timeout.
type AttemptTimeoutError struct {
	Attempt int
	Timeout time.Duration
}

func (e *AttemptTimeoutError) Error() string {
	return fmt.Sprintf("attempt %d: %s (timeout %s)", e.Attempt, ErrAttemptTimeout, e.Timeout)
}

func (e *AttemptTimeoutError) Is(target error) bool { return target == ErrAttemptTimeout }

// AttemptFailedError is the resolution of an attempt reported through Failed.
type AttemptFailedError struct {
	Attempt int
	Cause   error
}

func (e *AttemptFailedError) Error() string {
	if e.Cause == nil {
		return ErrAttemptFailed.Error()
	}
	return fmt.Sprintf("%s: %v", ErrAttemptFailed, e.Cause)
}

func (e *AttemptFailedError) Unwrap() error { return e.Cause }

func (e *AttemptFailedError) Is(target error) bool { return target == ErrAttemptFailed }

// RecoveryExhaustedError is emitted once MaxRetries attempts were spent.
type RecoveryExhaustedError struct {
	Attempts int
	Elapsed  time.Duration
}

func (e *RecoveryExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts (%s)", ErrRecoveryExhausted, e.Attempts, e.Elapsed)
}

func (e *RecoveryExhaustedError) Is(target error) bool { return target == ErrRecoveryExhausted }
