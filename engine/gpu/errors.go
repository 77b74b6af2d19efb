package gpu

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrFenceTimeout is wrapped by every FenceTimeoutError.
	ErrFenceTimeout = errors.New("gpu: fence wait timed out")
	// ErrNotRecording is returned when a command buffer is used outside Begin/End.
	ErrNotRecording = errors.New("gpu: command buffer is not recording")
	// ErrNotEnded is returned when submitting a command buffer that was not ended.
	ErrNotEnded = errors.New("gpu: command buffer was not ended")
	// ErrPoolExhausted is returned when a descriptor pool has no sets left.
	ErrPoolExhausted = errors.New("gpu: descriptor pool exhausted")
	// ErrInvalidBarrier is wrapped by barrier validation failures.
	ErrInvalidBarrier = errors.New("gpu: invalid barrier")
	// ErrInvalidBinding is wrapped by descriptor set validation failures.
	ErrInvalidBinding = errors.New("gpu: invalid binding")
)

// FenceTimeoutError reports a fence that was not signaled within its timeout.
type FenceTimeoutError struct {
	Label   string
	Timeout time.Duration
}

func (e *FenceTimeoutError) Error() string {
	return fmt.Sprintf("gpu: fence %q not signaled after %s", e.Label, e.Timeout)
}

func (e *FenceTimeoutError) Unwrap() error {
	return ErrFenceTimeout
}
