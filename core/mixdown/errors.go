package mixdown

import (
	"errors"
	"fmt"
)

// ErrNoActiveTracks is returned when a mixdown is requested with no enabled loops.
var ErrNoActiveTracks = errors.New("no active tracks to mix")

// DecodeError means fetching or decoding one loop failed. Any single failure
// aborts the whole mixdown; no partial output is produced.
type DecodeError struct {
	ResourceID string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode loop %s: %v", e.ResourceID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// RenderError is an internal invariant violation in the render stage. It
// should not occur given the decode stage's contract.
type RenderError struct {
	Reason string
}

func (e *RenderError) Error() string {
	return "render failed: " + e.Reason
}

// EncodeError is an arithmetic mismatch between the declared and actual
// output size in the encode stage.
type EncodeError struct {
	Reason string
}

func (e *EncodeError) Error() string {
	return "encode failed: " + e.Reason
}
