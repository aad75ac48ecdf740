// ABOUTME: Domain interfaces for dependency inversion
// ABOUTME: Allows channel to depend on abstractions, not concrete implementations
package domain

import (
	"context"
	"errors"
)

// ErrNoFrame is returned by FrameSource.ReadFrame when the pool is empty.
// It is an expected condition, not a failure.
var ErrNoFrame = errors.New("no frame ready")

// Event is an edge-triggered wake delivered by the acquisition pipeline.
type Event int

const (
	// EventFrameReady signals that at least one completed frame is waiting
	// in the pool.
	EventFrameReady Event = iota
	// EventPoolOverflow signals that the pipeline produced data faster than
	// it was drained and dropped a frame. Lost samples are not recovered.
	EventPoolOverflow
)

// FrameSource is the acquisition pipeline: it delivers fixed-size frames of
// raw samples and exposes the start/stop/pause controls the trigger capture
// path needs around an export window.
type FrameSource interface {
	Start(ctx context.Context) error
	Stop() error

	// Pause and Resume gate frame production around a capture export.
	Pause()
	Resume()

	// Events delivers FrameReady and PoolOverflow wakes. The channel is
	// closed when the source stops. Wakes are advisory and may be
	// coalesced under backlog; Overflows carries the exact drop count.
	Events() <-chan Event

	// Overflows reports the total number of frames dropped because the
	// pool was full. Monotonic, never reset.
	Overflows() uint64

	// ReadFrame copies the next ready frame into p and returns the number
	// of bytes written, or ErrNoFrame when the pool is empty.
	ReadFrame(p []byte) (int, error)
}

// Calibrator converts a raw ADC reading to millivolts.
type Calibrator interface {
	Convert(raw uint16) (int, error)
}
