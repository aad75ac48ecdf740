// ABOUTME: Trigger-capture state machine with pre/post window export
// ABOUTME: Idle to Armed on trigger, bounded post-trigger wait, linearized export
package channel

import (
	"time"

	"github.com/google/uuid"
)

// Capture states. One capture is in flight at most; triggers while armed
// or exporting are dropped.
const (
	StateIdle int32 = iota
	StateArmed
	StateExporting
)

// Capture is a linearized pre/post-trigger window in chronological order,
// oldest sample first.
type Capture struct {
	ID          string
	ChannelID   string
	Pre         int
	Post        int
	TriggeredAt time.Time
	Samples     []uint16
}

// Trigger reports an external trigger signal. It arms the capture only
// from Idle and reports whether the signal was accepted; concurrent
// triggers while a capture is in flight are ignored.
func (c *Channel) Trigger() bool {
	if !c.state.CompareAndSwap(StateIdle, StateArmed) {
		return false
	}
	c.captureComplete.Store(false)
	// The window anchors at the trigger-time cursor: pre samples behind
	// it, post samples accumulating ahead of it during the armed wait.
	go c.runCapture(time.Now(), c.ring.Cursor())
	return true
}

// runCapture waits the bounded post-trigger interval so samples after the
// trigger land in the ring, then pauses acquisition, linearizes the
// window, hands it to subscribers, and resumes. The wait is cooperative;
// tens of milliseconds of jitter are accepted.
func (c *Channel) runCapture(triggeredAt time.Time, triggerCursor uint32) {
	timer := time.NewTimer(c.postDelay)
	defer timer.Stop()

	select {
	case <-c.ctx.Done():
		c.state.Store(StateIdle)
		return
	case <-timer.C:
	}

	c.state.Store(StateExporting)
	c.source.Pause()

	start := c.ring.Back(triggerCursor, uint32(c.pre))
	samples := c.ring.Window(start, c.pre+c.post)

	c.source.Resume()

	capture := &Capture{
		ID:          uuid.NewString(),
		ChannelID:   c.id,
		Pre:         c.pre,
		Post:        c.post,
		TriggeredAt: triggeredAt,
		Samples:     samples,
	}

	c.lastCapture.Store(capture)
	c.captureCount.Add(1)
	c.fanOut(capture)

	c.captureComplete.Store(true)
	c.state.Store(StateIdle)
}

// LastCapture returns the most recent completed capture, or nil.
func (c *Channel) LastCapture() *Capture {
	return c.lastCapture.Load()
}

// CaptureComplete is the one-shot completion signal: true once a capture
// has finished and no new trigger has armed since.
func (c *Channel) CaptureComplete() bool {
	return c.captureComplete.Load()
}

func (c *Channel) CaptureCount() uint64 {
	return c.captureCount.Load()
}

// State returns the capture state machine's current state.
func (c *Channel) State() int32 {
	return c.state.Load()
}

// StateName renders the state for status endpoints.
func (c *Channel) StateName() string {
	switch c.state.Load() {
	case StateArmed:
		return "armed"
	case StateExporting:
		return "exporting"
	default:
		return "idle"
	}
}
