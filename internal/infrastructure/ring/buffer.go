// ABOUTME: Power-of-two circular sample buffer with a single monotonic write cursor
// ABOUTME: Cursor access is mutex-guarded, content access is unsynchronized
package ring

import (
	"errors"
	"fmt"
	"sync"
)

// ErrCapacity is returned by New for a capacity that is zero or not a
// power of two.
var ErrCapacity = errors.New("capacity must be a power of two")

// Buffer is a fixed-capacity circular store of uint16 samples. A single
// writer advances the cursor once per ingested frame; readers snapshot the
// cursor through the same mutex and then read contents without
// synchronization. A reader that falls more than one full revolution behind
// the writer sees overwritten data; that race is accepted and surfaced
// upstream as an overflow signal, not corrected here.
type Buffer struct {
	buf  []uint16
	mask uint32

	mu  sync.Mutex
	cur uint32 // next free slot
}

// New creates a buffer of the given capacity, which must be a power of two.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ring: %w: got %d", ErrCapacity, capacity)
	}
	return &Buffer{
		buf:  make([]uint16, capacity),
		mask: uint32(capacity - 1),
	}, nil
}

func (b *Buffer) Capacity() int {
	return len(b.buf)
}

// Cursor returns a consistent snapshot of the write cursor. The newest
// sample, if any has been written, is at Back(Cursor(), 1).
func (b *Buffer) Cursor() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

// Advance commits n newly written samples by moving the cursor forward.
// Called once per frame, not once per sample.
func (b *Buffer) Advance(n uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cur = (b.cur + n) & b.mask
	return b.cur
}

// Set stores v at the masked position. No synchronization: the writer owns
// positions between its cursor snapshot and the eventual commit.
func (b *Buffer) Set(pos uint32, v uint16) {
	b.buf[pos&b.mask] = v
}

// At returns the sample at the masked position. No synchronization: the
// caller must work relative to a cursor snapshot it already holds.
func (b *Buffer) At(pos uint32) uint16 {
	return b.buf[pos&b.mask]
}

// Next returns the position one slot forward of pos.
func (b *Buffer) Next(pos uint32) uint32 {
	return (pos + 1) & b.mask
}

// Back steps a logical position backward by n slots, wrapping. All
// backward-walk arithmetic lives here so the filter's four sections share
// one modulus implementation.
func (b *Buffer) Back(pos uint32, n uint32) uint32 {
	return (pos - n) & b.mask
}

// Window copies n logical samples starting at start (wrapping through the
// buffer) into a fresh slice, oldest first.
func (b *Buffer) Window(start uint32, n int) []uint16 {
	if n <= 0 {
		return nil
	}
	if n > len(b.buf) {
		n = len(b.buf)
	}
	out := make([]uint16, n)

	head := int(start & b.mask)
	right := len(b.buf) - head
	if right > n {
		right = n
	}
	copy(out, b.buf[head:head+right])
	if right < n {
		copy(out[right:], b.buf[:n-right])
	}
	return out
}
