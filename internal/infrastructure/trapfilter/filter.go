// ABOUTME: Streaming trapezoidal pulse-shaping filter over the sample ring
// ABOUTME: Incremental four-term sum/cancel update, O(rate) work per step
package trapfilter

import (
	"errors"
	"fmt"

	"github.com/harper/scope-capture/internal/infrastructure/ring"
)

// ErrShape is returned by New for an invalid (length, gap, rate) shape.
var ErrShape = errors.New("invalid filter shape")

// Filter computes a running pulse-height estimate by scanning backward from
// the ring's write cursor. Each step adds the samples entering the leading
// integration section, subtracts the samples leaving it, subtracts the
// samples entering the gap, and adds the samples leaving the trailing
// section. The response to an edge is a trapezoid: rise over length,
// plateau over gap, fall over length.
//
// The ring must hold at least MinHistory() valid samples before the first
// Step; the caller guarantees that precondition.
type Filter struct {
	length int
	gap    int
	rate   int

	value       int64
	pos         uint32
	processed   uint64
	initialized bool
}

// New validates the filter shape once, at construction.
func New(length, gap, rate int) (*Filter, error) {
	if length <= 0 || gap <= 0 || rate <= 0 {
		return nil, fmt.Errorf("trapfilter: %w: length=%d gap=%d rate=%d", ErrShape, length, gap, rate)
	}
	if rate > length {
		return nil, fmt.Errorf("trapfilter: %w: rate %d exceeds length %d", ErrShape, rate, length)
	}
	return &Filter{length: length, gap: gap, rate: rate}, nil
}

func (f *Filter) Length() int { return f.length }
func (f *Filter) Gap() int    { return f.gap }
func (f *Filter) Rate() int   { return f.rate }

// MinHistory is the number of valid samples the ring must hold before the
// filter may step: the full span of the four backward-scanned sections.
func (f *Filter) MinHistory() int {
	return 2*f.length + f.gap + 2*f.rate
}

// Processed reports how many incremental steps have run since warm-up.
func (f *Filter) Processed() uint64 { return f.processed }

// Initialized reports whether the warm-up step has run.
func (f *Filter) Initialized() bool { return f.initialized }

// Reset returns the filter to its uninitialized state.
func (f *Filter) Reset() {
	f.value = 0
	f.pos = 0
	f.processed = 0
	f.initialized = false
}

// sumBack adds rate consecutive samples ending at pos, scanning backward.
// Returns the sum and the position of the oldest sample it touched.
func (f *Filter) sumBack(b *ring.Buffer, pos uint32) (int64, uint32) {
	sum := int64(b.At(pos))
	for i := 0; i < f.rate-1; i++ {
		pos = b.Back(pos, 1)
		sum += int64(b.At(pos))
	}
	return sum, pos
}

// back steps work backward by n slots; a non-positive n walks nowhere.
func back(b *ring.Buffer, pos uint32, n int) uint32 {
	if n <= 0 {
		return pos
	}
	return b.Back(pos, uint32(n))
}

// Step advances the filter to the ring's current cursor and returns the
// running filter value. The cursor names the next free slot; the window is
// anchored one slot back, at the most recent committed sample.
func (f *Filter) Step(b *ring.Buffer, cursor uint32) int64 {
	lengthShift := f.length - f.rate + 1
	gapShift := f.gap - f.rate + 1

	anchor := b.Back(cursor, 1)

	if !f.initialized {
		// Pre-fill with the leading section so the first outputs are not
		// partial sums.
		f.pos = anchor
		f.initialized = true
		f.value, _ = f.sumBack(b, anchor)
		return f.value
	}

	f.pos = anchor
	work := anchor

	// Samples entering the leading integration section.
	sum, work := f.sumBack(b, work)
	f.value += sum

	// Samples leaving the leading section.
	work = back(b, work, lengthShift)
	sum, work = f.sumBack(b, work)
	f.value -= sum

	// Samples entering the gap; cancels baseline drift across it.
	work = back(b, work, gapShift)
	sum, work = f.sumBack(b, work)
	f.value -= sum

	// Samples leaving the trailing section, completing the trapezoid.
	work = back(b, work, lengthShift)
	sum, _ = f.sumBack(b, work)
	f.value += sum

	f.processed++
	return f.value
}

// Value returns the raw running filter value.
func (f *Filter) Value() int64 { return f.value }

// Normalized divides the running value by the effective filter gain,
// 2*length*rate, yielding the calibrated pulse-height estimate.
func (f *Filter) Normalized() int64 {
	return f.value / int64(2*f.length*f.rate)
}
