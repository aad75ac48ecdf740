// ABOUTME: Shared per-interval frame statistics between ingest and reporter
// ABOUTME: Writer accumulates once per frame, reporter reads and resets atomically
package channel

import "sync"

// FrameStats accumulates the calibrated voltage sum and sample count for
// one reporting interval. The ingest path adds once per frame; the
// reporter drains with a copy-and-zero under the same lock.
type FrameStats struct {
	mu          sync.Mutex
	voltageSum  uint64
	sampleCount uint32
}

func (s *FrameStats) Add(voltageSum uint64, samples uint32) {
	s.mu.Lock()
	s.voltageSum += voltageSum
	s.sampleCount += samples
	s.mu.Unlock()
}

// ReadAndReset returns the accumulated sum and count and zeroes both.
func (s *FrameStats) ReadAndReset() (uint64, uint32) {
	s.mu.Lock()
	sum, count := s.voltageSum, s.sampleCount
	s.voltageSum = 0
	s.sampleCount = 0
	s.mu.Unlock()
	return sum, count
}
