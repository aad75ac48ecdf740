// ABOUTME: Tests for frame ingestion into the ring
// ABOUTME: Verifies batching idempotence, sub-sampled calibration, and wraparound
package channel

import (
	"testing"
)

func TestIngestFrame_BatchMatchesPerSample(t *testing.T) {
	const k = 100

	samples := make([]uint16, k)
	for i := range samples {
		samples[i] = uint16(3 * i)
	}

	batched := newTestChannel(t, Config{}, newFakeSource(), identityCalibrator{}, 256, nil)
	single := newTestChannel(t, Config{}, newFakeSource(), identityCalibrator{}, 256, nil)

	batched.ingestFrame(frameBytes(samples))
	for _, s := range samples {
		single.ingestFrame(frameBytes([]uint16{s}))
	}

	if bc, sc := batched.Ring().Cursor(), single.Ring().Cursor(); bc != sc {
		t.Fatalf("cursors diverge: batch %d, per-sample %d", bc, sc)
	}
	for i := 0; i < k; i++ {
		pos := uint32(i)
		if b, s := batched.Ring().At(pos), single.Ring().At(pos); b != s {
			t.Errorf("slot %d: batch %d, per-sample %d", i, b, s)
		}
	}
}

func TestIngestFrame_SubSampledCalibration(t *testing.T) {
	const k = 64
	c := newTestChannel(t, Config{}, newFakeSource(), identityCalibrator{}, 256, nil)

	samples := make([]uint16, k)
	for i := range samples {
		samples[i] = uint16(10 + i)
	}
	c.ingestFrame(frameBytes(samples))

	sum, count := c.stats.ReadAndReset()
	if count != k {
		t.Errorf("count: expected %d, got %d", k, count)
	}

	// Every 8th sample (the 8th, 16th, ...) is calibrated and scaled by
	// the stride, so the mean stays unbiased.
	var want uint64
	for i := 7; i < k; i += 8 {
		want += uint64(samples[i]) * 8
	}
	if sum != want {
		t.Errorf("sum: expected %d, got %d", want, sum)
	}

	// Drained after the read.
	if sum, count := c.stats.ReadAndReset(); sum != 0 || count != 0 {
		t.Errorf("stats should reset, got sum=%d count=%d", sum, count)
	}
}

func TestIngestFrame_NilCalibratorCountsOnly(t *testing.T) {
	c := newTestChannel(t, Config{}, newFakeSource(), nil, 256, nil)

	c.ingestFrame(frameBytes([]uint16{1, 2, 3, 4, 5, 6, 7, 8}))

	sum, count := c.stats.ReadAndReset()
	if count != 8 {
		t.Errorf("count: expected 8, got %d", count)
	}
	if sum != 0 {
		t.Errorf("uncalibrated sum should be 0, got %d", sum)
	}
}

func TestIngestFrame_IgnoresTrailingPartialRecord(t *testing.T) {
	c := newTestChannel(t, Config{}, newFakeSource(), nil, 256, nil)

	raw := frameBytes([]uint16{100, 200})
	c.ingestFrame(append(raw, 0xFF))

	if cur := c.Ring().Cursor(); cur != 2 {
		t.Errorf("cursor: expected 2, got %d", cur)
	}
}

func TestIngestFrame_WrapsAroundRing(t *testing.T) {
	const capacity = 64
	c := newTestChannel(t, Config{}, newFakeSource(), nil, capacity, nil)

	total := 3 * capacity
	for i := 0; i < total; i += 16 {
		frame := make([]uint16, 16)
		for j := range frame {
			frame[j] = uint16(i + j)
		}
		c.ingestFrame(frameBytes(frame))
	}

	cur := c.Ring().Cursor()
	for i := 0; i < capacity; i++ {
		want := uint16(total - 1 - i)
		if got := c.Ring().At(c.Ring().Back(cur, uint32(1+i))); got != want {
			t.Fatalf("sample %d back: expected %d, got %d", i, want, got)
		}
	}
}
