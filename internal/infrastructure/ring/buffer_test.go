// ABOUTME: Tests for the circular sample buffer
// ABOUTME: Verifies capacity validation, wraparound, cursor commits, and window copies
package ring

import (
	"errors"
	"testing"
)

func TestNew_RejectsBadCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, 3, 24, 1000} {
		if _, err := New(capacity); !errors.Is(err, ErrCapacity) {
			t.Errorf("New(%d): expected ErrCapacity, got %v", capacity, err)
		}
	}
}

func TestNew_AcceptsPowersOfTwo(t *testing.T) {
	for _, capacity := range []int{1, 2, 64, 32768} {
		b, err := New(capacity)
		if err != nil {
			t.Fatalf("New(%d) failed: %v", capacity, err)
		}
		if b.Capacity() != capacity {
			t.Errorf("capacity: expected %d, got %d", capacity, b.Capacity())
		}
		if b.Cursor() != 0 {
			t.Errorf("new buffer cursor should be 0, got %d", b.Cursor())
		}
	}
}

func TestWraparound_RampOverwritesOldest(t *testing.T) {
	const capacity = 256
	b, err := New(capacity)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Write a ramp three times the capacity, one frame per write.
	total := 3 * capacity
	pos := b.Cursor()
	for i := 0; i < total; i++ {
		b.Set(pos, uint16(i))
		pos = b.Next(pos)
	}
	b.Advance(uint32(total))

	cur := b.Cursor()
	if cur != uint32(total%capacity) {
		t.Fatalf("cursor: expected %d, got %d", total%capacity, cur)
	}

	// Newest sample is at Back(cursor, 1); the last `capacity` values of
	// the ramp survive, everything older is overwritten.
	for i := 0; i < capacity; i++ {
		want := uint16(total - 1 - i)
		got := b.At(b.Back(cur, uint32(1+i)))
		if got != want {
			t.Fatalf("sample %d back: expected %d, got %d", i, want, got)
		}
	}
}

func TestBack_WrapsBelowZero(t *testing.T) {
	b, err := New(16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got := b.Back(0, 1); got != 15 {
		t.Errorf("Back(0,1): expected 15, got %d", got)
	}
	if got := b.Back(3, 5); got != 14 {
		t.Errorf("Back(3,5): expected 14, got %d", got)
	}
	if got := b.Back(3, 16); got != 3 {
		t.Errorf("Back(3,16): expected 3, got %d", got)
	}
}

func TestWindow_Contiguous(t *testing.T) {
	b, err := New(32)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		b.Set(uint32(i), uint16(100+i))
	}
	b.Advance(10)

	got := b.Window(2, 5)
	for i, v := range got {
		if v != uint16(102+i) {
			t.Errorf("window[%d]: expected %d, got %d", i, 102+i, v)
		}
	}
}

func TestWindow_WrapsThroughEnd(t *testing.T) {
	const capacity = 16
	b, err := New(capacity)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Fill two revolutions so every slot holds the second-pass value.
	pos := uint32(0)
	for i := 0; i < 2*capacity; i++ {
		b.Set(pos, uint16(i))
		pos = b.Next(pos)
	}
	b.Advance(2 * capacity)

	// Window starting near the physical end must wrap in order.
	got := b.Window(14, 4)
	want := []uint16{30, 31, 16 + 0, 16 + 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("window[%d]: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestWindow_ClampsToCapacity(t *testing.T) {
	b, err := New(8)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := b.Window(0, 100); len(got) != 8 {
		t.Errorf("oversized window should clamp to capacity, got %d", len(got))
	}
	if got := b.Window(0, 0); got != nil {
		t.Errorf("empty window should be nil, got %v", got)
	}
}
