// ABOUTME: Synthetic acquisition pipeline producing paced fixed-size frames
// ABOUTME: Bounded frame pool with overflow events, pause/resume gating
package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harper/scope-capture/internal/domain"
)

type SynthConfig struct {
	FrameBytes   int
	SampleRateHz int

	// PoolFrames bounds the frame pool. A full pool drops the new frame
	// and raises one overflow event, mirroring a flush-free DMA pool.
	PoolFrames int

	BaselineRaw uint16
	NoiseRaw    int

	// Periodic synthetic pulse injected on top of the baseline. A zero
	// period disables pulses.
	PulsePeriod    time.Duration
	PulseAmplitude uint16
	PulseWidth     int

	Seed int64
}

// Synth generates a continuous single-channel sample stream: baseline plus
// uniform noise plus optional periodic flat pulses. It implements
// domain.FrameSource so it can stand in for a hardware pipeline.
type Synth struct {
	cfg SynthConfig

	events    chan domain.Event
	pool      chan []byte
	paused    atomic.Bool
	overflows atomic.Uint64

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSynth(cfg SynthConfig) (*Synth, error) {
	if cfg.FrameBytes <= 0 || cfg.FrameBytes%2 != 0 {
		return nil, fmt.Errorf("source: frame size must be a positive even byte count, got %d", cfg.FrameBytes)
	}
	if cfg.SampleRateHz <= 0 {
		return nil, fmt.Errorf("source: sample rate must be positive, got %d", cfg.SampleRateHz)
	}
	if cfg.PoolFrames <= 0 {
		cfg.PoolFrames = 16
	}
	return &Synth{
		cfg:    cfg,
		events: make(chan domain.Event, cfg.PoolFrames+4),
		pool:   make(chan []byte, cfg.PoolFrames),
		done:   make(chan struct{}),
	}, nil
}

func (s *Synth) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(ctx)
	return nil
}

func (s *Synth) Stop() error {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		close(s.events)
	})
	return nil
}

func (s *Synth) Pause() {
	s.paused.Store(true)
}

func (s *Synth) Resume() {
	s.paused.Store(false)
}

func (s *Synth) Events() <-chan domain.Event {
	return s.events
}

// Overflows reports every dropped frame, including drops whose wake
// event was suppressed by a saturated event channel.
func (s *Synth) Overflows() uint64 {
	return s.overflows.Load()
}

// ReadFrame pops the next pooled frame, or ErrNoFrame when drained.
func (s *Synth) ReadFrame(p []byte) (int, error) {
	select {
	case frame := <-s.pool:
		return copy(p, frame), nil
	default:
		return 0, domain.ErrNoFrame
	}
}

// run paces frame production against wall time: every tick it produces as
// many whole frames as the elapsed sample budget allows.
func (s *Synth) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	frameSamples := s.cfg.FrameBytes / 2

	var sampleIdx uint64
	var budget float64
	perTick := float64(s.cfg.SampleRateHz) / 1000.0

	pulsePeriod := uint64(0)
	if s.cfg.PulsePeriod > 0 {
		pulsePeriod = uint64(float64(s.cfg.SampleRateHz) * s.cfg.PulsePeriod.Seconds())
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.paused.Load() {
			continue
		}

		budget += perTick
		for budget >= float64(frameSamples) {
			budget -= float64(frameSamples)

			frame := make([]byte, s.cfg.FrameBytes)
			for i := 0; i < frameSamples; i++ {
				binary.LittleEndian.PutUint16(frame[2*i:], s.sample(rng, sampleIdx, pulsePeriod))
				sampleIdx++
			}

			select {
			case s.pool <- frame:
				s.notify(domain.EventFrameReady)
			default:
				s.overflows.Add(1)
				s.notify(domain.EventPoolOverflow)
			}
		}
	}
}

func (s *Synth) sample(rng *rand.Rand, idx, pulsePeriod uint64) uint16 {
	v := int(s.cfg.BaselineRaw)
	if s.cfg.NoiseRaw > 0 {
		v += rng.Intn(2*s.cfg.NoiseRaw+1) - s.cfg.NoiseRaw
	}
	if pulsePeriod > 0 && idx%pulsePeriod < uint64(s.cfg.PulseWidth) {
		v += int(s.cfg.PulseAmplitude)
	}
	if v < 0 {
		v = 0
	}
	if v > 0xFFFF {
		v = 0xFFFF
	}
	return uint16(v)
}

// notify delivers an edge-triggered wake without blocking the producer; a
// full event channel already has a wake pending.
func (s *Synth) notify(ev domain.Event) {
	select {
	case s.events <- ev:
	default:
	}
}
