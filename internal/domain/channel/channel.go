// ABOUTME: Channel domain model coordinating acquisition, ring, filter, and capture
// ABOUTME: Manages lifecycle of goroutines for frame ingest and periodic reporting
package channel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harper/scope-capture/internal/domain"
	"github.com/harper/scope-capture/internal/infrastructure/ring"
	"github.com/harper/scope-capture/internal/infrastructure/trapfilter"
)

type Config struct {
	ID               string
	FrameBytes       int
	ReportInterval   time.Duration
	PreSamples       int
	PostSamples      int
	PostTriggerDelay time.Duration

	// TriggerLevel arms the capture automatically when the normalized
	// filter output reaches this value. Zero disables the level trigger.
	TriggerLevel int64
}

// Report is one reporting interval's human-readable summary.
type Report struct {
	ChannelID   string
	AverageMv   uint64
	SampleCount uint32
	CursorPos   uint32
	Overflows   uint64
	At          time.Time
}

// Channel owns one acquisition channel: the frame source feeds the ring
// through the ingest loop, the filter and trigger capture read the ring,
// and the reporter drains the interval statistics. The ingest goroutine is
// the sole writer of ring contents and stats.
type Channel struct {
	id         string
	frameBytes int

	source     domain.FrameSource
	calibrator domain.Calibrator
	ring       *ring.Buffer
	filter     *trapfilter.Filter

	stats FrameStats

	pre          int
	post         int
	postDelay    time.Duration
	triggerLevel int64

	state           atomic.Int32
	captureComplete atomic.Bool
	lastCapture     atomic.Pointer[Capture]
	captureCount    atomic.Uint64

	ingested    atomic.Uint64
	filterValue atomic.Int64

	reportInterval time.Duration
	reportFn       func(Report)
	lastReport     atomic.Pointer[Report]

	subscribers map[*Subscriber]struct{}
	subMu       sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// Subscriber receives completed captures for export.
type Subscriber struct {
	ID string
	ch chan *Capture
}

// New validates the capture window against the ring at construction: a
// window larger than one ring revolution would export wrapped, stale data
// and is rejected outright.
func New(cfg Config, source domain.FrameSource, calibrator domain.Calibrator, buffer *ring.Buffer, filter *trapfilter.Filter) (*Channel, error) {
	if cfg.PreSamples < 0 || cfg.PostSamples < 0 {
		return nil, fmt.Errorf("channel %s: negative trigger window", cfg.ID)
	}
	if cfg.PreSamples+cfg.PostSamples > buffer.Capacity() {
		return nil, fmt.Errorf("channel %s: trigger window %d+%d exceeds ring capacity %d",
			cfg.ID, cfg.PreSamples, cfg.PostSamples, buffer.Capacity())
	}
	if cfg.FrameBytes <= 0 {
		return nil, fmt.Errorf("channel %s: frame size must be positive", cfg.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		id:             cfg.ID,
		frameBytes:     cfg.FrameBytes,
		source:         source,
		calibrator:     calibrator,
		ring:           buffer,
		filter:         filter,
		pre:            cfg.PreSamples,
		post:           cfg.PostSamples,
		postDelay:      cfg.PostTriggerDelay,
		triggerLevel:   cfg.TriggerLevel,
		reportInterval: cfg.ReportInterval,
		subscribers:    make(map[*Subscriber]struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
	c.reportFn = c.logReport
	return c, nil
}

func (c *Channel) ID() string {
	return c.id
}

func (c *Channel) Ring() *ring.Buffer {
	return c.ring
}

// OverflowCount reports how many frames the acquisition pipeline has
// dropped. The count comes straight from the source so no drop goes
// unobserved even when its wake event is suppressed. Overflows are
// observed, never repaired.
func (c *Channel) OverflowCount() uint64 {
	return c.source.Overflows()
}

// SamplesIngested reports the total samples written to the ring.
func (c *Channel) SamplesIngested() uint64 {
	return c.ingested.Load()
}

// FilterValue returns the most recent normalized filter output.
func (c *Channel) FilterValue() int64 {
	return c.filterValue.Load()
}

// LastReport returns the most recent interval report, or nil.
func (c *Channel) LastReport() *Report {
	return c.lastReport.Load()
}

// SetReportFunc replaces the report sink. Must be called before Start.
func (c *Channel) SetReportFunc(fn func(Report)) {
	c.reportFn = fn
}

func (c *Channel) Subscribe(s *Subscriber) <-chan *Capture {
	s.ch = make(chan *Capture, 4)
	c.subMu.Lock()
	c.subscribers[s] = struct{}{}
	c.subMu.Unlock()
	return s.ch
}

func (c *Channel) Unsubscribe(s *Subscriber) {
	c.subMu.Lock()
	delete(c.subscribers, s)
	c.subMu.Unlock()
	if s.ch != nil {
		close(s.ch)
		s.ch = nil
	}
}

func (c *Channel) SubscriberCount() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subscribers)
}

func (c *Channel) fanOut(capture *Capture) {
	c.subMu.Lock()
	for s := range c.subscribers {
		if s.ch != nil {
			select {
			case s.ch <- capture:
			default:
				// Subscriber backlog full, drop for this subscriber
			}
		}
	}
	c.subMu.Unlock()
}

func (c *Channel) Start() error {
	if err := c.source.Start(c.ctx); err != nil {
		return fmt.Errorf("channel %s: start source: %w", c.id, err)
	}

	go c.runIngest()
	go c.runReporter()

	return nil
}

func (c *Channel) Shutdown() error {
	c.cancel()
	return c.source.Stop()
}

// runIngest blocks on the acquisition pipeline's edge-triggered wakes and
// drains the frame pool completely on every wake. Overflow wakes carry no
// data; the lost samples are gone by definition.
func (c *Channel) runIngest() {
	frame := make([]byte, c.frameBytes)

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.source.Events():
			if !ok {
				return
			}
			if ev == domain.EventPoolOverflow {
				// Advisory wake; the authoritative drop count lives in
				// the source.
				continue
			}

			for {
				n, err := c.source.ReadFrame(frame)
				if err != nil {
					if !errors.Is(err, domain.ErrNoFrame) {
						log.Printf("channel %s: read frame: %v", c.id, err)
					}
					break
				}
				samples := n / sampleBytes
				c.ingestFrame(frame[:n])
				c.ingested.Add(uint64(samples))
				c.stepFilter(samples)
			}
		}
	}
}

// stepFilter advances the pulse-height filter once per newly committed
// sample and fires the level trigger when configured. The incremental
// update is only valid between consecutive one-sample anchors, so every
// cursor position a frame commits gets its own step. The filter starts
// once the ring holds its full warm history.
func (c *Channel) stepFilter(samples int) {
	if c.filter == nil || samples <= 0 {
		return
	}
	total := c.ingested.Load()
	warm := uint64(c.filter.MinHistory())
	if total < warm {
		return
	}

	// Samples committed before the warm history filled get no step.
	prev := total - uint64(samples)
	if prev < warm-1 {
		prev = warm - 1
	}

	cursor := c.ring.Cursor()
	for i := uint32(total - prev); i > 0; i-- {
		c.filter.Step(c.ring, c.ring.Back(cursor, i-1))
		normalized := c.filter.Normalized()
		c.filterValue.Store(normalized)

		if c.triggerLevel > 0 && normalized >= c.triggerLevel {
			c.Trigger()
		}
	}
}

// runReporter emits one summary per interval, draining the shared stats
// so each report covers only the samples since the last one.
func (c *Channel) runReporter() {
	if c.reportInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			sum, count := c.stats.ReadAndReset()

			rep := Report{
				ChannelID:   c.id,
				SampleCount: count,
				CursorPos:   c.ring.Cursor(),
				Overflows:   c.source.Overflows(),
				At:          time.Now(),
			}
			if count > 0 {
				rep.AverageMv = sum / uint64(count)
			}

			c.lastReport.Store(&rep)
			c.reportFn(rep)
		}
	}
}

func (c *Channel) logReport(rep Report) {
	if rep.SampleCount > 0 {
		log.Printf("channel %s: avg %d mV, samples %d, bufpos %d, overflows %d",
			rep.ChannelID, rep.AverageMv, rep.SampleCount, rep.CursorPos, rep.Overflows)
		return
	}
	log.Printf("channel %s: no new samples, bufpos %d", rep.ChannelID, rep.CursorPos)
}
