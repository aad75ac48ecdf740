// ABOUTME: Channel manager for lifecycle and lookup
// ABOUTME: Wires config into sources, rings, filters, and channels
package manager

import (
	"fmt"
	"sync"
	"time"

	"github.com/harper/scope-capture/internal/application/config"
	"github.com/harper/scope-capture/internal/domain"
	"github.com/harper/scope-capture/internal/domain/channel"
	"github.com/harper/scope-capture/internal/infrastructure/calib"
	"github.com/harper/scope-capture/internal/infrastructure/ring"
	"github.com/harper/scope-capture/internal/infrastructure/source"
	"github.com/harper/scope-capture/internal/infrastructure/trapfilter"
)

type Manager struct {
	channels map[string]*channel.Channel
	mu       sync.RWMutex
}

// NewFromConfig builds every channel with its collaborators. Any
// construction error aborts startup before a single goroutine runs.
func NewFromConfig(cfg *config.Config) (*Manager, error) {
	mgr := &Manager{
		channels: make(map[string]*channel.Channel),
	}

	for _, chCfg := range cfg.Channels {
		src, err := source.NewSynth(source.SynthConfig{
			FrameBytes:     chCfg.Acquisition.FrameBytes,
			SampleRateHz:   chCfg.Acquisition.SampleRateHz,
			PoolFrames:     chCfg.Acquisition.PoolFrames,
			BaselineRaw:    uint16(chCfg.Acquisition.BaselineRaw),
			NoiseRaw:       chCfg.Acquisition.NoiseRaw,
			PulsePeriod:    time.Duration(chCfg.Acquisition.PulsePeriodMs) * time.Millisecond,
			PulseAmplitude: uint16(chCfg.Acquisition.PulseAmplitude),
			PulseWidth:     chCfg.Acquisition.PulseWidth,
		})
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", chCfg.ID, err)
		}

		var calibrator domain.Calibrator
		if chCfg.Calibration.Enabled {
			lf, err := calib.New(chCfg.Calibration.GainNum, chCfg.Calibration.GainDen, chCfg.Calibration.OffsetMv)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", chCfg.ID, err)
			}
			calibrator = lf
		}

		buffer, err := ring.New(chCfg.Buffering.RingSamples)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", chCfg.ID, err)
		}

		var filter *trapfilter.Filter
		if f := chCfg.Filter; f.Length > 0 {
			filter, err = trapfilter.New(f.Length, f.Gap, f.Rate)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", chCfg.ID, err)
			}
		}

		ch, err := channel.New(channel.Config{
			ID:               chCfg.ID,
			FrameBytes:       chCfg.Acquisition.FrameBytes,
			ReportInterval:   time.Duration(chCfg.ReportMs) * time.Millisecond,
			PreSamples:       chCfg.Trigger.PreSamples,
			PostSamples:      chCfg.Trigger.PostSamples,
			PostTriggerDelay: time.Duration(chCfg.Trigger.PostDelayMs) * time.Millisecond,
			TriggerLevel:     chCfg.Filter.TriggerLevel,
		}, src, calibrator, buffer, filter)
		if err != nil {
			return nil, err
		}

		mgr.channels[chCfg.ID] = ch
	}

	return mgr, nil
}

func (m *Manager) Get(id string) *channel.Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channels[id]
}

func (m *Manager) List() []*channel.Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*channel.Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		result = append(result, ch)
	}
	return result
}

func (m *Manager) Start() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ch := range m.channels {
		if err := ch.Start(); err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) Shutdown() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ch := range m.channels {
		if err := ch.Shutdown(); err != nil {
			return err
		}
	}

	return nil
}
