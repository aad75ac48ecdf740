// ABOUTME: Tests for channel manager lifecycle
// ABOUTME: Verifies channel creation, lookup, and construction failures
package manager

import (
	"testing"

	"github.com/harper/scope-capture/internal/application/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Channels: []config.ChannelConfig{
			{
				ID: "adc6",
				Acquisition: config.AcquisitionConfig{
					FrameBytes:   256,
					SampleRateHz: 100000,
					PoolFrames:   8,
				},
				Buffering: config.BufferingConfig{RingSamples: 4096},
				Filter:    config.FilterConfig{Length: 64, Gap: 32, Rate: 8},
				Trigger: config.TriggerConfig{
					PreSamples:  512,
					PostSamples: 512,
					PostDelayMs: 100,
				},
				Calibration: config.CalibrationConfig{
					Enabled: true,
					GainNum: 1100,
					GainDen: 4095,
				},
				ReportMs: 1000,
			},
		},
	}
}

func TestManager_NewFromConfig(t *testing.T) {
	mgr, err := NewFromConfig(testConfig())
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}

	if len(mgr.List()) != 1 {
		t.Errorf("expected 1 channel, got %d", len(mgr.List()))
	}

	ch := mgr.Get("adc6")
	if ch == nil {
		t.Fatal("expected to find adc6 channel")
	}
	if ch.ID() != "adc6" {
		t.Errorf("expected ID adc6, got %s", ch.ID())
	}
	if ch.Ring().Capacity() != 4096 {
		t.Errorf("expected ring capacity 4096, got %d", ch.Ring().Capacity())
	}

	if got := mgr.Get("missing"); got != nil {
		t.Errorf("expected nil for unknown channel, got %v", got.ID())
	}
}

func TestManager_ConstructionFailures(t *testing.T) {
	cfg := testConfig()
	cfg.Channels[0].Buffering.RingSamples = 5000
	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("expected error for non power-of-two ring")
	}

	cfg = testConfig()
	cfg.Channels[0].Trigger.PreSamples = 4096
	cfg.Channels[0].Trigger.PostSamples = 4096
	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("expected error for overcommitted trigger window")
	}

	cfg = testConfig()
	cfg.Channels[0].Filter.Rate = 128
	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("expected error for filter rate above length")
	}
}

func TestManager_StartAndShutdown(t *testing.T) {
	mgr, err := NewFromConfig(testConfig())
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if err := mgr.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := mgr.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}
