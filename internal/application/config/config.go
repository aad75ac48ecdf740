// ABOUTME: YAML configuration parsing and validation
// ABOUTME: Defines structure for multi-channel capture daemon configuration
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen   ListenConfig    `yaml:"listen"`
	Channels []ChannelConfig `yaml:"channels"`
	Logging  LoggingConfig   `yaml:"logging"`
}

type ListenConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ChannelConfig struct {
	ID          string            `yaml:"id"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Buffering   BufferingConfig   `yaml:"buffering"`
	Filter      FilterConfig      `yaml:"filter"`
	Trigger     TriggerConfig     `yaml:"trigger"`
	Calibration CalibrationConfig `yaml:"calibration"`
	ReportMs    int               `yaml:"report_ms"`
}

type AcquisitionConfig struct {
	FrameBytes   int `yaml:"frame_bytes"`
	SampleRateHz int `yaml:"sample_rate_hz"`
	PoolFrames   int `yaml:"pool_frames"`

	// Synthetic signal shape for the built-in source.
	BaselineRaw    int `yaml:"baseline_raw"`
	NoiseRaw       int `yaml:"noise_raw"`
	PulsePeriodMs  int `yaml:"pulse_period_ms"`
	PulseAmplitude int `yaml:"pulse_amplitude"`
	PulseWidth     int `yaml:"pulse_width"`
}

type BufferingConfig struct {
	RingSamples int `yaml:"ring_samples"`
}

type FilterConfig struct {
	Length int `yaml:"length"`
	Gap    int `yaml:"gap"`
	Rate   int `yaml:"rate"`

	// TriggerLevel fires a capture when the normalized filter output
	// reaches this value; zero means manual triggering only.
	TriggerLevel int64 `yaml:"trigger_level"`
}

type TriggerConfig struct {
	PreSamples  int `yaml:"pre_samples"`
	PostSamples int `yaml:"post_samples"`
	PostDelayMs int `yaml:"post_delay_ms"`
}

type CalibrationConfig struct {
	Enabled  bool `yaml:"enabled"`
	GainNum  int  `yaml:"gain_num"`
	GainDen  int  `yaml:"gain_den"`
	OffsetMv int  `yaml:"offset_mv"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that would fail at channel construction,
// so a bad file never starts any goroutine.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i := range c.Channels {
		ch := &c.Channels[i]
		if ch.ID == "" {
			return fmt.Errorf("channel %d: missing id", i)
		}
		if seen[ch.ID] {
			return fmt.Errorf("channel %s: duplicate id", ch.ID)
		}
		seen[ch.ID] = true

		if ch.Acquisition.FrameBytes <= 0 || ch.Acquisition.FrameBytes%2 != 0 {
			return fmt.Errorf("channel %s: frame_bytes must be a positive even byte count", ch.ID)
		}
		if ch.Acquisition.SampleRateHz <= 0 {
			return fmt.Errorf("channel %s: sample_rate_hz must be positive", ch.ID)
		}
		if b := ch.Acquisition.BaselineRaw; b < 0 || b > 0xFFFF {
			return fmt.Errorf("channel %s: baseline_raw must be in 0..65535, got %d", ch.ID, b)
		}
		if a := ch.Acquisition.PulseAmplitude; a < 0 || a > 0xFFFF {
			return fmt.Errorf("channel %s: pulse_amplitude must be in 0..65535, got %d", ch.ID, a)
		}
		if ch.Acquisition.NoiseRaw < 0 || ch.Acquisition.PulseWidth < 0 || ch.Acquisition.PulsePeriodMs < 0 {
			return fmt.Errorf("channel %s: noise_raw, pulse_width, and pulse_period_ms must not be negative", ch.ID)
		}

		rs := ch.Buffering.RingSamples
		if rs <= 0 || rs&(rs-1) != 0 {
			return fmt.Errorf("channel %s: ring_samples must be a power of two, got %d", ch.ID, rs)
		}

		if ch.Trigger.PreSamples < 0 || ch.Trigger.PostSamples < 0 {
			return fmt.Errorf("channel %s: trigger window must not be negative", ch.ID)
		}
		if ch.Trigger.PreSamples+ch.Trigger.PostSamples > rs {
			return fmt.Errorf("channel %s: trigger window %d+%d exceeds ring_samples %d",
				ch.ID, ch.Trigger.PreSamples, ch.Trigger.PostSamples, rs)
		}

		if f := ch.Filter; f.Length != 0 || f.Gap != 0 || f.Rate != 0 {
			if f.Length <= 0 || f.Gap <= 0 || f.Rate <= 0 || f.Rate > f.Length {
				return fmt.Errorf("channel %s: invalid filter shape length=%d gap=%d rate=%d",
					ch.ID, f.Length, f.Gap, f.Rate)
			}
			if need := 2*f.Length + f.Gap + 2*f.Rate; need > rs {
				return fmt.Errorf("channel %s: ring_samples %d below filter history %d", ch.ID, rs, need)
			}
		}

		if ch.Calibration.Enabled && ch.Calibration.GainDen == 0 {
			return fmt.Errorf("channel %s: calibration gain_den must not be zero", ch.ID)
		}
	}
	return nil
}
