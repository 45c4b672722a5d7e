// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package expcfg loads the rig configuration: which port each
// instrument hangs off, how the pulse synthesizer pins are wired, and
// which firmware quirks the waveform encoder must honor. Everything a
// device encoder needs arrives through here; nothing is hard-coded per
// device model.
package expcfg

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	odmr "github.com/bgoblyos/time-resolved-odmr"
)

// Config is the experiment-level rig description.
type Config struct {
	Lockin struct {
		Port        string `mapstructure:"port"`
		GPIBAddress int    `mapstructure:"gpib_address"`
	} `mapstructure:"lockin"`

	Pico struct {
		Port     string          `mapstructure:"port"`
		Pins     map[string]uint `mapstructure:"pins"`
		Capacity int             `mapstructure:"capacity"`
	} `mapstructure:"pico"`

	LO struct {
		Port   string `mapstructure:"port"`
		Legacy bool   `mapstructure:"legacy"`
	} `mapstructure:"lo"`

	AWG struct {
		Port       string  `mapstructure:"port"`
		Firmware   string  `mapstructure:"firmware"` // "revA" or "revB"
		SampleRate float64 `mapstructure:"sample_rate"`
		Amplitude  float64 `mapstructure:"amplitude"`
		Offset     float64 `mapstructure:"offset"`
	} `mapstructure:"awg"`

	Experiment struct {
		Settle     time.Duration `mapstructure:"settle"`
		Integrate  time.Duration `mapstructure:"integrate"`
		LockinFreq float64       `mapstructure:"lockin_freq"`
		SaveDir    string        `mapstructure:"save_dir"`
	} `mapstructure:"experiment"`
}

// Load reads and validates the named YAML config file ("" for
// ./rig.yaml).
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		v.SetConfigName("rig")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetDefault("pico.capacity", odmr.PicoTokenCapacity)
	v.SetDefault("awg.firmware", "revB")
	v.SetDefault("awg.sample_rate", 1e6)
	v.SetDefault("awg.amplitude", 1.0)
	v.SetDefault("experiment.settle", time.Second)
	v.SetDefault("experiment.integrate", 5*time.Second)
	v.SetDefault("experiment.lockin_freq", 500.0)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading rig config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing rig config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if err := c.PinMap().Validate(); err != nil {
		return err
	}
	switch c.AWG.Firmware {
	case "revA", "revB":
	default:
		return &odmr.ConfigurationError{Param: "awg.firmware", Msg: fmt.Sprintf("unknown firmware %q (revA or revB)", c.AWG.Firmware)}
	}
	if c.Pico.Capacity <= 0 {
		return &odmr.ConfigurationError{Param: "pico.capacity", Msg: "must be positive"}
	}
	if c.Experiment.LockinFreq <= 0 {
		return &odmr.ConfigurationError{Param: "experiment.lockin_freq", Msg: "must be positive"}
	}
	return nil
}

// canonical channel names by their lowercased config key. Viper
// lowercases every key it reads, so "I" and "Q" arrive as "i" and "q".
var canonPins = map[string]string{
	"lockin": odmr.ChanLockin,
	"laser":  odmr.ChanLaser,
	"i":      odmr.ChanI,
	"q":      odmr.ChanQ,
}

// PinMap returns the pulse synthesizer channel map.
func (c *Config) PinMap() odmr.ChannelMap {
	pins := make(odmr.ChannelMap, len(c.Pico.Pins))
	for name, bit := range c.Pico.Pins {
		if canon, ok := canonPins[strings.ToLower(name)]; ok {
			name = canon
		}
		pins[name] = bit
	}
	return pins
}

// TokenConfig returns the synthesizer encoder parameters.
func (c *Config) TokenConfig() odmr.TokenConfig {
	return odmr.TokenConfig{Unit: 1, Capacity: c.Pico.Capacity}
}

// WaveformConfig returns the AWG encoder parameters for the configured
// firmware generation, for durations expressed in microseconds.
func (c *Config) WaveformConfig() odmr.WaveformConfig {
	wc := odmr.FirmwareRevB()
	if c.AWG.Firmware == "revA" {
		wc = odmr.FirmwareRevA()
	}
	wc.SamplesPerUnit = c.AWG.SampleRate / 1e6
	wc.SampleRate = c.AWG.SampleRate
	wc.Amplitude = c.AWG.Amplitude
	wc.Offset = c.AWG.Offset
	return wc
}
