// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package odmr

// TimingConfig describes the AWG memory and clock limits that constrain
// how finely a lock-in period can be sampled.
type TimingConfig struct {
	// SampleBudget is the fixed total sample count p the buffer holds.
	SampleBudget int

	// MaxDACRate is the instrument's maximum sample rate in Hz. The
	// instrument plays back at half the nominal rate internally, so the
	// usable budget is p/2.
	MaxDACRate float64

	// Margin stretches the waveform to occupy this fraction of the
	// lock-in period, so the held last value never shows during the
	// remainder. 0 selects the default of 0.98.
	Margin float64
}

// Timing is the resolver's report: the rate to program, the time span
// the buffer covers, and the resulting temporal quantum. The resolver
// never aborts on coarse resolution; comparing Resolution against the
// shortest pulse is the caller's decision.
type Timing struct {
	SampleRate float64
	Samples    int
	Span       float64
	Resolution float64
}

// ResolveTiming computes the best achievable sample rate for a fixed
// sample budget when the sequence must fill one period of the target
// reference frequency.
func ResolveTiming(totalDuration, targetFreq float64, cfg TimingConfig) (*Timing, error) {
	if cfg.SampleBudget <= 0 {
		return nil, &ConfigurationError{Param: "SampleBudget", Msg: "must be positive"}
	}
	if cfg.MaxDACRate <= 0 {
		return nil, &ConfigurationError{Param: "MaxDACRate", Msg: "must be positive"}
	}
	if targetFreq <= 0 {
		return nil, &ConfigurationError{Param: "targetFreq", Msg: "must be positive"}
	}
	margin := cfg.Margin
	if margin == 0 {
		margin = 0.98
	}
	if margin < 0 || margin > 1 {
		return nil, &ConfigurationError{Param: "Margin", Msg: "must be in (0, 1]"}
	}

	half := float64(cfg.SampleBudget) / 2

	tMin := half / cfg.MaxDACRate
	if m := margin / targetFreq; m > tMin {
		tMin = m
	}
	t := totalDuration
	if tMin > t {
		t = tMin
	}

	return &Timing{
		SampleRate: half / t,
		Samples:    cfg.SampleBudget,
		Span:       t,
		Resolution: t / half,
	}, nil
}
