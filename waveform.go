// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package odmr

import (
	"math"
	"math/bits"
)

// WaveformConfig carries the device parameters of one AWG channel
// target. Firmware generations of the same instrument family disagree on
// the minimum buffer size and on an internal oversampling quirk, so both
// are explicit here rather than baked into the encoder.
type WaveformConfig struct {
	// SamplesPerUnit converts the sequence's duration unit into samples
	// (e.g. samplerate/1e6 for durations in microseconds).
	SamplesPerUnit float64

	// Oversample multiplies the sample count per step. Some firmware
	// requires 4x the nominal point count or the timescale is off.
	Oversample int

	// PadFloor is the minimum total buffer size (sample count + 2) the
	// device accepts. Must be a power of two. Observed: 0x8000, 0x10000.
	PadFloor int

	// SampleRate is recorded on the output for the upload command.
	SampleRate float64

	// Amplitude and Offset are device-side scaling parameters in volts.
	// They accompany the buffer but are never applied to the samples.
	Amplitude float64
	Offset    float64
}

// The two firmware generations observed in the SDG1062X family. Neither
// is authoritative; select per device instance.
func FirmwareRevA() WaveformConfig { return WaveformConfig{Oversample: 1, PadFloor: 0x8000} }
func FirmwareRevB() WaveformConfig { return WaveformConfig{Oversample: 4, PadFloor: 0x10000} }

// Validate checks the device parameters.
func (cfg WaveformConfig) Validate() error {
	if cfg.SamplesPerUnit < 0 {
		return &ConfigurationError{Param: "SamplesPerUnit", Msg: "must be non-negative"}
	}
	if cfg.Oversample <= 0 {
		return &ConfigurationError{Param: "Oversample", Msg: "must be positive"}
	}
	if cfg.PadFloor < 4 || cfg.PadFloor&(cfg.PadFloor-1) != 0 {
		return &ConfigurationError{Param: "PadFloor", Msg: "must be a power of two >= 4"}
	}
	return nil
}

// Waveform is one encoded AWG buffer: len(Samples)+2 is a power of two.
// Amplitude and Offset are passed through for the upload command; the
// samples themselves only carry the [-1,1] -> int16 mapping.
type Waveform struct {
	Samples    []int16
	SampleRate float64
	Amplitude  float64
	Offset     float64
}

// EncodeWaveform renders the named channel of seq into a hardware-legal
// sample buffer: expand each step to round(multiplier*duration) copies of
// its value, normalize to [-1,1] by the peak, pad to 2^k-2 honoring the
// configured floor, and quantize to signed 16-bit with clamping.
func EncodeWaveform(seq *Sequence, channel string, cfg WaveformConfig) (*Waveform, error) {
	wfs, err := EncodeWaveforms(seq, []string{channel}, cfg)
	if err != nil {
		return nil, err
	}
	return wfs[channel], nil
}

// EncodeWaveforms encodes several channels of the same sequence in one
// pass, so their buffers share identical per-step sample counts.
func EncodeWaveforms(seq *Sequence, channels []string, cfg WaveformConfig) (map[string]*Waveform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	have := make(map[string]bool, seq.Len())
	for _, name := range seq.Channels() {
		have[name] = true
	}
	for _, name := range channels {
		if !have[name] {
			return nil, &ConfigurationError{Param: "channel", Msg: name + " not present in sequence"}
		}
	}

	multiplier := cfg.SamplesPerUnit * float64(cfg.Oversample)

	// Expand the timeline once; every channel reuses the step lengths.
	counts := make([]int, seq.Len())
	total := 0
	for i := 0; i < seq.Len(); i++ {
		st := seq.Step(i)
		n := int(math.Round(multiplier * st.Duration))
		if n <= 0 {
			if st.Duration > 0 {
				return nil, &InvalidDurationError{Step: i, Duration: st.Duration}
			}
			n = 0
		}
		counts[i] = n
		total += n
	}

	out := make(map[string]*Waveform, len(channels))
	for _, name := range channels {
		raw := make([]float64, 0, total)
		for i := 0; i < seq.Len(); i++ {
			v := seq.Step(i).Channels[name]
			for k := 0; k < counts[i]; k++ {
				raw = append(raw, v)
			}
		}
		out[name] = &Waveform{
			Samples:    quantize(normalize(raw), cfg.PadFloor),
			SampleRate: cfg.SampleRate,
			Amplitude:  cfg.Amplitude,
			Offset:     cfg.Offset,
		}
	}
	return out, nil
}

// normalize scales the array by its peak absolute value so it lies in
// [-1,1]. An all-zero array is left untouched.
func normalize(raw []float64) []float64 {
	var peak float64
	for _, v := range raw {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return raw
	}
	for i := range raw {
		raw[i] /= peak
	}
	return raw
}

// quantize pads raw to a legal 2^k-2 length and converts to int16. The
// device only accepts buffers of length 2^k-2, and refuses to run below
// the configured floor, so short buffers pad up to floor-2. A length
// that is already exactly 2^k-2 is left alone.
func quantize(raw []float64, floor int) []int16 {
	n2 := len(raw) + 2
	target := n2
	if len(raw) == 0 {
		target = floor
	} else if n2&(n2-1) != 0 {
		target = 1 << bits.Len(uint(n2-1))
		if target < floor {
			target = floor
		}
	}

	samples := make([]int16, target-2)
	for i, v := range raw {
		s := math.Round(0x7FFF * v)
		if s > math.MaxInt16 {
			s = math.MaxInt16
		} else if s < math.MinInt16 {
			s = math.MinInt16
		}
		samples[i] = int16(s)
	}
	return samples
}
