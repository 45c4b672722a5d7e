// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package odmr compiles declarative pulse-sequence timelines into the
// encodings the instruments of a time-resolved ODMR rig consume: padded
// 16-bit sample buffers for an arbitrary waveform generator and compact
// duration,bitmask token streams for a digital pulse synthesizer.
//
// Encoders are pure functions of (sequence, configuration); they hold no
// state between calls and are safe to invoke concurrently.
package odmr

import "sort"

// Step is one row of a pulse sequence: a duration in the caller's unit
// (microseconds, nanoseconds or raw samples, depending on the target
// encoder) and the value of every logical channel during that interval.
// A value of 0 is inactive; any value > 0 is active. Negative values are
// permitted for channels mirrored onto an inverted output.
type Step struct {
	Duration float64
	Channels map[string]float64
}

// Sequence is an ordered pulse timeline. The step order is the temporal
// order of execution and is never reordered. A Sequence is immutable
// after construction; encoders only read it.
type Sequence struct {
	steps    []Step
	channels []string
}

// NewSequence validates and constructs a Sequence. Every step must carry
// the same channel name set and a non-negative duration; a sequence with
// no steps is rejected. Failures are SchemaErrors.
func NewSequence(steps []Step) (*Sequence, error) {
	if len(steps) == 0 {
		return nil, &SchemaError{Step: -1, Msg: "no steps"}
	}

	names := make([]string, 0, len(steps[0].Channels))
	for name := range steps[0].Channels {
		names = append(names, name)
	}
	sort.Strings(names)

	copied := make([]Step, len(steps))
	for i, st := range steps {
		if st.Duration < 0 {
			return nil, &SchemaError{Step: i, Msg: "negative duration"}
		}
		if len(st.Channels) != len(names) {
			return nil, &SchemaError{Step: i, Msg: "channel set differs from step 0"}
		}
		ch := make(map[string]float64, len(names))
		for _, name := range names {
			v, ok := st.Channels[name]
			if !ok {
				return nil, &SchemaError{Step: i, Msg: "missing channel " + name}
			}
			ch[name] = v
		}
		copied[i] = Step{Duration: st.Duration, Channels: ch}
	}

	return &Sequence{steps: copied, channels: names}, nil
}

// Len returns the number of steps.
func (s *Sequence) Len() int { return len(s.steps) }

// Step returns the i-th step. The returned value shares no mutable state
// with the caller that built the sequence.
func (s *Sequence) Step(i int) Step { return s.steps[i] }

// Channels returns the sorted channel names shared by every step.
func (s *Sequence) Channels() []string {
	out := make([]string, len(s.channels))
	copy(out, s.channels)
	return out
}

// TotalDuration is the exact sum of all step durations in the caller's
// unit. No rounding happens at the model layer.
func (s *Sequence) TotalDuration() float64 {
	var total float64
	for _, st := range s.steps {
		total += st.Duration
	}
	return total
}
