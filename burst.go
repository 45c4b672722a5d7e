// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package odmr

import "math"

// Sequence builders for the standard ODMR measurements. Durations are in
// nanoseconds, matching the pulse synthesizer's native unit. Channel
// names are the logical lines of the rig; map them to physical bits with
// a ChannelMap at encode time.
const (
	ChanLockin = "lockin"
	ChanLaser  = "laser"
	ChanI      = "I"
	ChanQ      = "Q"
)

// minPad is the shortest padding pulse the synthesizer can time
// reliably, in nanoseconds.
const minPad = 20

// PicoTokenCapacity is the token memory of the pico-pulse firmware.
const PicoTokenCapacity = 1 << 16

func row(t float64, lockin, laser, i, q float64) Step {
	return Step{
		Duration: t,
		Channels: map[string]float64{
			ChanLockin: lockin,
			ChanLaser:  laser,
			ChanI:      i,
			ChanQ:      q,
		},
	}
}

// halfPeriod returns one lock-in half period in integer nanoseconds.
func halfPeriod(freq float64) float64 {
	return math.Round(1e9 / (freq * 2))
}

// IdleSequence keeps the lock-in reference running with every other
// line off. Pushed between measurements so the laser is not left on.
func IdleSequence(freq float64) (*Sequence, error) {
	if freq <= 0 {
		return nil, &ConfigurationError{Param: "freq", Msg: "must be positive"}
	}
	half := halfPeriod(freq)
	return NewSequence([]Step{
		row(half, 1, 0, 0, 0),
		row(half, 0, 0, 0, 0),
	})
}

// CWSequence chops the microwave lines at the lock-in frequency with the
// laser held on, for continuous-wave ODMR.
func CWSequence(freq float64) (*Sequence, error) {
	if freq <= 0 {
		return nil, &ConfigurationError{Param: "freq", Msg: "must be positive"}
	}
	half := halfPeriod(freq)
	return NewSequence([]Step{
		row(half, 1, 1, 1, 1),
		row(half, 0, 1, 0, 0),
	})
}

// T1Sequence builds an initialize/wait/readout cycle and its reference
// half. tau is the wait between initialization and readout, init and
// readout are the pulse lengths, all in nanoseconds.
//
// The boundary pulses are deliberately redundant: tau and readout are
// emitted as separate tokens even where a merged token would be shorter,
// so rounding of one interval cannot drift the others.
func T1Sequence(tau, init, readout, freq float64) (*Sequence, error) {
	if freq <= 0 {
		return nil, &ConfigurationError{Param: "freq", Msg: "must be positive"}
	}
	half := halfPeriod(freq)
	tpad := half - init - readout - tau
	if tpad < minPad {
		return nil, &CapacityError{What: "T1 padding (decrease the lock-in frequency)", Have: int(tpad), Limit: minPad}
	}
	return NewSequence([]Step{
		row(init, 1, 1, 0, 0),
		row(tau, 1, 0, 0, 0),
		row(readout, 1, 1, 0, 0),
		row(tpad, 1, 0, 0, 0),
		row(init, 0, 1, 0, 0),
		row(tau, 0, 0, 0, 0),
		row(readout, 0, 0, 0, 0),
		row(tpad, 0, 0, 0, 0),
	})
}

// RabiSequence builds loops repetitions of a pad/microwave/laser cycle
// followed by the same cycles without microwave power, one lock-in half
// period each. tau is the microwave pulse length and innerHalf the
// elementary period, in nanoseconds. The laser occupies dutyCycle of
// each elementary period.
//
// Each cycle is anchored on its own rounded laser-on and padding
// lengths, so rounding error cannot accumulate across loops.
func RabiSequence(tau, innerHalf, dutyCycle float64, loops int) (*Sequence, error) {
	if dutyCycle <= 0 || dutyCycle >= 1 {
		return nil, &ConfigurationError{Param: "dutyCycle", Msg: "must be in (0, 1) exclusive"}
	}
	if loops <= 0 {
		return nil, &ConfigurationError{Param: "loops", Msg: "must be positive"}
	}
	if 6*loops >= PicoTokenCapacity {
		return nil, &CapacityError{What: "Rabi token count (reduce loops)", Have: 6 * loops, Limit: PicoTokenCapacity}
	}

	laserOn := math.Round(innerHalf * dutyCycle)
	laserOff := math.Round(innerHalf - laserOn)
	tpad := laserOff - tau
	if tpad < minPad {
		return nil, &CapacityError{
			What:  "Rabi padding (increase the inner period or reduce the duty cycle)",
			Have:  int(tpad),
			Limit: minPad,
		}
	}

	steps := make([]Step, 0, 6*loops)
	for i := 0; i < loops; i++ {
		steps = append(steps,
			row(tpad, 1, 0, 0, 0),
			row(tau, 1, 0, 1, 1),
			row(laserOn, 1, 1, 0, 0),
		)
	}
	for i := 0; i < loops; i++ {
		steps = append(steps,
			row(tpad, 0, 0, 0, 0),
			row(tau, 0, 0, 0, 0),
			row(laserOn, 0, 1, 0, 0),
		)
	}
	return NewSequence(steps)
}
