// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package sweeper drives an HP 83752A synthesized sweeper over GPIB,
// used in place of the PLL when the measurement needs swept or higher
// power microwave excitation.
package sweeper

import (
	"fmt"

	"github.com/gotmc/query"
)

// Transport is the command/query surface the sweeper needs; a
// gpib.Controller satisfies it.
type Transport interface {
	query.Querier
	Command(format string, a ...any) error
}

// HP83752A is a session with the sweeper. Frequencies are in GHz at this
// surface, matching how the experiments are parameterized.
type HP83752A struct {
	t Transport
}

// Instrument limits.
const (
	MinFreqGHz = 0.01
	MaxFreqGHz = 20
	MinPower   = -80 // dBm
	MaxPower   = 20  // dBm
)

// New returns a sweeper session.
func New(t Transport) *HP83752A {
	return &HP83752A{t: t}
}

// SetupSweep programs a frequency sweep from start to stop GHz over the
// given time in seconds.
func (d *HP83752A) SetupSweep(startGHz, stopGHz, seconds float64) error {
	if err := d.t.Command("FREQ:MODE SWE"); err != nil {
		return err
	}
	if err := d.t.Command("FREQ:STAR %g GHZ", startGHz); err != nil {
		return err
	}
	if err := d.t.Command("FREQ:STOP %g GHZ", stopGHz); err != nil {
		return err
	}
	return d.t.Command("SWE:TIME %g s", seconds)
}

// SweepParams reads back the programmed sweep (start GHz, stop GHz,
// seconds).
func (d *HP83752A) SweepParams() (start, stop, seconds float64, err error) {
	if start, err = query.Float64(d.t, "FREQ:STAR?"); err != nil {
		return
	}
	start /= 1e9
	if stop, err = query.Float64(d.t, "FREQ:STOP?"); err != nil {
		return
	}
	stop /= 1e9
	seconds, err = query.Float64(d.t, "SWE:TIME?")
	return
}

// ClearMarkers turns all frequency markers off.
func (d *HP83752A) ClearMarkers() error {
	return d.t.Command("MARK:AOFF")
}

// SetMarker places marker n at the given frequency.
func (d *HP83752A) SetMarker(n int, freqGHz float64) error {
	return d.t.Command("MARK%d:STATE ON; FREQ %g GHz", n, freqGHz)
}

// SetPower programs the output power level in dBm.
func (d *HP83752A) SetPower(dBm float64) error {
	if dBm < MinPower || dBm > MaxPower {
		return fmt.Errorf("power %g dBm out of range (%d to %d)", dBm, MinPower, MaxPower)
	}
	return d.t.Command("POWER:LEV %g DBM", dBm)
}

// Power reads the programmed output power in dBm.
func (d *HP83752A) Power() (float64, error) {
	return query.Float64(d.t, "POWER:LEV?")
}

// PowerOn enables the RF output.
func (d *HP83752A) PowerOn() error { return d.t.Command("POW:STATE ON") }

// PowerOff disables the RF output.
func (d *HP83752A) PowerOff() error { return d.t.Command("POW:STATE OFF") }

// SetContinuousSweep selects free-running (true) or triggered sweeps.
func (d *HP83752A) SetContinuousSweep(cont bool) error {
	if cont {
		return d.t.Command("INIT:CONT ON")
	}
	return d.t.Command("INIT:CONT OFF")
}

// StartSweep triggers one sweep.
func (d *HP83752A) StartSweep() error { return d.t.Command("INIT:IMM;*TRG") }

// StopSweep aborts a running sweep.
func (d *HP83752A) StopSweep() error { return d.t.Command("ABORT") }

// SetCW parks the sweeper at a single frequency.
func (d *HP83752A) SetCW(freqGHz float64) error {
	if freqGHz < MinFreqGHz || freqGHz > MaxFreqGHz {
		return fmt.Errorf("frequency %g GHz out of range (%g to %g)", freqGHz, MinFreqGHz, float64(MaxFreqGHz))
	}
	return d.t.Command("FREQ:CW %g GHz", freqGHz)
}

// CW reads the parked frequency in GHz.
func (d *HP83752A) CW() (float64, error) {
	hz, err := query.Float64(d.t, "FREQ:CW?")
	if err != nil {
		return 0, err
	}
	return hz / 1e9, nil
}
