// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package experiment ties the instrument sessions together into
// measurement runs. A Rig owns every open device for one experiment;
// runners scan a parameter, take lock-in statistics per point and dump
// timestamped JSON results.
package experiment

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	odmr "github.com/bgoblyos/time-resolved-odmr"
	"github.com/bgoblyos/time-resolved-odmr/lib/awg"
	"github.com/bgoblyos/time-resolved-odmr/lib/expcfg"
	"github.com/bgoblyos/time-resolved-odmr/lib/gpib"
	"github.com/bgoblyos/time-resolved-odmr/lib/lo"
	"github.com/bgoblyos/time-resolved-odmr/lib/lockin"
	"github.com/bgoblyos/time-resolved-odmr/lib/pulsegen"
	"github.com/bgoblyos/time-resolved-odmr/lib/session"
)

// Rig holds one experiment's open instrument sessions. Only devices
// with a configured port are opened; the rest stay nil.
type Rig struct {
	Cfg    *expcfg.Config
	Lockin *lockin.SR830
	Pico   *pulsegen.PicoPulse
	LO     *lo.KuhnePLL
	AWG    *awg.SDG1062X
}

// Setup opens every configured device and returns the rig with a
// single cleanup. The cleanup idles the pulse synthesizer, releases
// every port in reverse open order and aggregates errors. On a partial
// failure everything opened so far is released before returning.
func Setup(cfg *expcfg.Config) (*Rig, func() error, error) {
	r := &Rig{Cfg: cfg}
	var cleanups []func() error
	cleanup := func() error {
		var errs error
		for i := len(cleanups) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, cleanups[i]())
		}
		return errs
	}
	fail := func(err error) (*Rig, func() error, error) {
		return nil, nil, multierr.Append(err, cleanup())
	}

	if cfg.Lockin.Port != "" {
		port, cl, err := session.Open(session.Config{Port: cfg.Lockin.Port})
		if err != nil {
			return fail(err)
		}
		cleanups = append(cleanups, cl)
		ctrl, err := gpib.NewController(port, cfg.Lockin.GPIBAddress, false)
		if err != nil {
			return fail(fmt.Errorf("lock-in controller: %w", err))
		}
		r.Lockin = lockin.New(ctrl)
	}

	if cfg.Pico.Port != "" {
		port, cl, err := session.Open(session.Config{Port: cfg.Pico.Port})
		if err != nil {
			return fail(err)
		}
		cleanups = append(cleanups, cl)
		pico, err := pulsegen.New(port, cfg.PinMap(), cfg.TokenConfig())
		if err != nil {
			return fail(err)
		}
		r.Pico = pico
		// never leave the laser on after a run
		cleanups = append(cleanups, func() error {
			return pico.Idle(cfg.Experiment.LockinFreq)
		})
	}

	if cfg.LO.Port != "" {
		var opts []lo.Option
		if cfg.LO.Legacy {
			opts = append(opts, lo.WithLegacyProtocol())
		}
		pll, err := lo.Open(cfg.LO.Port, opts...)
		if err != nil {
			return fail(err)
		}
		cleanups = append(cleanups, pll.Close)
		r.LO = pll
	}

	if cfg.AWG.Port != "" {
		port, cl, err := session.Open(session.Config{Port: cfg.AWG.Port})
		if err != nil {
			return fail(err)
		}
		cleanups = append(cleanups, cl)
		gen, err := awg.New(port)
		if err != nil {
			return fail(fmt.Errorf("awg setup: %w", err))
		}
		r.AWG = gen
	}

	return r, cleanup, nil
}

// Measurement is one lock-in acquisition.
type Measurement struct {
	Rs     []float64 // buffered R samples, volts
	Thetas []float64 // buffered theta samples, degrees
	RMean  float64
	RStd   float64
	Freq   float64 // reference frequency the lock-in reports
}

// Measure waits out the settle time, records R and theta for the
// integration window and returns the statistics.
func (r *Rig) Measure(settle, integrate time.Duration) (*Measurement, error) {
	if r.Lockin == nil {
		return nil, fmt.Errorf("no lock-in configured")
	}
	time.Sleep(settle)
	rs, thetas, err := r.Lockin.MultiRead("R", "THETA", integrate, 0)
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("lock-in returned no samples")
	}
	m := &Measurement{Rs: rs, Thetas: thetas}
	m.RMean, m.RStd = stats(rs)
	if m.Freq, err = r.Lockin.GetFreq(); err != nil {
		return nil, err
	}
	return m, nil
}

func stats(xs []float64) (mean, std float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		std += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(std / float64(len(xs)))
}

// Iterate runs fn once per scan value, optionally in shuffled order so
// slow instrument drift does not masquerade as a parameter dependence.
// The result arrays keep the caller's original order regardless.
func Iterate(values []float64, shuffle bool, fn func(i int, v float64) error) error {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	if shuffle {
		rand.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })
	}
	for n, i := range order {
		log.Printf("point %d/%d: %g", n+1, len(values), values[i])
		if err := fn(i, values[i]); err != nil {
			return fmt.Errorf("scan point %g: %w", values[i], err)
		}
	}
	return nil
}

// Validate runs check over every scan value before any hardware is
// touched, so a mid-scan abort cannot leave the rig half-programmed.
func Validate(values []float64, check func(v float64) error) error {
	for _, v := range values {
		if err := check(v); err != nil {
			return fmt.Errorf("scan value %g: %w", v, err)
		}
	}
	return nil
}

// Result is one completed scan, shaped for JSON output.
type Result struct {
	Timestamp  string      `json:"timestamp"`
	Comment    string      `json:"comment,omitempty"`
	SettleS    float64     `json:"settle_s"`
	MeasureS   float64     `json:"measure_s"`
	LockinFreq float64     `json:"lockin_freq_Hz"`
	FreqMeas   []float64   `json:"lockin_freq_measured_Hz"`
	Scan       []float64   `json:"scan"`
	ScanUnit   string      `json:"scan_unit"`
	RMean      []float64   `json:"Rmean_V"`
	RStd       []float64   `json:"Rstd_V"`
	Rs         [][]float64 `json:"Rs_V"`
	Thetas     [][]float64 `json:"thetas_deg"`
}

// NewResult sizes a result for n scan points.
func NewResult(cfg *expcfg.Config, scan []float64, unit, comment string) *Result {
	return &Result{
		Timestamp:  time.Now().Format(time.RFC3339),
		Comment:    comment,
		SettleS:    cfg.Experiment.Settle.Seconds(),
		MeasureS:   cfg.Experiment.Integrate.Seconds(),
		LockinFreq: cfg.Experiment.LockinFreq,
		FreqMeas:   make([]float64, len(scan)),
		Scan:       scan,
		ScanUnit:   unit,
		RMean:      make([]float64, len(scan)),
		RStd:       make([]float64, len(scan)),
		Rs:         make([][]float64, len(scan)),
		Thetas:     make([][]float64, len(scan)),
	}
}

// Record stores one measurement at scan index i.
func (res *Result) Record(i int, m *Measurement) {
	res.FreqMeas[i] = m.Freq
	res.RMean[i] = m.RMean
	res.RStd[i] = m.RStd
	res.Rs[i] = m.Rs
	res.Thetas[i] = m.Thetas
}

// Save writes the result as indented JSON into dir under a timestamped
// name and returns the path.
func (res *Result) Save(dir, prefix string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.json", prefix, time.Now().Format("02Jan_15_04_05"))
	path := filepath.Join(dir, name)
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	log.Printf("saved %s", path)
	return path, nil
}

// T1Scan measures lock-in response against relaxation delay. taus are
// in nanoseconds; init and readout fix the pump and probe lengths.
func (r *Rig) T1Scan(taus []float64, init, readout float64, shuffle bool, comment string) (*Result, error) {
	if r.Pico == nil {
		return nil, fmt.Errorf("no pulse synthesizer configured")
	}
	freq := r.Cfg.Experiment.LockinFreq
	err := Validate(taus, func(tau float64) error {
		seq, err := odmr.T1Sequence(tau, init, readout, freq)
		if err != nil {
			return err
		}
		_, err = odmr.EncodeTokens(seq, r.Cfg.PinMap(), r.Cfg.TokenConfig())
		return err
	})
	if err != nil {
		return nil, err
	}

	res := NewResult(r.Cfg, taus, "ns", comment)
	err = Iterate(taus, shuffle, func(i int, tau float64) error {
		seq, err := odmr.T1Sequence(tau, init, readout, freq)
		if err != nil {
			return err
		}
		if _, err := r.Pico.Send(seq); err != nil {
			return err
		}
		m, err := r.Measure(r.Cfg.Experiment.Settle, r.Cfg.Experiment.Integrate)
		if err != nil {
			return err
		}
		res.Record(i, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RabiScan measures lock-in response against microwave pulse length.
// taus are in nanoseconds; innerHalf, dutyCycle and loops shape the
// burst as in RabiSequence.
func (r *Rig) RabiScan(taus []float64, innerHalf, dutyCycle float64, loops int, shuffle bool, comment string) (*Result, error) {
	if r.Pico == nil {
		return nil, fmt.Errorf("no pulse synthesizer configured")
	}
	err := Validate(taus, func(tau float64) error {
		seq, err := odmr.RabiSequence(tau, innerHalf, dutyCycle, loops)
		if err != nil {
			return err
		}
		_, err = odmr.EncodeTokens(seq, r.Cfg.PinMap(), r.Cfg.TokenConfig())
		return err
	})
	if err != nil {
		return nil, err
	}

	res := NewResult(r.Cfg, taus, "ns", comment)
	err = Iterate(taus, shuffle, func(i int, tau float64) error {
		seq, err := odmr.RabiSequence(tau, innerHalf, dutyCycle, loops)
		if err != nil {
			return err
		}
		if _, err := r.Pico.Send(seq); err != nil {
			return err
		}
		m, err := r.Measure(r.Cfg.Experiment.Settle, r.Cfg.Experiment.Integrate)
		if err != nil {
			return err
		}
		res.Record(i, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CWScan measures lock-in response against microwave frequency, with
// the pulse lines chopping at the lock-in rate throughout. freqs are in
// Hz.
func (r *Rig) CWScan(freqs []float64, shuffle bool, comment string) (*Result, error) {
	if r.Pico == nil || r.LO == nil {
		return nil, fmt.Errorf("CW scan needs the pulse synthesizer and the local oscillator")
	}
	seq, err := odmr.CWSequence(r.Cfg.Experiment.LockinFreq)
	if err != nil {
		return nil, err
	}
	if _, err := r.Pico.Send(seq); err != nil {
		return nil, err
	}

	res := NewResult(r.Cfg, freqs, "Hz", comment)
	err = Iterate(freqs, shuffle, func(i int, f float64) error {
		if err := r.LO.SetHz(f); err != nil {
			return err
		}
		m, err := r.Measure(r.Cfg.Experiment.Settle, r.Cfg.Experiment.Integrate)
		if err != nil {
			return err
		}
		res.Record(i, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Span builds an inclusive linear scan from a to b with n points.
func Span(a, b float64, n int) []float64 {
	if n < 2 {
		return []float64{a}
	}
	out := make([]float64, n)
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	out[n-1] = b
	return out
}
