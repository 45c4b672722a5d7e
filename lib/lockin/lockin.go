// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package lockin drives a Stanford Research SR830 lock-in amplifier.
// Front-panel ranges (sensitivity, time constant, sample rate) are
// discrete indexed tables on this instrument; the session exposes the
// tables plus nearest-value setters so callers can think in volts and
// seconds.
package lockin

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/gotmc/query"
)

// Transport is the command/query/raw-read surface the SR830 needs. A
// gpib.Controller satisfies it.
type Transport interface {
	query.Querier
	Command(format string, a ...any) error
	io.Reader
}

// Sensitivity is one row of the SENS range table. The same index means
// a voltage or a current full scale depending on the input mode.
type Sensitivity struct {
	Index     int
	Volts     float64
	VoltLabel string
	Amps      float64
	AmpLabel  string
}

// Sensitivities is the SR830 SENS table.
var Sensitivities = []Sensitivity{
	{0, 2e-9, "2 nV", 2e-15, "2 fA"},
	{1, 5e-9, "5 nV", 5e-15, "5 fA"},
	{2, 1e-8, "10 nV", 1e-14, "10 fA"},
	{3, 2e-8, "20 nV", 2e-14, "20 fA"},
	{4, 5e-8, "50 nV", 5e-14, "50 fA"},
	{5, 1e-7, "100 nV", 1e-13, "100 fA"},
	{6, 2e-7, "200 nV", 2e-13, "200 fA"},
	{7, 5e-7, "500 nV", 5e-13, "500 fA"},
	{8, 1e-6, "1 uV", 1e-12, "1 pA"},
	{9, 2e-6, "2 uV", 2e-12, "2 pA"},
	{10, 5e-6, "5 uV", 5e-12, "5 pA"},
	{11, 1e-5, "10 uV", 1e-11, "10 pA"},
	{12, 2e-5, "20 uV", 2e-11, "20 pA"},
	{13, 5e-5, "50 uV", 5e-11, "50 pA"},
	{14, 1e-4, "100 uV", 1e-10, "100 pA"},
	{15, 2e-4, "200 uV", 2e-10, "200 pA"},
	{16, 5e-4, "500 uV", 5e-10, "500 pA"},
	{17, 1e-3, "1 mV", 1e-9, "1 nA"},
	{18, 2e-3, "2 mV", 2e-9, "2 nA"},
	{19, 5e-3, "5 mV", 5e-9, "5 nA"},
	{20, 1e-2, "10 mV", 1e-8, "10 nA"},
	{21, 2e-2, "20 mV", 2e-8, "20 nA"},
	{22, 5e-2, "50 mV", 5e-8, "50 nA"},
	{23, 1e-1, "100 mV", 1e-7, "100 nA"},
	{24, 2e-1, "200 mV", 2e-7, "200 nA"},
	{25, 5e-1, "500 mV", 5e-7, "500 nA"},
	{26, 1e0, "1 V", 1e-6, "1 uA"},
}

// TimeConstant is one row of the OFLT table.
type TimeConstant struct {
	Index   int
	Seconds float64
	Label   string
}

// TimeConstants is the SR830 OFLT table.
var TimeConstants = []TimeConstant{
	{0, 1e-5, "10 us"}, {1, 3e-5, "30 us"},
	{2, 1e-4, "100 us"}, {3, 3e-4, "300 us"},
	{4, 1e-3, "1 ms"}, {5, 3e-3, "3 ms"},
	{6, 1e-2, "10 ms"}, {7, 3e-2, "30 ms"},
	{8, 1e-1, "100 ms"}, {9, 3e-1, "300 ms"},
	{10, 1e0, "1 s"}, {11, 3e0, "3 s"},
	{12, 1e1, "10 s"}, {13, 3e1, "30 s"},
	{14, 1e2, "100 s"}, {15, 3e2, "300 s"},
	{16, 1e3, "1 ks"}, {17, 3e3, "3 ks"},
	{18, 1e4, "10 ks"}, {19, 3e4, "30 ks"},
}

// SampleRate is one row of the SRAT table. 0 Hz is trigger mode.
type SampleRate struct {
	Index int
	Hz    float64
	Label string
}

// SampleRates is the SR830 SRAT table.
var SampleRates = []SampleRate{
	{0, 62.5e-3, "62.5 mHz"}, {1, 125e-3, "125 mHz"},
	{2, 250e-3, "250 mHz"}, {3, 500e-3, "500 mHz"},
	{4, 1, "1 Hz"}, {5, 2, "2 Hz"},
	{6, 4, "4 Hz"}, {7, 8, "8 Hz"},
	{8, 16, "16 Hz"}, {9, 32, "32 Hz"},
	{10, 64, "64 Hz"}, {11, 128, "128 Hz"},
	{12, 256, "256 Hz"}, {13, 512, "512 Hz"},
	{14, 0, "Trigger"},
}

// snapParams maps readable parameter names to SNAP? indices.
var snapParams = map[string]int{
	"X": 1, "Y": 2, "R": 3,
	"THETA": 4,
	"AUX1":  5, "AUX2": 6, "AUX3": 7, "AUX4": 8,
	"REF": 9, "FREQ": 9,
	"DISP1": 10, "CH1": 10,
	"DISP2": 11, "CH2": 11,
}

// display selections for DDEF per display number.
var dispParams = [2]map[string]int{
	{"X": 0, "R": 1, "XNOISE": 2, "AUX1": 3, "AUX2": 4},
	{"Y": 0, "THETA": 1, "YNOISE": 2, "AUX3": 3, "AUX4": 4},
}

// SR830 is a session with one lock-in amplifier.
type SR830 struct {
	t Transport
}

// New returns an SR830 session over the given transport.
func New(t Transport) *SR830 {
	return &SR830{t: t}
}

// SetSensitivityIndex programs the SENS index directly. current selects
// the current-input interpretation and, unless keepInput, also switches
// the input mode to the matching default.
func (d *SR830) SetSensitivityIndex(i int, current, keepInput bool) (float64, error) {
	if i < 0 || i >= len(Sensitivities) {
		return 0, fmt.Errorf("sensitivity index %d out of range", i)
	}
	if !keepInput {
		mode := 0 // A (voltage)
		if current {
			mode = 3 // I, 100 MOhm
		}
		if err := d.SetInputMode(mode); err != nil {
			return 0, err
		}
	}
	if err := d.t.Command("SENS %d", i); err != nil {
		return 0, err
	}
	if current {
		return Sensitivities[i].Amps, nil
	}
	return Sensitivities[i].Volts, nil
}

// SetSensitivityVolts selects the table row nearest the target full
// scale in volts and returns the value achieved.
func (d *SR830) SetSensitivityVolts(target float64) (float64, error) {
	i := nearest(len(Sensitivities), func(k int) float64 { return Sensitivities[k].Volts }, target)
	return d.SetSensitivityIndex(i, false, false)
}

// SetSensitivityAmps selects the nearest current full scale.
func (d *SR830) SetSensitivityAmps(target float64) (float64, error) {
	i := nearest(len(Sensitivities), func(k int) float64 { return Sensitivities[k].Amps }, target)
	return d.SetSensitivityIndex(i, true, false)
}

// SetTimeConstant selects the nearest time constant in seconds.
func (d *SR830) SetTimeConstant(target float64) (float64, error) {
	i := nearest(len(TimeConstants), func(k int) float64 { return TimeConstants[k].Seconds }, target)
	if err := d.t.Command("OFLT %d", i); err != nil {
		return 0, err
	}
	return TimeConstants[i].Seconds, nil
}

// GetTimeConstant queries the current time constant.
func (d *SR830) GetTimeConstant() (float64, error) {
	i, err := query.Int(d.t, "OFLT?")
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(TimeConstants) {
		return 0, fmt.Errorf("device reported time constant index %d", i)
	}
	return TimeConstants[i].Seconds, nil
}

// SetSampleRate selects the nearest buffered-acquisition rate in Hz and
// returns the rate achieved. A non-positive target picks the fastest
// rate that still resolves the current time constant.
func (d *SR830) SetSampleRate(target float64) (float64, error) {
	if target <= 0 {
		tc, err := d.GetTimeConstant()
		if err != nil {
			return 0, err
		}
		return d.setAutoSampleRate(tc)
	}
	i := nearest(len(SampleRates)-1, func(k int) float64 { return SampleRates[k].Hz }, target)
	if err := d.t.Command("SRAT %d", i); err != nil {
		return 0, err
	}
	return SampleRates[i].Hz, nil
}

// setAutoSampleRate picks the highest rate not exceeding 1/tc.
func (d *SR830) setAutoSampleRate(tc float64) (float64, error) {
	maxHz := 1 / tc
	best := 0
	for k := 0; k < len(SampleRates)-1; k++ { // skip trigger mode
		if SampleRates[k].Hz <= maxHz {
			best = k
		}
	}
	if err := d.t.Command("SRAT %d", best); err != nil {
		return 0, err
	}
	return SampleRates[best].Hz, nil
}

// SetInternalReference selects the internal (true) or external (false)
// reference oscillator.
func (d *SR830) SetInternalReference(internal bool) error {
	if internal {
		return d.t.Command("FMOD 1")
	}
	return d.t.Command("FMOD 0")
}

// SetFreq programs the internal reference frequency in Hz.
func (d *SR830) SetFreq(freq float64) error {
	if freq < 0.001 || freq > 102000 {
		return fmt.Errorf("reference frequency %g Hz out of range (1 mHz - 102 kHz)", freq)
	}
	return d.t.Command("FREQ %g", freq)
}

// GetFreq reads the reference frequency actually in use.
func (d *SR830) GetFreq() (float64, error) {
	return query.Float64(d.t, "FREQ?")
}

// SetPhase programs the reference phase in degrees, wrapped into
// [0, 360).
func (d *SR830) SetPhase(deg float64) error {
	return d.t.Command("PHAS %g", math.Mod(math.Mod(deg, 360)+360, 360))
}

// SetInputMode selects the input configuration: 0 A, 1 A-B, 2 I (1
// MOhm), 3 I (100 MOhm).
func (d *SR830) SetInputMode(mode int) error {
	if mode < 0 || mode > 3 {
		return fmt.Errorf("input mode %d invalid (0-3)", mode)
	}
	return d.t.Command("ISRC %d", mode)
}

// GetInputMode reads the input configuration.
func (d *SR830) GetInputMode() (int, error) {
	return query.Int(d.t, "ISRC?")
}

// SetDisplay routes a value onto display 1 or 2; ratio divides by AUX1
// (1) or AUX2 (2), 0 for none. Buffered acquisition records whatever the
// displays show.
func (d *SR830) SetDisplay(disp int, target string, ratio int) error {
	if disp != 1 && disp != 2 {
		return fmt.Errorf("display must be 1 or 2, got %d", disp)
	}
	params := dispParams[disp-1]
	i, ok := params[strings.ToUpper(target)]
	if !ok {
		return fmt.Errorf("display %d cannot show %q (valid: %s)", disp, target, keys(params))
	}
	return d.t.Command("DDEF %d,%d,%d", disp, i, ratio)
}

// Snapshot reads 1 to 6 parameters simultaneously via SNAP?. The
// instrument refuses a single-parameter SNAP, so a lone parameter is
// sent twice and the duplicate discarded.
func (d *SR830) Snapshot(params ...string) ([]float64, error) {
	if len(params) < 1 {
		return nil, fmt.Errorf("snapshot needs at least one parameter")
	}
	if len(params) > 6 {
		return nil, fmt.Errorf("snapshot reads at most 6 parameters, got %d", len(params))
	}
	indices := make([]string, 0, len(params)+1)
	for _, p := range params {
		i, ok := snapParams[strings.ToUpper(p)]
		if !ok {
			return nil, fmt.Errorf("unknown snapshot parameter %q (valid: %s)", p, keys(snapParams))
		}
		indices = append(indices, fmt.Sprintf("%d", i))
	}
	single := len(indices) == 1
	if single {
		indices = append(indices, indices[0])
	}

	resp, err := d.t.Query("SNAP? " + strings.Join(indices, ","))
	if err != nil {
		return nil, err
	}
	fields := strings.Split(strings.TrimSpace(resp), ",")
	vals := make([]float64, 0, len(fields))
	for _, f := range fields {
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(f), "%g", &v); err != nil {
			return nil, fmt.Errorf("parsing snapshot response %q: %w", resp, err)
		}
		vals = append(vals, v)
	}
	if single && len(vals) > 1 {
		vals = vals[:1]
	}
	return vals, nil
}

// BinCount reads how many samples the internal buffer holds.
func (d *SR830) BinCount() (int, error) {
	return query.Int(d.t, "SPTS?")
}

// ReadBuffer transfers numPoints samples of the given display buffer (1
// or 2) starting at firstPoint, using the binary TRCB transfer.
// numPoints <= 0 means everything after firstPoint. Out-of-range
// requests clamp to the stored data.
func (d *SR830) ReadBuffer(buffer, firstPoint, numPoints int) ([]float64, error) {
	stored, err := d.BinCount()
	if err != nil {
		return nil, err
	}
	if stored == 0 {
		return nil, nil
	}
	if firstPoint < 0 || firstPoint >= stored {
		return nil, fmt.Errorf("buffer start %d out of bounds (%d stored)", firstPoint, stored)
	}
	if numPoints <= 0 || firstPoint+numPoints > stored {
		numPoints = stored - firstPoint
	}

	// TRCB answers with raw little-endian float32, 4 bytes per sample,
	// no terminator, so read exactly the announced amount.
	if err := d.t.Command("TRCB ? %d, %d, %d", buffer, firstPoint, numPoints); err != nil {
		return nil, err
	}
	raw := make([]byte, 4*numPoints)
	if _, err := io.ReadFull(d.t, raw); err != nil {
		return nil, fmt.Errorf("reading %d buffer samples: %w", numPoints, err)
	}
	out := make([]float64, numPoints)
	for i := range out {
		bits := binary.LittleEndian.Uint32(raw[4*i:])
		out[i] = float64(math.Float32frombits(bits))
	}
	return out, nil
}

// MultiRead acquires both displays for the given duration: routes ch1
// and ch2 onto the displays, restarts the buffer, records at srate
// (non-positive for automatic), pauses and transfers both buffers.
func (d *SR830) MultiRead(ch1, ch2 string, duration time.Duration, srate float64) ([]float64, []float64, error) {
	if err := d.SetDisplay(1, ch1, 0); err != nil {
		return nil, nil, err
	}
	if err := d.SetDisplay(2, ch2, 0); err != nil {
		return nil, nil, err
	}
	if _, err := d.SetSampleRate(srate); err != nil {
		return nil, nil, err
	}
	if err := d.t.Command("REST"); err != nil {
		return nil, nil, err
	}
	if err := d.t.Command("STRT"); err != nil {
		return nil, nil, err
	}
	time.Sleep(duration)
	if err := d.t.Command("PAUS"); err != nil {
		return nil, nil, err
	}

	first, err := d.ReadBuffer(1, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	second, err := d.ReadBuffer(2, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

// nearest returns the index k in [0, n) minimizing |value(k)-target|.
func nearest(n int, value func(int) float64, target float64) int {
	best := 0
	bestDist := math.Inf(1)
	for k := 0; k < n; k++ {
		if dist := math.Abs(value(k) - target); dist < bestDist {
			best = k
			bestDist = dist
		}
	}
	return best
}

func keys(m map[string]int) string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return strings.Join(out, ", ")
}
