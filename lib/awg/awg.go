// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package awg drives a Siglent SDG1062X arbitrary waveform generator
// over its USB virtual COM port. The command grammar follows the SDG
// programming manual; waveform buffers come from the compiler in the
// repo root.
package awg

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	odmr "github.com/bgoblyos/time-resolved-odmr"
)

// SDG1062X is a session with one generator.
type SDG1062X struct {
	rw          io.ReadWriter
	queryDelay  time.Duration
	internalOsc bool
}

// Option applies a configuration option to the session.
type Option func(*SDG1062X)

// WithExternalOscillator clocks the generator from the 10 MHz in/out
// port instead of emitting its own reference there. Used when two
// generators must stay phase locked.
func WithExternalOscillator() Option {
	return func(d *SDG1062X) { d.internalOsc = false }
}

// WithQueryDelay pauses between a query write and its read; the SDG
// needs a beat before it answers.
func WithQueryDelay(delay time.Duration) Option {
	return func(d *SDG1062X) { d.queryDelay = delay }
}

// New sets up a generator session and configures its clock source.
func New(rw io.ReadWriter, opts ...Option) (*SDG1062X, error) {
	d := SDG1062X{
		rw:          rw,
		queryDelay:  250 * time.Millisecond,
		internalOsc: true,
	}
	for _, opt := range opts {
		opt(&d)
	}

	var err error
	if d.internalOsc {
		err = d.Command("ROSC INT;ROSC 10MOUT,ON")
	} else {
		err = d.Command("ROSC EXT;ROSC 10MOUT,OFF")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Command formats and sends one ASCII command.
func (d *SDG1062X) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	_, err := fmt.Fprintf(d.rw, "%s\n", strings.TrimSpace(cmd))
	return err
}

// Query sends a command and reads one line of response.
func (d *SDG1062X) Query(cmd string) (string, error) {
	if err := d.Command("%s", cmd); err != nil {
		return "", err
	}
	time.Sleep(d.queryDelay)
	s, err := bufio.NewReader(d.rw).ReadString('\n')
	if err == io.EOF {
		return s, nil
	}
	return s, err
}

// Output switches the given channel output. load is the expected
// impedance in ohms; inverted selects inverted polarity.
func (d *SDG1062X) Output(channel int, on bool, load int, inverted bool) error {
	state := "OFF"
	if on {
		state = "ON"
	}
	polarity := "NOR"
	if inverted {
		polarity = "INVT"
	}
	return d.Command("C%d:OUTP %s,LOAD,%d,PLRT,%s", channel, state, load, polarity)
}

// SetWaveform uploads the buffer under the given name, selects it on the
// channel and programs the sample rate. The upload command embeds the
// amplitude and offset the compiler recorded; the samples go out as
// little-endian int16.
func (d *SDG1062X) SetWaveform(channel int, name string, wf *odmr.Waveform) error {
	var payload bytes.Buffer
	header := fmt.Sprintf(
		"C%d:WVDT WVNM,%s,FREQ,1.0,AMPL,%g,OFST,%g,PHASE,0.0,LENGTH,%d,WAVEDATA,",
		channel, name, wf.Amplitude, wf.Offset, 2*len(wf.Samples),
	)
	payload.WriteString(header)
	if err := binary.Write(&payload, binary.LittleEndian, wf.Samples); err != nil {
		return err
	}
	payload.WriteByte('\n')
	if _, err := d.rw.Write(payload.Bytes()); err != nil {
		return fmt.Errorf("uploading waveform %q: %w", name, err)
	}

	if err := d.Command("C%d:ARWV NAME,%s", channel, name); err != nil {
		return err
	}
	return d.Command("C%d:SRATE MODE,TARB,VALUE,%f,INTER,LINE", channel, wf.SampleRate)
}

// BurstInternal arms burst mode with the internal trigger. period and
// delay are in seconds; n is the number of waveform repetitions per
// burst, n <= 0 meaning continuous; trigOut is "OFF", "RISE" or "FALL".
func (d *SDG1062X) BurstInternal(channel int, period, delay float64, n int, trigOut string) error {
	return d.Command("C%d:BTWV STATE,ON,TRSR,INT,PRD,%g,DLAY,%g,TRMD,%s,TIME,%s",
		channel, period, delay, trigOut, burstCount(n))
}

// BurstExternal arms burst mode on an external trigger edge ("RISE" or
// "FALL").
func (d *SDG1062X) BurstExternal(channel int, delay float64, n int, edge string) error {
	return d.Command("C%d:BTWV STATE,ON,TRSR,EXT,DLAY,%g,EDGE,%s,TIME,%s",
		channel, delay, edge, burstCount(n))
}

// BurstOff disables burst mode on the channel.
func (d *SDG1062X) BurstOff(channel int) error {
	return d.Command("C%d:BTWV STATE,OFF", channel)
}

func burstCount(n int) string {
	if n <= 0 {
		return "INF"
	}
	return fmt.Sprintf("%d", n)
}
