// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package pulsegen drives the pico-pulse digital sequence synthesizer.
// The device consumes one ASCII program per sequence and answers with a
// single status line.
package pulsegen

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	odmr "github.com/bgoblyos/time-resolved-odmr"
)

// PicoPulse is a session with the synthesizer. The pin map and token
// configuration are fixed at setup time; sequences are compiled and
// shipped per call.
type PicoPulse struct {
	rw   io.ReadWriter
	pins odmr.ChannelMap
	cfg  odmr.TokenConfig
}

// New validates the pin map and returns a session. The token capacity
// defaults to the pico firmware's memory when left zero.
func New(rw io.ReadWriter, pins odmr.ChannelMap, cfg odmr.TokenConfig) (*PicoPulse, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}
	if cfg.Unit == 0 {
		cfg.Unit = 1 // native nanoseconds
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = odmr.PicoTokenCapacity
	}
	return &PicoPulse{rw: rw, pins: pins, cfg: cfg}, nil
}

// Command sends one ASCII command.
func (p *PicoPulse) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	_, err := fmt.Fprintf(p.rw, "%s\n", strings.TrimSpace(cmd))
	return err
}

// Query sends a command and reads the status line.
func (p *PicoPulse) Query(cmd string) (string, error) {
	if err := p.Command("%s", cmd); err != nil {
		return "", err
	}
	s, err := bufio.NewReader(p.rw).ReadString('\n')
	if err == io.EOF {
		return s, nil
	}
	return s, err
}

// Send compiles seq against the session's pin map and uploads it. The
// returned string is the device's status response.
func (p *PicoPulse) Send(seq *odmr.Sequence) (string, error) {
	ts, err := odmr.EncodeTokens(seq, p.pins, p.cfg)
	if err != nil {
		return "", err
	}
	return p.SendStream(ts)
}

// SendStream uploads an already-encoded token stream, for callers that
// adjust loop counts first.
func (p *PicoPulse) SendStream(ts *odmr.TokenStream) (string, error) {
	return p.Query(ts.Command())
}

// Idle pushes the idle sequence: lock-in reference running at the given
// frequency, laser and microwave off. Safe to leave running unattended.
func (p *PicoPulse) Idle(freq float64) error {
	seq, err := odmr.IdleSequence(freq)
	if err != nil {
		return err
	}
	_, err = p.Send(seq)
	return err
}
