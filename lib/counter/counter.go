// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package counter reads a Phase Matrix 25B microwave frequency counter.
// Only used on the development bench; the student rig has no counter.
package counter

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Transport is the surface the counter needs: commands out, a raw byte
// stream of readings back.
type Transport interface {
	Command(format string, a ...any) error
	io.Reader
}

// PM25B is a session with the counter. After setup the instrument emits
// readings continuously; Read consumes them one at a time.
type PM25B struct {
	t Transport
	r *bufio.Reader
}

// New puts the counter into continuous power-and-frequency mode.
func New(t Transport) (*PM25B, error) {
	if err := t.Command("PA"); err != nil {
		return nil, err
	}
	if err := t.Command("BR"); err != nil {
		return nil, err
	}
	return &PM25B{t: t, r: bufio.NewReader(t)}, nil
}

// Read takes one reading and returns frequency in Hz and power in dBm.
// The counter answers "freq,power" terminated by a carriage return.
func (d *PM25B) Read() (freq, power float64, err error) {
	resp, err := d.r.ReadString('\r')
	if err != nil && err != io.EOF {
		return 0, 0, err
	}
	parts := strings.Split(strings.TrimSpace(resp), ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("counter response %q: want freq,power", resp)
	}
	if freq, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, fmt.Errorf("parsing frequency in %q: %w", resp, err)
	}
	if power, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, fmt.Errorf("parsing power in %q: %w", resp, err)
	}
	return freq, power, nil
}
