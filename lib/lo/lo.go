// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package lo drives the Kuhne MKU LO 8-13 PLL microwave oscillator over
// its USB serial bridge. The protocol is four write/acknowledge
// exchanges, one per decimal group of the target frequency.
package lo

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.bug.st/serial"
)

// KuhnePLL is a session with the oscillator.
type KuhnePLL struct {
	port    serial.Port
	legacy  bool
	ackWait time.Duration
}

// Option applies a configuration option to the session.
type Option func(*KuhnePLL)

// WithLegacyProtocol selects the older "<nnn><p>F1" command grammar
// spoken by early firmware.
func WithLegacyProtocol() Option {
	return func(d *KuhnePLL) { d.legacy = true }
}

// WithAckWait adjusts how long to wait for the per-group
// acknowledgement byte.
func WithAckWait(d time.Duration) Option {
	return func(k *KuhnePLL) { k.ackWait = d }
}

// Open connects to the oscillator on the given serial port.
func Open(portName string, opts ...Option) (*KuhnePLL, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("opening oscillator port %s: %w", portName, err)
	}
	d := KuhnePLL{port: port, ackWait: 15 * time.Millisecond}
	for _, opt := range opts {
		opt(&d)
	}
	if err := port.SetReadTimeout(d.ackWait); err != nil {
		port.Close()
		return nil, err
	}
	return &d, nil
}

// Close releases the serial port.
func (d *KuhnePLL) Close() error { return d.port.Close() }

// SetHz programs the output frequency. The PLL takes the frequency as
// four zero-padded 3-digit groups (GHz, MHz, kHz, Hz), each of which
// must be acknowledged with "A" before the next is sent.
func (d *KuhnePLL) SetHz(freq float64) error {
	groups := []struct {
		prefix string
		value  float64
	}{
		{"G", math.Floor(freq * 1e-9)},
		{"M", math.Floor(freq * 1e-6)},
		{"k", math.Floor(freq * 1e-3)},
		{"H", math.Floor(freq)},
	}
	for _, g := range groups {
		digits := int(math.Round(g.value)) % 1000
		var cmd string
		if d.legacy {
			cmd = fmt.Sprintf("%03d%sF1", digits, g.prefix)
		} else {
			cmd = fmt.Sprintf("%sFR%03d\r\n", g.prefix, digits)
		}
		if err := d.exchange(cmd); err != nil {
			return fmt.Errorf("setting %s group: %w", g.prefix, err)
		}
	}
	return nil
}

// SetMHz programs the output frequency in megahertz.
func (d *KuhnePLL) SetMHz(freq float64) error { return d.SetHz(freq * 1e6) }

// SetGHz programs the output frequency in gigahertz.
func (d *KuhnePLL) SetGHz(freq float64) error { return d.SetHz(freq * 1e9) }

// exchange writes one command and checks for the "A" acknowledgement.
func (d *KuhnePLL) exchange(cmd string) error {
	if err := d.port.ResetInputBuffer(); err != nil {
		return err
	}
	if _, err := d.port.Write([]byte(cmd)); err != nil {
		return err
	}
	time.Sleep(d.ackWait)

	buf := make([]byte, 16)
	n, err := d.port.Read(buf)
	if err != nil {
		return err
	}
	if resp := strings.TrimSpace(string(buf[:n])); resp != "A" {
		return fmt.Errorf("oscillator rejected %q with %q", strings.TrimSpace(cmd), resp)
	}
	return nil
}
