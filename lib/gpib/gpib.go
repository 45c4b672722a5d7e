// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package gpib drives a Prologix-style USB/GPIB dongle as controller in
// charge. The sweep synthesizer and the frequency counter are the only
// GPIB instruments on this rig; everything else is direct USB serial.
package gpib

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// Controller is a GPIB controller in charge speaking through a dongle on
// the given read/writer. Its Query method satisfies query.Querier, so
// the instrument sessions can be handed a Controller directly.
type Controller struct {
	rw            io.ReadWriter
	addr          int
	secondaryAddr int
	hasSecondary  bool
	writeDelay    time.Duration
	readTimeoutMs int
	term          byte
	debug         bool
}

// Option applies a configuration option to the controller.
type Option func(*Controller)

// WithSecondaryAddress addresses an instrument with a secondary GPIB
// address (96-126).
func WithSecondaryAddress(addr int) Option {
	return func(c *Controller) {
		c.hasSecondary = true
		c.secondaryAddr = addr
	}
}

// WithWriteDelay pauses before each dongle command; some dongle firmware
// drops back-to-back writes.
func WithWriteDelay(d time.Duration) Option {
	return func(c *Controller) { c.writeDelay = d }
}

// WithReadTimeout sets the dongle's GPIB read timeout in milliseconds.
func WithReadTimeout(ms int) Option {
	return func(c *Controller) { c.readTimeoutMs = ms }
}

// WithDebug logs every command and response.
func WithDebug() Option { return func(c *Controller) { c.debug = true } }

// NewController configures the dongle to talk to the instrument at the
// given primary address. Enable clear to send Selected Device Clear
// once the dongle is set up.
func NewController(rw io.ReadWriter, addr int, clear bool, opts ...Option) (*Controller, error) {
	c := Controller{
		rw:            rw,
		addr:          addr,
		readTimeoutMs: 500,
		term:          '\n',
	}
	for _, opt := range opts {
		opt(&c)
	}

	if c.addr < 0 || c.addr > 30 {
		return nil, fmt.Errorf("invalid primary address %d (must be 0-30)", c.addr)
	}
	addrCmd := fmt.Sprintf("addr %d", c.addr)
	if c.hasSecondary {
		if c.secondaryAddr < 96 || c.secondaryAddr > 126 {
			return nil, fmt.Errorf("invalid secondary address %d (must be 96-126)", c.secondaryAddr)
		}
		addrCmd = fmt.Sprintf("addr %d %d", c.addr, c.secondaryAddr)
	}

	cmds := []string{
		addrCmd,
		"mode 1", // controller in charge
		"auto 0", // no read-after-write; we issue ++read explicitly
		"eoi 1",
		"eos 0",
		fmt.Sprintf("read_tmo_ms %d", c.readTimeoutMs),
		"eot_char 10",
		"eot_enable 1",
	}
	if clear {
		cmds = append(cmds, "clr")
	}
	for _, cmd := range cmds {
		if err := c.CommandController(cmd); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// Read reads raw bytes from the currently addressed instrument.
func (c *Controller) Read(p []byte) (n int, err error) { return c.rw.Read(p) }

// Write writes raw bytes to the currently addressed instrument.
func (c *Controller) Write(p []byte) (n int, err error) { return c.rw.Write(p) }

// Command formats and sends an ASCII command to the instrument. Leading
// and trailing whitespace is trimmed before the terminator is appended.
func (c *Controller) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	cmd = fmt.Sprintf("%s%c", strings.TrimSpace(cmd), c.term)
	if c.debug {
		log.Printf("gpib cmd %q", cmd)
	}
	c.pause()
	_, err := fmt.Fprint(c.rw, cmd)
	return err
}

// Query sends the command to the instrument and reads its response. With
// read-after-write disabled the dongle must be told to read explicitly.
func (c *Controller) Query(cmd string) (string, error) {
	if err := c.Command("%s", cmd); err != nil {
		return "", fmt.Errorf("error writing command: %w", err)
	}
	c.pause()
	if _, err := fmt.Fprintf(c.rw, "++read eoi%c", c.term); err != nil {
		return "", fmt.Errorf("error sending read command: %w", err)
	}
	s, err := bufio.NewReader(c.rw).ReadString(c.term)
	if err == io.EOF {
		return s, nil
	}
	if c.debug {
		log.Printf("gpib response %q", s)
	}
	return s, err
}

// CommandController sends a command to the dongle itself. Dongle
// commands are prefixed with two plus signs so they are not forwarded
// over GPIB.
func (c *Controller) CommandController(cmd string) error {
	c.pause()
	cmd = fmt.Sprintf("++%s%c", strings.ToLower(strings.TrimSpace(cmd)), c.term)
	if c.debug {
		log.Printf("gpib dongle cmd %q", cmd)
	}
	_, err := c.rw.Write([]byte(cmd))
	return err
}

// QueryController sends a dongle command and returns its response.
func (c *Controller) QueryController(cmd string) (string, error) {
	if err := c.CommandController(cmd); err != nil {
		return "", err
	}
	return bufio.NewReader(c.rw).ReadString(c.term)
}

// FrontPanel returns the instrument to local front-panel control (true)
// or locks it out for remote operation (false).
func (c *Controller) FrontPanel(local bool) error {
	if local {
		return c.CommandController("loc")
	}
	return c.CommandController("llo")
}

func (c *Controller) pause() {
	if c.writeDelay > 0 {
		time.Sleep(c.writeDelay)
	}
}
