// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package vcp opens a USB virtual COM port as an io.ReadWriteCloser for
// the instrument sessions.
package vcp

import (
	"time"

	"go.bug.st/serial"
)

// VCP is a virtual COM port connection.
type VCP struct {
	port serial.Port
}

// NewVCP opens the named serial port at 115200 8N1 with a generous read
// timeout; instrument buffer transfers can take tens of seconds.
func NewVCP(portName string) (*VCP, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(30 * time.Second); err != nil {
		port.Close()
		return nil, err
	}
	return &VCP{port: port}, nil
}

func (v *VCP) Read(p []byte) (n int, err error)  { return v.port.Read(p) }
func (v *VCP) Write(p []byte) (n int, err error) { return v.port.Write(p) }

// Flush discards unread input.
func (v *VCP) Flush() error { return v.port.ResetInputBuffer() }

// Close closes the underlying port.
func (v *VCP) Close() error { return v.port.Close() }
