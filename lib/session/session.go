// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package session owns the life cycle of transport connections. Every
// open returns an explicit cleanup so an experiment releases its ports
// deterministically instead of leaning on finalizers.
package session

import (
	"fmt"
	"io"
	"time"

	"github.com/soypat/cereal"
	"go.uber.org/multierr"
)

// Config describes one serial transport.
type Config struct {
	Port    string        // device path, e.g. /dev/ttyACM0
	Baud    int           // defaults to 115200
	Timeout time.Duration // read timeout; instrument transfers are slow, defaults to 30s
}

// Open opens the port and returns it together with a cleanup function.
// The cleanup flushes pending data where the backend supports it and
// closes the port, combining any errors.
func Open(cfg Config) (io.ReadWriteCloser, func() error, error) {
	if cfg.Port == "" {
		return nil, nil, fmt.Errorf("session: no port configured")
	}
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	impl := cereal.Tarm{}
	port, err := impl.OpenPort(cfg.Port, cereal.Mode{
		BaudRate:    cfg.Baud,
		ReadTimeout: cfg.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("session: opening %s: %w", cfg.Port, err)
	}

	cleanup := func() error {
		var errs error
		if fl, ok := port.(interface{ Flush() error }); ok {
			errs = multierr.Append(errs, fl.Flush())
		}
		errs = multierr.Append(errs, port.Close())
		return errs
	}
	return port, cleanup, nil
}
