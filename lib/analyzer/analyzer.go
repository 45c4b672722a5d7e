// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package analyzer captures the pulse synthesizer's output lines with a
// sigrok-compatible logic analyzer, for verifying on real hardware that
// an encoded sequence produces the timing it promises.
package analyzer

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	odmr "github.com/bgoblyos/time-resolved-odmr"
	"github.com/bgoblyos/time-resolved-odmr/lib/find"
)

// Capture describes one logic-analyzer recording.
type Capture struct {
	Rate         uint64 // samples per second
	Samples      uint64
	Channels     []Channel
	AddTimestamp bool
}

// Channel names one analyzer input after the signal it probes.
type Channel struct {
	Probe string // analyzer channel, e.g. D2
	Name  string // signal name, e.g. laser
}

// ChannelsFromPins derives analyzer channel labels from the rig's pulse
// pin map, so captures carry the logical signal names.
func ChannelsFromPins(pins odmr.ChannelMap) []Channel {
	chans := make([]Channel, 0, len(pins))
	for name, bit := range pins {
		// the pico analyzer firmware exposes inputs starting at D2
		chans = append(chans, Channel{Probe: fmt.Sprintf("D%d", bit+2), Name: name})
	}
	sort.Slice(chans, func(i, j int) bool { return chans[i].Probe < chans[j].Probe })
	return chans
}

// AddFlags registers the capture flags; call before flag.Parse.
func (c *Capture) AddFlags() {
	flag.Uint64Var(&c.Rate, "la.rate", 0, "logic analyzer sample rate")
	flag.Uint64Var(&c.Samples, "la.samp", 0, "logic analyzer sample count")
	flag.BoolVar(&c.AddTimestamp, "la.ts", true, "timestamp capture filenames to avoid overwrites")
}

// Requested reports whether a capture was asked for on the command
// line; rate and sample count must both be given.
func (c *Capture) Requested() (bool, error) {
	set := 0
	if c.Rate > 0 {
		set++
	}
	if c.Samples > 0 {
		set++
	}
	if set == 1 {
		return false, fmt.Errorf("both -la.rate and -la.samp are required")
	}
	return set == 2, nil
}

// Run finds the analyzer, records the configured capture via sigrok-cli
// and writes it to a .sr file.
func (c *Capture) Run() error {
	dev, err := find.Find(find.PicoPulse)
	if err != nil {
		return fmt.Errorf("locating logic analyzer: %w", err)
	}

	args := []string{
		"-l", "2",
		"-d", fmt.Sprintf("raspberrypi-pico:conn=/dev/%s:serialcomm=115200/flow=0", dev),
		"--config", fmt.Sprintf("samplerate=%d", c.Rate),
		"--samples", strconv.FormatUint(c.Samples, 10),
	}
	if len(c.Channels) > 0 {
		specs := make([]string, 0, len(c.Channels))
		for _, ch := range c.Channels {
			if ch.Name == "" {
				specs = append(specs, ch.Probe)
			} else {
				// renamed channels must keep a D prefix for srpico
				specs = append(specs, fmt.Sprintf("%s=D%s", ch.Probe, ch.Name))
			}
		}
		args = append(args, "--channels", strings.Join(specs, ","))
	}

	fname := "pulse_capture"
	if c.AddTimestamp {
		fname += "_" + time.Now().Format("02Jan_15_04_05.000")
	}
	fname += ".sr"
	args = append(args, "-o", fname)

	cli := exec.Command("sigrok-cli", args...)
	cli.Stdout, cli.Stderr = os.Stdout, os.Stderr
	log.Printf("analyzer: running sigrok-cli %v", args)
	if err := cli.Run(); err != nil {
		return fmt.Errorf("sigrok-cli: %w", err)
	}

	if fi, err := os.Stat(fname); err == nil {
		log.Printf("analyzer: wrote %s (%d bytes)", fname, fi.Size())
	}
	return nil
}
