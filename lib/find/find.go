// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package find locates the rig's USB serial devices by walking sysfs,
// so experiment scripts do not hard-code /dev/tty names that shuffle on
// every reboot.
package find

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// TTY describes one USB serial device found under /sys/class/tty.
type TTY struct {
	Dev    string // device name, e.g. ttyACM0
	Path   string // resolved sysfs path
	Vendor string // idVendor
	Prod   string // idProduct
	Mfg    string
	Model  string
	Serial string
}

func (t TTY) String() string {
	return fmt.Sprintf("dev %s vid/pid %s/%s mfg/model %s/%s serial %s",
		t.Dev, t.Vendor, t.Prod, t.Mfg, t.Model, t.Serial)
}

// Filter narrows device candidates. The first device for which it
// returns true is chosen.
type Filter func(*TTY) bool

// PicoPulse matches the Raspberry Pi Pico running the pulse synthesizer
// firmware.
func PicoPulse(t *TTY) bool {
	return t.Mfg == "Raspberry Pi" && t.Model == "Pico"
}

// KuhnePLL matches the FTDI bridge inside the Kuhne local oscillator.
func KuhnePLL(t *TTY) bool {
	return strings.Contains(t.Mfg, "FTDI")
}

// BySerial matches a device by its USB serial number string.
func BySerial(s string) Filter {
	return func(t *TTY) bool { return t.Serial == s }
}

// Find returns the /dev name (without the /dev/ prefix) of the unique
// USB tty accepted by the filter. A nil filter accepts everything, which
// only succeeds when exactly one USB tty is present.
func Find(filter Filter) (string, error) {
	ttys, err := All()
	if err != nil {
		return "", err
	}
	if filter != nil {
		for i := range ttys {
			if filter(&ttys[i]) {
				return ttys[i].Dev, nil
			}
		}
		return "", fmt.Errorf("no matching usb tty among %d candidates", len(ttys))
	}
	switch len(ttys) {
	case 0:
		return "", fmt.Errorf("no usb ttys found")
	case 1:
		return ttys[0].Dev, nil
	}
	return "", fmt.Errorf("multiple usb ttys, need a filter: %v", ttys)
}

// All enumerates USB serial devices via /sys/class/tty symlinks.
func All() ([]TTY, error) {
	const base = "/sys/class/tty/"
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}
	var devs []TTY
	for _, e := range entries {
		if e.Type()&fs.ModeSymlink == 0 {
			continue
		}
		abs, err := filepath.EvalSymlinks(filepath.Join(base, e.Name()))
		if err != nil {
			log.Printf("find: skipping %s: %s", e.Name(), err)
			continue
		}
		if !strings.Contains(abs, "usb") {
			continue
		}
		dev, err := filepath.EvalSymlinks(filepath.Join(abs, "device"))
		if err != nil {
			log.Printf("find: %s has no device dir: %s", abs, err)
			continue
		}
		// the descriptor files live one level above the interface dir
		t := readDescriptors(filepath.Dir(dev))
		t.Dev = e.Name()
		t.Path = abs
		devs = append(devs, t)
	}
	return devs, nil
}

// readDescriptors reads the USB descriptor strings, ignoring files that
// a device simply does not provide.
func readDescriptors(dir string) TTY {
	read := func(name string) string {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("find: reading %s: %s", name, err)
		}
		return strings.TrimSpace(string(b))
	}
	return TTY{
		Vendor: read("idVendor"),
		Prod:   read("idProduct"),
		Mfg:    read("manufacturer"),
		Model:  read("product"),
		Serial: read("serial"),
	}
}
