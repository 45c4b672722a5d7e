// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sweeper

import (
	"fmt"
	"testing"
)

type fakeTransport struct {
	cmds    []string
	replies map[string]string
}

func (f *fakeTransport) Command(format string, a ...any) error {
	f.cmds = append(f.cmds, fmt.Sprintf(format, a...))
	return nil
}

func (f *fakeTransport) Query(s string) (string, error) {
	if r, ok := f.replies[s]; ok {
		return r, nil
	}
	return "", fmt.Errorf("no canned reply for %q", s)
}

func Test_SetupSweep(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)
	if err := d.SetupSweep(2.82, 2.92, 10); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"FREQ:MODE SWE",
		"FREQ:STAR 2.82 GHZ",
		"FREQ:STOP 2.92 GHZ",
		"SWE:TIME 10 s",
	}
	if len(ft.cmds) != len(want) {
		t.Fatalf("sent %q", ft.cmds)
	}
	for i, w := range want {
		if ft.cmds[i] != w {
			t.Errorf("command %d: %q, want %q", i, ft.cmds[i], w)
		}
	}
}

func Test_SweepParams(t *testing.T) {
	ft := &fakeTransport{replies: map[string]string{
		"FREQ:STAR?": "2.82e9\n",
		"FREQ:STOP?": "2.92e9\n",
		"SWE:TIME?":  "10\n",
	}}
	d := New(ft)
	start, stop, seconds, err := d.SweepParams()
	if err != nil {
		t.Fatal(err)
	}
	if start != 2.82 || stop != 2.92 || seconds != 10 {
		t.Errorf("params: %g %g %g", start, stop, seconds)
	}
}

func Test_SetCW_Range(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)
	if err := d.SetCW(2.87); err != nil {
		t.Fatal(err)
	}
	if ft.cmds[len(ft.cmds)-1] != "FREQ:CW 2.87 GHz" {
		t.Errorf("sent %q", ft.cmds)
	}
	if err := d.SetCW(25); err == nil {
		t.Error("25 GHz accepted")
	}
	if err := d.SetCW(0.001); err == nil {
		t.Error("1 MHz accepted")
	}
}

func Test_SetPower_Range(t *testing.T) {
	d := New(&fakeTransport{})
	if err := d.SetPower(-10); err != nil {
		t.Error(err)
	}
	if err := d.SetPower(30); err == nil {
		t.Error("30 dBm accepted")
	}
}
