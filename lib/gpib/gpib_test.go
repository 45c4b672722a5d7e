// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package gpib

import (
	"bytes"
	"strings"
	"testing"
)

type fakePort struct {
	wrote bytes.Buffer
	resp  bytes.Buffer
}

func (f *fakePort) Write(p []byte) (int, error) { return f.wrote.Write(p) }
func (f *fakePort) Read(p []byte) (int, error)  { return f.resp.Read(p) }

func Test_NewController_Setup(t *testing.T) {
	port := &fakePort{}
	if _, err := NewController(port, 8, false); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"++addr 8",
		"++mode 1",
		"++auto 0",
		"++eoi 1",
		"++eos 0",
		"++read_tmo_ms 500",
		"++eot_char 10",
		"++eot_enable 1",
	}
	lines := strings.Split(strings.TrimSpace(port.wrote.String()), "\n")
	if len(lines) != len(want) {
		t.Fatalf("setup sent %d commands: %q", len(lines), lines)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("setup command %d: %q, want %q", i, lines[i], w)
		}
	}
}

func Test_NewController_Clear(t *testing.T) {
	port := &fakePort{}
	if _, err := NewController(port, 8, true); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(port.wrote.String(), "++clr\n") {
		t.Errorf("clear not sent last: %q", port.wrote.String())
	}
}

func Test_NewController_BadAddress(t *testing.T) {
	for _, addr := range []int{-1, 31} {
		if _, err := NewController(&fakePort{}, addr, false); err == nil {
			t.Errorf("address %d accepted", addr)
		}
	}
}

func Test_NewController_SecondaryAddress(t *testing.T) {
	port := &fakePort{}
	if _, err := NewController(port, 8, false, WithSecondaryAddress(96)); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(port.wrote.String(), "++addr 8 96\n") {
		t.Errorf("setup starts %q", port.wrote.String())
	}
	if _, err := NewController(&fakePort{}, 8, false, WithSecondaryAddress(10)); err == nil {
		t.Error("secondary address 10 accepted")
	}
}

func Test_Command(t *testing.T) {
	port := &fakePort{}
	c, err := NewController(port, 8, false)
	if err != nil {
		t.Fatal(err)
	}
	port.wrote.Reset()

	if err := c.Command("SENS %d", 16); err != nil {
		t.Fatal(err)
	}
	if got := port.wrote.String(); got != "SENS 16\n" {
		t.Errorf("sent %q", got)
	}
}

func Test_Query(t *testing.T) {
	port := &fakePort{}
	c, err := NewController(port, 8, false)
	if err != nil {
		t.Fatal(err)
	}
	port.wrote.Reset()
	port.resp.WriteString("9.975e2\n")

	got, err := c.Query("FREQ?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "9.975e2\n" {
		t.Errorf("response %q", got)
	}
	if sent := port.wrote.String(); sent != "FREQ?\n++read eoi\n" {
		t.Errorf("sent %q", sent)
	}
}

func Test_Query_EOFTolerated(t *testing.T) {
	// a timed-out dongle read returns what arrived with no terminator
	port := &fakePort{}
	c, err := NewController(port, 8, false)
	if err != nil {
		t.Fatal(err)
	}
	port.resp.WriteString("partial")

	got, err := c.Query("FREQ?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "partial" {
		t.Errorf("response %q", got)
	}
}

func Test_FrontPanel(t *testing.T) {
	port := &fakePort{}
	c, err := NewController(port, 8, false)
	if err != nil {
		t.Fatal(err)
	}
	port.wrote.Reset()

	if err := c.FrontPanel(true); err != nil {
		t.Fatal(err)
	}
	if err := c.FrontPanel(false); err != nil {
		t.Fatal(err)
	}
	if got := port.wrote.String(); got != "++loc\n++llo\n" {
		t.Errorf("sent %q", got)
	}
}
