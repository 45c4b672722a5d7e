// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package awg

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	odmr "github.com/bgoblyos/time-resolved-odmr"
)

type fakePort struct {
	wrote bytes.Buffer
	resp  bytes.Buffer
}

func (f *fakePort) Write(p []byte) (int, error) { return f.wrote.Write(p) }
func (f *fakePort) Read(p []byte) (int, error)  { return f.resp.Read(p) }

func Test_New_ClockSource(t *testing.T) {
	port := &fakePort{}
	if _, err := New(port); err != nil {
		t.Fatal(err)
	}
	if got := port.wrote.String(); got != "ROSC INT;ROSC 10MOUT,ON\n" {
		t.Errorf("setup sent %q", got)
	}

	port = &fakePort{}
	if _, err := New(port, WithExternalOscillator()); err != nil {
		t.Fatal(err)
	}
	if got := port.wrote.String(); got != "ROSC EXT;ROSC 10MOUT,OFF\n" {
		t.Errorf("setup sent %q", got)
	}
}

func Test_Output(t *testing.T) {
	port := &fakePort{}
	d, err := New(port)
	if err != nil {
		t.Fatal(err)
	}
	port.wrote.Reset()

	if err := d.Output(1, true, 50, false); err != nil {
		t.Fatal(err)
	}
	if got := port.wrote.String(); got != "C1:OUTP ON,LOAD,50,PLRT,NOR\n" {
		t.Errorf("sent %q", got)
	}

	port.wrote.Reset()
	if err := d.Output(2, false, 50, true); err != nil {
		t.Fatal(err)
	}
	if got := port.wrote.String(); got != "C2:OUTP OFF,LOAD,50,PLRT,INVT\n" {
		t.Errorf("sent %q", got)
	}
}

func Test_SetWaveform(t *testing.T) {
	port := &fakePort{}
	d, err := New(port)
	if err != nil {
		t.Fatal(err)
	}
	port.wrote.Reset()

	wf := &odmr.Waveform{
		Samples:    []int16{0, 0x7FFF, -0x8000, 256},
		SampleRate: 1e6,
		Amplitude:  2,
		Offset:     0.5,
	}
	if err := d.SetWaveform(1, "rabi_i", wf); err != nil {
		t.Fatal(err)
	}

	got := port.wrote.Bytes()
	header := "C1:WVDT WVNM,rabi_i,FREQ,1.0,AMPL,2,OFST,0.5,PHASE,0.0,LENGTH,8,WAVEDATA,"
	if !bytes.HasPrefix(got, []byte(header)) {
		t.Fatalf("upload starts %q", got[:min(len(got), len(header))])
	}

	data := got[len(header):]
	if len(data) < 9 {
		t.Fatalf("payload too short: %d bytes", len(data))
	}
	for i, want := range wf.Samples {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		if v != want {
			t.Errorf("sample %d: %d != %d", i, v, want)
		}
	}
	if data[8] != '\n' {
		t.Error("upload not newline terminated")
	}

	rest := string(data[9:])
	if !strings.Contains(rest, "C1:ARWV NAME,rabi_i\n") {
		t.Errorf("waveform not selected: %q", rest)
	}
	if !strings.Contains(rest, "C1:SRATE MODE,TARB,VALUE,1000000.000000,INTER,LINE\n") {
		t.Errorf("sample rate not programmed: %q", rest)
	}
}

func Test_Burst(t *testing.T) {
	port := &fakePort{}
	d, err := New(port)
	if err != nil {
		t.Fatal(err)
	}
	port.wrote.Reset()

	if err := d.BurstInternal(1, 2e-3, 0, 0, "RISE"); err != nil {
		t.Fatal(err)
	}
	want := "C1:BTWV STATE,ON,TRSR,INT,PRD,0.002,DLAY,0,TRMD,RISE,TIME,INF\n"
	if got := port.wrote.String(); got != want {
		t.Errorf("sent %q, want %q", got, want)
	}

	port.wrote.Reset()
	if err := d.BurstExternal(2, 1e-6, 5, "FALL"); err != nil {
		t.Fatal(err)
	}
	want = "C2:BTWV STATE,ON,TRSR,EXT,DLAY,1e-06,EDGE,FALL,TIME,5\n"
	if got := port.wrote.String(); got != want {
		t.Errorf("sent %q, want %q", got, want)
	}

	port.wrote.Reset()
	if err := d.BurstOff(1); err != nil {
		t.Fatal(err)
	}
	if got := port.wrote.String(); got != "C1:BTWV STATE,OFF\n" {
		t.Errorf("sent %q", got)
	}
}
