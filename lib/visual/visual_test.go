// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package visual

import (
	"strings"
	"testing"

	odmr "github.com/bgoblyos/time-resolved-odmr"
)

func testSeq(t *testing.T) *odmr.Sequence {
	t.Helper()
	seq, err := odmr.NewSequence([]odmr.Step{
		{Duration: 900, Channels: map[string]float64{"laser": 1, "mw": 0}},
		{Duration: 100, Channels: map[string]float64{"laser": 0, "mw": 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return seq
}

func Test_Proportional(t *testing.T) {
	out := Proportional(testSeq(t), 40)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("rows: %q", out)
	}
	// channels render in sorted order
	if !strings.HasPrefix(lines[0], "laser") || !strings.HasPrefix(lines[1], "mw") {
		t.Errorf("labels: %q", lines)
	}
	// the short step still occupies at least one cell
	if !strings.Contains(lines[1], string(highMark)) {
		t.Errorf("short pulse vanished: %q", lines[1])
	}
}

func Test_Proportional_EmptyTotal(t *testing.T) {
	seq, err := odmr.NewSequence([]odmr.Step{
		{Duration: 0, Channels: map[string]float64{"laser": 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out := Proportional(seq, 40); out != "" {
		t.Errorf("zero-length sequence rendered %q", out)
	}
}

func Test_Equidistant(t *testing.T) {
	out := Equidistant(testSeq(t), 10)
	if !strings.Contains(out, "900.0 ns") || !strings.Contains(out, "100.0 ns") {
		t.Errorf("missing duration labels: %q", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Errorf("rows: %d", len(lines))
	}
}
