// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package experiment

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/bgoblyos/time-resolved-odmr/lib/expcfg"
)

func Test_stats(t *testing.T) {
	mean, std := stats([]float64{1, 2, 3, 4})
	if mean != 2.5 {
		t.Errorf("mean %g", mean)
	}
	// population deviation of 1..4
	if math.Abs(std-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("std %g", std)
	}

	mean, std = stats([]float64{7})
	if mean != 7 || std != 0 {
		t.Errorf("single sample: %g +- %g", mean, std)
	}
}

func Test_Span(t *testing.T) {
	got := Span(0, 10, 5)
	want := []float64{0, 2.5, 5, 7.5, 10}
	if len(got) != len(want) {
		t.Fatalf("span: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: %g != %g", i, got[i], want[i])
		}
	}
	if got := Span(3, 9, 1); len(got) != 1 || got[0] != 3 {
		t.Errorf("degenerate span: %v", got)
	}
	// endpoint is exact even when the step does not divide evenly
	got = Span(0, 1, 3)
	if got[len(got)-1] != 1 {
		t.Errorf("endpoint %g", got[len(got)-1])
	}
}

func Test_Iterate_KeepsIndices(t *testing.T) {
	values := []float64{10, 20, 30, 40}
	seen := make([]float64, len(values))
	err := Iterate(values, true, func(i int, v float64) error {
		seen[i] = v
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	// shuffled visit order must still deliver each value at its own index
	for i := range values {
		if seen[i] != values[i] {
			t.Errorf("index %d got %g", i, seen[i])
		}
	}
}

func Test_Iterate_StopsOnError(t *testing.T) {
	calls := 0
	err := Iterate([]float64{1, 2, 3}, false, func(i int, v float64) error {
		calls++
		if v == 2 {
			return fmt.Errorf("boom")
		}
		return nil
	})
	if err == nil {
		t.Fatal("error swallowed")
	}
	if calls != 2 {
		t.Errorf("kept going after failure: %d calls", calls)
	}
}

func Test_Validate(t *testing.T) {
	err := Validate([]float64{1, 2, 3}, func(v float64) error {
		if v > 2 {
			return fmt.Errorf("too long")
		}
		return nil
	})
	if err == nil {
		t.Fatal("bad scan value accepted")
	}
	if err := Validate(nil, func(float64) error { return nil }); err != nil {
		t.Error(err)
	}
}

func Test_Result_RecordAndSave(t *testing.T) {
	cfg := &expcfg.Config{}
	cfg.Experiment.Settle = 2 * time.Second
	cfg.Experiment.Integrate = 10 * time.Second
	cfg.Experiment.LockinFreq = 293

	scan := []float64{100, 200}
	res := NewResult(cfg, scan, "ns", "test run")
	res.Record(1, &Measurement{
		Rs:     []float64{1e-3, 1.2e-3},
		Thetas: []float64{44, 46},
		RMean:  1.1e-3,
		RStd:   1e-4,
		Freq:   292.9,
	})

	path, err := res.Save(t.TempDir(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got["scan_unit"] != "ns" || got["comment"] != "test run" {
		t.Errorf("metadata: %v", got)
	}
	if got["settle_s"] != 2.0 || got["measure_s"] != 10.0 {
		t.Errorf("timing metadata: %v", got)
	}
	means := got["Rmean_V"].([]any)
	if len(means) != 2 || means[1] != 1.1e-3 {
		t.Errorf("means: %v", means)
	}
	// unrecorded point stays zeroed, not dropped
	if means[0] != 0.0 {
		t.Errorf("unrecorded point: %v", means[0])
	}
}
