// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package odmr

import "testing"

func mkStep(t float64, vals map[string]float64) Step {
	return Step{Duration: t, Channels: vals}
}

func Test_NewSequence_Valid(t *testing.T) {
	seq, err := NewSequence([]Step{
		mkStep(1000, map[string]float64{"laser": 1, "I": 0}),
		mkStep(500, map[string]float64{"laser": 0, "I": 1}),
	})
	if err != nil {
		t.Fatalf("NewSequence: %s", err)
	}
	if seq.Len() != 2 {
		t.Errorf("Len = %d, want 2", seq.Len())
	}
	chans := seq.Channels()
	if len(chans) != 2 || chans[0] != "I" || chans[1] != "laser" {
		t.Errorf("Channels = %v, want [I laser]", chans)
	}
}

func Test_NewSequence_Empty(t *testing.T) {
	_, err := NewSequence(nil)
	if !IsSchema(err) {
		t.Errorf("empty sequence: got %v, want SchemaError", err)
	}
}

func Test_NewSequence_NegativeDuration(t *testing.T) {
	_, err := NewSequence([]Step{
		mkStep(-1, map[string]float64{"laser": 1}),
	})
	if !IsSchema(err) {
		t.Errorf("negative duration: got %v, want SchemaError", err)
	}
}

func Test_NewSequence_MismatchedChannels(t *testing.T) {
	_, err := NewSequence([]Step{
		mkStep(10, map[string]float64{"laser": 1}),
		mkStep(10, map[string]float64{"I": 1}),
	})
	if !IsSchema(err) {
		t.Errorf("mismatched channels: got %v, want SchemaError", err)
	}

	_, err = NewSequence([]Step{
		mkStep(10, map[string]float64{"laser": 1}),
		mkStep(10, map[string]float64{"laser": 1, "I": 1}),
	})
	if !IsSchema(err) {
		t.Errorf("extra channel: got %v, want SchemaError", err)
	}
}

func Test_TotalDuration(t *testing.T) {
	seq, err := NewSequence([]Step{
		mkStep(0.25, map[string]float64{"laser": 1}),
		mkStep(0.5, map[string]float64{"laser": 0}),
		mkStep(1024, map[string]float64{"laser": 1}),
	})
	if err != nil {
		t.Fatal(err)
	}
	// sum must be exact, no rounding at the model layer
	if got := seq.TotalDuration(); got != 0.25+0.5+1024 {
		t.Errorf("TotalDuration = %v, want %v", got, 0.25+0.5+1024)
	}
}

func Test_Sequence_Immutable(t *testing.T) {
	in := []Step{mkStep(10, map[string]float64{"laser": 1})}
	seq, err := NewSequence(in)
	if err != nil {
		t.Fatal(err)
	}
	in[0].Channels["laser"] = 0
	if seq.Step(0).Channels["laser"] != 1 {
		t.Error("mutating the input steps changed the sequence")
	}
}
