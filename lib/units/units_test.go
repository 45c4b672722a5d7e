// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package units

import "testing"

func Test_Prefix(t *testing.T) {
	cases := []struct {
		n      float64
		factor float64
		symbol string
	}{
		{2.87e9, 1e9, "G"},
		{500, 1, ""},
		{0.02, 1e-3, "m"},
		{1.5e-6, 1e-6, "u"},
		{20e-9, 1e-9, "n"},
		{0, 1, ""},
		{-3e3, 1e3, "k"},
		{1e-18, 1, ""},
	}
	for _, c := range cases {
		factor, symbol := Prefix(c.n)
		if factor != c.factor || symbol != c.symbol {
			t.Errorf("Prefix(%g) = %g %q, want %g %q", c.n, factor, symbol, c.factor, c.symbol)
		}
	}
}

func Test_Format(t *testing.T) {
	cases := []struct {
		n         float64
		unit      string
		precision int
		want      string
	}{
		{2.87e9, "Hz", 2, "2.87 GHz"},
		{1e-5, "s", 0, "10 us"},
		{20e-9, "s", 1, "20.0 ns"},
		{500, "Hz", -1, "500 Hz"},
		{-2.5e-3, "V", 1, "-2.5 mV"},
	}
	for _, c := range cases {
		if got := Format(c.n, c.unit, c.precision); got != c.want {
			t.Errorf("Format(%g, %q, %d) = %q, want %q", c.n, c.unit, c.precision, got, c.want)
		}
	}
}
