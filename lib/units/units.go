// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package units formats physical quantities with SI prefixes for logs
// and result annotations.
package units

import (
	"fmt"
	"math"
)

type prefix struct {
	symbol string
	factor float64
}

// descending, so the first factor not exceeding the value wins
var prefixes = []prefix{
	{"P", 1e15},
	{"T", 1e12},
	{"G", 1e9},
	{"M", 1e6},
	{"k", 1e3},
	{"", 1},
	{"m", 1e-3},
	{"u", 1e-6},
	{"n", 1e-9},
	{"p", 1e-12},
	{"f", 1e-15},
}

// Prefix returns the SI factor and symbol appropriate for n.
func Prefix(n float64) (float64, string) {
	a := math.Abs(n)
	for _, p := range prefixes {
		if a >= p.factor {
			return p.factor, p.symbol
		}
	}
	// below femto (or zero): no prefix
	return 1, ""
}

// Format renders n with an SI prefix and the given unit, e.g.
// Format(2.87e9, "Hz", 2) -> "2.87 GHz". A negative precision rounds to
// an integer mantissa.
func Format(n float64, unit string, precision int) string {
	factor, symbol := Prefix(n)
	mantissa := n / factor
	if precision < 0 {
		return fmt.Sprintf("%d %s%s", int(math.Round(mantissa)), symbol, unit)
	}
	return fmt.Sprintf("%.*f %s%s", precision, mantissa, symbol, unit)
}
