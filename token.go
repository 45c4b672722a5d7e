// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package odmr

import (
	"fmt"
	"math"
	"strings"
)

// ChannelMap assigns logical channel names to physical output bits of
// the pulse synthesizer. Supplied by experiment-level configuration,
// never inferred. Not every physical bit need be mapped.
type ChannelMap map[string]uint

// Validate rejects maps that route two channels onto one bit or onto a
// bit outside the 32-wide output mask.
func (m ChannelMap) Validate() error {
	seen := make(map[uint]string, len(m))
	for name, bit := range m {
		if bit > 31 {
			return &ConfigurationError{
				Param: "ChannelMap",
				Msg:   fmt.Sprintf("channel %q bit %d out of range (0-31)", name, bit),
			}
		}
		if prev, dup := seen[bit]; dup {
			return &ConfigurationError{
				Param: "ChannelMap",
				Msg:   fmt.Sprintf("channels %q and %q share bit %d", prev, name, bit),
			}
		}
		seen[bit] = name
	}
	return nil
}

// TokenConfig carries the pulse synthesizer's parameters.
type TokenConfig struct {
	// Unit converts the sequence's duration unit into the device's
	// native time unit (nanoseconds). 1 when the caller already works
	// in nanoseconds.
	Unit float64

	// Capacity is the device's token memory in (duration,bitmask)
	// pairs. The pico firmware holds 2^16.
	Capacity int

	// ClampNonPositive makes durations that round to <= 0 encode as 0
	// instead of failing. Off by default: losing a pulse silently is an
	// error unless the caller explicitly opts in.
	ClampNonPositive bool

	// Cycle selects the CPULSE grammar instead of PULSE.
	Cycle bool
}

// Token is the atomic unit of the synthesizer program: hold the output
// lines at Mask for Duration native time units.
type Token struct {
	Duration uint32
	Mask     uint32
}

// maxOuterLoop is the largest outer repeat count the firmware accepts;
// it doubles as the "run until replaced" sentinel.
const maxOuterLoop = 1 << 31

// TokenStream is an encoded synthesizer program plus its loop counts.
type TokenStream struct {
	Tokens    []Token
	InnerLoop uint32
	OuterLoop uint32
	Cycle     bool
}

// EncodeTokens renders seq into a token stream using the given pin
// mapping. Every mapped channel must exist in the sequence; sequence
// channels without a mapping are ignored (they belong to other devices).
// The stream defaults to no inner repeats and an effectively infinite
// outer loop; adjust via SetLoops before building the command.
func EncodeTokens(seq *Sequence, pins ChannelMap, cfg TokenConfig) (*TokenStream, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}
	if cfg.Unit <= 0 {
		return nil, &ConfigurationError{Param: "Unit", Msg: "must be positive"}
	}
	if cfg.Capacity <= 0 {
		return nil, &ConfigurationError{Param: "Capacity", Msg: "must be positive"}
	}
	have := make(map[string]bool)
	for _, name := range seq.Channels() {
		have[name] = true
	}
	for name := range pins {
		if !have[name] {
			return nil, &ConfigurationError{Param: "ChannelMap", Msg: "channel " + name + " not present in sequence"}
		}
	}

	if seq.Len() > cfg.Capacity {
		return nil, &CapacityError{What: "token count", Have: seq.Len(), Limit: cfg.Capacity}
	}

	tokens := make([]Token, 0, seq.Len())
	for i := 0; i < seq.Len(); i++ {
		st := seq.Step(i)
		d := math.Round(cfg.Unit * st.Duration)
		if d <= 0 {
			if st.Duration > 0 && !cfg.ClampNonPositive {
				return nil, &InvalidDurationError{Step: i, Duration: st.Duration}
			}
			d = 0
		}
		if d > math.MaxUint32 {
			have := math.MaxInt
			if d < math.MaxInt64 {
				have = int(d)
			}
			return nil, &CapacityError{What: fmt.Sprintf("step %d native duration", i), Have: have, Limit: math.MaxUint32}
		}
		var mask uint32
		for name, bit := range pins {
			if st.Channels[name] > 0 {
				mask |= 1 << bit
			}
		}
		tokens = append(tokens, Token{Duration: uint32(d), Mask: mask})
	}

	return &TokenStream{
		Tokens:    tokens,
		InnerLoop: 0,
		OuterLoop: maxOuterLoop,
		Cycle:     cfg.Cycle,
	}, nil
}

// SetLoops sets the inner repeat count and the outer loop count. An
// inner count outside the firmware's 32-bit range clamps to the nearest
// bound. An outer count that is negative or beyond the firmware's range
// selects the infinite sentinel.
func (ts *TokenStream) SetLoops(inner, outer int64) {
	if inner < 0 {
		inner = 0
	}
	if inner > math.MaxUint32 {
		inner = math.MaxUint32
	}
	ts.InnerLoop = uint32(inner)
	if outer < 0 || outer > maxOuterLoop {
		ts.OuterLoop = maxOuterLoop
	} else {
		ts.OuterLoop = uint32(outer)
	}
}

// Command flattens the stream into the synthesizer's ASCII grammar:
//
//	PULSE <inner> <outer> <d0>,<m0>,<d1>,<m1>,...
func (ts *TokenStream) Command() string {
	var b strings.Builder
	if ts.Cycle {
		b.WriteString("CPULSE")
	} else {
		b.WriteString("PULSE")
	}
	fmt.Fprintf(&b, " %d %d ", ts.InnerLoop, ts.OuterLoop)
	for _, tok := range ts.Tokens {
		fmt.Fprintf(&b, "%d,%d,", tok.Duration, tok.Mask)
	}
	return b.String()
}
