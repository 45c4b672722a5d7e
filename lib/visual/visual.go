// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package visual renders pulse sequences as terminal timing diagrams,
// for eyeballing a sequence before it is let loose on the hardware.
package visual

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	odmr "github.com/bgoblyos/time-resolved-odmr"
	"github.com/bgoblyos/time-resolved-odmr/lib/units"
)

var palette = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
}

const (
	highMark = '▀'
	lowMark  = '▁'
)

// Proportional draws the sequence with the horizontal axis proportional
// to real time, one row per channel, fitted into width cells.
func Proportional(seq *odmr.Sequence, width int) string {
	if width <= 0 {
		width = 80
	}
	total := seq.TotalDuration()
	if total <= 0 {
		return ""
	}

	cells := make([]int, seq.Len())
	for i := 0; i < seq.Len(); i++ {
		n := int(float64(width) * seq.Step(i).Duration / total)
		// never let a nonzero step vanish from the plot
		if n == 0 && seq.Step(i).Duration > 0 {
			n = 1
		}
		cells[i] = n
	}
	return render(seq, cells)
}

// Equidistant draws every step at the same width regardless of its
// duration, with the durations printed underneath. Handy for sequences
// dominated by long wait periods.
func Equidistant(seq *odmr.Sequence, cell int) string {
	if cell <= 0 {
		cell = 8
	}
	cells := make([]int, seq.Len())
	for i := range cells {
		cells[i] = cell
	}

	var b strings.Builder
	b.WriteString(render(seq, cells))

	// duration labels, one per step column
	b.WriteString(pad("", labelWidth(seq)))
	for i := 0; i < seq.Len(); i++ {
		b.WriteString(pad(units.Format(seq.Step(i).Duration*1e-9, "s", 1), cell))
	}
	b.WriteByte('\n')
	return b.String()
}

func render(seq *odmr.Sequence, cells []int) string {
	var b strings.Builder
	names := seq.Channels()
	lw := labelWidth(seq)
	for ci, name := range names {
		style := palette[ci%len(palette)]
		b.WriteString(pad(name, lw))
		var line strings.Builder
		for i := 0; i < seq.Len(); i++ {
			mark := lowMark
			if seq.Step(i).Channels[name] > 0 {
				mark = highMark
			}
			for k := 0; k < cells[i]; k++ {
				line.WriteRune(mark)
			}
		}
		b.WriteString(style.Render(line.String()))
		b.WriteByte('\n')
	}
	return b.String()
}

func labelWidth(seq *odmr.Sequence) int {
	w := 0
	for _, name := range seq.Channels() {
		if len(name) > w {
			w = len(name)
		}
	}
	return w + 2
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
