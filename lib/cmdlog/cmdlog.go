// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package cmdlog echoes instrument traffic to the terminal with a
// little color, for watching an experiment poke the hardware.
package cmdlog

import (
	"log"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gotmc/query"
)

// Commander issues write-only commands; every instrument session in this
// repo implements it alongside query.Querier.
type Commander interface {
	Command(format string, a ...any) error
}

var (
	cmdStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	respStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
)

func printable(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		return r < 32 && r != '\t' || r > 127
	})
}

// Wrap returns logging query and command closures around the given
// device. Responses are printed as text when printable, hex otherwise.
func Wrap(dev interface {
	query.Querier
	Commander
}) (q func(string) string, cmd func(string)) {
	q = func(s string) string {
		resp, err := dev.Query(s)
		if err != nil {
			log.Printf("query %s: error %s", cmdStyle.Render(s), err)
			return resp
		}
		trimmed := strings.TrimRight(resp, "\r\n")
		switch {
		case len(trimmed) == 0:
			log.Printf("%s: %s", cmdStyle.Render(s), respStyle.Render("<no response>"))
		case printable(trimmed):
			log.Printf("%s: [%d] %q", cmdStyle.Render(s), len(trimmed), trimmed)
		default:
			log.Printf("%s: [%d] % 2x", cmdStyle.Render(s), len(trimmed), []byte(trimmed))
		}
		return resp
	}
	cmd = func(s string) {
		if err := dev.Command("%s", s); err != nil {
			log.Printf("cmd %s: error %s", cmdStyle.Render(s), err)
		} else {
			log.Printf("%s()", cmdStyle.Render(s))
		}
	}
	return q, cmd
}
