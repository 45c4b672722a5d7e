// Copyright (c) 2026 The time-resolved-odmr developers. All rights reserved.
// Project site: https://github.com/bgoblyos/time-resolved-odmr
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package odmr

import (
	"errors"
	"fmt"
)

// The encoders report four kinds of failure, all of them unrepairable
// mismatches between the requested sequence and the target hardware.
// None are retried here; callers adjust parameters and re-encode.

// SchemaError reports a malformed sequence: inconsistent channel sets
// across steps, a negative duration, or an empty sequence.
type SchemaError struct {
	Step int // offending step index, -1 if not step-specific
	Msg  string
}

func (e *SchemaError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("sequence schema: %s", e.Msg)
	}
	return fmt.Sprintf("sequence schema: step %d: %s", e.Step, e.Msg)
}

// InvalidDurationError reports a strictly positive step duration that
// rounded to a non-positive sample or token count. Silently dropping a
// requested pulse is never acceptable.
type InvalidDurationError struct {
	Step     int
	Duration float64
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("step %d: duration %g rounds to no output", e.Step, e.Duration)
}

// CapacityError reports an encoding that exceeds a declared hardware
// ceiling: token memory, buffer length, or a padding interval that came
// out negative because the pulse does not fit its enclosing period.
type CapacityError struct {
	What  string
	Have  int
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: %d exceeds limit %d", e.What, e.Have, e.Limit)
}

// ConfigurationError reports missing or inconsistent device parameters:
// a bad padding floor, a channel map with duplicate bits, a mapped
// channel absent from the sequence.
type ConfigurationError struct {
	Param string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Param, e.Msg)
}

// IsSchema reports whether err is a SchemaError.
func IsSchema(err error) bool {
	var e *SchemaError
	return errors.As(err, &e)
}

// IsInvalidDuration reports whether err is an InvalidDurationError.
func IsInvalidDuration(err error) bool {
	var e *InvalidDurationError
	return errors.As(err, &e)
}

// IsCapacity reports whether err is a CapacityError.
func IsCapacity(err error) bool {
	var e *CapacityError
	return errors.As(err, &e)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}
