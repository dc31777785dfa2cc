// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package calls defines the call interval type shared by the concurrency
// counters, together with the fixed call set, validation, pre-scan sorting
// and TSV input/output.
package calls

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
)

// Call is the active time span of a single call, [Start, End]. Both ends
// are inclusive: a call ending at t overlaps a call starting at t.
type Call struct {
	Start float64 `tsv:"start"`
	End   float64 `tsv:"end"`
}

// New returns the call spanning [start, end].
func New(start, end float64) Call {
	return Call{Start: start, End: end}
}

// Valid reports whether c is a well-formed call: neither endpoint is NaN
// and Start <= End.
func (c Call) Valid() bool {
	return !math.IsNaN(c.Start) && !math.IsNaN(c.End) && c.Start <= c.End
}

// Overlaps checks if c and d share at least one instant.
func (c Call) Overlaps(d Call) bool {
	return c.Start <= d.End && d.Start <= c.End
}

// Contains checks if t lies within c.
func (c Call) Contains(t float64) bool {
	return c.Start <= t && t <= c.End
}

// Duration returns End-Start.
func (c Call) Duration() float64 { return c.End - c.Start }

// String implements fmt.Stringer.
func (c Call) String() string {
	return fmt.Sprintf("(%g,%g)", c.Start, c.End)
}

// Fixed returns the built-in call set, in the order the calls were
// recorded. Each invocation returns a new slice.
func Fixed() []Call {
	return []Call{
		{1.02, 5.20},
		{3.02, 6.20},
		{10.02, 12.20},
		{1.02, 3.20},
		{9.02, 55.20},
		{4.02, 9.20},
	}
}

// Validate returns an error of kind errors.Invalid naming the first
// malformed call, if any.
func Validate(calls []Call) error {
	for i, c := range calls {
		if !c.Valid() {
			return errors.E(errors.Invalid, fmt.Sprintf("call %d %v is malformed", i, c))
		}
	}
	return nil
}
