// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package concurrency computes the maximum number of calls that are active
// at the same time.
//
// All counters take calls sorted ascending by start time (see
// calls.SortByStart) and scan them in order. While call c is processed, the
// active set holds every call already processed whose end is not before
// c.Start; a call ending exactly when c starts is still active. The result
// is the largest active set seen. Counters never modify their input and do
// not validate it: the result for calls with End < Start is unspecified.
package concurrency

import (
	"fmt"
	"strings"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/maxcalls/callmap"
	"github.com/grailbio/maxcalls/calls"
)

// endTime orders the active set by end time. seq breaks ties, since the
// tree holds unique elements.
type endTime struct {
	t   float64
	seq int
}

// Compare implements llrb.Comparable.
func (e endTime) Compare(b llrb.Comparable) int {
	o := b.(endTime)
	switch {
	case e.t < o.t:
		return -1
	case e.t > o.t:
		return 1
	}
	return e.seq - o.seq
}

// sweep calls fn with the size of the active set after each call is added.
// The active set is kept ordered by end time, so expired calls are always
// at its minimum.
func sweep(c []calls.Call, fn func(i, n int)) {
	var active llrb.Tree
	for i, call := range c {
		for active.Len() > 0 && active.Min().(endTime).t < call.Start {
			active.DeleteMin()
		}
		active.Insert(endTime{t: call.End, seq: i})
		fn(i, active.Len())
	}
}

// Max returns the maximum number of concurrent calls in c, which must be
// sorted by start time. It runs in O(n log n).
func Max(c []calls.Call) int {
	var peak int
	sweep(c, func(_, n int) {
		if n > peak {
			peak = n
		}
	})
	return peak
}

// Profile returns, for each call in c, the number of calls active when it
// is processed, including itself. c must be sorted by start time. The
// maximum of the profile is Max(c).
func Profile(c []calls.Call) []int {
	counts := make([]int, len(c))
	sweep(c, func(i, n int) { counts[i] = n })
	return counts
}

// Scan is the reference implementation of Max. It keeps the active set in
// a slice and prunes it by a linear scan for every call, which makes it
// O(n^2) in the worst case.
func Scan(c []calls.Call) int {
	var (
		peak   int
		active []calls.Call
	)
	for _, call := range c {
		kept := active[:0]
		for _, a := range active {
			if a.End < call.Start {
				continue
			}
			kept = append(kept, a)
		}
		active = append(kept, call)
		if len(active) > peak {
			peak = len(active)
		}
	}
	return peak
}

// Stab computes the same value as Max by indexing c and counting, at each
// call's start, the calls that contain that instant. Unlike Max and Scan,
// its result does not depend on the order of c.
func Stab(c []calls.Call) int {
	tree := callmap.NewCalls(c)
	var peak int
	for _, call := range c {
		if n := tree.Count(call.Start); n > peak {
			peak = n
		}
	}
	return peak
}

// Method selects a counter implementation.
type Method int

const (
	// Sweep selects Max.
	Sweep Method = iota
	// Naive selects Scan.
	Naive
	// Stabbing selects Stab.
	Stabbing

	maxMethod
)

var methods = map[Method]string{
	Sweep:    "sweep",
	Naive:    "scan",
	Stabbing: "stab",
}

// String returns the method's name as accepted by ParseMethod.
func (m Method) String() string {
	if s, ok := methods[m]; ok {
		return s
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod returns the method with the given name.
func ParseMethod(name string) (Method, error) {
	for m := Method(0); m < maxMethod; m++ {
		if methods[m] == name {
			return m, nil
		}
	}
	names := make([]string, 0, len(methods))
	for m := Method(0); m < maxMethod; m++ {
		names = append(names, methods[m])
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown method %q (want one of %s)", name, strings.Join(names, ", ")))
}

// Set implements flag.Value.
func (m *Method) Set(name string) error {
	v, err := ParseMethod(name)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Count returns the maximum number of concurrent calls in c using the given
// method. c must be sorted by start time.
func Count(m Method, c []calls.Call) (int, error) {
	var n int
	switch m {
	case Sweep:
		n = Max(c)
	case Naive:
		n = Scan(c)
	case Stabbing:
		n = Stab(c)
	default:
		return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown method %v", m))
	}
	log.Debug.Printf("concurrency: %v over %d calls: %d", m, len(c), n)
	return n, nil
}
