// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package calls

import (
	"sort"
	"sync"

	"github.com/grailbio/base/must"
	"github.com/grailbio/base/traverse"
)

const serialThreshold = 128

func byStart(a, b Call) bool { return a.Start < b.Start }

// SortByStart sorts calls ascending by start time. The sort is stable:
// calls with equal start times keep their relative order. Parallel
// computation will be attempted, up to the limit imposed by parallelism.
func SortByStart(calls []Call, parallelism int) {
	must.Truef(parallelism >= 1, "calls.SortByStart: parallelism must be at least 1, got %d", parallelism)
	if len(calls) < 2 {
		return
	}
	scratch := make([]Call, len(calls))
	mergeSort(calls, parallelism, scratch)
}

// IsSorted reports whether calls are ordered ascending by start time.
func IsSorted(calls []Call) bool {
	for i := 1; i < len(calls); i++ {
		if byStart(calls[i], calls[i-1]) {
			return false
		}
	}
	return true
}

func mergeSort(calls []Call, parallelism int, scratch []Call) {
	if parallelism == 1 || len(calls) < serialThreshold {
		sort.SliceStable(calls, func(i, j int) bool { return byStart(calls[i], calls[j]) })
		return
	}
	// Sort two halves in parallel, allocating half of our parallelism to
	// each subroutine.
	mid := len(calls) / 2
	left, right := calls[:mid], calls[mid:]
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		mergeSort(left, (parallelism+1)/2, scratch[:mid])
		wg.Done()
	}()
	mergeSort(right, parallelism/2, scratch[mid:])
	wg.Wait()

	merge(left, right, parallelism, scratch)
	parallelCopy(calls, scratch, parallelism)
}

func parallelCopy(dst, src []Call, parallelism int) {
	_ = traverse.Limit(parallelism).Range(len(dst), func(start, end int) error {
		copy(dst[start:end], src[start:end])
		return nil
	})
}

// merge merges the sorted runs left and right into out. Elements of left
// precede equal elements of right.
func merge(left, right []Call, parallelism int, out []Call) {
	switch {
	case len(left) == 0:
		copy(out, right)
		return
	case len(right) == 0:
		copy(out, left)
		return
	case parallelism == 1 || len(left)+len(right) < serialThreshold:
		mergeSerial(left, right, out)
		return
	}
	// Split the longer run at its midpoint and find the matching split
	// point in the other run, so that both halves can be merged
	// independently.
	var l, r int
	if len(left) >= len(right) {
		l = len(left) / 2
		pivot := left[l]
		r = sort.Search(len(right), func(i int) bool { return !byStart(right[i], pivot) })
	} else {
		r = len(right) / 2
		pivot := right[r]
		l = sort.Search(len(left), func(i int) bool { return byStart(pivot, left[i]) })
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		merge(left[:l], right[:r], (parallelism+1)/2, out[:l+r])
		wg.Done()
	}()
	merge(left[l:], right[r:], parallelism/2, out[l+r:])
	wg.Wait()
}

func mergeSerial(left, right []Call, out []Call) {
	var i, j, k int
	for i < len(left) && j < len(right) {
		if byStart(right[j], left[i]) {
			out[k] = right[j]
			j++
		} else {
			out[k] = left[i]
			i++
		}
		k++
	}
	k += copy(out[k:], left[i:])
	copy(out[k:], right[j:])
}
