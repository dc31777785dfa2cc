// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package concurrency_test

import (
	"flag"
	"fmt"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/maxcalls/calls"
	"github.com/grailbio/maxcalls/concurrency"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

var counters = []struct {
	name  string
	count func([]calls.Call) int
}{
	{"Max", concurrency.Max},
	{"Scan", concurrency.Scan},
	{"Stab", concurrency.Stab},
}

func sorted() []calls.Call {
	c := calls.Fixed()
	calls.SortByStart(c, 1)
	return c
}

func TestCounters(t *testing.T) {
	for _, c := range []struct {
		name  string
		calls []calls.Call
		want  int
	}{
		{"empty", nil, 0},
		{"single", []calls.Call{{Start: 0, End: 1}}, 1},
		{"disjoint", []calls.Call{{Start: 0, End: 1}, {Start: 2, End: 3}}, 1},
		{"touching", []calls.Call{{Start: 0, End: 1}, {Start: 1, End: 2}}, 2},
		{"chain", []calls.Call{{Start: 0, End: 1}, {Start: 1, End: 2}, {Start: 2, End: 3}}, 2},
		{"nested", []calls.Call{{Start: 0, End: 10}, {Start: 1, End: 9}, {Start: 2, End: 8}}, 3},
		{"nested5", []calls.Call{{Start: 0, End: 10}, {Start: 1, End: 9}, {Start: 2, End: 8}, {Start: 3, End: 7}, {Start: 4, End: 6}}, 5},
		{"same start", []calls.Call{{Start: 1, End: 2}, {Start: 1, End: 3}, {Start: 1, End: 1}}, 3},
		{"expired", []calls.Call{{Start: 0, End: 1}, {Start: 0, End: 5}, {Start: 2, End: 3}, {Start: 4, End: 6}}, 2},
		{"fixed", sorted(), 3},
	} {
		for _, counter := range counters {
			t.Run(fmt.Sprintf("%s/%s", c.name, counter.name), func(t *testing.T) {
				expect.EQ(t, counter.count(c.calls), c.want)
			})
		}
	}
}

func TestIdempotent(t *testing.T) {
	c := sorted()
	want := sorted()
	for _, counter := range counters {
		expect.EQ(t, counter.count(c), 3, counter.name)
		expect.EQ(t, counter.count(c), 3, counter.name)
		expect.EQ(t, c, want, counter.name)
	}
}

func TestProfile(t *testing.T) {
	expect.EQ(t, concurrency.Profile(nil), []int{})
	// (1.02,5.20), (1.02,3.20), (3.02,6.20), (4.02,9.20), (9.02,55.20), (10.02,12.20)
	expect.EQ(t, concurrency.Profile(sorted()), []int{1, 2, 3, 3, 2, 2})
	expect.EQ(t, concurrency.Profile([]calls.Call{{Start: 0, End: 1}, {Start: 1, End: 2}, {Start: 3, End: 4}}), []int{1, 2, 1})
}

func TestRandom(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		var c []calls.Call
		fuzz.NewWithSeed(seed).
			NilChance(0).
			NumElements(0, 300).
			Funcs(func(call *calls.Call, fc fuzz.Continue) {
				// Small integral endpoints make ties and touching calls common.
				call.Start = float64(fc.Intn(200))
				call.End = call.Start + float64(fc.Intn(30))
			}).
			Fuzz(&c)
		calls.SortByStart(c, 2)
		want := concurrency.Scan(c)
		assert.EQ(t, concurrency.Max(c), want, "seed=%d", seed)
		assert.EQ(t, concurrency.Stab(c), want, "seed=%d", seed)
		profile := concurrency.Profile(c)
		peak := 0
		for _, n := range profile {
			if n > peak {
				peak = n
			}
		}
		assert.EQ(t, peak, want, "seed=%d", seed)
	}
}

func TestMethod(t *testing.T) {
	for _, m := range []concurrency.Method{concurrency.Sweep, concurrency.Naive, concurrency.Stabbing} {
		got, err := concurrency.ParseMethod(m.String())
		assert.NoError(t, err)
		expect.EQ(t, got, m)
		n, err := concurrency.Count(m, sorted())
		assert.NoError(t, err)
		expect.EQ(t, n, 3, m)
	}
	_, err := concurrency.ParseMethod("heap")
	expect.True(t, errors.Is(errors.Invalid, err))
	expect.HasSubstr(t, err.Error(), `unknown method "heap" (want one of sweep, scan, stab)`)

	_, err = concurrency.Count(concurrency.Method(42), nil)
	expect.True(t, errors.Is(errors.Invalid, err))
	expect.EQ(t, concurrency.Method(42).String(), "method(42)")
}

func TestMethodFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	m := concurrency.Sweep
	fs.Var(&m, "method", "counter")
	assert.NoError(t, fs.Parse([]string{"-method", "stab"}))
	expect.EQ(t, m, concurrency.Stabbing)
	expect.True(t, fs.Parse([]string{"-method", "bogus"}) != nil)
}

func benchmarkCounter(b *testing.B, count func([]calls.Call) int, n int) {
	c := make([]calls.Call, n)
	for i := range c {
		c[i] = calls.New(float64(i), float64(i+n/10))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		count(c)
	}
}

func BenchmarkMax(b *testing.B)  { benchmarkCounter(b, concurrency.Max, 10000) }
func BenchmarkScan(b *testing.B) { benchmarkCounter(b, concurrency.Scan, 10000) }
func BenchmarkStab(b *testing.B) { benchmarkCounter(b, concurrency.Stab, 10000) }
