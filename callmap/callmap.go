// Package callmap indexes a static set of call intervals and answers which
// calls are active at a given time, or during a given interval.
//
// The implementation is a 1-D Kd tree built with the randomized
// surface-area heuristic
// (http://www.sci.utah.edu/~wald/Publications/2007/ParallelBVHBuild/fastbuild.pdf).
// Unlike half-open index structures, intervals here are closed: a call that
// ends at t is still active at t.
package callmap

import (
	"math"
	"math/rand"
	"sync"

	"github.com/grailbio/base/log"
	"github.com/grailbio/maxcalls/calls"
)

// Interval is a closed interval [Start, End].
type Interval = calls.Call

var emptyInterval = Interval{Start: math.Inf(1), End: math.Inf(-1)}

func empty(i Interval) bool { return i.Start > i.End }

func intersect(i, j Interval) Interval {
	return Interval{Start: math.Max(i.Start, j.Start), End: math.Min(i.End, j.End)}
}

// span computes a minimal interval that spans over both i and j. If either
// is empty, the other is returned.
func span(i, j Interval) Interval {
	switch {
	case empty(i):
		return j
	case empty(j):
		return i
	default:
		return Interval{Start: math.Min(i.Start, j.Start), End: math.Max(i.End, j.End)}
	}
}

const maxEntsInNode = 16 // max size of node.ents.

// Entry is one indexed interval.
type Entry struct {
	Interval Interval
	// Data is an arbitrary user-defined payload.
	Data interface{}
}

type entry struct {
	Entry
	id int // dense sequence number 0, 1, 2, ...
}

type node struct {
	bounds      Interval // interval covered by this node.
	left, right *node    // children. Maybe nil.
	ents        []*entry // Nonempty iff. left=nil&&right=nil.
	label       string   // for debugging only.
}

// TreeStats shows tree-wide stats.
type TreeStats struct {
	// Nodes is the total number of tree nodes.
	Nodes int
	// LeafNodes is the total number of leaf nodes.
	//
	// Invariant: LeafNodes <= Nodes
	LeafNodes int
	// MaxDepth is the max depth of the tree.
	MaxDepth int
	// MaxLeafNodeSize is the maximum len(node.ents) of all nodes in the tree.
	MaxLeafNodeSize int
	// TotalLeafDepth is the sum of depth of all leaf nodes.
	TotalLeafDepth int
	// TotalLeafNodeSize is the sum of len(node.ents) of all leaf nodes.
	TotalLeafNodeSize int
}

// T is the call index. It must be created using New. It is safe for
// concurrent use.
type T struct {
	root  node
	n     int
	stats TreeStats
	pool  sync.Pool
}

// New creates an index over the given entries. The intervals may overlap,
// and they need not be sorted.
func New(ents []Entry) *T {
	entsCopy := make([]entry, len(ents))
	for i := range ents {
		entsCopy[i] = entry{Entry: ents[i], id: i}
	}
	ients := make([]*entry, len(ents))
	for i := range entsCopy {
		ients[i] = &entsCopy[i]
	}
	r := rand.New(rand.NewSource(0))
	t := &T{n: len(ents)}
	t.stats.MaxDepth = -1
	t.stats.MaxLeafNodeSize = -1
	t.root.init("", ients, keyRange(ients), r, &t.stats)
	t.pool.New = func() interface{} {
		return &searcher{hits: make([]uint32, t.n)}
	}
	return t
}

// NewCalls indexes calls. Each entry's Data is the call's index in calls.
func NewCalls(c []calls.Call) *T {
	ents := make([]Entry, len(c))
	for i := range c {
		ents[i] = Entry{Interval: c[i], Data: i}
	}
	return New(ents)
}

// searcher keeps state needed during one search episode. It is owned by one
// goroutine.
type searcher struct {
	searchID uint32   // increments on every search
	hits     []uint32 // hits[i] == searchID if the i'th entry has already been visited
}

func (s *searcher) visit(i int) bool {
	if s.hits[i] != s.searchID {
		s.hits[i] = s.searchID
		return true
	}
	return false
}

func (t *T) search(fn func(s *searcher)) {
	s := t.pool.Get().(*searcher)
	s.searchID++
	fn(s)
	if s.searchID < math.MaxUint32 {
		t.pool.Put(s)
	}
}

// Stats returns tree-wide stats.
func (t *T) Stats() TreeStats { return t.stats }

// Len returns the number of indexed entries.
func (t *T) Len() int { return t.n }

// Get finds all the entries that intersect the given interval and returns
// them in *ents.
func (t *T) Get(interval Interval, ents *[]*Entry) {
	*ents = (*ents)[:0]
	t.search(func(s *searcher) {
		t.root.get(interval, func(e *entry) {
			if s.visit(e.id) {
				*ents = append(*ents, &e.Entry)
			}
		})
	})
}

// Count returns the number of entries active at time at, that is, the
// entries e with e.Start <= at <= e.End.
func (t *T) Count(at float64) int {
	var n int
	t.search(func(s *searcher) {
		t.root.get(Interval{Start: at, End: at}, func(e *entry) {
			if s.visit(e.id) {
				n++
			}
		})
	})
	return n
}

func keyRange(ents []*entry) Interval {
	i := emptyInterval
	for _, e := range ents {
		i = span(i, e.Interval)
	}
	return i
}

const maxSample = 8

// randomSample picks maxSample random elements from ents[]. It shuffles ents[]
// in place.
func randomSample(ents []*entry, r *rand.Rand) []*entry {
	if len(ents) <= maxSample {
		return ents
	}
	shuffleFirstN := func(n int) { // Fisher-Yates shuffle
		for i := 0; i < n-1; i++ {
			j := i + r.Intn(len(ents)-i)
			ents[i], ents[j] = ents[j], ents[i]
		}
	}
	n := maxSample
	if len(ents)-n < n {
		// When maxSample < len(n) < maxSample*2, it's faster to compute the
		// complement set.
		n = len(ents) - n
		shuffleFirstN(len(ents) - n)
		return ents[n:]
	}
	shuffleFirstN(n)
	return ents[:n]
}

// split divides bounds into [bounds.Start, mid] and [mid, bounds.End]. left
// (right) stores the subset of ents[] that intersects the first (second,
// resp.) subinterval. An entry that contains mid belongs to both.
//
// Ok=false if no split point separates the entries.
func split(label string, ents []*entry, bounds Interval, r *rand.Rand) (mid float64, left []*entry, right []*entry, ok bool) {
	// A good split point is at one of the interval endpoints. To bound the
	// compute time, sample up to maxSample intervals and examine their
	// endpoints.
	sample := randomSample(ents, r)
	sampleRange := intersect(keyRange(sample), bounds)
	log.Debug.Printf("%s: split %v, %d ents", label, sampleRange, len(ents))
	if empty(sampleRange) {
		log.Panicf("callmap: empty sample range %v in %v", sampleRange, bounds)
	}
	var (
		candidates [maxSample * 2]float64
		nCandidate int
	)
	for _, e := range sample {
		candidates[nCandidate] = e.Interval.Start
		candidates[nCandidate+1] = e.Interval.End
		nCandidate += 2
	}

	splitAt := func(mid float64, left, right *[]*entry) {
		*left = (*left)[:0]
		*right = (*right)[:0]
		for _, e := range ents {
			if e.Interval.Overlaps(Interval{Start: bounds.Start, End: mid}) {
				*left = append(*left, e)
			}
			if e.Interval.Overlaps(Interval{Start: mid, End: bounds.End}) {
				*right = append(*right, e)
			}
		}
	}

	// Surface-area heuristic: the cost of searching a subinterval x is
	// roughly (length of x) * (# of entries that intersect x), assuming
	// queries are uniformly distributed. Pick the mid that minimizes the sum
	// over both halves.
	minCost := math.MaxFloat64
	var minMid float64
	var minLeft, minRight []*entry
	var tmpLeft, tmpRight []*entry

	for _, mid := range candidates[:nCandidate] {
		splitAt(mid, &tmpLeft, &tmpRight)
		if len(tmpLeft) == 0 || len(tmpRight) == 0 {
			continue
		}
		cost := float64(len(tmpLeft))*(mid-sampleRange.Start) +
			float64(len(tmpRight))*(sampleRange.End-mid)
		if cost < minCost {
			minMid = mid
			minLeft, tmpLeft = tmpLeft, minLeft
			minRight, tmpRight = tmpRight, minRight
			minCost = cost
		}
	}
	if minCost == math.MaxFloat64 || len(minLeft) == len(ents) || len(minRight) == len(ents) {
		return
	}
	return minMid, minLeft, minRight, true
}

func (n *node) init(label string, ents []*entry, bounds Interval, r *rand.Rand, stats *TreeStats) {
	defer func() {
		stats.Nodes++
		depth := len(n.label)
		if depth > stats.MaxDepth {
			stats.MaxDepth = depth
		}
		if e := len(n.ents); e > 0 { // Leaf node
			stats.LeafNodes++
			stats.TotalLeafNodeSize += e
			stats.TotalLeafDepth += depth
			if e > stats.MaxLeafNodeSize {
				stats.MaxLeafNodeSize = e
			}
		}
	}()

	n.label = label
	n.bounds = bounds
	if len(ents) <= maxEntsInNode {
		n.ents = ents
		return
	}
	mid, left, right, ok := split(n.label, ents, bounds, r)
	if !ok {
		n.ents = ents
		return
	}
	n.left = &node{}
	n.left.init(label+"L", left, intersect(keyRange(left), Interval{Start: bounds.Start, End: mid}), r, stats)
	n.right = &node{}
	n.right.init(label+"R", right, intersect(keyRange(right), Interval{Start: mid, End: bounds.End}), r, stats)
}

// get calls fn for every entry under n that intersects interval. An entry
// may be reported more than once.
func (n *node) get(interval Interval, fn func(e *entry)) {
	interval = intersect(interval, n.bounds)
	if empty(interval) {
		return
	}
	if len(n.ents) > 0 { // Leaf node
		for _, e := range n.ents {
			if interval.Overlaps(e.Interval) {
				fn(e)
			}
		}
		return
	}
	n.left.get(interval, fn)
	n.right.get(interval, fn)
}
