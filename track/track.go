// Package track implements Track[T], the sorted interval container used
// for gene/exon tracks, plus the Gene and SubGeneFeature value types.
// Cytoband segments are not held in a Track; they live on their
// contig.Contig.
//
// Overlap queries are delegated to github.com/biogo/store/interval's
// augmented interval tree (the same package kortschak/ins and
// kortschak/loopy reach for when they need overlap queries over genomic
// intervals); k-th-before/after queries use sorted-slice binary search, the
// idiom grailbio/bio/interval/endpoint_index.go uses for ordered endpoint
// scanning.
package track

import (
	"sort"

	"github.com/biogo/store/interval"
	"github.com/grailbio/base/errors"
)

// GenomeInterval is the capability Track[T]'s element type must provide:
// a closed, 1-based [Start, End] interval on a single contig.
type GenomeInterval interface {
	IntervalStart() int
	IntervalEnd() int
}

// node adapts a GenomeInterval-satisfying T into biogo/store/interval's
// IntInterface, tagging it with its index into the owning Track's backing
// slice so a tree hit can be mapped back to the original T.
type node struct {
	idx   int
	start int
	end   int
}

func (n node) Overlap(b interval.IntRange) bool { return n.start < b.End && b.Start < n.end }
func (n node) ID() uintptr                      { return uintptr(n.idx) }
func (n node) Range() interval.IntRange         { return interval.IntRange{Start: n.start, End: n.end} }

// Track is a sorted interval container over a feature slice, indexed by
// start and end for O(log n) k-th-feature-before/after queries and by an
// interval tree for overlap queries.
type Track[T GenomeInterval] struct {
	features []T

	tree interval.IntTree

	// startOrder / endOrder hold indices into features sorted by start
	// (resp. end), breaking ties by ascending end (resp. start), matching
	// spec.md §4.2's tie-break rule.
	startOrder []int
	endOrder   []int

	mostLeftBound  int
	mostRightBound int

	// loadedContig/loadedFrom/loadedTo record the region this track was
	// built to cover, for HasCompleteData.
	hasLoaded    bool
	loadedContig int
	loadedFrom   int
	loadedTo     int
}

// NewTrack builds a Track from an unsorted feature slice, covering
// [loadedFrom, loadedTo] on loadedContig.
func NewTrack[T GenomeInterval](features []T, loadedContig, loadedFrom, loadedTo int) *Track[T] {
	t := &Track[T]{features: features, hasLoaded: true, loadedContig: loadedContig, loadedFrom: loadedFrom, loadedTo: loadedTo}
	t.build()
	return t
}

func (t *Track[T]) build() {
	n := len(t.features)
	t.startOrder = make([]int, n)
	t.endOrder = make([]int, n)
	for i := range t.features {
		t.startOrder[i] = i
		t.endOrder[i] = i
	}
	sort.Slice(t.startOrder, func(a, b int) bool {
		fa, fb := t.features[t.startOrder[a]], t.features[t.startOrder[b]]
		if fa.IntervalStart() != fb.IntervalStart() {
			return fa.IntervalStart() < fb.IntervalStart()
		}
		return fa.IntervalEnd() < fb.IntervalEnd()
	})
	sort.Slice(t.endOrder, func(a, b int) bool {
		fa, fb := t.features[t.endOrder[a]], t.features[t.endOrder[b]]
		if fa.IntervalEnd() != fb.IntervalEnd() {
			return fa.IntervalEnd() < fb.IntervalEnd()
		}
		return fa.IntervalStart() < fb.IntervalStart()
	})

	if n == 0 {
		return
	}
	t.mostLeftBound = t.features[t.startOrder[0]].IntervalStart()
	t.mostRightBound = t.features[t.endOrder[n-1]].IntervalEnd()

	for i, f := range t.features {
		if err := t.tree.Insert(node{idx: i, start: f.IntervalStart(), end: f.IntervalEnd() + 1}, true); err != nil {
			// Insert only fails on malformed (end < start) ranges; skip the
			// offending feature rather than abort the whole track build.
			continue
		}
	}
	t.tree.AdjustRanges()
}

// Len returns the number of features in the track.
func (t *Track[T]) Len() int { return len(t.features) }

// MostLeftBound returns the smallest start among all features.
func (t *Track[T]) MostLeftBound() int { return t.mostLeftBound }

// MostRightBound returns the largest end among all features.
func (t *Track[T]) MostRightBound() int { return t.mostRightBound }

// HasCompleteData reports whether [start,end] on contigIndex lies within
// the bounds the track was built to cover.
func (t *Track[T]) HasCompleteData(contigIndex int, start, end int) bool {
	return t.hasLoaded && t.loadedContig == contigIndex && start >= t.loadedFrom && end <= t.loadedTo
}

// GetFeatureAt returns the unique feature whose interval contains pos, or
// (zero, false) if none does, or if more than one does (overlapping
// features make "the" feature at a position ill-defined; see DESIGN.md
// Open Question resolution #2).
func (t *Track[T]) GetFeatureAt(pos int) (T, bool) {
	var zero T
	hits := t.tree.Get(node{start: pos, end: pos + 1})
	if len(hits) != 1 {
		return zero, false
	}
	return t.features[hits[0].(node).idx], true
}

// GetFeaturesOverlapping returns every feature whose interval intersects
// [start,end].
func (t *Track[T]) GetFeaturesOverlapping(start, end int) []T {
	hits := t.tree.Get(node{start: start, end: end + 1})
	out := make([]T, 0, len(hits))
	for _, h := range hits {
		out = append(out, t.features[h.(node).idx])
	}
	sort.Slice(out, func(a, b int) bool { return out[a].IntervalStart() < out[b].IntervalStart() })
	return out
}

// GetKFeaturesAfter returns the k-th feature (k>=1; k=1 is nearest) whose
// start is >= pos, ordered by ascending start (ties broken by ascending
// end). Returns an error if fewer than k such features exist.
func (t *Track[T]) GetKFeaturesAfter(pos, k int) (T, error) {
	var zero T
	if k < 1 {
		return zero, errors.E(errors.Invalid, "track.GetKFeaturesAfter: k must be >= 1")
	}
	i := sort.Search(len(t.startOrder), func(i int) bool {
		return t.features[t.startOrder[i]].IntervalStart() >= pos
	})
	idx := i + k - 1
	if idx >= len(t.startOrder) {
		return zero, errors.E(errors.NotExist, "track.GetKFeaturesAfter: fewer than k features remain")
	}
	return t.features[t.startOrder[idx]], nil
}

// GetKFeaturesBefore returns the k-th feature (k>=1) whose end is < pos,
// scanning backwards (k=1 is nearest).
func (t *Track[T]) GetKFeaturesBefore(pos, k int) (T, error) {
	var zero T
	if k < 1 {
		return zero, errors.E(errors.Invalid, "track.GetKFeaturesBefore: k must be >= 1")
	}
	i := sort.Search(len(t.endOrder), func(i int) bool {
		return t.features[t.endOrder[i]].IntervalEnd() >= pos
	})
	idx := i - k
	if idx < 0 {
		return zero, errors.E(errors.NotExist, "track.GetKFeaturesBefore: fewer than k features remain")
	}
	return t.features[t.endOrder[idx]], nil
}

// GetSaturatingKFeaturesAfter is GetKFeaturesAfter, clamped to the last
// feature instead of erroring when fewer than k remain.
func (t *Track[T]) GetSaturatingKFeaturesAfter(pos, k int) (T, error) {
	var zero T
	if len(t.startOrder) == 0 {
		return zero, errors.E(errors.NotExist, "track.GetSaturatingKFeaturesAfter: empty track")
	}
	f, err := t.GetKFeaturesAfter(pos, k)
	if err == nil {
		return f, nil
	}
	return t.features[t.startOrder[len(t.startOrder)-1]], nil
}

// GetSaturatingKFeaturesBefore is GetKFeaturesBefore, clamped to the first
// feature instead of erroring when fewer than k remain.
func (t *Track[T]) GetSaturatingKFeaturesBefore(pos, k int) (T, error) {
	var zero T
	if len(t.endOrder) == 0 {
		return zero, errors.E(errors.NotExist, "track.GetSaturatingKFeaturesBefore: empty track")
	}
	f, err := t.GetKFeaturesBefore(pos, k)
	if err == nil {
		return f, nil
	}
	return t.features[t.endOrder[0]], nil
}
