package alignment

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MinRowGap is the row-packing gap G (spec.md §4.7, "G = 3 columns"): two
// reads share a pileup row only when more than MinRowGap empty columns
// separate them.
//
// spec.md's scenario 5 worked example requires a *strict* gap of more than
// G columns (a read starting exactly G columns after the previous read's
// end is rejected, not accepted) even though its prose formula reads as a
// non-strict "+G" test; DESIGN.md records this as the resolved boundary.
const MinRowGap = 3

// Filter is a predicate over a read used by Alignment.ApplyOptions to hide
// reads from the pileup (spec.md §4.7's "filter/sort mini-language").
type Filter func(r AlignedRead) bool

// FilterBaseEquals hides reads whose base at reference position pos is not
// (case-insensitively) base, implementing "filter base(P)=C".
func FilterBaseEquals(pos int, base byte) Filter {
	want := baseToEnum(base)
	return func(r AlignedRead) bool {
		b, _, kind, ok := r.BaseAt(pos)
		if !ok || kind != KindMatch {
			return false
		}
		return baseToEnum(b) == want
	}
}

// FilterHasSoftClipAt hides reads with no soft clip at reference position
// pos, implementing "filter base=softclip".
func FilterHasSoftClipAt(pos int) Filter {
	return func(r AlignedRead) bool {
		_, _, kind, ok := r.BaseAt(pos)
		return ok && kind == KindSoftClip
	}
}

// Alignment is the pileup of AlignedReads over a region: row assignment,
// per-base coverage, and optional filtering/pairing. It is replaced
// wholesale (never mutated field-by-field from outside) on every
// successful refetch, per spec.md §4.9.
type Alignment struct {
	ContigIndex int
	reads       []AlignedRead

	// dataCompleteLeft/Right bound the region this Alignment was built to
	// cover; HasCompleteData checks against these.
	dataCompleteLeft  int
	dataCompleteRight int

	// order is the read indices in construction order (ascending start),
	// used to recompute the original packing on Reset.
	order []int

	visible []bool
	y       []int
	rowToReads map[int][]int

	coverage map[int]BaseCoverage
	filters  []Filter
}

// NewAlignment builds an Alignment from reads (in any order) over
// [dataCompleteLeft, dataCompleteRight] on contigIndex.
func NewAlignment(contigIndex int, reads []AlignedRead, dataCompleteLeft, dataCompleteRight int) *Alignment {
	order := make([]int, len(reads))
	for i := range reads {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return reads[order[a]].Start < reads[order[b]].Start })

	a := &Alignment{
		ContigIndex:       contigIndex,
		reads:             reads,
		dataCompleteLeft:  dataCompleteLeft,
		dataCompleteRight: dataCompleteRight,
		order:             order,
		visible:           make([]bool, len(reads)),
	}
	for i := range a.visible {
		a.visible[i] = true
	}
	a.repack()
	return a
}

// HasCompleteData reports whether [contigIndex,start,end] lies within the
// bounds this Alignment was built to cover.
func (a *Alignment) HasCompleteData(contigIndex, start, end int) bool {
	return a.ContigIndex == contigIndex && start >= a.dataCompleteLeft && end <= a.dataCompleteRight
}

// Reads returns the full backing read slice (including hidden reads).
func (a *Alignment) Reads() []AlignedRead { return a.reads }

// Visible reports whether the read at idx is currently visible.
func (a *Alignment) Visible(idx int) bool { return a.visible[idx] }

// RowOf returns the read's currently assigned row. Hidden reads are
// assigned row 0 and are not present in any row's read-index set.
func (a *Alignment) RowOf(idx int) int { return a.y[idx] }

// Depth returns the number of non-empty rows.
func (a *Alignment) Depth() int {
	depth := 0
	for row := range a.rowToReads {
		if len(a.rowToReads[row]) > 0 {
			if row+1 > depth {
				depth = row + 1
			}
		}
	}
	return depth
}

// ReadAt returns the (visible) read on row y whose softclip-inclusive span
// covers reference column x.
func (a *Alignment) ReadAt(x, y int) (AlignedRead, bool) {
	for _, idx := range a.rowToReads[y] {
		r := a.reads[idx]
		if x >= r.StackStart() && x <= r.StackEnd() {
			return r, true
		}
	}
	return AlignedRead{}, false
}

// ReadsOverlapping returns every visible read on row y whose softclip-
// inclusive span intersects [lo,hi].
func (a *Alignment) ReadsOverlapping(lo, hi, y int) []AlignedRead {
	var out []AlignedRead
	for _, idx := range a.rowToReads[y] {
		r := a.reads[idx]
		if r.StackStart() <= hi && lo <= r.StackEnd() {
			out = append(out, r)
		}
	}
	return out
}

// CoverageAt returns the BaseCoverage at reference position pos.
func (a *Alignment) CoverageAt(pos int) BaseCoverage {
	return a.coverage[pos]
}

// ApplyOptions sets each read's visibility to the conjunction of filters,
// then re-packs rows and rebuilds coverage over the now-visible reads.
func (a *Alignment) ApplyOptions(filters []Filter) {
	a.filters = filters
	for i, r := range a.reads {
		visible := true
		for _, f := range filters {
			if !f(r) {
				visible = false
				break
			}
		}
		a.visible[i] = visible
	}
	a.repack()
}

// Reset restores the original packing (all reads visible) computed at
// construction time.
func (a *Alignment) Reset() {
	for i := range a.visible {
		a.visible[i] = true
	}
	a.filters = nil
	a.repack()
}

// repack recomputes row assignment and coverage over currently-visible
// reads, using the minimum-gap greedy algorithm of spec.md §4.7.
func (a *Alignment) repack() {
	a.y = make([]int, len(a.reads))
	a.rowToReads = make(map[int][]int)

	var rowLeft, rowRight []int
	for _, idx := range a.order {
		if !a.visible[idx] {
			continue
		}
		r := a.reads[idx]
		s, e := r.StackStart(), r.StackEnd()
		placed := -1
		for row := range rowLeft {
			if (rowLeft[row]-e-1) > MinRowGap {
				rowLeft[row] = s
				placed = row
				break
			}
			if (s - rowRight[row] - 1) > MinRowGap {
				rowRight[row] = e
				placed = row
				break
			}
		}
		if placed == -1 {
			rowLeft = append(rowLeft, s)
			rowRight = append(rowRight, e)
			placed = len(rowLeft) - 1
		}
		a.y[idx] = placed
		a.rowToReads[placed] = append(a.rowToReads[placed], idx)
	}

	a.rebuildCoverage()
}

func (a *Alignment) rebuildCoverage() {
	a.coverage = make(map[int]BaseCoverage)
	for _, idx := range a.order {
		if !a.visible[idx] {
			continue
		}
		r := a.reads[idx]
		for pos := r.Start; pos <= r.End; pos++ {
			if pos < a.dataCompleteLeft || pos > a.dataCompleteRight {
				continue
			}
			base, _, kind, ok := r.BaseAt(pos)
			if !ok {
				continue
			}
			cov := a.coverage[pos]
			switch kind {
			case KindDeletion:
				// Deletions contribute nothing, per spec.md §4.7.
			case KindMatch:
				// BaseAt resolves the called base whether or not the
				// position was flagged as a mismatch (it falls back to
				// Seq for true matches), so the bucket is always the
				// read's actual call here.
				cov.Add(baseToEnum(base))
			}
			a.coverage[pos] = cov
		}
		// Soft-clipped flanks also contribute to the softclip counter.
		for pos := r.StackStart(); pos < r.Start; pos++ {
			a.bumpSoftClip(pos)
		}
		for pos := r.End + 1; pos <= r.StackEnd(); pos++ {
			a.bumpSoftClip(pos)
		}
	}
}

func (a *Alignment) bumpSoftClip(pos int) {
	if pos < a.dataCompleteLeft || pos > a.dataCompleteRight {
		return
	}
	cov := a.coverage[pos]
	cov.Add(BaseSoftClip)
	a.coverage[pos] = cov
}

// PairView groups the currently-visible reads into mate pairs and re-packs
// them as combined-span rows, using the same minimum-gap algorithm as
// repack. Ineligible reads (per HasNoMappedMate) are returned as singles
// rather than forced into a pair.
func (a *Alignment) PairView() (pairs []ReadPair, singles []AlignedRead, rowOfPair []int, rowOfSingle []int) {
	var visibleReads []AlignedRead
	for _, idx := range a.order {
		if a.visible[idx] {
			visibleReads = append(visibleReads, a.reads[idx])
		}
	}
	pairs, singles = BuildReadPairs(visibleReads)

	type span struct {
		start, end int
		kind       int // 0 = pair, 1 = single
		idx        int
	}
	spans := make([]span, 0, len(pairs)+len(singles))
	for i, p := range pairs {
		spans = append(spans, span{p.Start, p.End, 0, i})
	}
	for i, s := range singles {
		spans = append(spans, span{s.StackStart(), s.StackEnd(), 1, i})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	rowOfPair = make([]int, len(pairs))
	rowOfSingle = make([]int, len(singles))

	var rowLeft, rowRight []int
	for _, sp := range spans {
		placed := -1
		for row := range rowLeft {
			if (rowLeft[row]-sp.end-1) > MinRowGap {
				rowLeft[row] = sp.start
				placed = row
				break
			}
			if (sp.start - rowRight[row] - 1) > MinRowGap {
				rowRight[row] = sp.end
				placed = row
				break
			}
		}
		if placed == -1 {
			rowLeft = append(rowLeft, sp.start)
			rowRight = append(rowRight, sp.end)
			placed = len(rowLeft) - 1
		}
		if sp.kind == 0 {
			rowOfPair[sp.idx] = placed
		} else {
			rowOfSingle[sp.idx] = placed
		}
	}
	return pairs, singles, rowOfPair, rowOfSingle
}

// CoverageSummary computes the mean and variance of per-position total
// depth (BaseCoverage.Sum) across the covered region. It is undefined
// (ok=false) when no position has been observed.
func (a *Alignment) CoverageSummary() (mean, variance float64, ok bool) {
	if len(a.coverage) == 0 {
		return 0, 0, false
	}
	depths := make([]float64, 0, len(a.coverage))
	for pos := a.dataCompleteLeft; pos <= a.dataCompleteRight; pos++ {
		cov, present := a.coverage[pos]
		if !present {
			depths = append(depths, 0)
			continue
		}
		depths = append(depths, float64(cov.Sum()))
	}
	if len(depths) == 0 {
		return 0, 0, false
	}
	mean = stat.Mean(depths, nil)
	variance = stat.Variance(depths, nil)
	return mean, variance, true
}

