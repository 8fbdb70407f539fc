package contig

// Focus anchors the viewport at a single (contig, position).
type Focus struct {
	ContigIndex int
	// Position is 1-based, inclusive. Always >= 1, and <= the contig's
	// length when the length is known.
	Position int64
}

// NewFocus builds a Focus, clamping Position to >= 1.
func NewFocus(contigIndex int, position int64) Focus {
	if position < 1 {
		position = 1
	}
	return Focus{ContigIndex: contigIndex, Position: position}
}

// Region is a Focus plus a half-width: the unit of "do I have enough data"
// questions throughout gaze.
type Region struct {
	ContigIndex int
	// Start and End are 1-based inclusive, clamped to [1, contig length]
	// when the length is known.
	Start int64
	End   int64
}

// NewRegion builds the region [focus.Position-halfWidth,
// focus.Position+halfWidth], clamped against contigLength (0 meaning
// "unknown", in which case only the lower bound is clamped).
func NewRegion(focus Focus, halfWidth int64, contigLength int64) Region {
	if halfWidth < 0 {
		halfWidth = 0
	}
	start := focus.Position - halfWidth
	if start < 1 {
		start = 1
	}
	end := focus.Position + halfWidth
	if contigLength > 0 && end > contigLength {
		end = contigLength
	}
	if end < start {
		end = start
	}
	return Region{ContigIndex: focus.ContigIndex, Start: start, End: end}
}

// Contains reports whether r fully contains other (same contig, and
// other's bounds lie within r's bounds). This is the predicate every
// has_complete_data check in gaze reduces to.
func (r Region) Contains(other Region) bool {
	return r.ContigIndex == other.ContigIndex && r.Start <= other.Start && other.End <= r.End
}

// Overlaps reports whether r and other share any position on the same
// contig.
func (r Region) Overlaps(other Region) bool {
	return r.ContigIndex == other.ContigIndex && r.Start <= other.End && other.Start <= r.End
}

// Widen returns a region of the same center, widened (or narrowed) so its
// half-width is ratio times r's current half-width, clamped against
// contigLength.
func (r Region) Widen(ratio int64, contigLength int64) Region {
	if ratio < 1 {
		ratio = 1
	}
	halfWidth := ((r.End - r.Start) / 2) * ratio
	center := r.Start + (r.End-r.Start)/2
	return NewRegion(Focus{ContigIndex: r.ContigIndex, Position: center}, halfWidth, contigLength)
}
