package alignment

import "github.com/grailbio/gaze/refseq"

// AlignedRead is one decoded BAM record, owned by its Alignment. It has no
// back-pointers: stacking and filter state live in side tables on Alignment
// indexed by AlignedRead.Index (spec.md §9, "Arena for reads").
type AlignedRead struct {
	Name  string
	MapQ  int
	Flags uint16

	// Start/End are 1-based inclusive reference coordinates, softclip
	// excluded.
	Start int
	End   int

	LeadingSoftClip  int
	TrailingSoftClip int

	IsReverse bool

	// Index is this read's position within the owning Alignment's read
	// slice.
	Index int

	// Seq is the record's called sequence, in the same orientation as
	// Contexts' query offsets (i.e. as stored in the BAM record, already
	// reverse-complemented for a reverse-strand read). Retained so BaseAt
	// can resolve the called base at a true-match position, not just a
	// documented mismatch.
	Seq []byte

	Contexts []RenderingContext
}

// StackStart returns the left edge of the read's stacking span (softclip
// inclusive, clamped to >= 1).
func (r AlignedRead) StackStart() int {
	s := r.Start - r.LeadingSoftClip
	if s < 1 {
		s = 1
	}
	return s
}

// StackEnd returns the right edge of the read's stacking span (softclip
// inclusive).
func (r AlignedRead) StackEnd() int {
	return r.End + r.TrailingSoftClip
}

// cigarSpan computes the aligned [start,end] and leading/trailing soft-clip
// lengths from a raw CIGAR, independent of RenderingContext construction.
func cigarSpan(refStart int, cigar []CigarOp) (start, end, leadingClip, trailingClip int) {
	pivot := refStart
	started := false
	lastConsumeEnd := refStart - 1
	for _, op := range cigar {
		switch op.Type {
		case OpSoftClip:
			if !started {
				leadingClip += op.Len
			} else {
				trailingClip += op.Len
			}
		case OpMatch, OpEqual, OpMismatch, OpDeletion, OpSkipped:
			if !started {
				start = pivot
				started = true
			}
			pivot += op.Len
			lastConsumeEnd = pivot - 1
		}
	}
	end = lastConsumeEnd
	if !started {
		start = refStart
		end = refStart - 1
	}
	return
}

// NewAlignedRead decodes one record's CIGAR into an AlignedRead. ref/refOK
// provide the reference Sequence used for mismatch annotation; pass refOK
// false when no Sequence is resident yet (mismatches are then left
// unannotated except for explicit CIGAR '=' / 'X' operations).
func NewAlignedRead(name string, refStart int, cigar []CigarOp, seq []byte, isReverse bool, mapq int, flags uint16, index int, ref refseq.Sequence, refOK bool) AlignedRead {
	start, end, leading, trailing := cigarSpan(refStart, cigar)
	return AlignedRead{
		Name:             name,
		MapQ:             mapq,
		Flags:            flags,
		Start:            start,
		End:              end,
		LeadingSoftClip:  leading,
		TrailingSoftClip: trailing,
		IsReverse:        isReverse,
		Index:            index,
		Seq:              seq,
		Contexts:         BuildRenderingContexts(refStart, cigar, seq, isReverse, ref, refOK),
	}
}

// BaseAt returns the contribution the read makes at reference position pos:
// the context kind covering pos, the called base if any (soft-clip bases,
// explicit mismatch bases, and true-match bases recovered from Seq via the
// covering context's QueryStart), and whether pos falls within the read's
// aligned span at all.
func (r AlignedRead) BaseAt(pos int) (base byte, isMismatch bool, kind ContextKind, ok bool) {
	for _, c := range r.Contexts {
		if pos < c.Start || pos > c.End {
			continue
		}
		switch c.Kind {
		case KindSoftClip:
			return c.SoftClipBase, false, KindSoftClip, true
		case KindDeletion:
			return 0, false, KindDeletion, true
		case KindMatch:
			for _, m := range c.Modifiers {
				if m.Kind == ModMismatch && m.RefPos == pos {
					return m.Base, true, KindMatch, true
				}
			}
			if qp := c.QueryStart + (pos - c.Start); qp-1 >= 0 && qp-1 < len(r.Seq) {
				return r.Seq[qp-1], false, KindMatch, true
			}
			return 0, false, KindMatch, true
		}
	}
	return 0, false, 0, false
}
