// Package refseq holds the Sequence value type and the SequenceRepository
// interface/implementations that resolve a Region to reference bases.
package refseq

import "github.com/grailbio/base/errors"

// Sequence is a reference-sequence slice over [Start, Start+len(Bases)-1]
// on ContigIndex.
type Sequence struct {
	ContigIndex int
	Start       int // 1-based inclusive
	Bases       []byte
}

// End returns the 1-based inclusive end coordinate of the slice.
func (s Sequence) End() int { return s.Start + len(s.Bases) - 1 }

// BaseAt returns the base at pos, or (0, false) if pos lies outside the
// slice.
func (s Sequence) BaseAt(pos int) (byte, bool) {
	if pos < s.Start || pos > s.End() {
		return 0, false
	}
	return s.Bases[pos-s.Start], true
}

// HasCompleteData reports whether s fully covers [contigIndex, start, end].
func (s Sequence) HasCompleteData(contigIndex, start, end int) bool {
	return s.ContigIndex == contigIndex && s.Start <= start && end <= s.End()
}

// EqualsIgnoreCase reports whether b matches the base at pos,
// case-insensitively over {A,C,G,T}; any other byte never compares equal
// (matching spec.md §4.6's mismatch rule).
func (s Sequence) EqualsIgnoreCase(pos int, b byte) bool {
	ref, ok := s.BaseAt(pos)
	if !ok {
		return false
	}
	return upperACGT(ref) == upperACGT(b) && upperACGT(ref) != 0
}

func upperACGT(b byte) byte {
	switch b {
	case 'a', 'A':
		return 'A'
	case 'c', 'C':
		return 'C'
	case 'g', 'G':
		return 'G'
	case 't', 'T':
		return 'T'
	default:
		return 0
	}
}

// Repository resolves reference sequence for a region. The underlying
// indexed random access (FASTA .fai or 2bit) is provided by an external
// library per spec.md §1; see FASTARepository for the concrete adapter.
type Repository interface {
	// Fetch returns the Sequence covering [start,end] on contigIndex,
	// identified by the contig's on-disk sequence name (display name or
	// alias, resolved by the caller).
	Fetch(contigName string, contigIndex, start, end int) (Sequence, error)
}

// ErrNoRepository is returned by callers that need a Repository but were
// configured without a reference source (e.g. no FASTA/2bit and no track
// service able to supply one).
var ErrNoRepository = errors.E(errors.Precondition, "refseq: no sequence repository configured")
