package alignment

import "sort"

// Flag bits used to decide pair-view eligibility, mirroring the SAM spec
// subset grailbio/bio/pileup/common.go checks before treating a record as
// part of a proper pair.
const (
	FlagPaired          uint16 = 1 << 0
	FlagProperPair      uint16 = 1 << 1
	FlagUnmapped        uint16 = 1 << 2
	FlagMateUnmapped    uint16 = 1 << 3
	FlagSecondary       uint16 = 1 << 8
	FlagSupplementary   uint16 = 1 << 11
)

// HasNoMappedMate reports whether r cannot participate in pair view: it is
// unpaired, its mate is unmapped, or it is a secondary/supplementary
// alignment (which would otherwise double up a read's mate group).
func HasNoMappedMate(r AlignedRead) bool {
	if r.Flags&FlagPaired == 0 {
		return true
	}
	if r.Flags&FlagMateUnmapped != 0 {
		return true
	}
	if r.Flags&(FlagSecondary|FlagSupplementary) != 0 {
		return true
	}
	return false
}

// ReadPair is two mates of the same template merged into a single row for
// pair-view display. BuildReadPairs sets Mate2 on every pair it returns; a
// read whose mate fell outside the fetched region is returned among the
// singles instead.
type ReadPair struct {
	Name  string
	Mate1 AlignedRead
	Mate2 *AlignedRead

	// Start/End is the pair's combined stacking span, the union of both
	// mates' spans.
	Start int
	End   int

	// Contexts is Mate1's and (if present) Mate2's contexts concatenated in
	// ascending reference-coordinate order. Overlapping bases are not
	// deduplicated: spec.md leaves pair-view overlap resolution unspecified,
	// so both mates' contexts are kept and the renderer chooses precedence.
	Contexts []RenderingContext
}

// BuildReadPairs groups eligible reads by name into ReadPairs for pair-view
// display. Ineligible reads (per HasNoMappedMate) are returned unchanged in
// singles.
func BuildReadPairs(reads []AlignedRead) (pairs []ReadPair, singles []AlignedRead) {
	byName := make(map[string][]AlignedRead)
	order := make([]string, 0)
	for _, r := range reads {
		if HasNoMappedMate(r) {
			singles = append(singles, r)
			continue
		}
		if _, ok := byName[r.Name]; !ok {
			order = append(order, r.Name)
		}
		byName[r.Name] = append(byName[r.Name], r)
	}

	for _, name := range order {
		mates := byName[name]
		sort.Slice(mates, func(i, j int) bool { return mates[i].Start < mates[j].Start })
		if len(mates) == 1 {
			singles = append(singles, mates[0])
			continue
		}
		m1, m2 := mates[0], mates[1]
		p := ReadPair{
			Name:     name,
			Mate1:    m1,
			Mate2:    &m2,
			Start:    min(m1.StackStart(), m2.StackStart()),
			End:      max(m1.StackEnd(), m2.StackEnd()),
			Contexts: append(append([]RenderingContext{}, m1.Contexts...), m2.Contexts...),
		}
		pairs = append(pairs, p)
		// Any mates beyond the first two (rare, e.g. supplementary records
		// that slipped past the eligibility filter) are shown individually.
		for _, extra := range mates[2:] {
			singles = append(singles, extra)
		}
	}
	return pairs, singles
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
