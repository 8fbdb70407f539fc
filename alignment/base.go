package alignment

// Base enumerates the five counters a BaseCoverage tracks. Adapted from
// grailbio/bio/pileup/common.go's A/C/G/T/X enum (there used for BAM seq
// nibble decoding); here X becomes "N" (catch-all non-ACGT) and a sixth
// counter tracks soft-clipped bases, which pileup/common.go's enum has no
// slot for.
type Base int

const (
	BaseA Base = iota
	BaseC
	BaseG
	BaseT
	BaseN
	BaseSoftClip
	numBases
)

// baseToEnum maps an uppercase ASCII base to its Base enum value.
func baseToEnum(b byte) Base {
	switch b {
	case 'A', 'a':
		return BaseA
	case 'C', 'c':
		return BaseC
	case 'G', 'g':
		return BaseG
	case 'T', 't':
		return BaseT
	default:
		return BaseN
	}
}

// BaseCoverage counts, per reference position, how many visible reads
// contributed each base (plus a separate soft-clip counter).
type BaseCoverage [numBases]int

// Add increments the counter for base b.
func (c *BaseCoverage) Add(b Base) { c[b]++ }

// Sum returns the total read count at this position (matches + mismatches
// + N; soft-clips are excluded, matching spec.md §8's coverage invariant).
func (c BaseCoverage) Sum() int {
	return c[BaseA] + c[BaseC] + c[BaseG] + c[BaseT] + c[BaseN]
}

// SoftClipCount returns the number of soft-clipped bases counted
// separately at this position.
func (c BaseCoverage) SoftClipCount() int { return c[BaseSoftClip] }
