package track

import (
	"sort"

	"github.com/grailbio/base/errors"
)

// Strand is a gene's transcriptional orientation.
type Strand int

const (
	StrandUnknown Strand = iota
	StrandPlus
	StrandMinus
)

// Gene is one gene/transcript record. Exons are stored as parallel
// vectors (ExonStarts/ExonEnds) rather than a slice of exon objects,
// avoiding per-exon heap allocation and matching how Track<Gene>'s exon
// index addresses them: (gene index, exon index) pairs.
type Gene struct {
	ID          string
	Name        string
	Strand      Strand
	ContigIndex int

	// TxStart/TxEnd are 1-based inclusive transcription bounds.
	TxStart int
	TxEnd   int

	// CDSStart/CDSEnd are 1-based inclusive coding-sequence bounds.
	CDSStart int
	CDSEnd   int

	// ExonStarts/ExonEnds are 1-based inclusive, sorted, non-overlapping,
	// and of equal length. HasExons is false for sources that provide no
	// exon structure (in which case the two slices are empty).
	ExonStarts []int
	ExonEnds   []int
	HasExons   bool
}

// IntervalStart satisfies GenomeInterval.
func (g Gene) IntervalStart() int { return g.TxStart }

// IntervalEnd satisfies GenomeInterval.
func (g Gene) IntervalEnd() int { return g.TxEnd }

// Validate checks the invariants spec.md §3 lists for Gene.
func (g Gene) Validate() error {
	if len(g.ExonStarts) != len(g.ExonEnds) {
		return errors.E(errors.Invalid, "track.Gene: exon_starts/exon_ends length mismatch for", g.Name)
	}
	if g.HasExons && len(g.ExonStarts) > 0 {
		if g.TxStart > g.ExonStarts[0] {
			return errors.E(errors.Invalid, "track.Gene: tx_start after first exon start for", g.Name)
		}
		if g.ExonEnds[len(g.ExonEnds)-1] > g.TxEnd {
			return errors.E(errors.Invalid, "track.Gene: last exon end after tx_end for", g.Name)
		}
		for i := 1; i < len(g.ExonStarts); i++ {
			if g.ExonStarts[i] <= g.ExonEnds[i-1] {
				return errors.E(errors.Invalid, "track.Gene: overlapping or unsorted exons for", g.Name)
			}
		}
	}
	return nil
}

// SubGeneFeatureKind distinguishes exons from introns within a gene.
type SubGeneFeatureKind int

const (
	Exon SubGeneFeatureKind = iota
	Intron
)

// SubGeneFeature is a view into one exon or intron of a gene.
type SubGeneFeature struct {
	Kind     SubGeneFeatureKind
	Start    int
	End      int
	Gene     *Gene
	ExonIdx  int // index into Gene.ExonStarts/ExonEnds; meaningful for Exon
}

// IntervalStart satisfies GenomeInterval.
func (s SubGeneFeature) IntervalStart() int { return s.Start }

// IntervalEnd satisfies GenomeInterval.
func (s SubGeneFeature) IntervalEnd() int { return s.End }

// exonRef names one exon by (gene index, exon index) for the exon-level
// indices below.
type exonRef struct {
	geneIdx int
	exonIdx int
}

func (r exonRef) lookup(genes []Gene) SubGeneFeature {
	g := &genes[r.geneIdx]
	return SubGeneFeature{
		Kind:    Exon,
		Start:   g.ExonStarts[r.exonIdx],
		End:     g.ExonEnds[r.exonIdx],
		Gene:    g,
		ExonIdx: r.exonIdx,
	}
}

// GeneTrack is Track[Gene] augmented with an exon-level index and a
// name->index lookup, per spec.md §3/§4.2.
type GeneTrack struct {
	*Track[Gene]

	byName map[string]int

	exonStartOrder []exonRef
	exonEndOrder   []exonRef
}

// NewGeneTrack builds a GeneTrack from a gene slice, covering
// [loadedFrom, loadedTo] on loadedContig.
func NewGeneTrack(genes []Gene, loadedContig, loadedFrom, loadedTo int) *GeneTrack {
	gt := &GeneTrack{
		Track:  NewTrack(genes, loadedContig, loadedFrom, loadedTo),
		byName: make(map[string]int, len(genes)),
	}
	for i, g := range genes {
		if g.Name != "" {
			gt.byName[g.Name] = i
		}
		for e := range g.ExonStarts {
			gt.exonStartOrder = append(gt.exonStartOrder, exonRef{i, e})
			gt.exonEndOrder = append(gt.exonEndOrder, exonRef{i, e})
		}
	}
	sort.Slice(gt.exonStartOrder, func(a, b int) bool {
		ra, rb := gt.exonStartOrder[a], gt.exonStartOrder[b]
		sa, sb := genes[ra.geneIdx].ExonStarts[ra.exonIdx], genes[rb.geneIdx].ExonStarts[rb.exonIdx]
		if sa != sb {
			return sa < sb
		}
		return genes[ra.geneIdx].ExonEnds[ra.exonIdx] < genes[rb.geneIdx].ExonEnds[rb.exonIdx]
	})
	sort.Slice(gt.exonEndOrder, func(a, b int) bool {
		ra, rb := gt.exonEndOrder[a], gt.exonEndOrder[b]
		ea, eb := genes[ra.geneIdx].ExonEnds[ra.exonIdx], genes[rb.geneIdx].ExonEnds[rb.exonIdx]
		if ea != eb {
			return ea < eb
		}
		return genes[ra.geneIdx].ExonStarts[ra.exonIdx] < genes[rb.geneIdx].ExonStarts[rb.exonIdx]
	})
	return gt
}

// Names returns every named gene's display symbol, in no particular
// order. Used by trackservice.Cache to index gene name -> contig.
func (gt *GeneTrack) Names() []string {
	names := make([]string, 0, len(gt.byName))
	for name := range gt.byName {
		names = append(names, name)
	}
	return names
}

// GetGeneByName looks up a gene by its display symbol.
func (gt *GeneTrack) GetGeneByName(name string) (Gene, error) {
	idx, ok := gt.byName[name]
	if !ok {
		return Gene{}, errors.E(errors.NotExist, "track.GetGeneByName: gene not found:", name)
	}
	return gt.features[idx], nil
}

// GetKExonsAfter returns the k-th exon (k>=1) whose start is >= pos.
func (gt *GeneTrack) GetKExonsAfter(pos, k int) (SubGeneFeature, error) {
	if k < 1 {
		return SubGeneFeature{}, errors.E(errors.Invalid, "track.GetKExonsAfter: k must be >= 1")
	}
	i := sort.Search(len(gt.exonStartOrder), func(i int) bool {
		r := gt.exonStartOrder[i]
		return gt.features[r.geneIdx].ExonStarts[r.exonIdx] >= pos
	})
	idx := i + k - 1
	if idx >= len(gt.exonStartOrder) {
		return SubGeneFeature{}, errors.E(errors.NotExist, "track.GetKExonsAfter: fewer than k exons remain")
	}
	return gt.exonStartOrder[idx].lookup(gt.features), nil
}

// GetKExonsBefore returns the k-th exon (k>=1) whose end is < pos.
func (gt *GeneTrack) GetKExonsBefore(pos, k int) (SubGeneFeature, error) {
	if k < 1 {
		return SubGeneFeature{}, errors.E(errors.Invalid, "track.GetKExonsBefore: k must be >= 1")
	}
	i := sort.Search(len(gt.exonEndOrder), func(i int) bool {
		r := gt.exonEndOrder[i]
		return gt.features[r.geneIdx].ExonEnds[r.exonIdx] >= pos
	})
	idx := i - k
	if idx < 0 {
		return SubGeneFeature{}, errors.E(errors.NotExist, "track.GetKExonsBefore: fewer than k exons remain")
	}
	return gt.exonEndOrder[idx].lookup(gt.features), nil
}

// GetSaturatingKExonsAfter is GetKExonsAfter clamped to the last exon.
func (gt *GeneTrack) GetSaturatingKExonsAfter(pos, k int) (SubGeneFeature, error) {
	if len(gt.exonStartOrder) == 0 {
		return SubGeneFeature{}, errors.E(errors.NotExist, "track.GetSaturatingKExonsAfter: no exons")
	}
	f, err := gt.GetKExonsAfter(pos, k)
	if err == nil {
		return f, nil
	}
	return gt.exonStartOrder[len(gt.exonStartOrder)-1].lookup(gt.features), nil
}

// GetSaturatingKExonsBefore is GetKExonsBefore clamped to the first exon.
func (gt *GeneTrack) GetSaturatingKExonsBefore(pos, k int) (SubGeneFeature, error) {
	if len(gt.exonEndOrder) == 0 {
		return SubGeneFeature{}, errors.E(errors.NotExist, "track.GetSaturatingKExonsBefore: no exons")
	}
	f, err := gt.GetKExonsBefore(pos, k)
	if err == nil {
		return f, nil
	}
	return gt.exonEndOrder[0].lookup(gt.features), nil
}
