package trackservice

import (
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/gaze/track"
)

// GeneRow is the wire shape every backend's gene-track query decodes into
// before translating coordinates and commas into a track.Gene. Column
// names match the upstream genePred-style tables (chromInfo/ncbiRefSeq/...)
// directly, so sqlx's `db:"..."` struct-tag scanning needs no renaming
// layer between backends: sqlbackend and localbackend both scan straight
// into this struct; httpbackend's three JSON schemas each remap into it.
// Exported so the backend sub-packages can share this one decoding path.
type GeneRow struct {
	Name       string `db:"name"`
	Name2      string `db:"name2"`
	Chrom      string `db:"chrom"`
	Strand     string `db:"strand"`
	TxStart    int64  `db:"txStart"`
	TxEnd      int64  `db:"txEnd"`
	CdsStart   int64  `db:"cdsStart"`
	CdsEnd     int64  `db:"cdsEnd"`
	ExonStarts string `db:"exonStarts"`
	ExonEnds   string `db:"exonEnds"`
}

// ToGene converts a decoded GeneRow (upstream 0-based half-open) into a
// track.Gene (1-based inclusive), per spec.md §4.4's coordinate
// translation rule: external_start+1 -> internal_start, external_end ->
// internal_end unchanged.
func (r GeneRow) ToGene(contigIndex int) (track.Gene, error) {
	starts, err := ParseIntCSV(r.ExonStarts)
	if err != nil {
		return track.Gene{}, errors.E(errors.Invalid, err, "trackservice: parsing exonStarts for", r.Name)
	}
	ends, err := ParseIntCSV(r.ExonEnds)
	if err != nil {
		return track.Gene{}, errors.E(errors.Invalid, err, "trackservice: parsing exonEnds for", r.Name)
	}
	if len(starts) != len(ends) {
		return track.Gene{}, errors.E(errors.Invalid, "trackservice: exonStarts/exonEnds length mismatch for", r.Name)
	}
	for i := range starts {
		starts[i]++ // external_start+1 -> internal_start
	}

	strand := track.StrandUnknown
	switch r.Strand {
	case "+":
		strand = track.StrandPlus
	case "-":
		strand = track.StrandMinus
	}

	name := r.Name2
	if name == "" {
		name = r.Name
	}

	g := track.Gene{
		ID:          r.Name,
		Name:        name,
		Strand:      strand,
		ContigIndex: contigIndex,
		TxStart:     int(r.TxStart) + 1,
		TxEnd:       int(r.TxEnd),
		CDSStart:    int(r.CdsStart) + 1,
		CDSEnd:      int(r.CdsEnd),
		ExonStarts:  starts,
		ExonEnds:    ends,
		HasExons:    len(starts) > 0,
	}
	return g, g.Validate()
}

// ParseIntCSV parses a UCSC-style trailing-comma integer list
// ("100,200,300,") into a slice. Empty input yields nil.
func ParseIntCSV(s string) ([]int, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ",")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// GeneRowsToGenes converts a batch of rows, discarding (and not failing
// the whole query on) rows that fail Gene.Validate — a malformed upstream
// row shouldn't take down an entire track fetch.
func GeneRowsToGenes(rows []GeneRow, contigIndex int) []track.Gene {
	genes := make([]track.Gene, 0, len(rows))
	for _, r := range rows {
		g, err := r.ToGene(contigIndex)
		if err != nil {
			continue
		}
		genes = append(genes, g)
	}
	return genes
}

// chromOrderKey ranks a chromosome-like name for spec.md §4.4's
// chromosome-aware sort: 1..22, X, Y, M. ok is false for any other name;
// SortContigs places those after the ranked ones, alphabetically.
func chromOrderKey(name string) (rank int, ok bool) {
	n := strings.TrimPrefix(name, "chr")
	switch strings.ToUpper(n) {
	case "X":
		return 23, true
	case "Y":
		return 24, true
	case "M", "MT":
		return 25, true
	}
	if v, err := strconv.Atoi(n); err == nil && v >= 1 {
		return v, true
	}
	return 0, false
}

// SortContigs orders contigs per spec.md §4.4: chromosome-aware (1..22, X,
// Y, M, then others alphabetically) when every name either ranks as a
// chromosome or starts with "chr", else by descending length.
func SortContigs(contigs []ContigInfo) {
	allChromLike := true
	for _, c := range contigs {
		if _, ok := chromOrderKey(c.Name); !ok && !strings.HasPrefix(c.Name, "chr") {
			allChromLike = false
			break
		}
	}
	if allChromLike {
		sort.SliceStable(contigs, func(i, j int) bool {
			ri, oki := chromOrderKey(contigs[i].Name)
			rj, okj := chromOrderKey(contigs[j].Name)
			if oki != okj {
				return oki
			}
			if !oki {
				return contigs[i].Name < contigs[j].Name
			}
			return ri < rj
		})
		return
	}
	sort.SliceStable(contigs, func(i, j int) bool {
		return contigs[i].Length > contigs[j].Length
	})
}
