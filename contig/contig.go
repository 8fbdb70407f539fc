// Package contig holds the canonical ordered list of contigs (chromosomes
// and scaffolds) a session can address, plus the Focus/Region value types
// used throughout gaze to describe "where the viewport is looking".
package contig

import (
	"sort"

	"github.com/grailbio/base/errors"
)

// Cytoband is one stained segment of a contig's cytogenetic ideogram.
type Cytoband struct {
	Start  int32 // 1-based inclusive
	End    int32 // 1-based inclusive
	Name   string
	Stain  Stain
}

// Stain enumerates the cytoband stain intensities UCSC-style sources use.
type Stain int

const (
	Gneg Stain = iota
	Gpos25
	Gpos50
	Gpos75
	Gpos100
	Acen
	Gvar
	Stalk
	Other
)

// Contig identifies one reference sequence unit.
type Contig struct {
	Name    string
	Aliases []string

	// Length is the contig length in bases, or 0 if unknown (custom
	// references may not carry a length up front).
	Length int64
	hasLen bool

	// TrackName is the name under which this contig is addressable in the
	// remote/local track service. Empty means "no track data for this
	// contig".
	TrackName string

	cytoband []Cytoband
	cytoLoaded bool
}

// NewContig builds a Contig. length <= 0 means "unknown".
func NewContig(name string, aliases []string, length int64, trackName string) Contig {
	c := Contig{Name: name, Aliases: aliases, TrackName: trackName}
	if length > 0 {
		c.Length = length
		c.hasLen = true
	}
	return c
}

// HasLength reports whether the contig's length is known.
func (c Contig) HasLength() bool { return c.hasLen }

// Cytobands returns the contig's cytoband segments, or nil if not yet loaded.
func (c Contig) Cytobands() []Cytoband { return c.cytoband }

// CytobandLoaded reports whether cytoband data has been filled in.
func (c Contig) CytobandLoaded() bool { return c.cytoLoaded }

// allNames returns the canonical name followed by all aliases.
func (c Contig) allNames() []string {
	names := make([]string, 0, len(c.Aliases)+1)
	names = append(names, c.Name)
	names = append(names, c.Aliases...)
	return names
}

// ContigHeader is the ordered, indexed universe of contigs a session can
// address. cmd/gaze builds it once at startup from the track service's
// contig list, or from the FASTA index for a user-provided reference;
// contigs named only in the alignment file's header are not added.
type ContigHeader struct {
	contigs []Contig
	byName  map[string]int
}

// NewContigHeader builds a header from contigs, validating that names and
// aliases are collectively unique.
func NewContigHeader(contigs []Contig) (*ContigHeader, error) {
	h := &ContigHeader{
		contigs: contigs,
		byName:  make(map[string]int, len(contigs)*2),
	}
	for i, c := range contigs {
		for _, n := range c.allNames() {
			if _, dup := h.byName[n]; dup {
				return nil, errors.E(errors.Invalid, "contig.NewContigHeader: duplicate contig name or alias:", n)
			}
			h.byName[n] = i
		}
	}
	return h, nil
}

// Len returns the number of contigs in the header.
func (h *ContigHeader) Len() int { return len(h.contigs) }

// TryGet returns the contig at index, or an out-of-range error.
func (h *ContigHeader) TryGet(index int) (Contig, error) {
	if index < 0 || index >= len(h.contigs) {
		return Contig{}, errors.E(errors.Invalid, "contig.TryGet: index out of range:", index)
	}
	return h.contigs[index], nil
}

// TryGetIndexByStr resolves a contig name or alias to its index.
func (h *ContigHeader) TryGetIndexByStr(s string) (int, error) {
	idx, ok := h.byName[s]
	if !ok {
		return 0, errors.E(errors.NotExist, "contig.TryGetIndexByStr: unknown contig:", s)
	}
	return idx, nil
}

// First returns the index of the first contig, or an error if the header is
// empty.
func (h *ContigHeader) First() (int, error) {
	if len(h.contigs) == 0 {
		return 0, errors.E(errors.Precondition, "contig.First: empty header")
	}
	return 0, nil
}

// Next returns the index n contigs after i, saturating at the last contig
// (it does not wrap: a session exploring reference 0..N never cycles back
// to contig 0 by repeatedly pressing "next contig").
func (h *ContigHeader) Next(i, n int) int {
	j := i + n
	if j >= len(h.contigs) {
		return len(h.contigs) - 1
	}
	if j < 0 {
		return 0
	}
	return j
}

// Previous returns the index n contigs before i, saturating at the first
// contig.
func (h *ContigHeader) Previous(i, n int) int {
	return h.Next(i, -n)
}

// CytobandIsLoaded reports whether contig i's cytoband has been filled in.
func (h *ContigHeader) CytobandIsLoaded(i int) bool {
	if i < 0 || i >= len(h.contigs) {
		return false
	}
	return h.contigs[i].cytoLoaded
}

// TryUpdateCytoband fills in contig i's cytoband slot in place.
func (h *ContigHeader) TryUpdateCytoband(i int, cb []Cytoband) error {
	if i < 0 || i >= len(h.contigs) {
		return errors.E(errors.Invalid, "contig.TryUpdateCytoband: index out of range:", i)
	}
	sort.Slice(cb, func(a, b int) bool { return cb[a].Start < cb[b].Start })
	h.contigs[i].cytoband = cb
	h.contigs[i].cytoLoaded = true
	return nil
}
