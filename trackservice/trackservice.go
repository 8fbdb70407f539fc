// Package trackservice defines the polymorphic gene/cytoband/contig query
// contract and its per-instance cache. Three concrete backends
// (sqlbackend, localbackend, httpbackend) satisfy Service; dispatch
// between them happens once, when cmd/gaze's openReference constructs one,
// never by downcasting at call sites.
package trackservice

import (
	"context"

	"github.com/grailbio/gaze/contig"
	"github.com/grailbio/gaze/track"
)

// PreferredTrackNames is the fixed ranked list of gene-track tables; the
// first one present in a reference wins.
var PreferredTrackNames = []string{
	"ncbiRefSeqSelect",
	"ncbiRefSeqCurated",
	"ncbiRefSeq",
	"ncbiGene",
	"refGenes",
}

// ContigInfo is one row of get_all_contigs: a name and its length.
type ContigInfo struct {
	Name   string
	Length int64
}

// Service is the asynchronous, fallible gene/cytoband/contig query
// contract every backend satisfies. Every method is parameterised
// (implicitly, via the receiver's configured reference) by the reference
// identifier given at construction.
type Service interface {
	// GetAllContigs enumerates contigs with length for the configured
	// reference, chromosome-aware sorted when names look like "chr...".
	GetAllContigs(ctx context.Context) ([]ContigInfo, error)

	// GetCytoband returns the cytoband segments for a contig, or
	// (nil, false) if the reference has none.
	GetCytoband(ctx context.Context, header *contig.ContigHeader, ci int) ([]contig.Cytoband, bool, error)

	// GetPreferredTrackName resolves the best gene-track table per
	// PreferredTrackNames, or ("", false) if none is present.
	GetPreferredTrackName(ctx context.Context) (string, bool, error)

	// QueryGenesOverlapping returns every gene whose transcription
	// interval intersects region.
	QueryGenesOverlapping(ctx context.Context, header *contig.ContigHeader, region contig.Region) ([]track.Gene, error)

	// QueryGeneCovering returns the gene covering pos, if any.
	QueryGeneCovering(ctx context.Context, header *contig.ContigHeader, ci int, pos int64) (track.Gene, bool, error)

	// QueryGeneName returns the gene by symbol, failing with NotFound.
	QueryGeneName(ctx context.Context, header *contig.ContigHeader, name string) (track.Gene, error)

	// QueryKGenesAfter/Before return the k-th (saturating) gene whose
	// start is >= pos, counting by ascending start, or whose end is < pos,
	// counting back by descending end. Backends answer from the contig's
	// whole gene track, fetched once and cached.
	QueryKGenesAfter(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.Gene, error)
	QueryKGenesBefore(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.Gene, error)

	// QueryKExonsAfter/Before are the exon-granularity equivalents.
	QueryKExonsAfter(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.SubGeneFeature, error)
	QueryKExonsBefore(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.SubGeneFeature, error)
}

// preferredState is the tri-state cache of GetPreferredTrackName's result.
type preferredState int

const (
	preferredUnknown preferredState = iota
	preferredNone
	preferredSome
)

// Cache is the per-TrackService-instance cache: resolved gene tracks keyed
// by contig index, a queried-contigs set, a gene-name index, and the
// tri-state preferred-track-name resolution. All insertions are O(1);
// nothing is ever evicted (spec.md §4.4: bounded by contigs a session
// actually visits).
type Cache struct {
	tracks        map[int]*track.GeneTrack
	queriedContig map[int]bool

	geneIndex   map[string]int // gene name -> contig index
	queriedGene map[string]bool

	preferred     preferredState
	preferredName string
}

// NewCache builds an empty Cache.
func NewCache() *Cache {
	return &Cache{
		tracks:        make(map[int]*track.GeneTrack),
		queriedContig: make(map[int]bool),
		geneIndex:     make(map[string]int),
		queriedGene:   make(map[string]bool),
	}
}

// Track returns the cached GeneTrack for a contig, if resolved.
func (c *Cache) Track(ci int) (*track.GeneTrack, bool) {
	t, ok := c.tracks[ci]
	return t, ok
}

// PutTrack caches a resolved GeneTrack for a contig and indexes its genes
// by name.
func (c *Cache) PutTrack(ci int, t *track.GeneTrack) {
	c.tracks[ci] = t
	c.queriedContig[ci] = true
	for _, name := range t.Names() {
		c.PutGeneContig(name, ci)
	}
}

// MarkContigQueried records that ci was asked for, even if it yielded no
// track (so repeated navigation doesn't re-query a contig known to be
// empty).
func (c *Cache) MarkContigQueried(ci int) { c.queriedContig[ci] = true }

// ContigQueried reports whether ci has already been queried.
func (c *Cache) ContigQueried(ci int) bool { return c.queriedContig[ci] }

// PutGeneContig records which contig a gene name resolved to.
func (c *Cache) PutGeneContig(name string, ci int) {
	c.geneIndex[name] = ci
	c.queriedGene[name] = true
}

// GeneContig looks up which contig a gene name was previously resolved to.
func (c *Cache) GeneContig(name string) (int, bool) {
	ci, ok := c.geneIndex[name]
	return ci, ok
}

// GeneQueried reports whether name has already been looked up (whether or
// not it was found).
func (c *Cache) GeneQueried(name string) bool { return c.queriedGene[name] }

// PreferredTrackName returns the cached tri-state resolution: (name, true,
// true) if resolved-to-some; ("", true, false) if resolved-to-none; ("",
// false, false) if unknown.
func (c *Cache) PreferredTrackName() (name string, known bool, some bool) {
	switch c.preferred {
	case preferredSome:
		return c.preferredName, true, true
	case preferredNone:
		return "", true, false
	default:
		return "", false, false
	}
}

// SetPreferredTrackName resolves the tri-state cache to Some(name).
func (c *Cache) SetPreferredTrackName(name string) {
	c.preferred = preferredSome
	c.preferredName = name
}

// SetNoPreferredTrackName resolves the tri-state cache to None.
func (c *Cache) SetNoPreferredTrackName() {
	c.preferred = preferredNone
}
