// Package httpbackend implements trackservice.Service over a UCSC-style
// REST/JSON genome browser API, grounded on
// inodb-vibe-vep/internal/cache/rest_loader.go's http.Client-with-timeout,
// fmt.Sprintf-url, client.Get idiom — the only HTTP/JSON genomic client
// in the retrieved pack.
package httpbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/gaze/contig"
	"github.com/grailbio/gaze/track"
	"github.com/grailbio/gaze/trackservice"
)

const requestTimeout = 30 * time.Second

// Backend is the HTTP/JSON TrackService, talking to a single base URL for
// one reference.
type Backend struct {
	baseURL   string
	reference string
	client    *http.Client
	cache     *trackservice.Cache

	// hubURL is filled in lazily for "accession" style references, which
	// require an extra indirection: fetch a hub description, then carry
	// its URL in every subsequent request.
	hubURL     string
	isAccession bool
}

// New builds a Backend against baseURL for reference. isAccession marks
// references addressed by accession (e.g. GCA_/GCF_ assembly ids), which
// require the hub-URL indirection spec.md §4.4 describes.
func New(baseURL, reference string, isAccession bool) *Backend {
	return &Backend{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		reference:   reference,
		client:      &http.Client{Timeout: requestTimeout},
		cache:       trackservice.NewCache(),
		isAccession: isAccession,
	}
}

var _ trackservice.Service = (*Backend)(nil)

// hubDescriptionResponse is the wire shape of the hub-description
// indirection endpoint for accession references.
type hubDescriptionResponse struct {
	HubURL string `json:"hubUrl"`
}

// resolveHub fetches and caches the hub URL for accession references. A
// no-op for ordinary named references.
func (b *Backend) resolveHub(ctx context.Context) error {
	if !b.isAccession || b.hubURL != "" {
		return nil
	}
	var resp hubDescriptionResponse
	url := fmt.Sprintf("%s/hubs/%s", b.baseURL, b.reference)
	if err := b.getJSON(ctx, url, &resp); err != nil {
		return errors.E(errors.IO, err, "httpbackend.resolveHub: fetching hub description for", b.reference)
	}
	if resp.HubURL == "" {
		return errors.E(errors.NotExist, "httpbackend.resolveHub: empty hubUrl for", b.reference)
	}
	b.hubURL = resp.HubURL
	return nil
}

func (b *Backend) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.E(errors.IO, fmt.Sprintf("httpbackend: unexpected status %d from %s", resp.StatusCode, url))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// trackParam returns the query-string addition carrying the resolved hub
// URL, for accession references, or "" otherwise.
func (b *Backend) trackParam() string {
	if b.isAccession && b.hubURL != "" {
		return "&hubUrl=" + b.hubURL
	}
	return ""
}

type listChromosomesResponse struct {
	Chromosomes map[string]struct {
		Length int64 `json:"length"`
	} `json:"chromosomes"`
}

// GetAllContigs calls the list-chromosomes endpoint, chromosome-aware
// sorted per spec.md §4.4.
func (b *Backend) GetAllContigs(ctx context.Context) ([]trackservice.ContigInfo, error) {
	if err := b.resolveHub(ctx); err != nil {
		return nil, err
	}
	var resp listChromosomesResponse
	url := fmt.Sprintf("%s/list/chromosomes?genome=%s%s", b.baseURL, b.reference, b.trackParam())
	if err := b.getJSON(ctx, url, &resp); err != nil {
		return nil, errors.E(errors.IO, err, "httpbackend.GetAllContigs: listing chromosomes for", b.reference)
	}
	out := make([]trackservice.ContigInfo, 0, len(resp.Chromosomes))
	for name, c := range resp.Chromosomes {
		out = append(out, trackservice.ContigInfo{Name: name, Length: c.Length})
	}
	trackservice.SortContigs(out)
	return out, nil
}

type cytobandResponse struct {
	CytoBandIdeo []struct {
		ChromStart int64  `json:"chromStart"`
		ChromEnd   int64  `json:"chromEnd"`
		Name       string `json:"name"`
		GieStain   string `json:"gieStain"`
	} `json:"cytoBandIdeo"`
}

// GetCytoband fetches the cytoBandIdeo track for one chromosome.
func (b *Backend) GetCytoband(ctx context.Context, header *contig.ContigHeader, ci int) ([]contig.Cytoband, bool, error) {
	c, err := header.TryGet(ci)
	if err != nil {
		return nil, false, errors.E(errors.Invalid, err, "httpbackend.GetCytoband")
	}
	if err := b.resolveHub(ctx); err != nil {
		return nil, false, err
	}
	var resp cytobandResponse
	url := fmt.Sprintf("%s/getData/track?genome=%s&track=cytoBandIdeo&chrom=%s%s",
		b.baseURL, b.reference, c.Name, b.trackParam())
	if err := b.getJSON(ctx, url, &resp); err != nil {
		return nil, false, errors.E(errors.IO, err, "httpbackend.GetCytoband: fetching cytoband for", c.Name)
	}
	if len(resp.CytoBandIdeo) == 0 {
		return nil, false, nil
	}
	out := make([]contig.Cytoband, len(resp.CytoBandIdeo))
	for i, r := range resp.CytoBandIdeo {
		out[i] = contig.Cytoband{
			Start: int32(r.ChromStart) + 1,
			End:   int32(r.ChromEnd),
			Name:  r.Name,
			Stain: parseStain(r.GieStain),
		}
	}
	return out, true, nil
}

func parseStain(s string) contig.Stain {
	switch s {
	case "gneg":
		return contig.Gneg
	case "gpos25":
		return contig.Gpos25
	case "gpos50":
		return contig.Gpos50
	case "gpos75":
		return contig.Gpos75
	case "gpos100":
		return contig.Gpos100
	case "acen":
		return contig.Acen
	case "gvar":
		return contig.Gvar
	case "stalk":
		return contig.Stalk
	default:
		return contig.Other
	}
}

type listTracksResponse struct {
	Tracks map[string]struct{} `json:"tracks"`
}

// GetPreferredTrackName calls the list-tracks endpoint and picks the first
// of trackservice.PreferredTrackNames present.
func (b *Backend) GetPreferredTrackName(ctx context.Context) (string, bool, error) {
	if name, known, some := b.cache.PreferredTrackName(); known {
		return name, some, nil
	}
	if err := b.resolveHub(ctx); err != nil {
		return "", false, err
	}
	var resp listTracksResponse
	url := fmt.Sprintf("%s/list/tracks?genome=%s%s", b.baseURL, b.reference, b.trackParam())
	if err := b.getJSON(ctx, url, &resp); err != nil {
		return "", false, errors.E(errors.IO, err, "httpbackend.GetPreferredTrackName: listing tracks for", b.reference)
	}
	for _, name := range trackservice.PreferredTrackNames {
		if _, ok := resp.Tracks[name]; ok {
			b.cache.SetPreferredTrackName(name)
			return name, true, nil
		}
	}
	b.cache.SetNoPreferredTrackName()
	return "", false, nil
}

// Three gene-row wire schemas, tried in order per spec.md §4.4 ("Response
// shapes for gene rows vary across assemblies; attempt deserialisation
// against three schemas in order and accept the first that succeeds").

// schemaA is the modern camelCase genePred-style shape.
type schemaA struct {
	Name       string `json:"name"`
	Name2      string `json:"name2"`
	Chrom      string `json:"chrom"`
	Strand     string `json:"strand"`
	TxStart    int64  `json:"txStart"`
	TxEnd      int64  `json:"txEnd"`
	CdsStart   int64  `json:"cdsStart"`
	CdsEnd     int64  `json:"cdsEnd"`
	ExonStarts string `json:"exonStarts"`
	ExonEnds   string `json:"exonEnds"`
}

func (s schemaA) valid() bool { return s.Chrom != "" }
func (s schemaA) row() trackservice.GeneRow {
	return trackservice.GeneRow{
		Name: s.Name, Name2: s.Name2, Chrom: s.Chrom, Strand: s.Strand,
		TxStart: s.TxStart, TxEnd: s.TxEnd, CdsStart: s.CdsStart, CdsEnd: s.CdsEnd,
		ExonStarts: s.ExonStarts, ExonEnds: s.ExonEnds,
	}
}

// schemaB is an older shape using "chromStart"/"chromEnd" for the
// transcription bounds instead of "txStart"/"txEnd", and numeric exon
// arrays instead of CSV strings.
type schemaB struct {
	GeneName   string  `json:"geneName"`
	GeneSymbol string  `json:"geneSymbol"`
	Chrom      string  `json:"chrom"`
	Strand     string  `json:"strand"`
	ChromStart int64   `json:"chromStart"`
	ChromEnd   int64   `json:"chromEnd"`
	ThickStart int64   `json:"thickStart"`
	ThickEnd   int64   `json:"thickEnd"`
	ExonStarts []int64 `json:"exonStarts"`
	ExonEnds   []int64 `json:"exonEnds"`
}

func (s schemaB) valid() bool { return s.Chrom != "" && s.GeneName != "" }
func (s schemaB) row() trackservice.GeneRow {
	return trackservice.GeneRow{
		Name: s.GeneName, Name2: s.GeneSymbol, Chrom: s.Chrom, Strand: s.Strand,
		TxStart: s.ChromStart, TxEnd: s.ChromEnd, CdsStart: s.ThickStart, CdsEnd: s.ThickEnd,
		ExonStarts: joinInt64CSV(s.ExonStarts), ExonEnds: joinInt64CSV(s.ExonEnds),
	}
}

// schemaC is a bigGenePred-flavored shape nesting coordinates under a
// "genePred" object.
type schemaC struct {
	Name      string `json:"name"`
	Chrom     string `json:"chrom"`
	GenePred  struct {
		Strand     string `json:"strand"`
		TxStart    int64  `json:"txStart"`
		TxEnd      int64  `json:"txEnd"`
		CdsStart   int64  `json:"cdsStart"`
		CdsEnd     int64  `json:"cdsEnd"`
		ExonStarts string `json:"exonStarts"`
		ExonEnds   string `json:"exonEnds"`
	} `json:"genePred"`
}

func (s schemaC) valid() bool { return s.Chrom != "" && s.GenePred.TxEnd != 0 }
func (s schemaC) row() trackservice.GeneRow {
	return trackservice.GeneRow{
		Name: s.Name, Name2: s.Name, Chrom: s.Chrom, Strand: s.GenePred.Strand,
		TxStart: s.GenePred.TxStart, TxEnd: s.GenePred.TxEnd,
		CdsStart: s.GenePred.CdsStart, CdsEnd: s.GenePred.CdsEnd,
		ExonStarts: s.GenePred.ExonStarts, ExonEnds: s.GenePred.ExonEnds,
	}
}

func joinInt64CSV(vs []int64) string {
	var sb strings.Builder
	for _, v := range vs {
		fmt.Fprintf(&sb, "%d,", v)
	}
	return sb.String()
}

// decodeGeneRows tries each of the three known gene-row schemas against
// raw, returning the first whose elements all parse as valid.
func decodeGeneRows(raw json.RawMessage) ([]trackservice.GeneRow, error) {
	if rows, ok := tryDecode[schemaA](raw); ok {
		return rows, nil
	}
	if rows, ok := tryDecode[schemaB](raw); ok {
		return rows, nil
	}
	if rows, ok := tryDecode[schemaC](raw); ok {
		return rows, nil
	}
	return nil, errors.E(errors.Invalid, "httpbackend: gene rows matched none of the three known schemas")
}

type rowSchema interface {
	valid() bool
	row() trackservice.GeneRow
}

func tryDecode[S rowSchema](raw json.RawMessage) ([]trackservice.GeneRow, bool) {
	var items []S
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil, false
	}
	rows := make([]trackservice.GeneRow, 0, len(items))
	for _, it := range items {
		if !it.valid() {
			return nil, false
		}
		rows = append(rows, it.row())
	}
	return rows, true
}

type trackDataResponse struct {
	TrackData json.RawMessage `json:"trackData"`
}

// fetchGeneRows fetches gene rows for one chromosome from trackName.
func (b *Backend) fetchGeneRows(ctx context.Context, trackName, chrom string) ([]trackservice.GeneRow, error) {
	if err := b.resolveHub(ctx); err != nil {
		return nil, err
	}
	var resp trackDataResponse
	url := fmt.Sprintf("%s/getData/track?genome=%s&track=%s&chrom=%s%s",
		b.baseURL, b.reference, trackName, chrom, b.trackParam())
	if err := b.getJSON(ctx, url, &resp); err != nil {
		return nil, errors.E(errors.IO, err, "httpbackend.fetchGeneRows: fetching", trackName, "for", chrom)
	}
	return decodeGeneRows(resp.TrackData)
}

func (b *Backend) ensureGeneTrack(ctx context.Context, header *contig.ContigHeader, ci int) (*track.GeneTrack, error) {
	if t, ok := b.cache.Track(ci); ok {
		return t, nil
	}
	c, err := header.TryGet(ci)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "httpbackend: resolving contig", ci)
	}
	trackName, some, err := b.GetPreferredTrackName(ctx)
	if err != nil {
		return nil, err
	}
	if !some {
		t := track.NewGeneTrack(nil, ci, 0, 0)
		b.cache.PutTrack(ci, t)
		return t, nil
	}
	rows, err := b.fetchGeneRows(ctx, trackName, c.Name)
	if err != nil {
		return nil, err
	}
	genes := trackservice.GeneRowsToGenes(rows, ci)
	t := track.NewGeneTrack(genes, ci, 0, 1<<62)
	b.cache.PutTrack(ci, t)
	return t, nil
}

// QueryGenesOverlapping returns every gene in the preferred track
// intersecting region.
func (b *Backend) QueryGenesOverlapping(ctx context.Context, header *contig.ContigHeader, region contig.Region) ([]track.Gene, error) {
	t, err := b.ensureGeneTrack(ctx, header, region.ContigIndex)
	if err != nil {
		return nil, err
	}
	return t.GetFeaturesOverlapping(int(region.Start), int(region.End)), nil
}

// QueryGeneCovering returns the gene covering pos on contig ci, if any.
func (b *Backend) QueryGeneCovering(ctx context.Context, header *contig.ContigHeader, ci int, pos int64) (track.Gene, bool, error) {
	t, err := b.ensureGeneTrack(ctx, header, ci)
	if err != nil {
		return track.Gene{}, false, err
	}
	g, ok := t.GetFeatureAt(int(pos))
	return g, ok, nil
}

// QueryGeneName resolves a gene by symbol, scanning every contig's cached
// track first, then every contig the header knows about (HTTP/JSON
// backends have no cross-chromosome gene index to query directly).
func (b *Backend) QueryGeneName(ctx context.Context, header *contig.ContigHeader, name string) (track.Gene, error) {
	if ci, ok := b.cache.GeneContig(name); ok {
		if t, ok := b.cache.Track(ci); ok {
			return t.GetGeneByName(name)
		}
	}
	for ci := 0; ci < header.Len(); ci++ {
		t, err := b.ensureGeneTrack(ctx, header, ci)
		if err != nil {
			continue
		}
		if g, err := t.GetGeneByName(name); err == nil {
			b.cache.PutGeneContig(name, ci)
			return g, nil
		}
	}
	return track.Gene{}, errors.E(errors.NotExist, "httpbackend.QueryGeneName: gene not found:", name)
}

// QueryKGenesAfter returns the k-th gene (saturating) after pos.
func (b *Backend) QueryKGenesAfter(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.Gene, error) {
	t, err := b.ensureGeneTrack(ctx, header, ci)
	if err != nil {
		return track.Gene{}, err
	}
	return t.GetSaturatingKFeaturesAfter(int(pos), k)
}

// QueryKGenesBefore is QueryKGenesAfter's mirror.
func (b *Backend) QueryKGenesBefore(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.Gene, error) {
	t, err := b.ensureGeneTrack(ctx, header, ci)
	if err != nil {
		return track.Gene{}, err
	}
	return t.GetSaturatingKFeaturesBefore(int(pos), k)
}

// QueryKExonsAfter is QueryKGenesAfter at exon granularity.
func (b *Backend) QueryKExonsAfter(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.SubGeneFeature, error) {
	t, err := b.ensureGeneTrack(ctx, header, ci)
	if err != nil {
		return track.SubGeneFeature{}, err
	}
	return t.GetSaturatingKExonsAfter(int(pos), k)
}

// QueryKExonsBefore is QueryKGenesBefore at exon granularity.
func (b *Backend) QueryKExonsBefore(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.SubGeneFeature, error) {
	t, err := b.ensureGeneTrack(ctx, header, ci)
	if err != nil {
		return track.SubGeneFeature{}, err
	}
	return t.GetSaturatingKExonsBefore(int(pos), k)
}
