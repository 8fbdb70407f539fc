// Package localbackend implements trackservice.Service over an embedded
// SQLite file written by package downloader, using
// github.com/mattn/go-sqlite3 through sqlx — the same pairing
// zymatik-com/nucleo uses for its own local variant cache. Queries are
// textually identical to sqlbackend's modulo dialect quoting, since the
// downloader mirrors the upstream schema verbatim.
package localbackend

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/gaze/contig"
	"github.com/grailbio/gaze/track"
	"github.com/grailbio/gaze/trackservice"
)

// Backend is the local-cache TrackService, backed by a single SQLite
// connection (spec.md §4.11's "on-disk layout": one file per reference).
type Backend struct {
	db    *sqlx.DB
	cache *trackservice.Cache
}

// Exists reports whether a local cache file is present for path — used by
// callers deciding whether to prefer Open over sqlbackend.Open, per
// spec.md §4.4's "selected preferentially when its file exists".
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Open opens the SQLite cache file at path. The pool is capped at a single
// connection: SQLite serializes writers anyway and this backend only ever
// reads, but the downloader that populates the same file runs as a
// separate process, so a single shared *sql.DB keeps behavior predictable.
func Open(path string) (*Backend, error) {
	db, err := sqlx.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, errors.E(errors.IO, err, "localbackend.Open: opening", path)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.E(errors.IO, err, "localbackend.Open: pinging", path)
	}
	return &Backend{db: db, cache: trackservice.NewCache()}, nil
}

var _ trackservice.Service = (*Backend)(nil)

// Close releases the connection.
func (b *Backend) Close() error { return b.db.Close() }

// GetAllContigs enumerates contigs from chromInfo, chromosome-aware
// sorted per spec.md §4.4.
func (b *Backend) GetAllContigs(ctx context.Context) ([]trackservice.ContigInfo, error) {
	var rows []struct {
		Chrom string `db:"chrom"`
		Size  int64  `db:"size"`
	}
	if err := b.db.SelectContext(ctx, &rows, `SELECT chrom, size FROM chromInfo`); err != nil {
		return nil, errors.E(errors.IO, err, "localbackend.GetAllContigs: querying chromInfo")
	}
	out := make([]trackservice.ContigInfo, len(rows))
	for i, r := range rows {
		out[i] = trackservice.ContigInfo{Name: r.Chrom, Length: r.Size}
	}
	trackservice.SortContigs(out)
	return out, nil
}

// GetCytoband returns cytoBandIdeo rows for contig ci, translated to
// 1-based inclusive.
func (b *Backend) GetCytoband(ctx context.Context, header *contig.ContigHeader, ci int) ([]contig.Cytoband, bool, error) {
	c, err := header.TryGet(ci)
	if err != nil {
		return nil, false, errors.E(errors.Invalid, err, "localbackend.GetCytoband")
	}
	var rows []struct {
		ChromStart int64  `db:"chromStart"`
		ChromEnd   int64  `db:"chromEnd"`
		Name       string `db:"name"`
		GieStain   string `db:"gieStain"`
	}
	err = b.db.SelectContext(ctx, &rows,
		`SELECT chromStart, chromEnd, name, gieStain FROM cytoBandIdeo WHERE chrom = ?`, c.Name)
	if err != nil {
		return nil, false, errors.E(errors.IO, err, "localbackend.GetCytoband: querying cytoBandIdeo for", c.Name)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	out := make([]contig.Cytoband, len(rows))
	for i, r := range rows {
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

// GetPreferredTrackName picks the first of trackservice.PreferredTrackNames
// present as a table in the cache file.
func (b *Backend) GetPreferredTrackName(ctx context.Context) (string, bool, error) {
	if name, known, some := b.cache.PreferredTrackName(); known {
		return name, some, nil
	}
	for _, name := range trackservice.PreferredTrackNames {
		var count int
		err := b.db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
		if err != nil {
			return "", false, errors.E(errors.IO, err, "localbackend.GetPreferredTrackName: checking table", name)
		}
		if count > 0 {
			b.cache.SetPreferredTrackName(name)
			return name, true, nil
		}
	}
	b.cache.SetNoPreferredTrackName()
	return "", false, nil
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

// geneRowWithChrom extends trackservice.GeneRow with the chrom column.
type geneRowWithChrom struct {
	trackservice.GeneRow
	Chrom string `db:"chrom"`
}

// QueryGeneName resolves a gene by symbol.
func (b *Backend) QueryGeneName(ctx context.Context, header *contig.ContigHeader, name string) (track.Gene, error) {
	if ci, ok := b.cache.GeneContig(name); ok {
		if t, ok := b.cache.Track(ci); ok {
			return t.GetGeneByName(name)
		}
	}
	trackName, some, err := b.GetPreferredTrackName(ctx)
	if err != nil {
		return track.Gene{}, err
	}
	if !some {
		return track.Gene{}, errors.E(errors.NotExist, "localbackend.QueryGeneName: no gene track available")
	}
	var row geneRowWithChrom
	query := fmt.Sprintf(`SELECT name, name2, chrom, strand, txStart, txEnd, cdsStart, cdsEnd, exonStarts, exonEnds
		FROM %s WHERE name2 = ? OR name = ? LIMIT 1`, trackName)
	if err := b.db.GetContext(ctx, &row, query, name, name); err != nil {
		return track.Gene{}, errors.E(errors.NotExist, err, "localbackend.QueryGeneName: gene not found:", name)
	}
	ci, err := header.TryGetIndexByStr(row.Chrom)
	if err != nil {
		return track.Gene{}, errors.E(errors.NotExist, err, "localbackend.QueryGeneName: unknown contig for gene", name)
	}
	b.cache.PutGeneContig(name, ci)
	return row.GeneRow.ToGene(ci)
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

func (b *Backend) ensureGeneTrack(ctx context.Context, header *contig.ContigHeader, ci int) (*track.GeneTrack, error) {
	if t, ok := b.cache.Track(ci); ok {
		return t, nil
	}
	c, err := header.TryGet(ci)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "localbackend: resolving contig", ci)
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
	var rows []geneRowWithChrom
	query := fmt.Sprintf(`SELECT name, name2, chrom, strand, txStart, txEnd, cdsStart, cdsEnd, exonStarts, exonEnds
		FROM %s WHERE chrom = ?`, trackName)
	if err := b.db.SelectContext(ctx, &rows, query, c.Name); err != nil {
		return nil, errors.E(errors.IO, err, "localbackend: querying", trackName, "for", c.Name)
	}
	plain := make([]trackservice.GeneRow, len(rows))
	for i, r := range rows {
		plain[i] = r.GeneRow
	}
	genes := trackservice.GeneRowsToGenes(plain, ci)
	t := track.NewGeneTrack(genes, ci, 0, 1<<62)
	b.cache.PutTrack(ci, t)
	return t, nil
}
