// Package sqlbackend implements trackservice.Service against a read-only
// remote relational mirror of the upstream track tables, reached via
// github.com/go-sql-driver/mysql through sqlx for ergonomic struct
// scanning — the same driver/wrapper pairing pbenner/gonetics uses for
// its own UCSC-mirror access.
package sqlbackend

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/gaze/contig"
	"github.com/grailbio/gaze/track"
	"github.com/grailbio/gaze/trackservice"
)

// maxOpenConns caps the pool at 5, per spec.md §4.4's remote SQL backend
// contract ("connection count <= 5").
const maxOpenConns = 5

// Backend is the remote-mirror TrackService. One Backend is opened per
// reference: the MySQL URL encodes the reference name as the database
// name.
type Backend struct {
	db    *sqlx.DB
	cache *trackservice.Cache
}

// Open dials host using user/pass, selecting database reference (the
// convention spec.md §4.4 describes: "the MySQL URL encodes the reference
// name as database name").
func Open(host, user, pass, reference string) (*Backend, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", user, pass, host, reference)
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, errors.E(errors.IO, err, "sqlbackend.Open: connecting to", reference)
	}
	db.SetMaxOpenConns(maxOpenConns)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.E(errors.IO, err, "sqlbackend.Open: pinging", reference)
	}
	return &Backend{db: db, cache: trackservice.NewCache()}, nil
}

var _ trackservice.Service = (*Backend)(nil)

// Close releases the connection pool.
func (b *Backend) Close() error { return b.db.Close() }

// GetAllContigs enumerates contigs from chromInfo, chromosome-aware
// sorted per spec.md §4.4.
func (b *Backend) GetAllContigs(ctx context.Context) ([]trackservice.ContigInfo, error) {
	var rows []struct {
		Chrom string `db:"chrom"`
		Size  int64  `db:"size"`
	}
	if err := b.db.SelectContext(ctx, &rows, `SELECT chrom, size FROM chromInfo`); err != nil {
		return nil, errors.E(errors.IO, err, "sqlbackend.GetAllContigs: querying chromInfo")
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
		return nil, false, errors.E(errors.Invalid, err, "sqlbackend.GetCytoband")
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
		return nil, false, errors.E(errors.IO, err, "sqlbackend.GetCytoband: querying cytoBandIdeo for", c.Name)
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
// present as a table in the connected database.
func (b *Backend) GetPreferredTrackName(ctx context.Context) (string, bool, error) {
	if name, known, some := b.cache.PreferredTrackName(); known {
		return name, some, nil
	}
	for _, name := range trackservice.PreferredTrackNames {
		var count int
		err := b.db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`, name)
		if err != nil {
			return "", false, errors.E(errors.IO, err, "sqlbackend.GetPreferredTrackName: checking table", name)
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
// intersecting region, using the cached per-contig Track<Gene> when
// available.
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

// QueryGeneName resolves a gene by symbol, searching the cache first, then
// scanning a fresh row from the preferred track table.
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
		return track.Gene{}, errors.E(errors.NotExist, "sqlbackend.QueryGeneName: no gene track available")
	}
	var row geneRowWithChrom
	query := fmt.Sprintf(`SELECT name, name2, chrom, strand, txStart, txEnd, cdsStart, cdsEnd, exonStarts, exonEnds
		FROM %s WHERE name2 = ? OR name = ? LIMIT 1`, trackName)
	if err := b.db.GetContext(ctx, &row, query, name, name); err != nil {
		return track.Gene{}, errors.E(errors.NotExist, err, "sqlbackend.QueryGeneName: gene not found:", name)
	}
	ci, err := header.TryGetIndexByStr(row.Chrom)
	if err != nil {
		return track.Gene{}, errors.E(errors.NotExist, err, "sqlbackend.QueryGeneName: unknown contig for gene", name)
	}
	b.cache.PutGeneContig(name, ci)
	return row.GeneRow.ToGene(ci)
}

// QueryKGenesAfter returns the k-th gene (saturating) whose txStart is
// >= pos on contig ci, counting by ascending txStart over the contig's
// cached gene track.
func (b *Backend) QueryKGenesAfter(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.Gene, error) {
	t, err := b.ensureGeneTrack(ctx, header, ci)
	if err != nil {
		return track.Gene{}, err
	}
	return t.GetSaturatingKFeaturesAfter(int(pos), k)
}

// QueryKGenesBefore is QueryKGenesAfter's mirror: the k-th gene whose
// txEnd is < pos, counting back by descending txEnd.
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

// geneRowWithChrom extends trackservice.GeneRow with the chrom column,
// needed to resolve which contig a by-name gene lookup landed on.
type geneRowWithChrom struct {
	trackservice.GeneRow
	Chrom string `db:"chrom"`
}

// ensureGeneTrack fetches and caches contig ci's gene track if not already
// resolved, then returns the cached *track.GeneTrack.
func (b *Backend) ensureGeneTrack(ctx context.Context, header *contig.ContigHeader, ci int) (*track.GeneTrack, error) {
	if t, ok := b.cache.Track(ci); ok {
		return t, nil
	}
	c, err := header.TryGet(ci)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "sqlbackend: resolving contig", ci)
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
		return nil, errors.E(errors.IO, err, "sqlbackend: querying", trackName, "for", c.Name)
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
