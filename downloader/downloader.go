// Package downloader builds a local, embedded SQLite cache of a genome
// assembly's track data, per spec.md §4.11: a well-known UCSC assembly's
// relational tables are mirrored straight from MariaDB; an accession-style
// assembly's tracks are fetched from its hub description and converted
// from BigBed into the same table shapes.
package downloader

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/jmoiron/sqlx"

	"github.com/grailbio/gaze/internal/gazelog"
	"github.com/grailbio/gaze/trackservice"
)

// AssemblyKind distinguishes the two reference shapes a download targets.
type AssemblyKind int

const (
	// KnownAssembly is a well-known UCSC assembly (hg19, hg38, ...) served
	// by a relational MariaDB mirror.
	KnownAssembly AssemblyKind = iota
	// Accession is a GenArk-style accession (GCF_.../GCA_...) served via an
	// assembly hub of flat files (2bit/BigBed).
	Accession
)

// Target describes what to download and where from.
type Target struct {
	Kind AssemblyKind

	// Name is the assembly name ("hg38") for KnownAssembly, or the
	// accession ("GCF_000005845.2") for Accession.
	Name string

	// MySQLDSN is the upstream mirror's DSN, used only for KnownAssembly.
	MySQLDSN string

	// HubURL is the assembly hub's hub.txt URL, used only for Accession.
	HubURL string
}

// Download populates cacheDir/tracks.sqlite with Target's track data, per
// spec.md §4.11. Re-running Download against an existing cache file is not
// idempotent on upstream content: files are reused by name with no
// revalidation, a known limitation of the underlying protocol.
func Download(ctx context.Context, target Target, cacheDir string) error {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return errors.E(errors.IO, err, "downloader.Download: creating cache dir", cacheDir)
	}
	dbPath := filepath.Join(cacheDir, "tracks.sqlite")
	dst, err := OpenCache(dbPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	switch target.Kind {
	case KnownAssembly:
		return downloadKnownAssembly(ctx, target, dst)
	case Accession:
		return downloadAccession(ctx, target, cacheDir, dst)
	default:
		return errors.E(errors.Invalid, "downloader.Download: unknown assembly kind")
	}
}

func downloadKnownAssembly(ctx context.Context, target Target, dst *sqlx.DB) error {
	src, err := OpenMySQL(target.MySQLDSN)
	if err != nil {
		return err
	}
	defer src.Close()

	geneTrackTable, err := choosePreferredMirrorTrack(ctx, src)
	if err != nil {
		return err
	}
	gazelog.Infof("downloader: mirroring %s from %s using gene track %s", target.Name, target.MySQLDSN, geneTrackTable)
	return TransferMirrorAssembly(ctx, src, dst, geneTrackTable)
}

// choosePreferredMirrorTrack picks the first of trackservice.PreferredTrackNames
// present as a table on the upstream mirror.
func choosePreferredMirrorTrack(ctx context.Context, src *sqlx.DB) (string, error) {
	for _, name := range trackservice.PreferredTrackNames {
		var count int
		err := src.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?", name)
		if err != nil {
			return "", errors.E(errors.IO, err, "downloader.choosePreferredMirrorTrack: checking", name)
		}
		if count > 0 {
			return name, nil
		}
	}
	return "", errors.E(errors.NotExist, "downloader.choosePreferredMirrorTrack: no preferred gene track table found")
}

func downloadAccession(ctx context.Context, target Target, cacheDir string, dst *sqlx.DB) error {
	hub, err := FetchHub(ctx, target.HubURL)
	if err != nil {
		return err
	}
	gazelog.Infof("downloader: parsed hub for %s (2bit=%s chromSizes=%s)", target.Name, hub.TwoBitURL, hub.ChromSizesURL)

	if hub.TwoBitURL != "" {
		if _, err := fetchToFile(ctx, cacheDir, "sequence.2bit", hub.TwoBitURL); err != nil {
			return err
		}
	}
	if hub.ChromSizesURL != "" {
		chromSizesPath, err := fetchToFile(ctx, cacheDir, "chrom.sizes", hub.ChromSizesURL)
		if err != nil {
			return err
		}
		if err := importChromSizes(ctx, chromSizesPath, dst); err != nil {
			return err
		}
	}

	for _, trackName := range hub.RelevantTracks(trackservice.PreferredTrackNames) {
		url := hub.TrackBigDataURL[trackName]
		path, err := fetchToFile(ctx, cacheDir, trackName+".bb", url)
		if err != nil {
			return err
		}
		if err := convertBigBedFile(ctx, path, dst, trackName); err != nil {
			return err
		}
	}
	return nil
}

func fetchToFile(ctx context.Context, dir, name, url string) (string, error) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		gazelog.Infof("downloader: reusing existing %s", path)
		return path, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return "", errors.E(errors.IO, err, "downloader.fetchToFile: creating", path)
	}
	defer f.Close()
	n, err := FetchFile(ctx, f, url)
	if err != nil {
		return "", err
	}
	gazelog.Infof("downloader: fetched %s (%d bytes) -> %s", url, n, path)
	return path, nil
}

func convertBigBedFile(ctx context.Context, path string, dst *sqlx.DB, tableName string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.E(errors.IO, err, "downloader.convertBigBedFile: opening", path)
	}
	defer f.Close()
	return ConvertBigBedToSQL(ctx, f, dst, tableName, nil)
}

// importChromSizes loads a plain "name\tlength" file (the flat-file
// equivalent of the mirror path's chromInfo table) into a chromInfo table.
func importChromSizes(ctx context.Context, path string, dst *sqlx.DB) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.E(errors.IO, err, "downloader.importChromSizes: opening", path)
	}
	defer f.Close()

	tx, err := dst.BeginTxx(ctx, nil)
	if err != nil {
		return errors.E(errors.IO, err, "downloader.importChromSizes: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS chromInfo"); err != nil {
		return errors.E(errors.IO, err, "downloader.importChromSizes: drop chromInfo")
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE chromInfo (chrom TEXT, size INTEGER)"); err != nil {
		return errors.E(errors.IO, err, "downloader.importChromSizes: create chromInfo")
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		chrom := fields[0]
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO chromInfo (chrom, size) VALUES (?, ?)", chrom, size); err != nil {
			return errors.E(errors.IO, err, "downloader.importChromSizes: inserting", chrom)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.E(errors.IO, err, "downloader.importChromSizes: scanning", path)
	}
	return tx.Commit()
}
