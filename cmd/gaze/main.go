// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
gaze is an interactive terminal genome browser: it renders a BAM file's
pileup, the underlying reference sequence, and gene/cytoband tracks over a
scrollable, zoomable viewport, resolving the track and sequence data
against either a well-known UCSC assembly, a remote UCSC-hosted genome or
assembly-hub accession, or a user-supplied indexed FASTA.
*/

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/grailbio/gaze/alignment"
	"github.com/grailbio/gaze/browserstate"
	"github.com/grailbio/gaze/contig"
	"github.com/grailbio/gaze/downloader"
	"github.com/grailbio/gaze/internal/gazelog"
	"github.com/grailbio/gaze/refseq"
	"github.com/grailbio/gaze/trackservice"
	"github.com/grailbio/gaze/trackservice/httpbackend"
	"github.com/grailbio/gaze/trackservice/localbackend"
	"github.com/grailbio/gaze/trackservice/sqlbackend"
	"github.com/grailbio/gaze/viewport"
)

var (
	region    = flag.String("r", "", "Region to focus on at startup: a gene symbol, \"contig:position\", or a bare position; required")
	reference = flag.String("g", "", "Reference identifier: a known assembly name (hg19, hg38), a remote UCSC genome or hub accession name, or a path to a user-provided indexed FASTA/2bit; required")

	cacheDir   = flag.String("cache-dir", defaultCacheDir(), "Directory holding the local per-reference SQLite track cache")
	ucscHost   = flag.String("ucsc-host", "genome-mysql.soe.ucsc.edu", "UCSC public MySQL mirror host, for known assemblies")
	ucscUser   = flag.String("ucsc-user", "genome", "MySQL user for the UCSC public mirror")
	ucscPass   = flag.String("ucsc-pass", "", "MySQL password for the UCSC public mirror (empty for the public anonymous account)")
	apiBaseURL = flag.String("api-base-url", "https://api.genome.ucsc.edu", "Base URL of the UCSC REST/JSON genome browser API, for remote-genome/accession references")
	hubBaseURL = flag.String("hub-base-url", "https://hgdownload.soe.ucsc.edu/hubs", "Base URL under which assembly-hub accession directories are found")

	bamIndexPath = flag.String("index", "", "BAM index path; defaults to bampath + \".bai\"")
)

// wellKnownAssemblies are addressed directly against the UCSC public
// relational mirror (sqlbackend), matching the downloader's
// downloadKnownAssembly path. Per spec.md's default-focus rule these are
// also the references that default to the gene symbol "TP53".
var wellKnownAssemblies = map[string]bool{
	"hg19": true,
	"hg38": true,
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".gaze-cache"
	}
	return filepath.Join(dir, "gaze")
}

func gazeUsage() {
	fmt.Printf("Usage: %s -r <region> -g <reference> [OPTIONS] bampath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func isAccession(reference string) bool {
	return strings.HasPrefix(reference, "GCA_") || strings.HasPrefix(reference, "GCF_")
}

// isUserFASTA reports whether reference names a file on disk rather than a
// UCSC-hosted identifier.
func isUserFASTA(reference string) bool {
	_, err := os.Stat(reference)
	return err == nil
}

func main() {
	flag.Usage = gazeUsage
	shutdown := grail.Init()
	defer shutdown()

	if *region == "" {
		log.Fatalf("-r <region> is required")
	}
	if *reference == "" {
		log.Fatalf("-g <reference> is required")
	}
	allArgs := flag.Args()
	if len(allArgs) < 1 {
		log.Fatalf("Missing positional argument (bampath required); please check flag syntax")
	}
	bamPath := allArgs[0]

	ctx := vcontext.Background()

	seqRepo, header, tracks, err := openReference(ctx, *reference)
	if err != nil {
		log.Fatalf("opening reference %q: %v", *reference, err)
	}

	indexPath := *bamIndexPath
	if indexPath == "" {
		indexPath = bamPath + ".bai"
	}
	alignRepo, err := alignment.NewRepositoryWithIndex(bamPath, indexPath)
	if err != nil {
		log.Fatalf("opening BAM %q: %v", bamPath, err)
	}

	state := browserstate.New(header, seqRepo, alignRepo, tracks)

	focus, err := resolveFocus(ctx, *region, *reference, header, tracks)
	if err != nil {
		log.Fatalf("resolving initial focus %q: %v", *region, err)
	}
	vp := viewport.New(focus.ContigIndex, int(focus.Position), 80)

	renderer := termRenderer{}
	input := termInput{}
	runLoop(ctx, state, vp, renderer, input)

	log.Debug.Printf("exiting")
}

// openReference classifies reference and returns the sequence repository,
// contig header, and TrackService (nil for a user-provided FASTA with no
// backing track data) to drive it, per spec.md §6's reference-identifier
// contract.
func openReference(ctx context.Context, reference string) (refseq.Repository, *contig.ContigHeader, trackservice.Service, error) {
	if isUserFASTA(reference) {
		fa, err := refseq.NewFASTARepository(reference)
		if err != nil {
			return nil, nil, nil, err
		}
		contigs, err := fa.Contigs()
		if err != nil {
			return nil, nil, nil, err
		}
		header, err := contig.NewContigHeader(contigs)
		if err != nil {
			return nil, nil, nil, err
		}
		return fa, header, nil, nil
	}

	localPath := filepath.Join(*cacheDir, reference, "tracks.sqlite")
	var tracks trackservice.Service
	if localbackend.Exists(localPath) {
		backend, err := localbackend.Open(localPath)
		if err != nil {
			return nil, nil, nil, err
		}
		tracks = backend
	} else if wellKnownAssemblies[reference] {
		backend, err := sqlbackend.Open(*ucscHost, *ucscUser, *ucscPass, reference)
		if err != nil {
			return nil, nil, nil, err
		}
		tracks = backend
	} else {
		accession := isAccession(reference)
		tracks = httpbackend.New(*apiBaseURL, reference, accession)
		// Warm the local cache in the background for next time; failure
		// here is non-fatal, the HTTP backend already serves the session.
		go warmLocalCache(ctx, reference, accession, localPath)
	}

	contigs, err := tracks.GetAllContigs(ctx)
	if err != nil {
		return nil, nil, nil, errors.E(err, "openReference: listing contigs for", reference)
	}
	headerContigs := make([]contig.Contig, len(contigs))
	for i, c := range contigs {
		headerContigs[i] = contig.NewContig(c.Name, nil, c.Length, c.Name)
	}
	header, err := contig.NewContigHeader(headerContigs)
	if err != nil {
		return nil, nil, nil, err
	}
	// TODO: downloader stages hub.TwoBitURL as "sequence.2bit", but no
	// 2bit reader exists in this tree yet to read it back; sequence
	// display for remote genomes falls back to nullSequenceRepository
	// until one is wired.
	seqRepo, err := remoteSequenceRepository(reference, header)
	if err != nil {
		return nil, nil, nil, err
	}
	return seqRepo, header, tracks, nil
}

// remoteSequenceRepository opens cacheDir/<reference>/sequence.fa as an
// indexed FASTA when that file exists, and otherwise returns a
// nullSequenceRepository. 2bit files, including the sequence.2bit the
// downloader stages, are not read.
func remoteSequenceRepository(reference string, header *contig.ContigHeader) (refseq.Repository, error) {
	fastaPath := filepath.Join(*cacheDir, reference, "sequence.fa")
	if _, err := os.Stat(fastaPath); err == nil {
		return refseq.NewFASTARepository(fastaPath)
	}
	return nullSequenceRepository{header: header}, nil
}

// nullSequenceRepository answers every fetch as fully absent. It lets the
// alignment pileup and track data render even when no base-level sequence
// is available yet for a remote reference (no 2bit reader is wired; see
// remoteSequenceRepository).
type nullSequenceRepository struct {
	header *contig.ContigHeader
}

func (nullSequenceRepository) Fetch(contigName string, contigIndex, start, end int) (refseq.Sequence, error) {
	return refseq.Sequence{ContigIndex: contigIndex, Start: start, Bases: nil}, nil
}

func warmLocalCache(ctx context.Context, reference string, accession bool, localPath string) {
	target := downloader.Target{Name: reference}
	if accession {
		target.Kind = downloader.Accession
		target.HubURL = fmt.Sprintf("%s/%s/hub.txt", *hubBaseURL, hubAccessionPath(reference))
	} else {
		target.Kind = downloader.KnownAssembly
		target.MySQLDSN = fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", *ucscUser, *ucscPass, *ucscHost, reference)
	}
	if err := downloader.Download(ctx, target, filepath.Dir(localPath)); err != nil {
		gazelog.Errorf("warmLocalCache: %s: %v", reference, err)
	}
}

// hubAccessionPath turns "GCF_000005845.2" into the
// "GCF/000/005/845/GCF_000005845.2" directory layout hgdownload.soe.ucsc.edu
// hubs use.
func hubAccessionPath(accession string) string {
	parts := strings.SplitN(accession, "_", 2)
	if len(parts) != 2 {
		return accession
	}
	prefix, digits := parts[0], parts[1]
	if i := strings.IndexByte(digits, '.'); i >= 0 {
		digits = digits[:i]
	}
	for len(digits) < 9 {
		digits = "0" + digits
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s", prefix, digits[0:3], digits[3:6], digits[6:9], accession)
}

// resolveFocus implements spec.md §6's region-string contract: region
// parses as "gene-symbol", "contig:position", or bare "position", falling
// back to defaultFocus's rule when none of those resolve.
func resolveFocus(ctx context.Context, region, reference string, header *contig.ContigHeader, tracks trackservice.Service) (contig.Focus, error) {
	if parsed, ok := parseExplicitRegion(region, header); ok {
		return parsed, nil
	}
	if tracks != nil {
		if gene, err := tracks.QueryGeneName(ctx, header, region); err == nil {
			return contig.NewFocus(gene.ContigIndex, int64(gene.TxStart)), nil
		}
	}
	return defaultFocus(ctx, reference, header, tracks)
}

// parseExplicitRegion handles the "contig:position" and bare "position"
// forms, leaving gene-symbol lookups to the caller's TrackService.
func parseExplicitRegion(region string, header *contig.ContigHeader) (contig.Focus, bool) {
	contigPart, posPart := region, ""
	if i := strings.LastIndexByte(region, ':'); i >= 0 {
		contigPart, posPart = region[:i], region[i+1:]
	}
	if posPart == "" {
		// Bare "position": only valid if contigPart itself parses as an
		// integer, applied against the first contig.
		if pos, err := strconv.ParseInt(contigPart, 10, 64); err == nil {
			return contig.NewFocus(0, pos), true
		}
		return contig.Focus{}, false
	}
	pos, err := strconv.ParseInt(posPart, 10, 64)
	if err != nil {
		return contig.Focus{}, false
	}
	ci, err := header.TryGetIndexByStr(contigPart)
	if err != nil {
		return contig.Focus{}, false
	}
	return contig.NewFocus(ci, pos), true
}

// defaultFocus resolves spec.md §6's fallback rule when -r names neither a
// parseable coordinate nor a resolvable gene symbol: TP53 for well-known
// human references, the first gene on the first contig for other known
// references, and contig 0 position 1 for a track-service-less FASTA.
func defaultFocus(ctx context.Context, reference string, header *contig.ContigHeader, tracks trackservice.Service) (contig.Focus, error) {
	if tracks == nil {
		ci, err := header.First()
		if err != nil {
			return contig.Focus{}, err
		}
		return contig.NewFocus(ci, 1), nil
	}
	if wellKnownAssemblies[reference] {
		if gene, err := tracks.QueryGeneName(ctx, header, "TP53"); err == nil {
			return contig.NewFocus(gene.ContigIndex, int64(gene.TxStart)), nil
		}
	}
	ci, err := header.First()
	if err != nil {
		return contig.Focus{}, err
	}
	if gene, err := tracks.QueryKGenesAfter(ctx, header, ci, 0, 1); err == nil {
		return contig.NewFocus(gene.ContigIndex, int64(gene.TxStart)), nil
	}
	return contig.Focus{}, errors.E(errors.Invalid, "defaultFocus: no gene or contig to focus on for", reference)
}
