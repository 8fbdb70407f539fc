package downloader

import (
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// parseCSVInts parses a trailing-comma-separated list of integers, the
// format BigBed blockSizes/chromStarts and the relational mirror's
// exonStarts/exonEnds columns both use ("2,8,15,").
func parseCSVInts(s string) ([]int, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ",")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.E(errors.Invalid, "downloader.parseCSVInts: bad integer", p, err)
		}
		out[i] = n
	}
	return out, nil
}

// BlocksToExons reconstructs exon coordinates from a BigBed gene track's
// block encoding (chromStart/blockSizes/chromStarts), per spec.md §4.11:
//
//	exonStart[i] = chromStart + blockStart[i]
//	exonEnd[i]   = exonStart[i] + blockSize[i]
//
// cdsStart/cdsEnd are derived as the first exon's start and the last
// exon's end, matching how a BigBed gene track with no explicit thick
// bounds still yields a coding span covering the full transcript.
func BlocksToExons(chromStart int, blockSizesCSV, chromStartsCSV string) (exonStarts, exonEnds []int, cdsStart, cdsEnd int, err error) {
	blockSizes, err := parseCSVInts(blockSizesCSV)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	blockStarts, err := parseCSVInts(chromStartsCSV)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	if len(blockSizes) != len(blockStarts) {
		return nil, nil, 0, 0, errors.E(errors.Invalid, "downloader.BlocksToExons: blockSizes/chromStarts length mismatch")
	}
	if len(blockSizes) == 0 {
		return nil, nil, 0, 0, errors.E(errors.Invalid, "downloader.BlocksToExons: no blocks")
	}

	exonStarts = make([]int, len(blockSizes))
	exonEnds = make([]int, len(blockSizes))
	for i := range blockSizes {
		exonStarts[i] = chromStart + blockStarts[i]
		exonEnds[i] = exonStarts[i] + blockSizes[i]
	}
	cdsStart = exonStarts[0]
	cdsEnd = exonEnds[len(exonEnds)-1]
	return exonStarts, exonEnds, cdsStart, cdsEnd, nil
}

// FormatCSVInts is the inverse of parseCSVInts, used when writing
// reconstructed exon bounds back out as the comma-separated blob format
// the embedded cache's gene tables store them in.
func FormatCSVInts(vals []int) string {
	var b strings.Builder
	for _, v := range vals {
		b.WriteString(strconv.Itoa(v))
		b.WriteByte(',')
	}
	return b.String()
}
