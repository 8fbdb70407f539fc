package downloader

import (
	"reflect"
	"testing"
)

func TestBlocksToExons(t *testing.T) {
	// Two-exon transcript starting at chromStart=100: blocks at offsets
	// 0 and 50 from chromStart, sizes 20 and 30.
	exonStarts, exonEnds, cdsStart, cdsEnd, err := BlocksToExons(100, "20,30,", "0,50,")
	if err != nil {
		t.Fatalf("BlocksToExons: %v", err)
	}
	wantStarts := []int{100, 150}
	wantEnds := []int{120, 180}
	if !reflect.DeepEqual(exonStarts, wantStarts) {
		t.Errorf("exonStarts = %v, want %v", exonStarts, wantStarts)
	}
	if !reflect.DeepEqual(exonEnds, wantEnds) {
		t.Errorf("exonEnds = %v, want %v", exonEnds, wantEnds)
	}
	if cdsStart != 100 {
		t.Errorf("cdsStart = %d, want 100", cdsStart)
	}
	if cdsEnd != 180 {
		t.Errorf("cdsEnd = %d, want 180", cdsEnd)
	}
}

func TestBlocksToExonsMismatchedLengths(t *testing.T) {
	if _, _, _, _, err := BlocksToExons(0, "10,20,", "0,"); err == nil {
		t.Errorf("expected an error for mismatched blockSizes/chromStarts lengths")
	}
}

func TestBlocksToExonsNoBlocks(t *testing.T) {
	if _, _, _, _, err := BlocksToExons(0, "", ""); err == nil {
		t.Errorf("expected an error when there are no blocks")
	}
}

func TestFormatCSVIntsRoundTrips(t *testing.T) {
	vals := []int{100, 150, 200}
	csv := FormatCSVInts(vals)
	got, err := parseCSVInts(csv)
	if err != nil {
		t.Fatalf("parseCSVInts: %v", err)
	}
	if !reflect.DeepEqual(got, vals) {
		t.Errorf("round trip = %v, want %v", got, vals)
	}
}
