package main

import (
	"testing"

	"github.com/grailbio/gaze/contig"
)

func testHeader(t *testing.T) *contig.ContigHeader {
	t.Helper()
	h, err := contig.NewContigHeader([]contig.Contig{
		contig.NewContig("chr1", nil, 1000, "chr1"),
		contig.NewContig("chr2", []string{"2"}, 2000, "chr2"),
	})
	if err != nil {
		t.Fatalf("NewContigHeader: %v", err)
	}
	return h
}

func TestParseExplicitRegionContigPosition(t *testing.T) {
	h := testHeader(t)
	focus, ok := parseExplicitRegion("chr2:150", h)
	if !ok {
		t.Fatalf("parseExplicitRegion(chr2:150) failed to parse")
	}
	if focus.ContigIndex != 1 || focus.Position != 150 {
		t.Errorf("focus = %+v, want {ContigIndex:1 Position:150}", focus)
	}
}

func TestParseExplicitRegionBarePosition(t *testing.T) {
	h := testHeader(t)
	focus, ok := parseExplicitRegion("42", h)
	if !ok {
		t.Fatalf("parseExplicitRegion(42) failed to parse")
	}
	if focus.ContigIndex != 0 || focus.Position != 42 {
		t.Errorf("focus = %+v, want {ContigIndex:0 Position:42}", focus)
	}
}

func TestParseExplicitRegionGeneSymbolNotParsed(t *testing.T) {
	h := testHeader(t)
	if _, ok := parseExplicitRegion("TP53", h); ok {
		t.Errorf("parseExplicitRegion(TP53) should not parse as a coordinate")
	}
}

func TestParseExplicitRegionUnknownContig(t *testing.T) {
	h := testHeader(t)
	if _, ok := parseExplicitRegion("chrX:10", h); ok {
		t.Errorf("parseExplicitRegion(chrX:10) should fail: chrX is not in the header")
	}
}

func TestIsAccession(t *testing.T) {
	cases := map[string]bool{
		"GCF_000005845.2": true,
		"GCA_000001405.15": true,
		"hg38":            false,
		"mm10":            false,
	}
	for ref, want := range cases {
		if got := isAccession(ref); got != want {
			t.Errorf("isAccession(%q) = %v, want %v", ref, got, want)
		}
	}
}

func TestHubAccessionPath(t *testing.T) {
	got := hubAccessionPath("GCF_000005845.2")
	want := "GCF/000/005/845/GCF_000005845.2"
	if got != want {
		t.Errorf("hubAccessionPath = %q, want %q", got, want)
	}
}
