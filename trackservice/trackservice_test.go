package trackservice

import (
	"testing"

	"github.com/grailbio/gaze/track"
)

func TestCacheTrackAndGeneIndex(t *testing.T) {
	c := NewCache()
	if _, ok := c.Track(0); ok {
		t.Fatalf("empty cache should have no track for contig 0")
	}
	if c.ContigQueried(0) {
		t.Fatalf("contig 0 should not be marked queried yet")
	}

	c.PutGeneContig("TP53", 0)
	if ci, ok := c.GeneContig("TP53"); !ok || ci != 0 {
		t.Errorf("GeneContig(TP53) = (%d,%v), want (0,true)", ci, ok)
	}
	if !c.GeneQueried("TP53") {
		t.Errorf("GeneQueried(TP53) should be true after PutGeneContig")
	}
	if c.GeneQueried("EGFR") {
		t.Errorf("GeneQueried(EGFR) should be false before any lookup")
	}
}

func TestCachePreferredTrackNameTriState(t *testing.T) {
	c := NewCache()
	if _, known, _ := c.PreferredTrackName(); known {
		t.Fatalf("fresh cache should report preferred track name unknown")
	}
	c.SetNoPreferredTrackName()
	if name, known, some := c.PreferredTrackName(); !known || some || name != "" {
		t.Errorf("after SetNoPreferredTrackName: got (%q,%v,%v), want (\"\",true,false)", name, known, some)
	}

	c2 := NewCache()
	c2.SetPreferredTrackName("ncbiRefSeqSelect")
	if name, known, some := c2.PreferredTrackName(); !known || !some || name != "ncbiRefSeqSelect" {
		t.Errorf("after SetPreferredTrackName: got (%q,%v,%v), want (\"ncbiRefSeqSelect\",true,true)", name, known, some)
	}
}

func TestSortContigsChromosomeAware(t *testing.T) {
	contigs := []ContigInfo{
		{Name: "chrY", Length: 57227415},
		{Name: "chr2", Length: 242193529},
		{Name: "chrM", Length: 16569},
		{Name: "chr1", Length: 248956422},
		{Name: "chrX", Length: 156040895},
		{Name: "chr10", Length: 133797422},
	}
	SortContigs(contigs)
	want := []string{"chr1", "chr2", "chr10", "chrX", "chrY", "chrM"}
	for i, name := range want {
		if contigs[i].Name != name {
			t.Fatalf("contigs[%d] = %s, want %s (full order: %v)", i, contigs[i].Name, name, contigs)
		}
	}
}

func TestSortContigsFallsBackToDescendingLength(t *testing.T) {
	contigs := []ContigInfo{
		{Name: "scaffold_3", Length: 100},
		{Name: "scaffold_1", Length: 500},
		{Name: "scaffold_2", Length: 300},
	}
	SortContigs(contigs)
	if contigs[0].Name != "scaffold_1" || contigs[2].Name != "scaffold_3" {
		t.Errorf("non-chromosome names should sort by descending length, got %v", contigs)
	}
}

func TestParseIntCSV(t *testing.T) {
	got, err := ParseIntCSV("100,200,300,")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{100, 200, 300}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	empty, err := ParseIntCSV("")
	if err != nil || empty != nil {
		t.Errorf("ParseIntCSV(\"\") = (%v,%v), want (nil,nil)", empty, err)
	}
}

func TestGeneRowToGeneCoordinateTranslation(t *testing.T) {
	row := GeneRow{
		Name: "NM_000546", Name2: "TP53", Chrom: "chr17", Strand: "-",
		TxStart: 7668401, TxEnd: 7687550, CdsStart: 7668401, CdsEnd: 7687490,
		ExonStarts: "7668401,7670609,", ExonEnds: "7669690,7670714,",
	}
	g, err := row.ToGene(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Name != "TP53" {
		t.Errorf("Name = %q, want TP53", g.Name)
	}
	if g.TxStart != 7668402 {
		t.Errorf("TxStart = %d, want 7668402 (external+1)", g.TxStart)
	}
	if g.TxEnd != 7687550 {
		t.Errorf("TxEnd = %d, want 7687550 (external unchanged)", g.TxEnd)
	}
	if len(g.ExonStarts) != 2 || g.ExonStarts[0] != 7668402 {
		t.Errorf("ExonStarts = %v, want [7668402 7670610]", g.ExonStarts)
	}
	if g.Strand != track.StrandMinus {
		t.Errorf("Strand = %v, want StrandMinus", g.Strand)
	}
}
