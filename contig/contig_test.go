package contig

import "testing"

func testHeader(t *testing.T) *ContigHeader {
	t.Helper()
	h, err := NewContigHeader([]Contig{
		NewContig("chr1", []string{"1", "NC_000001.11"}, 248956422, "chr1"),
		NewContig("chr2", []string{"2"}, 242193529, "chr2"),
		NewContig("chrM", nil, 16569, ""),
	})
	if err != nil {
		t.Fatalf("NewContigHeader: %v", err)
	}
	return h
}

func TestContigHeaderLookup(t *testing.T) {
	h := testHeader(t)
	for _, tc := range []struct {
		name string
		want int
	}{
		{"chr1", 0},
		{"1", 0},
		{"NC_000001.11", 0},
		{"chr2", 1},
		{"chrM", 2},
	} {
		idx, err := h.TryGetIndexByStr(tc.name)
		if err != nil {
			t.Errorf("TryGetIndexByStr(%q): %v", tc.name, err)
			continue
		}
		if idx != tc.want {
			t.Errorf("TryGetIndexByStr(%q) = %d, want %d", tc.name, idx, tc.want)
		}
	}
	if _, err := h.TryGetIndexByStr("bogus"); err == nil {
		t.Errorf("TryGetIndexByStr(bogus): expected error")
	}
}

func TestContigHeaderDuplicateRejected(t *testing.T) {
	_, err := NewContigHeader([]Contig{
		NewContig("chr1", []string{"1"}, 100, ""),
		NewContig("chr2", []string{"1"}, 100, ""),
	})
	if err == nil {
		t.Fatalf("expected duplicate-alias error")
	}
}

func TestContigHeaderNextPreviousSaturate(t *testing.T) {
	h := testHeader(t)
	if got := h.Next(0, 1); got != 1 {
		t.Errorf("Next(0,1) = %d, want 1", got)
	}
	if got := h.Next(2, 1); got != 2 {
		t.Errorf("Next(2,1) = %d, want 2 (saturate)", got)
	}
	if got := h.Previous(0, 1); got != 0 {
		t.Errorf("Previous(0,1) = %d, want 0 (saturate)", got)
	}
	if got := h.Previous(2, 5); got != 0 {
		t.Errorf("Previous(2,5) = %d, want 0 (saturate)", got)
	}
}

func TestContigHeaderFirstEmpty(t *testing.T) {
	h, err := NewContigHeader(nil)
	if err != nil {
		t.Fatalf("NewContigHeader(nil): %v", err)
	}
	if _, err := h.First(); err == nil {
		t.Errorf("First() on empty header: expected error")
	}
}

func TestCytobandRoundTrip(t *testing.T) {
	h := testHeader(t)
	if h.CytobandIsLoaded(0) {
		t.Fatalf("cytoband should start unloaded")
	}
	cb := []Cytoband{{Start: 1, End: 100, Name: "p1", Stain: Gneg}}
	if err := h.TryUpdateCytoband(0, cb); err != nil {
		t.Fatalf("TryUpdateCytoband: %v", err)
	}
	if !h.CytobandIsLoaded(0) {
		t.Fatalf("cytoband should be loaded after update")
	}
	c, err := h.TryGet(0)
	if err != nil {
		t.Fatalf("TryGet: %v", err)
	}
	if len(c.Cytobands()) != 1 {
		t.Fatalf("Cytobands() = %v, want 1 entry", c.Cytobands())
	}
}

func TestRegionContainsAndOverlaps(t *testing.T) {
	outer := Region{ContigIndex: 0, Start: 100, End: 200}
	inner := Region{ContigIndex: 0, Start: 120, End: 150}
	if !outer.Contains(inner) {
		t.Errorf("expected outer to contain inner")
	}
	if outer.Contains(Region{ContigIndex: 1, Start: 120, End: 150}) {
		t.Errorf("different contig must not be contained")
	}
	disjoint := Region{ContigIndex: 0, Start: 500, End: 600}
	if outer.Overlaps(disjoint) {
		t.Errorf("expected no overlap")
	}
}

func TestRegionClampedToContigLength(t *testing.T) {
	r := NewRegion(NewFocus(0, 5), 10, 100)
	if r.Start != 1 {
		t.Errorf("Start = %d, want 1 (clamped)", r.Start)
	}
	r2 := NewRegion(NewFocus(0, 95), 10, 100)
	if r2.End != 100 {
		t.Errorf("End = %d, want 100 (clamped)", r2.End)
	}
}
