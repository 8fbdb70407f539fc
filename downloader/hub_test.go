package downloader

import "testing"

const sampleHub = `hub GCF_000005845.2
shortLabel E. coli K-12
longLabel E. coli K-12 MG1655

genome GCF_000005845.2
twoBitPath GCF_000005845.2.2bit
chromSizes GCF_000005845.2.chrom.sizes
chromAliasBb GCF_000005845.2.chromAlias.bb

track ncbiRefSeq
bigDataUrl GCF_000005845.2.ncbiRefSeq.bb
shortLabel NCBI RefSeq

track cytoBandIdeo
bigDataUrl GCF_000005845.2.cytoBandIdeo.bb
shortLabel Cytoband
`

func TestParseHub(t *testing.T) {
	hubURL := "https://hgdownload.soe.ucsc.edu/hubs/GCF/000/005/845/GCF_000005845.2/hub.txt"
	h := ParseHub(hubURL, sampleHub)

	wantBase := "https://hgdownload.soe.ucsc.edu/hubs/GCF/000/005/845/GCF_000005845.2"
	if h.TwoBitURL != wantBase+"/GCF_000005845.2.2bit" {
		t.Errorf("TwoBitURL = %q", h.TwoBitURL)
	}
	if h.ChromSizesURL != wantBase+"/GCF_000005845.2.chrom.sizes" {
		t.Errorf("ChromSizesURL = %q", h.ChromSizesURL)
	}
	if h.ChromAliasURL != wantBase+"/GCF_000005845.2.chromAlias.bb" {
		t.Errorf("ChromAliasURL = %q", h.ChromAliasURL)
	}
	if got := h.TrackBigDataURL["ncbiRefSeq"]; got != wantBase+"/GCF_000005845.2.ncbiRefSeq.bb" {
		t.Errorf("TrackBigDataURL[ncbiRefSeq] = %q", got)
	}
	if got := h.TrackBigDataURL["cytoBandIdeo"]; got != wantBase+"/GCF_000005845.2.cytoBandIdeo.bb" {
		t.Errorf("TrackBigDataURL[cytoBandIdeo] = %q", got)
	}
}

func TestHubRelevantTracks(t *testing.T) {
	hubURL := "https://example.org/hub.txt"
	h := ParseHub(hubURL, sampleHub)
	rel := h.RelevantTracks([]string{"ncbiRefSeqSelect", "ncbiRefSeq"})
	found := map[string]bool{}
	for _, name := range rel {
		found[name] = true
	}
	if !found["ncbiRefSeq"] {
		t.Errorf("expected ncbiRefSeq in relevant tracks, got %v", rel)
	}
	if !found["cytoBandIdeo"] {
		t.Errorf("expected cytoBandIdeo in relevant tracks, got %v", rel)
	}
	if found["ncbiRefSeqSelect"] {
		t.Errorf("ncbiRefSeqSelect is not present in the hub and should not appear, got %v", rel)
	}
}
