package track

import "testing"

// rangeFeature is a minimal GenomeInterval implementation for testing
// Track[T] independent of Gene.
type rangeFeature struct {
	start, end int
}

func (r rangeFeature) IntervalStart() int { return r.start }
func (r rangeFeature) IntervalEnd() int   { return r.end }

func TestTrackGetFeatureAt(t *testing.T) {
	tr := NewTrack([]rangeFeature{{100, 200}, {300, 400}}, 0, 1, 1000)
	if f, ok := tr.GetFeatureAt(150); !ok || f.start != 100 {
		t.Errorf("GetFeatureAt(150) = %+v, %v", f, ok)
	}
	if _, ok := tr.GetFeatureAt(250); ok {
		t.Errorf("GetFeatureAt(250) should miss")
	}
}

func TestTrackOverlappingFeaturesYieldNone(t *testing.T) {
	tr := NewTrack([]rangeFeature{{100, 300}, {200, 400}}, 0, 1, 1000)
	if _, ok := tr.GetFeatureAt(250); ok {
		t.Errorf("overlapping features at pos 250 must yield no unique feature")
	}
}

func TestTrackHasCompleteData(t *testing.T) {
	tr := NewTrack([]rangeFeature{{100, 200}}, 0, 50, 500)
	if !tr.HasCompleteData(0, 100, 200) {
		t.Errorf("expected complete data within loaded bounds")
	}
	if tr.HasCompleteData(0, 10, 600) {
		t.Errorf("expected incomplete data outside loaded bounds")
	}
	if tr.HasCompleteData(1, 100, 200) {
		t.Errorf("same range on a different contig must not read as complete")
	}
}

func TestTrackKFeaturesAfterBefore(t *testing.T) {
	tr := NewTrack([]rangeFeature{{10, 20}, {30, 40}, {50, 60}}, 0, 1, 1000)
	f, err := tr.GetKFeaturesAfter(25, 1)
	if err != nil || f.start != 30 {
		t.Errorf("GetKFeaturesAfter(25,1) = %+v, %v", f, err)
	}
	f, err = tr.GetKFeaturesAfter(25, 2)
	if err != nil || f.start != 50 {
		t.Errorf("GetKFeaturesAfter(25,2) = %+v, %v", f, err)
	}
	if _, err := tr.GetKFeaturesAfter(25, 3); err == nil {
		t.Errorf("GetKFeaturesAfter(25,3): expected error, fewer than 3 remain")
	}
	f, err = tr.GetKFeaturesBefore(45, 1)
	if err != nil || f.start != 30 {
		t.Errorf("GetKFeaturesBefore(45,1) = %+v, %v", f, err)
	}
	f, err = tr.GetKFeaturesBefore(45, 2)
	if err != nil || f.start != 10 {
		t.Errorf("GetKFeaturesBefore(45,2) = %+v, %v", f, err)
	}
}

func TestTrackSaturatingKFeatures(t *testing.T) {
	tr := NewTrack([]rangeFeature{{10, 20}, {30, 40}}, 0, 1, 1000)
	f, err := tr.GetSaturatingKFeaturesAfter(1000, 5)
	if err != nil || f.start != 30 {
		t.Errorf("GetSaturatingKFeaturesAfter clamp = %+v, %v", f, err)
	}
	f, err = tr.GetSaturatingKFeaturesBefore(0, 5)
	if err != nil || f.start != 10 {
		t.Errorf("GetSaturatingKFeaturesBefore clamp = %+v, %v", f, err)
	}
}

func TestTrackOverlappingQuery(t *testing.T) {
	tr := NewTrack([]rangeFeature{{10, 20}, {15, 25}, {100, 200}}, 0, 1, 1000)
	hits := tr.GetFeaturesOverlapping(12, 17)
	if len(hits) != 2 {
		t.Errorf("GetFeaturesOverlapping(12,17) = %v, want 2 hits", hits)
	}
}

// TestGeneTrackScenario mirrors spec.md §8 scenario 4.
func TestGeneTrackScenario(t *testing.T) {
	gene1 := Gene{Name: "gene1", TxStart: 2, TxEnd: 10, HasExons: true, ExonStarts: []int{2, 8}, ExonEnds: []int{5, 10}}
	gene2 := Gene{Name: "gene2", TxStart: 21, TxEnd: 30}
	gene3 := Gene{Name: "gene3", TxStart: 41, TxEnd: 50, HasExons: true, ExonStarts: []int{41}, ExonEnds: []int{50}}

	gt := NewGeneTrack([]Gene{gene1, gene2, gene3}, 0, 1, 1000)

	if f, ok := gt.GetFeatureAt(5); !ok || f.Name != "gene1" {
		t.Errorf("GetFeatureAt(5) = %+v, %v, want gene1", f, ok)
	}
	if _, ok := gt.GetFeatureAt(1); ok {
		t.Errorf("GetFeatureAt(1) should miss")
	}

	f, err := gt.GetKFeaturesAfter(2, 2)
	if err != nil || f.Name != "gene2" {
		t.Errorf("GetKFeaturesAfter(2,2) = %+v, %v, want gene2", f, err)
	}

	ex, err := gt.GetKExonsAfter(35, 1)
	if err != nil || ex.Start != 41 {
		t.Errorf("GetKExonsAfter(35,1).Start = %d, %v, want 41", ex.Start, err)
	}

	ex, err = gt.GetKExonsBefore(51, 2)
	if err != nil || ex.Start != 8 {
		t.Errorf("GetKExonsBefore(51,2).Start = %d, %v, want 8", ex.Start, err)
	}

	if _, err := gt.GetGeneByName("gene2"); err != nil {
		t.Errorf("GetGeneByName(gene2): %v", err)
	}
	if _, err := gt.GetGeneByName("nope"); err == nil {
		t.Errorf("GetGeneByName(nope): expected NotFound")
	}
}

func TestGeneValidate(t *testing.T) {
	bad := Gene{Name: "bad", TxStart: 10, TxEnd: 20, HasExons: true, ExonStarts: []int{5}, ExonEnds: []int{15}}
	if err := bad.Validate(); err == nil {
		t.Errorf("expected validation error for tx_start after exon start")
	}
	good := Gene{Name: "good", TxStart: 1, TxEnd: 20, HasExons: true, ExonStarts: []int{5, 12}, ExonEnds: []int{10, 15}}
	if err := good.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}
