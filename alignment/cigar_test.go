package alignment

import (
	"testing"

	"github.com/grailbio/gaze/refseq"
)

func modKinds(c RenderingContext) []ModifierKind {
	var ks []ModifierKind
	for _, m := range c.Modifiers {
		ks = append(ks, m.Kind)
	}
	return ks
}

// Scenario 1: CIGAR -> contexts, forward strand, mismatches known.
func TestBuildRenderingContextsScenario1(t *testing.T) {
	ref := refseq.Sequence{ContigIndex: 0, Start: 10, Bases: []byte("AATG")}
	ctxs := BuildRenderingContexts(10, []CigarOp{{OpMatch, 3}}, []byte("ATT"), false, ref, true)
	if len(ctxs) != 1 {
		t.Fatalf("len(ctxs) = %d, want 1", len(ctxs))
	}
	c := ctxs[0]
	if c.Start != 10 || c.End != 12 || c.Kind != KindMatch {
		t.Fatalf("context = %+v, want Match[10,12]", c)
	}
	if len(c.Modifiers) != 2 {
		t.Fatalf("modifiers = %+v, want 2", c.Modifiers)
	}
	if c.Modifiers[0].Kind != ModMismatch || c.Modifiers[0].QueryPos != 2 || c.Modifiers[0].Base != 'T' {
		t.Errorf("modifiers[0] = %+v, want Mismatch(2,'T')", c.Modifiers[0])
	}
	if c.Modifiers[1].Kind != ModForward {
		t.Errorf("modifiers[1] = %+v, want Forward", c.Modifiers[1])
	}
}

// Scenario 2: CIGAR with deletion, reverse.
func TestBuildRenderingContextsScenario2(t *testing.T) {
	ctxs := BuildRenderingContexts(10, []CigarOp{{OpMatch, 3}, {OpDeletion, 2}, {OpMatch, 3}}, []byte("AAATTT"), true, refseq.Sequence{}, false)
	if len(ctxs) != 3 {
		t.Fatalf("len(ctxs) = %d, want 3: %+v", len(ctxs), ctxs)
	}
	if ctxs[0].Start != 10 || ctxs[0].End != 12 || ctxs[0].Kind != KindMatch {
		t.Errorf("ctxs[0] = %+v, want Match[10,12]", ctxs[0])
	}
	if !ctxs[0].HasModifier(ModReverse) {
		t.Errorf("ctxs[0] should carry Reverse (first context, reverse strand)")
	}
	if ctxs[1].Start != 13 || ctxs[1].End != 14 || ctxs[1].Kind != KindDeletion {
		t.Errorf("ctxs[1] = %+v, want Deletion[13,14]", ctxs[1])
	}
	if len(ctxs[1].Modifiers) != 0 {
		t.Errorf("ctxs[1].Modifiers = %+v, want none", ctxs[1].Modifiers)
	}
	if ctxs[2].Start != 15 || ctxs[2].End != 17 || ctxs[2].Kind != KindMatch {
		t.Errorf("ctxs[2] = %+v, want Match[15,17]", ctxs[2])
	}
	if len(ctxs[2].Modifiers) != 0 {
		t.Errorf("ctxs[2].Modifiers = %+v, want none", ctxs[2].Modifiers)
	}
}

// Scenario 3: soft clip at reference edge, reverse.
func TestBuildRenderingContextsScenario3(t *testing.T) {
	ctxs := BuildRenderingContexts(10, []CigarOp{{OpSoftClip, 2}, {OpMatch, 3}, {OpSoftClip, 1}}, []byte("GGATTC"), true, refseq.Sequence{}, false)
	if len(ctxs) != 4 {
		t.Fatalf("len(ctxs) = %d, want 4: %+v", len(ctxs), ctxs)
	}
	want := []RenderingContext{
		{Start: 8, End: 8, Kind: KindSoftClip, SoftClipBase: 'G'},
		{Start: 9, End: 9, Kind: KindSoftClip, SoftClipBase: 'G'},
		{Start: 10, End: 12, Kind: KindMatch},
		{Start: 13, End: 13, Kind: KindSoftClip, SoftClipBase: 'C'},
	}
	for i, w := range want {
		got := ctxs[i]
		if got.Start != w.Start || got.End != w.End || got.Kind != w.Kind || got.SoftClipBase != w.SoftClipBase {
			t.Errorf("ctxs[%d] = %+v, want %+v", i, got, w)
		}
	}
	if !ctxs[0].HasModifier(ModReverse) {
		t.Errorf("ctxs[0] should carry Reverse (first context)")
	}
	for i := 1; i < len(ctxs); i++ {
		if ctxs[i].HasModifier(ModReverse) || ctxs[i].HasModifier(ModForward) {
			t.Errorf("ctxs[%d] should not carry a strand modifier", i)
		}
	}
}

func TestBuildRenderingContextsEmptyCigar(t *testing.T) {
	ctxs := BuildRenderingContexts(10, nil, nil, false, refseq.Sequence{}, false)
	if len(ctxs) != 0 {
		t.Errorf("expected no contexts for empty CIGAR, got %+v", ctxs)
	}
}

func TestBuildRenderingContextsSoftClipDroppedBeforeCoordinate1(t *testing.T) {
	ctxs := BuildRenderingContexts(2, []CigarOp{{OpSoftClip, 5}, {OpMatch, 2}}, []byte("AAAAAGG"), false, refseq.Sequence{}, false)
	// Only positions >= 1 survive: refStart-L+i = 2-5+i = i-3, i in [0,5)
	// -> -3,-2,-1,0,1: only i=4 (pos=1) survives.
	var clips int
	for _, c := range ctxs {
		if c.Kind == KindSoftClip {
			clips++
		}
	}
	if clips != 1 {
		t.Errorf("expected 1 surviving soft-clip context, got %d: %+v", clips, ctxs)
	}
}

func TestBuildRenderingContextsTrailingInsertionDropped(t *testing.T) {
	ctxs := BuildRenderingContexts(10, []CigarOp{{OpMatch, 3}, {OpInsertion, 2}}, []byte("AAAGG"), false, refseq.Sequence{}, false)
	if len(ctxs) != 1 {
		t.Fatalf("len(ctxs) = %d, want 1 (insertion has nothing to attach to)", len(ctxs))
	}
	if ctxs[0].HasModifier(ModInsertion) {
		t.Errorf("trailing insertion should have been dropped, not attached")
	}
}

func TestBuildRenderingContextsInsertionAttachesToFollowingContext(t *testing.T) {
	ctxs := BuildRenderingContexts(10, []CigarOp{{OpMatch, 2}, {OpInsertion, 3}, {OpMatch, 2}}, []byte("AAGGGAA"), false, refseq.Sequence{}, false)
	if len(ctxs) != 2 {
		t.Fatalf("len(ctxs) = %d, want 2", len(ctxs))
	}
	if !ctxs[1].HasModifier(ModInsertion) {
		t.Errorf("ctxs[1] should carry the Insertion modifier")
	}
	if ctxs[1].Modifiers[0].Kind != ModInsertion || ctxs[1].Modifiers[0].InsertionLen != 3 {
		t.Errorf("ctxs[1].Modifiers[0] = %+v, want Insertion(3) at head", ctxs[1].Modifiers[0])
	}
}
