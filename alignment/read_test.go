package alignment

import (
	"testing"

	"github.com/grailbio/gaze/refseq"
)

func TestNewAlignedReadSpanAndClips(t *testing.T) {
	r := NewAlignedRead("r1", 10, []CigarOp{{OpSoftClip, 2}, {OpMatch, 3}, {OpSoftClip, 1}}, []byte("GGATTC"), true, 60, 0, 0, refseq.Sequence{}, false)
	if r.Start != 10 || r.End != 12 {
		t.Errorf("Start/End = %d/%d, want 10/12", r.Start, r.End)
	}
	if r.LeadingSoftClip != 2 || r.TrailingSoftClip != 1 {
		t.Errorf("clips = %d/%d, want 2/1", r.LeadingSoftClip, r.TrailingSoftClip)
	}
	if r.StackStart() != 8 || r.StackEnd() != 13 {
		t.Errorf("stacking span = [%d,%d], want [8,13]", r.StackStart(), r.StackEnd())
	}
}

func TestAlignedReadStackStartClampedToOne(t *testing.T) {
	r := NewAlignedRead("r1", 2, []CigarOp{{OpSoftClip, 5}, {OpMatch, 2}}, []byte("AAAAAGG"), false, 60, 0, 0, refseq.Sequence{}, false)
	if r.StackStart() != 1 {
		t.Errorf("StackStart() = %d, want 1 (clamped)", r.StackStart())
	}
}

func TestAlignedReadBaseAt(t *testing.T) {
	ref := refseq.Sequence{ContigIndex: 0, Start: 10, Bases: []byte("AATG")}
	r := NewAlignedRead("r1", 10, []CigarOp{{OpMatch, 3}}, []byte("ATT"), false, 60, 0, 0, ref, true)
	if base, mm, kind, ok := r.BaseAt(11); !ok || !mm || kind != KindMatch || base != 'T' {
		t.Errorf("BaseAt(11) = %c,%v,%v,%v, want 'T',true,Match,true", base, mm, kind, ok)
	}
	if base, mm, kind, ok := r.BaseAt(10); !ok || mm || kind != KindMatch || base != 'A' {
		t.Errorf("BaseAt(10) = %c,%v,%v,%v, want 'A',false,Match,true (true match still recovers its called base)", base, mm, kind, ok)
	}
	if _, _, _, ok := r.BaseAt(100); ok {
		t.Errorf("BaseAt(100) should miss")
	}
}
