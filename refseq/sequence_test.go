package refseq

import "testing"

func TestSequenceBaseAt(t *testing.T) {
	s := Sequence{ContigIndex: 0, Start: 10, Bases: []byte("AATG")}
	if b, ok := s.BaseAt(10); !ok || b != 'A' {
		t.Errorf("BaseAt(10) = %c, %v", b, ok)
	}
	if b, ok := s.BaseAt(13); !ok || b != 'G' {
		t.Errorf("BaseAt(13) = %c, %v", b, ok)
	}
	if _, ok := s.BaseAt(9); ok {
		t.Errorf("BaseAt(9) should miss (before start)")
	}
	if _, ok := s.BaseAt(14); ok {
		t.Errorf("BaseAt(14) should miss (past end)")
	}
}

func TestSequenceEqualsIgnoreCase(t *testing.T) {
	s := Sequence{ContigIndex: 0, Start: 10, Bases: []byte("aAtG")}
	if !s.EqualsIgnoreCase(10, 'a') || !s.EqualsIgnoreCase(10, 'A') {
		t.Errorf("expected case-insensitive match at pos 10")
	}
	if s.EqualsIgnoreCase(11, 'T') {
		t.Errorf("pos 11 is 'A', should not match T")
	}
	if s.EqualsIgnoreCase(13, 'N') {
		t.Errorf("N must never compare equal")
	}
}

func TestSequenceHasCompleteData(t *testing.T) {
	s := Sequence{ContigIndex: 1, Start: 100, Bases: make([]byte, 50)}
	if !s.HasCompleteData(1, 110, 140) {
		t.Errorf("expected complete data within bounds")
	}
	if s.HasCompleteData(1, 10, 200) {
		t.Errorf("expected incomplete data outside bounds")
	}
	if s.HasCompleteData(2, 110, 140) {
		t.Errorf("different contig must not be complete")
	}
}
