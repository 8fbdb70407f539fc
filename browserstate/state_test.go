package browserstate

import (
	"context"
	"testing"

	"github.com/grailbio/gaze/contig"
	"github.com/grailbio/gaze/refseq"
	"github.com/grailbio/gaze/track"
	"github.com/grailbio/gaze/trackservice"
	"github.com/grailbio/gaze/viewport"
)

// fakeSeqRepo always succeeds, returning a region covering exactly what
// was asked for.
type fakeSeqRepo struct{ calls int }

func (f *fakeSeqRepo) Fetch(contigName string, contigIndex, start, end int) (refseq.Sequence, error) {
	f.calls++
	return refseq.Sequence{ContigIndex: contigIndex, Start: start, Bases: make([]byte, end-start+1)}, nil
}

// fakeTracks implements trackservice.Service, serving one contig's genes
// from an in-memory slice and tracking how many times each RPC-shaped
// method was called.
type fakeTracks struct {
	genes        []track.Gene
	cytobands    []contig.Cytoband
	overlapCalls int
	cytoCalls    int
}

func (f *fakeTracks) GetAllContigs(ctx context.Context) ([]trackservice.ContigInfo, error) {
	return nil, nil
}

func (f *fakeTracks) GetCytoband(ctx context.Context, header *contig.ContigHeader, ci int) ([]contig.Cytoband, bool, error) {
	f.cytoCalls++
	if f.cytobands == nil {
		return nil, false, nil
	}
	return f.cytobands, true, nil
}

func (f *fakeTracks) GetPreferredTrackName(ctx context.Context) (string, bool, error) {
	return "ncbiRefSeqSelect", true, nil
}

func (f *fakeTracks) QueryGenesOverlapping(ctx context.Context, header *contig.ContigHeader, region contig.Region) ([]track.Gene, error) {
	f.overlapCalls++
	return f.genes, nil
}

func (f *fakeTracks) QueryGeneCovering(ctx context.Context, header *contig.ContigHeader, ci int, pos int64) (track.Gene, bool, error) {
	return track.Gene{}, false, nil
}

func (f *fakeTracks) QueryGeneName(ctx context.Context, header *contig.ContigHeader, name string) (track.Gene, error) {
	return track.Gene{}, nil
}

func (f *fakeTracks) QueryKGenesAfter(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.Gene, error) {
	return track.Gene{}, nil
}

func (f *fakeTracks) QueryKGenesBefore(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.Gene, error) {
	return track.Gene{}, nil
}

func (f *fakeTracks) QueryKExonsAfter(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.SubGeneFeature, error) {
	return track.SubGeneFeature{}, nil
}

func (f *fakeTracks) QueryKExonsBefore(ctx context.Context, header *contig.ContigHeader, ci int, pos int64, k int) (track.SubGeneFeature, error) {
	return track.SubGeneFeature{}, nil
}

var _ trackservice.Service = (*fakeTracks)(nil)

func newTestState(t *testing.T) (*State, *fakeSeqRepo, *fakeTracks, *viewport.Viewport) {
	t.Helper()
	header, err := contig.NewContigHeader([]contig.Contig{
		contig.NewContig("chr1", nil, 1000000, "ncbiRefSeqSelect"),
	})
	if err != nil {
		t.Fatalf("NewContigHeader: %v", err)
	}
	seqRepo := &fakeSeqRepo{}
	tracks := &fakeTracks{
		genes:     []track.Gene{{Name: "TP53", TxStart: 100, TxEnd: 200, ContigIndex: 0}},
		cytobands: []contig.Cytoband{{Start: 1, End: 1000000, Name: "p1", Stain: contig.Gneg}},
	}
	s := New(header, seqRepo, nil, tracks)
	s.SeqContigNames[0] = "chr1"
	v := viewport.New(0, 1, 80)
	return s, seqRepo, tracks, v
}

// TestIdempotentFetch mirrors spec.md §8 scenario 6: applying the
// data-requirement engine twice without moving the viewport loads data
// once; the second pass emits only the always-present cytoband message,
// and applying it loads nothing.
func TestIdempotentFetch(t *testing.T) {
	s, seqRepo, tracks, v := newTestState(t)
	ctx := context.Background()

	msgs := s.RequiredMessages(v, 1000000)
	if len(msgs) == 0 {
		t.Fatalf("expected at least one required message on first call")
	}
	didLoad := s.Apply(ctx, msgs)
	for i, loaded := range didLoad {
		if !loaded {
			t.Errorf("message %d (%s): expected did_load=true on first apply", i, kindName(msgs[i].Kind))
		}
	}

	msgs2 := s.RequiredMessages(v, 1000000)
	if len(msgs2) != 1 || msgs2[0].Kind != RequireCytobands {
		t.Errorf("RequiredMessages after a satisfied fetch = %+v, want only RequireCytobands", msgs2)
	}
	for i, loaded := range s.Apply(ctx, msgs2) {
		if loaded {
			t.Errorf("message %d (%s): expected did_load=false on second apply", i, kindName(msgs2[i].Kind))
		}
	}

	if seqRepo.calls != 1 {
		t.Errorf("sequence repo called %d times, want 1", seqRepo.calls)
	}
	if tracks.overlapCalls != 1 {
		t.Errorf("QueryGenesOverlapping called %d times, want 1", tracks.overlapCalls)
	}
	if tracks.cytoCalls != 1 {
		t.Errorf("GetCytoband called %d times, want 1", tracks.cytoCalls)
	}
}

// TestMovingViewportReloadsFeatures checks that a viewport move outside the
// cached feature region re-triggers a fetch, unlike the idempotent case.
func TestMovingViewportReloadsFeatures(t *testing.T) {
	s, _, tracks, v := newTestState(t)
	ctx := context.Background()

	s.Apply(ctx, s.RequiredMessages(v, 1000000))
	if tracks.overlapCalls != 1 {
		t.Fatalf("setup: overlapCalls = %d, want 1", tracks.overlapCalls)
	}

	v.SetMiddle(999000, 1000000)
	msgs := s.RequiredMessages(v, 1000000)
	foundFeatures := false
	for _, m := range msgs {
		if m.Kind == RequireFeatures {
			foundFeatures = true
		}
	}
	if !foundFeatures {
		t.Errorf("expected a RequireFeatures message after moving outside the cached region")
	}
	s.Apply(ctx, msgs)
	if tracks.overlapCalls != 2 {
		t.Errorf("overlapCalls after moving = %d, want 2", tracks.overlapCalls)
	}
}

// TestApplyRetainsDataOnError checks that a failing fetch leaves
// previously held data untouched rather than clearing it, per spec.md §7.
func TestApplyRetainsDataOnError(t *testing.T) {
	s, _, tracks, v := newTestState(t)
	ctx := context.Background()

	s.Apply(ctx, s.RequiredMessages(v, 1000000))
	held := s.Track

	tracks.genes = nil
	failingTracks := &erroringTracks{fakeTracks: tracks}
	s.Tracks = failingTracks

	v.SetMiddle(999000, 1000000)
	msgs := s.RequiredMessages(v, 1000000)
	didLoad := s.Apply(ctx, msgs)
	for i, loaded := range didLoad {
		// Only the track service fails; the sequence repo still serves its
		// message.
		want := msgs[i].Kind == RequireSequences
		if loaded != want {
			t.Errorf("message %d (%s): did_load=%v, want %v", i, kindName(msgs[i].Kind), loaded, want)
		}
	}
	if s.Track != held {
		t.Errorf("State.Track changed despite a failed fetch; previously held data must be retained")
	}
}

// erroringTracks wraps fakeTracks but fails every gene/cytoband query, to
// exercise Apply's retain-on-error path.
type erroringTracks struct {
	*fakeTracks
}

func (e *erroringTracks) QueryGenesOverlapping(ctx context.Context, header *contig.ContigHeader, region contig.Region) ([]track.Gene, error) {
	return nil, errFake
}

func (e *erroringTracks) GetCytoband(ctx context.Context, header *contig.ContigHeader, ci int) ([]contig.Cytoband, bool, error) {
	return nil, false, errFake
}

var errFake = &fakeError{"fake backend failure"}

type fakeError struct{ msg string }

func (e *fakeError) Error() string { return e.msg }

var _ trackservice.Service = (*erroringTracks)(nil)
