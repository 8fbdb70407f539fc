// Package browserstate holds the held Alignment/Track/Sequence data for
// one browsing session and the data-requirement engine that keeps them in
// sync with the Viewport: on every user-driven viewport mutation it emits
// a fixed-order list of DataMessages, each applied idempotently against
// the repositories supplied at construction.
package browserstate

import (
	"context"

	"github.com/grailbio/gaze/alignment"
	"github.com/grailbio/gaze/contig"
	"github.com/grailbio/gaze/internal/gazelog"
	"github.com/grailbio/gaze/refseq"
	"github.com/grailbio/gaze/track"
	"github.com/grailbio/gaze/trackservice"
	"github.com/grailbio/gaze/viewport"
)

// MessageKind distinguishes the four DataMessage variants spec.md §3
// defines.
type MessageKind int

const (
	RequireSequences MessageKind = iota
	RequireAlignments
	RequireFeatures
	RequireCytobands
)

// DataMessage is a request that some kind of data be made complete over a
// region (RequireCytobands only carries a contig index, not a region).
type DataMessage struct {
	Kind   MessageKind
	Region contig.Region
}

// alignmentZoomThreshold is the zoom level above which the pileup is no
// longer rendered (and so no alignment fetch is issued); matching
// spec.md §4.9's "zoom is within the alignment-display threshold" clause
// with a concrete, documented cutoff.
const alignmentZoomThreshold = 100

// State holds the data a rendering frame reads, plus everything the
// data-requirement engine needs to decide what to (re)fetch.
type State struct {
	Header *contig.ContigHeader

	SequenceRepo refseq.Repository
	AlignmentRepo *alignment.Repository
	Tracks        trackservice.Service

	BAMContigNames map[int]string // contig index -> name in the BAM header
	SeqContigNames map[int]string // contig index -> name in the FASTA/2bit

	Sequence  refseq.Sequence
	haveSeq   bool
	Alignment *alignment.Alignment
	Track     *track.GeneTrack

	Filters []alignment.Filter
}

// New builds an empty State. Any of the repositories may be nil, meaning
// that kind of data is never requested (per spec.md §4.9's "if a ... repository
// exists" guards).
func New(header *contig.ContigHeader, seqRepo refseq.Repository, alignRepo *alignment.Repository, tracks trackservice.Service) *State {
	return &State{
		Header:         header,
		SequenceRepo:   seqRepo,
		AlignmentRepo:  alignRepo,
		Tracks:         tracks,
		BAMContigNames: make(map[int]string),
		SeqContigNames: make(map[int]string),
	}
}

// RequiredMessages computes the fixed-order list of DataMessages for the
// current viewport, per spec.md §4.9: sequence, then alignment, then
// features, then (always) cytobands.
func (s *State) RequiredMessages(v *viewport.Viewport, contigLength int64) []DataMessage {
	var msgs []DataMessage

	if s.SequenceRepo != nil {
		region := v.WidenSequence(contigLength)
		if !s.haveSeq || !s.Sequence.HasCompleteData(region.ContigIndex, int(region.Start), int(region.End)) {
			msgs = append(msgs, DataMessage{Kind: RequireSequences, Region: region})
		}
	}

	if s.AlignmentRepo != nil && v.Zoom <= alignmentZoomThreshold {
		region := v.WidenAlignment(contigLength)
		if s.Alignment == nil || !s.Alignment.HasCompleteData(region.ContigIndex, int(region.Start), int(region.End)) {
			msgs = append(msgs, DataMessage{Kind: RequireAlignments, Region: region})
		}
	}

	if s.Tracks != nil {
		region := v.WidenFeatures(contigLength)
		if s.Track == nil || !s.Track.HasCompleteData(region.ContigIndex, int(region.Start), int(region.End)) {
			msgs = append(msgs, DataMessage{Kind: RequireFeatures, Region: region})
		}
		msgs = append(msgs, DataMessage{Kind: RequireCytobands, Region: contig.Region{ContigIndex: v.ContigIndex}})
	}

	return msgs
}

// Apply runs every message in msgs in order, logging and skipping (rather
// than aborting) any that fail, per spec.md §7's "retain previously held
// data" policy. It returns, per message, whether it actually fetched
// (did_load).
func (s *State) Apply(ctx context.Context, msgs []DataMessage) []bool {
	didLoad := make([]bool, len(msgs))
	for i, m := range msgs {
		loaded, err := s.apply(ctx, m)
		if err != nil {
			gazelog.Errorf("browserstate: %s fetch failed for contig %d: %v", kindName(m.Kind), m.Region.ContigIndex, err)
			continue
		}
		didLoad[i] = loaded
	}
	return didLoad
}

func kindName(k MessageKind) string {
	switch k {
	case RequireSequences:
		return "sequence"
	case RequireAlignments:
		return "alignment"
	case RequireFeatures:
		return "features"
	case RequireCytobands:
		return "cytoband"
	default:
		return "unknown"
	}
}

// apply handles one message, idempotently: it re-checks has_complete_data
// before doing any work, matching spec.md §4.9/§8 scenario 6.
func (s *State) apply(ctx context.Context, m DataMessage) (didLoad bool, err error) {
	switch m.Kind {
	case RequireSequences:
		return s.applySequence(m.Region)
	case RequireAlignments:
		return s.applyAlignment(m.Region)
	case RequireFeatures:
		return s.applyFeatures(ctx, m.Region)
	case RequireCytobands:
		return s.applyCytoband(ctx, m.Region.ContigIndex)
	default:
		return false, nil
	}
}

func (s *State) applySequence(region contig.Region) (bool, error) {
	if s.haveSeq && s.Sequence.HasCompleteData(region.ContigIndex, int(region.Start), int(region.End)) {
		return false, nil
	}
	name := s.SeqContigNames[region.ContigIndex]
	seq, err := s.SequenceRepo.Fetch(name, region.ContigIndex, int(region.Start), int(region.End))
	if err != nil {
		return false, err
	}
	s.Sequence = seq
	s.haveSeq = true
	return true, nil
}

func (s *State) applyAlignment(region contig.Region) (bool, error) {
	if s.Alignment != nil && s.Alignment.HasCompleteData(region.ContigIndex, int(region.Start), int(region.End)) {
		return false, nil
	}
	name := s.BAMContigNames[region.ContigIndex]
	var ref refseq.Sequence
	refOK := false
	if s.haveSeq && s.Sequence.HasCompleteData(region.ContigIndex, int(region.Start), int(region.End)) {
		ref, refOK = s.Sequence, true
	}
	al, err := s.AlignmentRepo.Fetch(name, region.ContigIndex, int(region.Start), int(region.End), ref, refOK)
	if err != nil {
		return false, err
	}
	al.ApplyOptions(s.Filters)
	s.Alignment = al
	return true, nil
}

func (s *State) applyFeatures(ctx context.Context, region contig.Region) (bool, error) {
	if s.Track != nil && s.Track.HasCompleteData(region.ContigIndex, int(region.Start), int(region.End)) {
		return false, nil
	}
	genes, err := s.Tracks.QueryGenesOverlapping(ctx, s.Header, region)
	if err != nil {
		return false, err
	}
	s.Track = track.NewGeneTrack(genes, region.ContigIndex, int(region.Start), int(region.End))
	return true, nil
}

func (s *State) applyCytoband(ctx context.Context, ci int) (bool, error) {
	if s.Header.CytobandIsLoaded(ci) {
		return false, nil
	}
	cb, ok, err := s.Tracks.GetCytoband(ctx, s.Header, ci)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := s.Header.TryUpdateCytoband(ci, cb); err != nil {
		return false, err
	}
	return true, nil
}
