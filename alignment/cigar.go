package alignment

import (
	"github.com/grailbio/gaze/internal/gazelog"
	"github.com/grailbio/gaze/refseq"
)

// CigarOpType enumerates CIGAR operation kinds, independent of any BAM
// library's own enum so the rendering-context builder below can be tested
// without a real sam.Record (see spec.md §8 scenarios).
type CigarOpType int

const (
	OpMatch CigarOpType = iota
	OpInsertion
	OpDeletion
	OpSkipped
	OpSoftClip
	OpHardClip
	OpPadded
	OpEqual
	OpMismatch
)

// CigarOp is one (type, length) CIGAR entry.
type CigarOp struct {
	Type CigarOpType
	Len  int
}

// ContextKind distinguishes the three shapes a RenderingContext can take.
type ContextKind int

const (
	KindMatch ContextKind = iota
	KindDeletion
	KindSoftClip
)

// ModifierKind enumerates the rendering annotations a context can carry.
type ModifierKind int

const (
	ModForward ModifierKind = iota
	ModReverse
	ModInsertion
	ModMismatch
)

// Modifier annotates a RenderingContext. InsertionLen is valid for
// ModInsertion; QueryPos/Base are valid for ModMismatch. RefPos is an
// implementation-internal convenience (not part of spec.md's modifier
// shape) that records the reference coordinate a mismatch occurred at, so
// AlignedRead.BaseAt doesn't need to re-derive it from QueryPos.
type Modifier struct {
	Kind         ModifierKind
	InsertionLen int
	QueryPos     int
	Base         byte
	RefPos       int
}

// RenderingContext is one CIGAR-consuming span rendered against the
// reference coordinate axis. Start/End are 1-based reference coordinates;
// soft-clip contexts have Start==End (one base); SoftClipBase is valid only
// when Kind==KindSoftClip. QueryStart is valid only when Kind==KindMatch: it
// is the 1-based offset into the read's sequence of the base at Start, so a
// true-match position's called base can be recovered without a Modifier
// (AlignedRead.BaseAt uses it for exactly that).
type RenderingContext struct {
	Start        int
	End          int
	Kind         ContextKind
	SoftClipBase byte
	QueryStart   int
	Modifiers    []Modifier
}

// HasModifier reports whether the context carries a modifier of kind k.
func (c RenderingContext) HasModifier(k ModifierKind) bool {
	for _, m := range c.Modifiers {
		if m.Kind == k {
			return true
		}
	}
	return false
}

// BuildRenderingContexts walks cigar against a read starting at refStart
// (1-based) and returns the ordered rendering contexts, per spec.md §4.6.
// ref, refOK give the reference Sequence to scan for mismatches (refOK
// false means no reference is available, so M ops never produce Mismatch
// modifiers — only X ops do, since those are unconditional by CIGAR
// definition).
func BuildRenderingContexts(refStart int, cigar []CigarOp, seq []byte, isReverse bool, ref refseq.Sequence, refOK bool) []RenderingContext {
	var contexts []RenderingContext
	refPivot := refStart
	queryPivot := 1 // 1-based index into seq
	pendingInsertionLen := 0
	havePendingInsertion := false
	sawConsumingOp := false

	attachPendingInsertion := func(ctx *RenderingContext) {
		if havePendingInsertion {
			ctx.Modifiers = append([]Modifier{{Kind: ModInsertion, InsertionLen: pendingInsertionLen}}, ctx.Modifiers...)
			havePendingInsertion = false
			pendingInsertionLen = 0
		}
	}

	for _, op := range cigar {
		switch op.Type {
		case OpSoftClip:
			L := op.Len
			if !sawConsumingOp {
				// Leading soft clip: placed to the left of refStart, one
				// reference column per base, ascending. Bases that would
				// fall before reference coordinate 1 are dropped.
				for i := 0; i < L; i++ {
					pos := refStart - L + i
					var base byte
					if queryPivot-1 < len(seq) {
						base = seq[queryPivot-1]
					}
					if pos >= 1 {
						ctx := RenderingContext{Start: pos, End: pos, Kind: KindSoftClip, SoftClipBase: base}
						attachPendingInsertion(&ctx)
						contexts = append(contexts, ctx)
					}
					queryPivot++
				}
			} else {
				// Trailing (or mid-read) soft clip: placed to the right of
				// refPivot, ascending.
				for i := 0; i < L; i++ {
					pos := refPivot + i
					var base byte
					if queryPivot-1 < len(seq) {
						base = seq[queryPivot-1]
					}
					ctx := RenderingContext{Start: pos, End: pos, Kind: KindSoftClip, SoftClipBase: base}
					attachPendingInsertion(&ctx)
					contexts = append(contexts, ctx)
					queryPivot++
				}
			}
		case OpMatch, OpEqual, OpMismatch:
			L := op.Len
			ctx := RenderingContext{Start: refPivot, End: refPivot + L - 1, Kind: KindMatch, QueryStart: queryPivot}
			switch op.Type {
			case OpMismatch:
				for i := 0; i < L; i++ {
					pos := refPivot + i
					qp := queryPivot + i
					var base byte
					if qp-1 < len(seq) {
						base = seq[qp-1]
					}
					ctx.Modifiers = append(ctx.Modifiers, Modifier{Kind: ModMismatch, QueryPos: qp, Base: base, RefPos: pos})
				}
			case OpMatch:
				if refOK {
					for i := 0; i < L; i++ {
						pos := refPivot + i
						qp := queryPivot + i
						if qp-1 >= len(seq) {
							continue
						}
						base := seq[qp-1]
						if !ref.EqualsIgnoreCase(pos, base) {
							ctx.Modifiers = append(ctx.Modifiers, Modifier{Kind: ModMismatch, QueryPos: qp, Base: base, RefPos: pos})
						}
					}
				}
			}
			attachPendingInsertion(&ctx)
			contexts = append(contexts, ctx)
			refPivot += L
			queryPivot += L
			sawConsumingOp = true
		case OpDeletion, OpSkipped:
			L := op.Len
			ctx := RenderingContext{Start: refPivot, End: refPivot + L - 1, Kind: KindDeletion}
			attachPendingInsertion(&ctx)
			contexts = append(contexts, ctx)
			refPivot += L
			sawConsumingOp = true
		case OpInsertion:
			pendingInsertionLen += op.Len
			havePendingInsertion = true
			queryPivot += op.Len
		case OpHardClip, OpPadded:
			// Neither consumes reference nor query; nothing to emit.
		}
	}

	if havePendingInsertion {
		gazelog.Debugf("alignment: trailing insertion of length %d had no context to attach to; dropped", pendingInsertionLen)
	}

	if len(contexts) > 0 {
		arrow := Modifier{Kind: ModForward}
		if isReverse {
			arrow = Modifier{Kind: ModReverse}
		}
		if isReverse {
			contexts[0].Modifiers = append(contexts[0].Modifiers, arrow)
		} else {
			contexts[len(contexts)-1].Modifiers = append(contexts[len(contexts)-1].Modifiers, arrow)
		}
	}

	return contexts
}
