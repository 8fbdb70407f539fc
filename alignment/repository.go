package alignment

import (
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/gaze/refseq"
)

// Repository fetches an Alignment for a region from an indexed BAM file,
// adapted from bamprovider.BAMProvider's open/seek/read shape but
// simplified to the single-region random-access pattern this browser needs
// (no sharding, no S3, no iterator pooling).
type Repository struct {
	path string

	f   *os.File
	r   *bam.Reader
	idx *bam.Index
}

// NewRepository opens path (and path+".bai") and parses the BAM header and
// index eagerly, so later Fetch calls never pay that cost.
func NewRepository(path string) (*Repository, error) {
	return NewRepositoryWithIndex(path, path+".bai")
}

// NewRepositoryWithIndex is NewRepository with an explicit index path,
// for callers that don't keep the index as a "path+.bai" sibling (spec.md
// §6's "-index" flag).
func NewRepositoryWithIndex(path, indexPath string) (*Repository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(errors.NotExist, err, "alignment.NewRepository: open", path)
	}
	r, err := bam.NewReader(f, 0)
	if err != nil {
		f.Close()
		return nil, errors.E(errors.IO, err, "alignment.NewRepository: read header", path)
	}

	idxFile, err := os.Open(indexPath)
	if err != nil {
		r.Close()
		f.Close()
		return nil, errors.E(errors.NotExist, err, "alignment.NewRepository: open index for", path)
	}
	defer idxFile.Close()
	idx, err := bam.ReadIndex(idxFile)
	if err != nil {
		r.Close()
		f.Close()
		return nil, errors.E(errors.IO, err, "alignment.NewRepository: parse index for", path)
	}

	return &Repository{path: path, f: f, r: r, idx: idx}, nil
}

// Close releases the underlying file handles.
func (rep *Repository) Close() error {
	if err := rep.r.Close(); err != nil {
		rep.f.Close()
		return errors.E(errors.IO, err, "alignment.Repository.Close", rep.path)
	}
	return rep.f.Close()
}

// Fetch returns the Alignment covering [start,end] (1-based inclusive) on
// the contig named refName, resolving reference bases for mismatch
// annotation from ref when refOK is true.
func (rep *Repository) Fetch(refName string, contigIndex, start, end int, ref refseq.Sequence, refOK bool) (*Alignment, error) {
	header := rep.r.Header()
	var target *sam.Reference
	for _, cand := range header.Refs() {
		if cand.Name() == refName {
			target = cand
			break
		}
	}
	if target == nil {
		return nil, errors.E(errors.NotExist, "alignment.Fetch: no such reference in BAM header:", refName)
	}

	// bam coordinates are 0-based half-open; translate the 1-based
	// inclusive request.
	chunks, err := rep.idx.Chunks(target, start-1, end)
	if err == index.ErrInvalid || len(chunks) == 0 {
		return NewAlignment(contigIndex, nil, start, end), nil
	}
	if err != nil {
		return nil, errors.E(errors.IO, err, "alignment.Fetch: computing BAM index chunks for", refName)
	}

	iter, err := bam.NewIterator(rep.r, chunks)
	if err != nil {
		return nil, errors.E(errors.IO, err, "alignment.Fetch: opening BAM iterator for", refName)
	}

	var reads []AlignedRead
	idx := 0
	for iter.Next() {
		rec := iter.Record()
		if rec.Flags&sam.Unmapped != 0 {
			continue
		}
		// 0-based -> 1-based.
		refStart := rec.Pos + 1
		if refStart > end || recordEnd(rec) < start {
			continue
		}
		cigar := convertCigar(rec.Cigar)
		read := NewAlignedRead(
			rec.Name,
			refStart,
			cigar,
			rec.Seq.Expand(),
			rec.Flags&sam.Reverse != 0,
			rec.MapQ,
			uint16(rec.Flags),
			idx,
			ref,
			refOK,
		)
		read.Index = idx
		reads = append(reads, read)
		idx++
	}
	if err := iter.Error(); err != nil {
		return nil, errors.E(errors.IO, err, "alignment.Fetch: reading BAM records for", refName)
	}

	return NewAlignment(contigIndex, reads, start, end), nil
}

// recordEnd returns the 1-based inclusive reference end coordinate implied
// by rec's CIGAR.
func recordEnd(rec *sam.Record) int {
	pos := rec.Pos
	for _, op := range rec.Cigar {
		if op.Type().Consumes().Reference != 0 {
			pos += op.Len()
		}
	}
	return pos // already 1-based inclusive since rec.Pos is 0-based and pos-1+1 cancels
}

// convertCigar translates sam.Cigar operations into this package's
// BAM-library-independent CigarOp, so BuildRenderingContexts never imports
// biogo/hts/sam directly (kept testable with literal CigarOps, per
// cigar_test.go).
func convertCigar(c sam.Cigar) []CigarOp {
	ops := make([]CigarOp, 0, len(c))
	for _, op := range c {
		var t CigarOpType
		switch op.Type() {
		case sam.CigarMatch:
			t = OpMatch
		case sam.CigarInsertion:
			t = OpInsertion
		case sam.CigarDeletion:
			t = OpDeletion
		case sam.CigarSkipped:
			t = OpSkipped
		case sam.CigarSoftClipped:
			t = OpSoftClip
		case sam.CigarHardClipped:
			t = OpHardClip
		case sam.CigarPadded:
			t = OpPadded
		case sam.CigarEqual:
			t = OpEqual
		case sam.CigarMismatch:
			t = OpMismatch
		default:
			continue
		}
		ops = append(ops, CigarOp{Type: t, Len: op.Len()})
	}
	return ops
}
