package refseq

import (
	"fmt"
	"os"
	"sort"

	"github.com/biogo/biogo/io/seqio/fai"
	"github.com/grailbio/base/errors"

	"github.com/grailbio/gaze/contig"
)

// FASTARepository resolves regions against a .fai-indexed FASTA file,
// modeled on grailbio/bio/encoding/fasta's indexed-FASTA reader but built
// on github.com/biogo/biogo/io/seqio/fai (a dependency kortschak/ins and
// kortschak/loopy both already carry) rather than a bespoke index format.
type FASTARepository struct {
	path  string
	f     *os.File
	index fai.Index
}

// NewFASTARepository opens path (which must have a sibling path+".fai"
// index, as produced by `samtools faidx`) for indexed random access.
func NewFASTARepository(path string) (*FASTARepository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(errors.IO, err, "refseq.NewFASTARepository: open", path)
	}
	idxFile, err := os.Open(path + ".fai")
	if err != nil {
		f.Close()
		return nil, errors.E(errors.IO, err, "refseq.NewFASTARepository: open index for", path)
	}
	defer idxFile.Close()
	idx, err := fai.ReadFrom(idxFile)
	if err != nil {
		f.Close()
		return nil, errors.E(errors.IO, err, "refseq.NewFASTARepository: parse index for", path)
	}
	return &FASTARepository{path: path, f: f, index: idx}, nil
}

// Close releases the underlying file handle.
func (r *FASTARepository) Close() error { return r.f.Close() }

// Contigs returns the contigs listed in the .fai index, for a
// user-provided reference with no track service to enumerate contigs
// through instead. Names are sorted for a stable, reproducible ordering
// (the .fai format itself doesn't guarantee one).
func (r *FASTARepository) Contigs() ([]contig.Contig, error) {
	names := make([]string, 0, len(r.index))
	for name := range r.index {
		names = append(names, name)
	}
	sort.Strings(names)

	contigs := make([]contig.Contig, len(names))
	for i, name := range names {
		contigs[i] = contig.NewContig(name, nil, int64(r.index[name].Length), "")
	}
	return contigs, nil
}

// Fetch implements Repository.
func (r *FASTARepository) Fetch(contigName string, contigIndex, start, end int) (Sequence, error) {
	rec, ok := r.index[contigName]
	if !ok {
		return Sequence{}, errors.E(errors.NotExist, "refseq.Fetch: contig not in FASTA index:", contigName)
	}
	if start < 1 {
		start = 1
	}
	if end > rec.Length {
		end = rec.Length
	}
	if end < start {
		return Sequence{ContigIndex: contigIndex, Start: start, Bases: nil}, nil
	}

	out := make([]byte, 0, end-start+1)
	// fai records are line-wrapped: BasesPerLine bases occupy
	// BytesPerLine bytes (the remainder being the line terminator).
	// Walk line by line from the first line containing `start`.
	pos := start
	for pos <= end {
		lineIdx := (pos - 1) / rec.BasesPerLine
		lineOffset := (pos - 1) % rec.BasesPerLine
		fileOff := rec.Start + int64(lineIdx)*int64(rec.BytesPerLine) + int64(lineOffset)
		// how many bases remain to read on this line
		remainOnLine := rec.BasesPerLine - lineOffset
		want := end - pos + 1
		if want > remainOnLine {
			want = remainOnLine
		}
		buf := make([]byte, want)
		if _, err := r.f.ReadAt(buf, fileOff); err != nil {
			return Sequence{}, errors.E(errors.IO, err, fmt.Sprintf("refseq.Fetch: read %s:%d-%d", contigName, start, end))
		}
		out = append(out, buf...)
		pos += want
	}
	return Sequence{ContigIndex: contigIndex, Start: start, Bases: out}, nil
}
