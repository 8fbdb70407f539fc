package downloader

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/grailbio/base/errors"
)

// BigBed magic numbers, matching the UCSC bbiFile container format.
const (
	bigBedMagic  = 0x8789F2EB
	cirTreeMagic = 0x78CA8C91
	rTreeMagic   = 0x2468ACE0
)

// bigBedHeader is the fixed 64-byte file header every BigBed file opens
// with.
type bigBedHeader struct {
	Version           uint16
	ZoomLevels        uint16
	ChromTreeOffset   uint64
	DataOffset        uint64
	IndexOffset       uint64
	FieldCount        uint16
	DefinedFieldCount uint16
	AutoSQLOffset     uint64
	TotalSummaryOffset uint64
	UncompressBufSize uint32
	Reserved          uint64
}

// BigBedReader is a modestly-scoped reader of the BigBed binary container:
// enough to recover a track's autosql schema, its chromosome name table,
// and every interval record, which is all a downloader conversion needs.
// It does not implement zoom levels or R-tree range queries: a conversion
// always wants every record in the track, so it walks the full leaf set.
type BigBedReader struct {
	r      io.ReadSeeker
	hdr    bigBedHeader
	chroms map[uint32]string
}

// OpenBigBed parses a BigBed file's header, chromosome B+ tree, and autosql
// string from r.
func OpenBigBed(r io.ReadSeeker) (*BigBedReader, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, errors.E(errors.IO, err, "downloader.OpenBigBed: reading magic")
	}
	if magic != bigBedMagic {
		return nil, errors.E(errors.Invalid, "downloader.OpenBigBed: not a BigBed file")
	}

	br := &BigBedReader{r: r}
	fields := []interface{}{
		&br.hdr.Version, &br.hdr.ZoomLevels,
		&br.hdr.ChromTreeOffset, &br.hdr.DataOffset, &br.hdr.IndexOffset,
		&br.hdr.FieldCount, &br.hdr.DefinedFieldCount,
		&br.hdr.AutoSQLOffset, &br.hdr.TotalSummaryOffset,
		&br.hdr.UncompressBufSize, &br.hdr.Reserved,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return nil, errors.E(errors.IO, err, "downloader.OpenBigBed: reading header")
		}
	}

	chroms, err := br.readChromTree()
	if err != nil {
		return nil, err
	}
	br.chroms = chroms
	return br, nil
}

// AutoSQL returns the track's embedded autosql schema text, or "" if the
// file carries none.
func (br *BigBedReader) AutoSQL() (string, error) {
	if br.hdr.AutoSQLOffset == 0 {
		return "", nil
	}
	if _, err := br.r.Seek(int64(br.hdr.AutoSQLOffset), io.SeekStart); err != nil {
		return "", errors.E(errors.IO, err, "downloader.BigBedReader.AutoSQL: seek")
	}
	var buf bytes.Buffer
	one := make([]byte, 1)
	for {
		if _, err := io.ReadFull(br.r, one); err != nil {
			return "", errors.E(errors.IO, err, "downloader.BigBedReader.AutoSQL: read")
		}
		if one[0] == 0 {
			break
		}
		buf.WriteByte(one[0])
	}
	return buf.String(), nil
}

// readChromTree parses the chromosome B+ tree (the CIRTREE-magic block
// BigBed files embed at ChromTreeOffset), returning chrom id -> name.
func (br *BigBedReader) readChromTree() (map[uint32]string, error) {
	if _, err := br.r.Seek(int64(br.hdr.ChromTreeOffset), io.SeekStart); err != nil {
		return nil, errors.E(errors.IO, err, "downloader.readChromTree: seek")
	}
	var magic, keySize, valSize, itemsPerBlock uint32
	var itemCount uint64
	var reserved uint64
	for _, f := range []interface{}{&magic, &itemsPerBlock, &keySize, &valSize, &itemCount, &reserved} {
		if err := binary.Read(br.r, binary.LittleEndian, f); err != nil {
			return nil, errors.E(errors.IO, err, "downloader.readChromTree: header")
		}
	}
	if magic != cirTreeMagic {
		return nil, errors.E(errors.Invalid, "downloader.readChromTree: bad magic")
	}

	out := make(map[uint32]string, itemCount)
	if err := br.readChromBlock(keySize, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (br *BigBedReader) readChromBlock(keySize uint32, out map[uint32]string) error {
	var isLeaf, padding uint8
	if err := binary.Read(br.r, binary.LittleEndian, &isLeaf); err != nil {
		return errors.E(errors.IO, err, "downloader.readChromBlock: isLeaf")
	}
	if err := binary.Read(br.r, binary.LittleEndian, &padding); err != nil {
		return errors.E(errors.IO, err, "downloader.readChromBlock: padding")
	}
	var count uint16
	if err := binary.Read(br.r, binary.LittleEndian, &count); err != nil {
		return errors.E(errors.IO, err, "downloader.readChromBlock: count")
	}

	if isLeaf != 0 {
		key := make([]byte, keySize)
		for i := 0; i < int(count); i++ {
			if _, err := io.ReadFull(br.r, key); err != nil {
				return errors.E(errors.IO, err, "downloader.readChromBlock: key")
			}
			var chromID, chromSize uint32
			if err := binary.Read(br.r, binary.LittleEndian, &chromID); err != nil {
				return errors.E(errors.IO, err, "downloader.readChromBlock: chromID")
			}
			if err := binary.Read(br.r, binary.LittleEndian, &chromSize); err != nil {
				return errors.E(errors.IO, err, "downloader.readChromBlock: chromSize")
			}
			_ = chromSize
			out[chromID] = string(bytes.TrimRight(key, "\x00"))
		}
		return nil
	}

	offsets := make([]uint64, count)
	key := make([]byte, keySize)
	for i := 0; i < int(count); i++ {
		if _, err := io.ReadFull(br.r, key); err != nil {
			return errors.E(errors.IO, err, "downloader.readChromBlock: key")
		}
		if err := binary.Read(br.r, binary.LittleEndian, &offsets[i]); err != nil {
			return errors.E(errors.IO, err, "downloader.readChromBlock: childOffset")
		}
	}
	for _, off := range offsets {
		if _, err := br.r.Seek(int64(off), io.SeekStart); err != nil {
			return errors.E(errors.IO, err, "downloader.readChromBlock: seek child")
		}
		if err := br.readChromBlock(keySize, out); err != nil {
			return err
		}
	}
	return nil
}

// Record is one decoded BigBed interval: a BED3 span plus its
// autosql-described "rest" fields, tab-separated in file order.
type Record struct {
	Chrom string
	Start uint32
	End   uint32
	Rest  string
}

// Records decodes every interval in the track by walking the R-tree leaf
// set in file order and inflating each data block (when
// UncompressBufSize > 0, a block is zlib-compressed).
func (br *BigBedReader) Records() ([]Record, error) {
	if _, err := br.r.Seek(int64(br.hdr.IndexOffset), io.SeekStart); err != nil {
		return nil, errors.E(errors.IO, err, "downloader.BigBedReader.Records: seek index")
	}
	var magic uint32
	if err := binary.Read(br.r, binary.LittleEndian, &magic); err != nil {
		return nil, errors.E(errors.IO, err, "downloader.Records: reading R-tree magic")
	}
	if magic != rTreeMagic {
		return nil, errors.E(errors.Invalid, "downloader.Records: bad R-tree magic")
	}
	// blockSize, itemCount, startChromIx, startBase, endChromIx, endBase,
	// endFileOffset, itemsPerSlot, reserved.
	skip := make([]byte, 4+8+4+4+4+4+8+4+4)
	if _, err := io.ReadFull(br.r, skip); err != nil {
		return nil, errors.E(errors.IO, err, "downloader.Records: skipping R-tree header")
	}

	var blocks []rtreeBlock
	if err := br.readRTreeNode(&blocks); err != nil {
		return nil, err
	}

	var out []Record
	for _, b := range blocks {
		recs, err := br.decodeBlock(b)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

type rtreeBlock struct {
	offset, size uint64
}

func (br *BigBedReader) readRTreeNode(blocks *[]rtreeBlock) error {
	var isLeaf, padding uint8
	if err := binary.Read(br.r, binary.LittleEndian, &isLeaf); err != nil {
		return errors.E(errors.IO, err, "downloader.readRTreeNode: isLeaf")
	}
	if err := binary.Read(br.r, binary.LittleEndian, &padding); err != nil {
		return errors.E(errors.IO, err, "downloader.readRTreeNode: padding")
	}
	var count uint16
	if err := binary.Read(br.r, binary.LittleEndian, &count); err != nil {
		return errors.E(errors.IO, err, "downloader.readRTreeNode: count")
	}

	if isLeaf != 0 {
		for i := 0; i < int(count); i++ {
			// startChromIx, startBase, endChromIx, endBase: 4 uint32s.
			skip := make([]byte, 16)
			if _, err := io.ReadFull(br.r, skip); err != nil {
				return errors.E(errors.IO, err, "downloader.readRTreeNode: leaf key")
			}
			var offset, size uint64
			if err := binary.Read(br.r, binary.LittleEndian, &offset); err != nil {
				return errors.E(errors.IO, err, "downloader.readRTreeNode: leaf offset")
			}
			if err := binary.Read(br.r, binary.LittleEndian, &size); err != nil {
				return errors.E(errors.IO, err, "downloader.readRTreeNode: leaf size")
			}
			*blocks = append(*blocks, rtreeBlock{offset, size})
		}
		return nil
	}

	childOffsets := make([]uint64, count)
	for i := 0; i < int(count); i++ {
		skip := make([]byte, 16)
		if _, err := io.ReadFull(br.r, skip); err != nil {
			return errors.E(errors.IO, err, "downloader.readRTreeNode: internal key")
		}
		if err := binary.Read(br.r, binary.LittleEndian, &childOffsets[i]); err != nil {
			return errors.E(errors.IO, err, "downloader.readRTreeNode: child offset")
		}
	}
	for _, off := range childOffsets {
		if _, err := br.r.Seek(int64(off), io.SeekStart); err != nil {
			return errors.E(errors.IO, err, "downloader.readRTreeNode: seek child")
		}
		if err := br.readRTreeNode(blocks); err != nil {
			return err
		}
	}
	return nil
}

func (br *BigBedReader) decodeBlock(b rtreeBlock) ([]Record, error) {
	if _, err := br.r.Seek(int64(b.offset), io.SeekStart); err != nil {
		return nil, errors.E(errors.IO, err, "downloader.decodeBlock: seek")
	}
	raw := make([]byte, b.size)
	if _, err := io.ReadFull(br.r, raw); err != nil {
		return nil, errors.E(errors.IO, err, "downloader.decodeBlock: read")
	}
	if br.hdr.UncompressBufSize > 0 {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.E(errors.IO, err, "downloader.decodeBlock: zlib open")
		}
		defer zr.Close()
		inflated, err := io.ReadAll(zr)
		if err != nil {
			return nil, errors.E(errors.IO, err, "downloader.decodeBlock: zlib inflate")
		}
		raw = inflated
	}

	var recs []Record
	buf := bytes.NewReader(raw)
	for buf.Len() > 0 {
		var chromID, start, end uint32
		if err := binary.Read(buf, binary.LittleEndian, &chromID); err != nil {
			break
		}
		if err := binary.Read(buf, binary.LittleEndian, &start); err != nil {
			return nil, errors.E(errors.IO, err, "downloader.decodeBlock: start")
		}
		if err := binary.Read(buf, binary.LittleEndian, &end); err != nil {
			return nil, errors.E(errors.IO, err, "downloader.decodeBlock: end")
		}
		var rest bytes.Buffer
		for {
			c, err := buf.ReadByte()
			if err != nil {
				return nil, errors.E(errors.IO, err, "downloader.decodeBlock: rest")
			}
			if c == 0 {
				break
			}
			rest.WriteByte(c)
		}
		recs = append(recs, Record{
			Chrom: br.chroms[chromID],
			Start: start,
			End:   end,
			Rest:  rest.String(),
		})
	}
	return recs, nil
}
