package downloader

import (
	"strings"

	"github.com/grailbio/base/errors"
)

// AutosqlField is one declared field of a BigBed autosql ("table ... (...)")
// header, the schema format UCSC BigBed tracks embed in place of a fixed
// upstream table definition.
type AutosqlField struct {
	Type      string // raw autosql type token: "int", "uint", "string", "lstring", a size-qualified array like "int[blockCount]", ...
	Name      string
	IsArray   bool
	ArraySize string // the bracketed size token, e.g. "blockCount"; empty when IsArray is false
}

// ColumnType classifies the field per spec.md §4.11's column-typing
// contract. An array field (a trailing "[...]" on the type) always becomes
// a Blob: arrays are stored as the same comma-separated-blob convention
// the relational mirror uses for exonStarts/exonEnds.
func (f AutosqlField) ColumnType() ColumnType {
	if f.IsArray {
		return ColBlob
	}
	switch f.Type {
	case "int", "short", "byte":
		return ColInt
	case "uint", "ushort", "ubyte":
		return ColUnsignedInt
	case "float", "double":
		return ColFloat
	case "char", "string", "lstring":
		return ColString
	default:
		// enum/set/declaration fields fall back to text, matching how the
		// relational mirror represents them.
		return ColString
	}
}

// ParseAutosql parses a BigBed ".as" autosql declaration (the format
// https://genome.ucsc.edu/goldenpath/help/examples/bedExample2.as
// documents: "table name \"comment\" ( type name; \"comment\" ... )") and
// returns its declared fields in order. chrom/chromStart/chromEnd are
// dropped: bigtools-style readers (and ours) surface those as the interval
// itself, not as autosql-described rest fields.
func ParseAutosql(src string) ([]AutosqlField, error) {
	open := strings.IndexByte(src, '(')
	close := strings.LastIndexByte(src, ')')
	if open < 0 || close < 0 || close < open {
		return nil, errors.E(errors.Invalid, "downloader.ParseAutosql: no ( ... ) field block found")
	}
	body := src[open+1 : close]

	// Each field occupies its own line: "type name;" optionally followed by
	// a quoted comment on the same line. Splitting on ';' across the whole
	// block (rather than per line) would misalign a field's own trailing
	// comment with the next field's declaration, so this parses line by
	// line instead.
	var fields []AutosqlField
	for _, line := range strings.Split(body, "\n") {
		stmt := strings.TrimSpace(line)
		if stmt == "" {
			continue
		}
		if i := strings.IndexByte(stmt, ';'); i >= 0 {
			stmt = stmt[:i]
		} else {
			continue
		}
		parts := strings.Fields(stmt)
		if len(parts) < 2 {
			continue
		}
		typ, name := parts[0], parts[1]
		f := AutosqlField{Type: typ, Name: name}
		if i := strings.IndexByte(typ, '['); i >= 0 {
			f.IsArray = true
			f.Type = typ[:i]
			f.ArraySize = strings.TrimSuffix(typ[i+1:], "]")
		}
		switch f.Name {
		case "chrom", "chromStart", "chromEnd":
			// BED3 bounds become the interval itself (named after the
			// relational mirror's columns by ConvertBigBedToSQL); the
			// caller supplies those from the decoded Record directly.
			continue
		// BigBed's thick region is the coding span, which the relational
		// mirror's gene tables call cdsStart/cdsEnd.
		case "thickStart":
			f.Name = "cdsStart"
		case "thickEnd":
			f.Name = "cdsEnd"
		}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return nil, errors.E(errors.Invalid, "downloader.ParseAutosql: no fields parsed")
	}
	return fields, nil
}

// NeedsExonConversion reports whether fields describe a BigBed gene track
// using blockSizes/chromStarts (bigGenePred-style block encoding) rather
// than the relational mirror's exonStarts/exonEnds columns directly, per
// spec.md §4.11.
func NeedsExonConversion(fields []AutosqlField) bool {
	var haveBlockSizes, haveChromStarts, haveExonStarts, haveExonEnds bool
	for _, f := range fields {
		switch f.Name {
		case "blockSizes":
			haveBlockSizes = true
		case "chromStarts":
			haveChromStarts = true
		case "exonStarts":
			haveExonStarts = true
		case "exonEnds":
			haveExonEnds = true
		}
	}
	return haveBlockSizes && haveChromStarts && !(haveExonStarts && haveExonEnds)
}
