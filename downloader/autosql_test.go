package downloader

import "testing"

const geneAutosql = `
table bigGenePred
"bigGenePred gene models"
(
string chrom;       "Reference sequence chromosome or scaffold"
uint   chromStart;  "Start position in chromosome"
uint   chromEnd;    "End position in chromosome"
string name;        "Name or ID of item"
uint   score;       "Score (0-1000)"
char[1] strand;     "+ or - for strand"
uint thickStart;    "Coding region start"
uint thickEnd;      "Coding region end"
uint reserved;      "Used as itemRgb"
int blockCount;     "Number of blocks"
int[blockCount] blockSizes;   "Comma separated list of block sizes"
int[blockCount] chromStarts;  "Start positions relative to chromStart"
string name2;       "Alternative/human readable name"
)
`

const cytobandAutosql = `
table cytoBand
"Describes the positions of cytogenetic bands with a chromosome"
(
string chrom;      "Reference sequence chromosome or scaffold"
uint chromStart;   "Start position in chromosome"
uint chromEnd;     "End position in chromosome"
string name;       "Name of cytogenetic band"
string gieStain;   "Giemsa stain results"
)
`

func TestParseAutosqlGeneSchema(t *testing.T) {
	fields, err := ParseAutosql(geneAutosql)
	if err != nil {
		t.Fatalf("ParseAutosql: %v", err)
	}
	names := make(map[string]AutosqlField, len(fields))
	for _, f := range fields {
		names[f.Name] = f
	}
	if _, ok := names["chrom"]; ok {
		t.Errorf("chrom should be dropped from the field list")
	}
	if _, ok := names["cdsStart"]; !ok {
		t.Errorf("thickStart should be renamed to cdsStart")
	}
	if _, ok := names["cdsEnd"]; !ok {
		t.Errorf("thickEnd should be renamed to cdsEnd")
	}
	bs, ok := names["blockSizes"]
	if !ok {
		t.Fatalf("expected blockSizes field")
	}
	if !bs.IsArray || bs.ArraySize != "blockCount" {
		t.Errorf("blockSizes = %+v, want array field sized by blockCount", bs)
	}
	if bs.ColumnType() != ColBlob {
		t.Errorf("blockSizes.ColumnType() = %v, want ColBlob", bs.ColumnType())
	}
	if names["name"].ColumnType() != ColString {
		t.Errorf("name.ColumnType() = %v, want ColString", names["name"].ColumnType())
	}
	if names["score"].ColumnType() != ColUnsignedInt {
		t.Errorf("score.ColumnType() = %v, want ColUnsignedInt", names["score"].ColumnType())
	}
}

func TestNeedsExonConversion(t *testing.T) {
	geneFields, err := ParseAutosql(geneAutosql)
	if err != nil {
		t.Fatalf("ParseAutosql: %v", err)
	}
	if !NeedsExonConversion(geneFields) {
		t.Errorf("bigGenePred schema (blockSizes/chromStarts, no exonStarts/exonEnds) should need exon conversion")
	}

	cytoFields, err := ParseAutosql(cytobandAutosql)
	if err != nil {
		t.Fatalf("ParseAutosql: %v", err)
	}
	if NeedsExonConversion(cytoFields) {
		t.Errorf("cytoBand schema has no block fields; should not need exon conversion")
	}
}
