package downloader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/grailbio/base/errors"
	"github.com/jmoiron/sqlx"
	"v.io/x/lib/vlog"
)

// ConvertBigBedToSQL reads every record out of a BigBed track and writes it
// into dst as a table named tableName, following the same column-typing
// contract TransferTable uses for the mirror path, per spec.md §4.11. When
// the autosql schema describes exon blocks (blockSizes/chromStarts) rather
// than the relational mirror's exonStarts/exonEnds columns, each record's
// exon bounds and CDS span are reconstructed before insertion.
func ConvertBigBedToSQL(ctx context.Context, r io.ReadSeeker, dst *sqlx.DB, tableName string, bar *pb.ProgressBar) error {
	bb, err := OpenBigBed(r)
	if err != nil {
		return errors.E(err, "downloader.ConvertBigBedToSQL: opening", tableName)
	}
	asql, err := bb.AutoSQL()
	if err != nil {
		return errors.E(err, "downloader.ConvertBigBedToSQL: autosql for", tableName)
	}
	if asql == "" {
		return errors.E(errors.Invalid, "downloader.ConvertBigBedToSQL:", tableName, "carries no autosql schema")
	}
	fields, err := ParseAutosql(asql)
	if err != nil {
		return errors.E(err, "downloader.ConvertBigBedToSQL: parsing autosql for", tableName)
	}
	needsExons := NeedsExonConversion(fields)

	// The BED3 interval becomes chrom/txStart/txEnd, the relational schema's
	// transcript bounds (per trackservice.GeneRow), except in cytoBandIdeo,
	// whose relational schema names them chromStart/chromEnd.
	columns := []string{"chrom", "txStart", "txEnd"}
	if tableName == "cytoBandIdeo" {
		columns = []string{"chrom", "chromStart", "chromEnd"}
	}
	colTypes := []ColumnType{ColString, ColUnsignedInt, ColUnsignedInt}
	if needsExons {
		columns = append(columns, "cdsStart", "cdsEnd", "exonStarts", "exonEnds")
		colTypes = append(colTypes, ColUnsignedInt, ColUnsignedInt, ColBlob, ColBlob)
	}
	fieldIndex := make(map[string]int, len(fields))
	for i, f := range fields {
		if needsExons && (f.Name == "blockSizes" || f.Name == "chromStarts" || f.Name == "blockCount" || f.Name == "cdsStart" || f.Name == "cdsEnd") {
			continue // consumed by exon/CDS reconstruction, not stored directly.
		}
		fieldIndex[f.Name] = len(columns)
		columns = append(columns, f.Name)
		colTypes = append(colTypes, f.ColumnType())
	}

	recs, err := bb.Records()
	if err != nil {
		return errors.E(err, "downloader.ConvertBigBedToSQL: decoding records for", tableName)
	}
	if bar != nil {
		bar.SetTotal(int64(len(recs)))
	}

	tx, err := dst.BeginTxx(ctx, nil)
	if err != nil {
		return errors.E(errors.IO, err, "downloader.ConvertBigBedToSQL: begin tx for", tableName)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", tableName)); err != nil {
		return errors.E(errors.IO, err, "downloader.ConvertBigBedToSQL: drop", tableName)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(tableName, columns, colTypes)); err != nil {
		return errors.E(errors.IO, err, "downloader.ConvertBigBedToSQL: create", tableName)
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tableName, strings.Join(columns, ", "), placeholders(len(columns)))

	for _, rec := range recs {
		rest := strings.Split(rec.Rest, "\t")
		args := make([]interface{}, len(columns))
		args[0], args[1], args[2] = rec.Chrom, rec.Start, rec.End

		if needsExons {
			blockSizesCSV, chromStartsCSV := restField(rest, fields, "blockSizes"), restField(rest, fields, "chromStarts")
			exonStarts, exonEnds, cdsStart, cdsEnd, err := BlocksToExons(int(rec.Start), blockSizesCSV, chromStartsCSV)
			if err != nil {
				return errors.E(err, "downloader.ConvertBigBedToSQL: reconstructing exons for", tableName)
			}
			args[3], args[4] = cdsStart, cdsEnd
			args[5], args[6] = FormatCSVInts(exonStarts), FormatCSVInts(exonEnds)
		}
		for name, idx := range fieldIndex {
			args[idx] = restField(rest, fields, name)
		}
		for i, a := range args {
			if a == nil {
				// columns/fieldIndex are built together above; a nil
				// survivor here means that bookkeeping drifted out of
				// sync, not a bad input record.
				vlog.Fatalf("downloader.ConvertBigBedToSQL: column %d (%s) never assigned", i, columns[i])
			}
		}
		if _, err := tx.ExecContext(ctx, insertSQL, args...); err != nil {
			return errors.E(errors.IO, err, "downloader.ConvertBigBedToSQL: inserting row of", tableName)
		}
		if bar != nil {
			bar.Increment()
		}
	}
	return tx.Commit()
}

// restField returns the raw value of field "name" from a BigBed record's
// tab-separated rest fields, given the autosql schema's field order (minus
// the leading chrom/chromStart/chromEnd BED3 fields ParseAutosql already
// drops, since those arrive through Record.Chrom/Start/End instead).
func restField(rest []string, fields []AutosqlField, name string) string {
	for i, f := range fields {
		if f.Name == name && i < len(rest) {
			return rest[i]
		}
	}
	return ""
}
