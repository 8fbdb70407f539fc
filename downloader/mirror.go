package downloader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/grailbio/base/errors"
	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// mirrorTables lists every upstream table a well-known-assembly mirror copy
// pulls over, per spec.md §4.11. The gene-track table name is resolved at
// download time from trackservice.PreferredTrackNames (whichever exists on
// the source database), so it is appended by the caller.
var mirrorTables = []string{"chromInfo", "chromAlias", "cytoBandIdeo"}

// OpenMySQL opens a read-only connection to an upstream UCSC-style MySQL
// mirror. The caller owns the returned handle and must Close it.
func OpenMySQL(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, errors.E(errors.IO, err, "downloader.OpenMySQL")
	}
	db.SetMaxOpenConns(5) // spec.md §5: mirror pool capped at 5 connections.
	if err := db.Ping(); err != nil {
		return nil, errors.E(errors.IO, err, "downloader.OpenMySQL: ping")
	}
	return db, nil
}

// OpenCache opens (creating if absent) the embedded SQLite cache file a
// download populates. spec.md §5 caps this pool at a single connection:
// the cache is write-once, read-many, and concurrent writers would only
// contend on the same file lock anyway.
func OpenCache(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.E(errors.IO, err, "downloader.OpenCache")
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// mysqlColumn is one row of `SHOW COLUMNS FROM table`.
type mysqlColumn struct {
	Field string `db:"Field"`
	Type  string `db:"Type"`
}

// TransferTable copies one upstream MySQL table into the local SQLite
// cache verbatim, translating each column's MySQL type through
// ColumnTypeFromMySQL and failing the whole operation if any column's type
// isn't recognized, per spec.md §4.11. The destination table is dropped
// and recreated, and the copy runs inside a single SQLite transaction.
func TransferTable(ctx context.Context, src, dst *sqlx.DB, table string, bar *pb.ProgressBar) error {
	var cols []mysqlColumn
	if err := src.SelectContext(ctx, &cols, fmt.Sprintf("SHOW COLUMNS FROM %s", table)); err != nil {
		return errors.E(errors.IO, err, "downloader.TransferTable: SHOW COLUMNS", table)
	}
	if len(cols) == 0 {
		return errors.E(errors.NotExist, "downloader.TransferTable: no such table", table)
	}

	colTypes := make([]ColumnType, len(cols))
	names := make([]string, len(cols))
	for i, c := range cols {
		ct, ok := ColumnTypeFromMySQL(c.Type)
		if !ok {
			return errors.E(errors.Invalid, "downloader.TransferTable: unrecognized MySQL column type", c.Type, "for", table+"."+c.Field)
		}
		colTypes[i] = ct
		names[i] = c.Field
	}

	var count int
	if err := src.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)); err != nil {
		return errors.E(errors.IO, err, "downloader.TransferTable: counting", table)
	}
	if bar != nil {
		bar.SetTotal(int64(count))
	}

	rows, err := src.QueryxContext(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), table))
	if err != nil {
		return errors.E(errors.IO, err, "downloader.TransferTable: querying", table)
	}
	defer rows.Close()

	tx, err := dst.BeginTxx(ctx, nil)
	if err != nil {
		return errors.E(errors.IO, err, "downloader.TransferTable: begin tx for", table)
	}
	defer tx.Rollback() // no-op once committed.

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return errors.E(errors.IO, err, "downloader.TransferTable: drop", table)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(table, names, colTypes)); err != nil {
		return errors.E(errors.IO, err, "downloader.TransferTable: create", table)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), placeholders(len(names)))
	dest := make([]interface{}, len(names))
	for i := range dest {
		dest[i] = new(sql.RawBytes)
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return errors.E(errors.IO, err, "downloader.TransferTable: scanning row of", table)
		}
		args := make([]interface{}, len(dest))
		for i, d := range dest {
			raw := *(d.(*sql.RawBytes))
			if raw == nil {
				args[i] = nil
			} else {
				args[i] = string(raw)
			}
		}
		if _, err := tx.ExecContext(ctx, insertSQL, args...); err != nil {
			return errors.E(errors.IO, err, "downloader.TransferTable: inserting row of", table)
		}
		if bar != nil {
			bar.Increment()
		}
	}
	if err := rows.Err(); err != nil {
		return errors.E(errors.IO, err, "downloader.TransferTable: iterating", table)
	}
	return tx.Commit()
}

func createTableSQL(table string, names []string, types []ColumnType) string {
	cols := make([]string, len(names))
	for i, n := range names {
		cols[i] = fmt.Sprintf("%s %s", n, types[i].SQLiteType())
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(cols, ", "))
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ", ")
}

// TransferMirrorAssembly copies chromInfo/chromAlias/cytoBandIdeo and the
// named preferred gene track from an upstream MySQL mirror into the local
// cache, one transaction per table, per spec.md §4.11's well-known-assembly
// path. Progress is reported via a cheggaaa/pb bar per table.
func TransferMirrorAssembly(ctx context.Context, src, dst *sqlx.DB, geneTrackTable string) error {
	tables := append(append([]string{}, mirrorTables...), geneTrackTable)
	for _, table := range tables {
		bar := pb.StartNew(0)
		err := TransferTable(ctx, src, dst, table, bar)
		bar.Finish()
		if err != nil {
			return errors.E(err, "downloader.TransferMirrorAssembly: table", table)
		}
	}
	return nil
}
