package downloader

import "strings"

// ColumnType is the portable column type downloader maps every upstream
// MySQL/autosql column into before writing it to the embedded SQLite cache,
// per spec.md §4.11's column-typing contract.
type ColumnType int

const (
	ColInt ColumnType = iota
	ColUnsignedInt
	ColFloat
	ColBlob
	ColString
)

// SQLiteType returns the CREATE TABLE column type ColumnType maps to.
func (c ColumnType) SQLiteType() string {
	switch c {
	case ColInt, ColUnsignedInt:
		return "INTEGER"
	case ColFloat:
		return "REAL"
	case ColBlob:
		return "BLOB"
	default:
		return "TEXT"
	}
}

// ColumnTypeFromMySQL classifies a MySQL `SHOW COLUMNS` type string
// ("int(11)", "varchar(255)", "enum('+','-')", ...) per spec.md §4.11:
// integer -> ColInt (or ColUnsignedInt), float/decimal -> ColFloat,
// blob/binary -> ColBlob, char/text/enum/set -> ColString. ok is false for
// a type the contract doesn't recognize, which fails the whole operation.
func ColumnTypeFromMySQL(mysqlType string) (ct ColumnType, ok bool) {
	t := strings.ToLower(mysqlType)
	switch {
	case strings.Contains(t, "int"):
		if strings.Contains(t, "unsigned") {
			return ColUnsignedInt, true
		}
		return ColInt, true
	case strings.Contains(t, "float"), strings.Contains(t, "double"), strings.Contains(t, "decimal"), strings.Contains(t, "numeric"):
		return ColFloat, true
	case strings.Contains(t, "blob"), strings.Contains(t, "binary"):
		return ColBlob, true
	case strings.Contains(t, "char"), strings.Contains(t, "text"), strings.Contains(t, "varchar"), strings.Contains(t, "enum"), strings.Contains(t, "set"):
		return ColString, true
	default:
		return 0, false
	}
}
