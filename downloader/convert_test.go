package downloader

import "testing"

func TestRestField(t *testing.T) {
	fields, err := ParseAutosql(geneAutosql)
	if err != nil {
		t.Fatalf("ParseAutosql: %v", err)
	}
	rest := make([]string, len(fields))
	for i, f := range fields {
		rest[i] = f.Name + "-value"
	}
	if got := restField(rest, fields, "name2"); got != "name2-value" {
		t.Errorf("restField(name2) = %q", got)
	}
	if got := restField(rest, fields, "doesNotExist"); got != "" {
		t.Errorf("restField(missing) = %q, want empty", got)
	}
}
