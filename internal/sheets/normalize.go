package sheets

import (
	"fmt"
	"strings"
)

// Record is one worksheet row keyed by normalized column name.
type Record map[string]string

// NormalizeHeader lower-cases and trims a column name.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Records turns raw worksheet values into keyed records using the first
// row as header. Short rows are padded with empty strings and fully blank
// rows are skipped.
func Records(values [][]any) []Record {
	if len(values) == 0 {
		return nil
	}
	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = NormalizeHeader(fmt.Sprint(h))
	}

	var out []Record
	for _, row := range values[1:] {
		rec := make(Record, len(header))
		blank := true
		for i, col := range header {
			if col == "" {
				continue
			}
			v := ""
			if i < len(row) && row[i] != nil {
				v = strings.TrimSpace(fmt.Sprint(row[i]))
			}
			if v != "" {
				blank = false
			}
			rec[col] = v
		}
		if !blank {
			out = append(out, rec)
		}
	}
	return out
}

// Get returns the first non-empty value among the given column names.
func (r Record) Get(names ...string) string {
	for _, n := range names {
		if v := r[NormalizeHeader(n)]; v != "" {
			return v
		}
	}
	return ""
}
