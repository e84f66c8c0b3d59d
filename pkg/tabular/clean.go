package tabular

import (
	"fmt"
	"strings"
)

// Stats counts what happened to the data rows of one run.
type Stats struct {
	Read       int `json:"read"`
	Emitted    int `json:"emitted"`
	Blank      int `json:"blank"`
	MissingKey int `json:"missingKey"`
	Excluded   int `json:"excluded"`
	Duplicate  int `json:"duplicate"`
}

// Result is a cleaned table. Every row has exactly len(Columns) cells.
type Result struct {
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"-"`
	Stats    Stats      `json:"stats"`
	Warnings []string   `json:"warnings,omitempty"`
}

// Record returns row i as a column to value map.
func (r *Result) Record(i int) map[string]string {
	out := make(map[string]string, len(r.Columns))
	for j, c := range r.Columns {
		out[c] = r.Rows[i][j]
	}
	return out
}

// Clean maps, normalizes and filters every data row of t. Rows are dropped
// when all cells are empty, when the primary key is empty, when the
// exclusion column matches, or when the key was already emitted. The
// exclusion check runs before the key is recorded, so an excluded row never
// shadows a later row with the same key.
func (s *Schema) Clean(t *Table) *Result {
	mapping := s.MapHeaders(t.Header)
	res := &Result{
		Columns:  mapping.Columns,
		Rows:     make([][]string, 0, len(t.Rows)),
		Warnings: mapping.Warnings,
	}

	keyIdx := -1
	if s.PrimaryKey != "" {
		keyIdx = mapping.Index(s.PrimaryKey)
		if keyIdx < 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("primary key column %q not present; deduplication skipped", s.PrimaryKey))
		}
	}
	exclIdx := -1
	if s.ExclusionColumn != "" {
		exclIdx = mapping.Index(s.ExclusionColumn)
	}

	seen := make(map[string]struct{}, len(t.Rows))
	for _, raw := range t.Rows {
		res.Stats.Read++
		row := make([]string, len(mapping.Columns))
		blank := true
		for j, col := range mapping.Columns {
			src := mapping.Sources[j]
			var cell string
			if src < len(raw) {
				cell = raw[src]
			}
			row[j] = s.Normalize(col, cell)
			if row[j] != "" {
				blank = false
			}
		}

		switch {
		case blank:
			res.Stats.Blank++
			continue
		case keyIdx >= 0 && row[keyIdx] == "":
			res.Stats.MissingKey++
			continue
		case exclIdx >= 0 && strings.EqualFold(row[exclIdx], s.ExclusionValue):
			res.Stats.Excluded++
			continue
		}
		if keyIdx >= 0 {
			if _, dup := seen[row[keyIdx]]; dup {
				res.Stats.Duplicate++
				continue
			}
			seen[row[keyIdx]] = struct{}{}
		}
		res.Rows = append(res.Rows, row)
	}
	res.Stats.Emitted = len(res.Rows)
	return res
}
