package tabular

import (
	"fmt"
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// FallbackName derives a column name for a header the mapping table does not
// know: lower-cased with every run of other characters collapsed to "_".
func FallbackName(header string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(header), "_")
}

// HeaderMapping is the result of mapping one input header row.
type HeaderMapping struct {
	// Columns are the canonical names in output order.
	Columns []string
	// Sources holds, for each entry of Columns, the index of the input
	// field it is read from.
	Sources []int
	// Warnings describe dropped colliding headers.
	Warnings []string
}

// MapHeaders maps an input header row onto canonical names. Placeholder and
// unnamed columns are skipped. When two headers resolve to the same canonical
// name the first one is kept and the later one is dropped with a warning.
func (s *Schema) MapHeaders(header []string) HeaderMapping {
	m := HeaderMapping{
		Columns: make([]string, 0, len(header)),
		Sources: make([]int, 0, len(header)),
	}
	taken := make(map[string]string, len(header))
	for i, raw := range header {
		h := strings.TrimSpace(raw)
		if s.skipHeader(h) {
			continue
		}
		name, ok := s.Headers[h]
		if !ok {
			name = FallbackName(h)
		}
		if prev, dup := taken[name]; dup {
			m.Warnings = append(m.Warnings, fmt.Sprintf("column %q maps to %q already taken by %q; dropped", h, name, prev))
			continue
		}
		taken[name] = h
		m.Columns = append(m.Columns, name)
		m.Sources = append(m.Sources, i)
	}
	return m
}

// Index returns the position of column in Columns, or -1.
func (m HeaderMapping) Index(column string) int {
	for i, c := range m.Columns {
		if c == column {
			return i
		}
	}
	return -1
}
