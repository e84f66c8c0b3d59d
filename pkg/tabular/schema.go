// Package tabular cleans delimited registry extracts into a canonical column
// set. A run is a straight line: read records, pick the header, map headers,
// normalize every cell, filter rows, then emit as CSV text or as upsert
// batches. Nothing is kept between runs.
package tabular

import "strings"

type Kind int

const (
	KindText Kind = iota
	KindDate
	KindInteger
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindInteger:
		return "integer"
	default:
		return "text"
	}
}

// Schema is the static configuration shared by every variant of the
// pipeline. Treat a Schema as read-only once built.
type Schema struct {
	// Headers maps an external header (trimmed) to its canonical name.
	Headers map[string]string
	// Kinds holds the semantic kind of canonical columns. Missing means text.
	Kinds map[string]Kind
	// Sentinels are upper-case values that mean "no date" in a date column.
	Sentinels map[string]struct{}

	// PlaceholderHeader and UnnamedPrefix identify headers produced by
	// spreadsheet tools for columns that carry no data.
	PlaceholderHeader string
	UnnamedPrefix     string

	// HeaderSample is the set of raw header names that identifies the
	// header row when it is not the first record.
	HeaderSample []string

	PrimaryKey string

	ExclusionColumn string
	ExclusionValue  string

	// LegacyMonthColumn is an integer column that older extracts filled
	// with a full DD/MM/YYYY date; the month is salvaged from it.
	LegacyMonthColumn string

	// IsCount reports whether a canonical column holds a count that may
	// arrive with a decimal artifact ("3.0").
	IsCount func(column string) bool
	// IsSoftDate reports whether a text column holds a date that should be
	// reformatted when possible but never blanked.
	IsSoftDate func(column string) bool
}

func (s *Schema) kind(column string) Kind {
	if k, ok := s.Kinds[column]; ok {
		return k
	}
	return KindText
}

func (s *Schema) isSentinel(upper string) bool {
	_, ok := s.Sentinels[upper]
	return ok
}

func (s *Schema) skipHeader(h string) bool {
	if h == "" {
		return true
	}
	if s.PlaceholderHeader != "" && h == s.PlaceholderHeader {
		return true
	}
	return s.UnnamedPrefix != "" && strings.HasPrefix(h, s.UnnamedPrefix)
}

// SentinelSet builds a sentinel lookup from plain values.
func SentinelSet(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[strings.ToUpper(strings.TrimSpace(v))] = struct{}{}
	}
	return out
}
