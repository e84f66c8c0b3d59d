package tabular

import (
	"fmt"
	"strings"
)

// Table is a parsed input: one header and the data records beneath it.
type Table struct {
	Header []string
	Rows   [][]string
	// HeaderIndex is the zero-based record index the header was taken from.
	HeaderIndex int
}

// FirstRowTable uses the first record as the header.
func FirstRowTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrParse)
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// DetectedTable uses the first record that contains every name in sample
// as the header. Records above it are discarded.
func DetectedTable(records [][]string, sample []string) (*Table, error) {
	idx := DetectHeader(records, sample)
	if idx < 0 {
		return nil, fmt.Errorf("%w: expected columns %s", ErrHeaderNotFound, strings.Join(sample, ", "))
	}
	return &Table{Header: records[idx], Rows: records[idx+1:], HeaderIndex: idx}, nil
}

// DetectHeader returns the index of the first record holding every sample
// name (trimmed, case-insensitive), or -1.
func DetectHeader(records [][]string, sample []string) int {
	if len(sample) == 0 {
		if len(records) == 0 {
			return -1
		}
		return 0
	}
	for i, rec := range records {
		seen := make(map[string]struct{}, len(rec))
		for _, cell := range rec {
			seen[strings.ToLower(strings.TrimSpace(cell))] = struct{}{}
		}
		matched := true
		for _, name := range sample {
			if _, ok := seen[strings.ToLower(name)]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return i
		}
	}
	return -1
}
