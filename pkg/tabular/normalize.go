package tabular

import (
	"math"
	"strconv"
	"strings"
)

// Normalize cleans one raw cell destined for column. It never fails: every
// input resolves either to a cleaned value, the trimmed original or "".
func (s *Schema) Normalize(column, raw string) string {
	v := strings.TrimSpace(raw)
	switch {
	case s.kind(column) == KindDate:
		return s.normalizeDate(v)
	case s.IsCount != nil && s.IsCount(column):
		return normalizeCount(v)
	case s.kind(column) == KindInteger:
		return s.normalizeInteger(column, v)
	case s.IsSoftDate != nil && s.IsSoftDate(column):
		if d, ok := parseDMY(v); ok {
			return d
		}
		return v
	default:
		return v
	}
}

func (s *Schema) normalizeDate(v string) string {
	if v == "" || s.isSentinel(strings.ToUpper(v)) {
		return ""
	}
	if d, ok := parseDMY(v); ok {
		return d
	}
	return v
}

// normalizeInteger keeps values that fit a Postgres integer column.
func (s *Schema) normalizeInteger(column, v string) string {
	if v == "" {
		return ""
	}
	if n, err := strconv.ParseInt(v, 10, 32); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if column == s.LegacyMonthColumn {
		if parts, ok := splitDMY(v); ok {
			n, _ := strconv.Atoi(parts[1])
			return strconv.Itoa(n)
		}
	}
	return ""
}

func normalizeCount(v string) string {
	if v == "" {
		return ""
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	// Destination columns are Postgres integer.
	f = math.Trunc(f)
	if f < math.MinInt32 || f > math.MaxInt32 {
		return ""
	}
	return strconv.FormatInt(int64(f), 10)
}

// parseDMY turns DD/MM/YYYY into YYYY-MM-DD. Only the shape is checked.
func parseDMY(v string) (string, bool) {
	parts, ok := splitDMY(v)
	if !ok {
		return "", false
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0], true
}

func splitDMY(v string) ([]string, bool) {
	parts := strings.Split(v, "/")
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 2 || len(parts[2]) != 4 {
		return nil, false
	}
	for _, p := range parts {
		if !isDigits(p) {
			return nil, false
		}
	}
	return parts, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
