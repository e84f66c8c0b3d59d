package tabular

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return &Schema{
		Headers: map[string]string{
			"Name":          "name",
			"Number":        "number",
			"Status":        "status",
			"Due.Date":      "due_date",
			"Ref.Month":     "ref_month",
			"Count.Charges": "num_charges",
			"Prev.CONDATE":  "prev_condate",
		},
		Kinds: map[string]Kind{
			"due_date":    KindDate,
			"ref_month":   KindInteger,
			"num_charges": KindInteger,
		},
		Sentinels:         SentinelSet("NO ACCOUNTS FILED", "dormant"),
		PlaceholderHeader: "__parsed_extra",
		UnnamedPrefix:     "Unnamed",
		HeaderSample:      []string{"Name", "Number"},
		PrimaryKey:        "number",
		ExclusionColumn:   "status",
		ExclusionValue:    "liquidation",
		LegacyMonthColumn: "ref_month",
		IsCount:           func(c string) bool { return strings.HasPrefix(c, "num_") },
		IsSoftDate:        func(c string) bool { return strings.HasSuffix(c, "_condate") },
	}
}

func TestFallbackName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"SICCode.SicText_5": "siccode_sictext_5",
		"Foo  Bar!!Baz":     "foo_bar_baz",
		" lead":             "_lead",
		"plain":             "plain",
	}
	for in, want := range cases {
		require.Equal(t, want, FallbackName(in), in)
	}
}

func TestMapHeaders_SkipsPlaceholdersAndKeepsFirstOnCollision(t *testing.T) {
	t.Parallel()

	s := testSchema()
	m := s.MapHeaders([]string{" Name ", "", "__parsed_extra", "Unnamed: 3", "Number", "NUMBER", "Extra Col"})

	require.Equal(t, []string{"name", "number", "extra_col"}, m.Columns)
	require.Equal(t, []int{0, 4, 6}, m.Sources)
	require.Len(t, m.Warnings, 1)
	require.Contains(t, m.Warnings[0], `"NUMBER"`)
}

func TestNormalize_Dates(t *testing.T) {
	t.Parallel()

	s := testSchema()
	cases := []struct {
		in, want string
	}{
		{"05/04/2024", "2024-04-05"},
		{"  31/12/1999 ", "1999-12-31"},
		{"5/4/2024", "5/4/2024"},
		{"05-04-2024", "05-04-2024"},
		{"aa/bb/cccc", "aa/bb/cccc"},
		{"2024-04-05", "2024-04-05"},
		{"99/99/2024", "2024-99-99"},
		{"NO ACCOUNTS FILED", ""},
		{"  no accounts filed  ", ""},
		{"Dormant", ""},
		{"", ""},
	}
	for _, tc := range cases {
		got := s.Normalize("due_date", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
		require.Equal(t, got, s.Normalize("due_date", got), "idempotence for %q", tc.in)
	}
}

func TestNormalize_Integers(t *testing.T) {
	t.Parallel()

	s := testSchema()
	require.Equal(t, "7", s.Normalize("ref_month", "07"))
	require.Equal(t, "4", s.Normalize("ref_month", "05/04/2024"))
	require.Equal(t, "", s.Normalize("ref_month", "April"))
	require.Equal(t, "", s.Normalize("ref_month", " "))

	require.Equal(t, "3", s.Normalize("num_charges", "3.0"))
	require.Equal(t, "12", s.Normalize("num_charges", " 12 "))
	require.Equal(t, "", s.Normalize("num_charges", "n/a"))
	require.Equal(t, "", s.Normalize("num_charges", ""))

	// Values outside the integer column range clear instead of wrapping.
	require.Equal(t, "", s.Normalize("num_charges", "1e30"))
	require.Equal(t, "", s.Normalize("num_charges", "-1e30"))
	require.Equal(t, "", s.Normalize("num_charges", "99999999999999999999"))
	require.Equal(t, "", s.Normalize("num_charges", "2147483648"))
	require.Equal(t, "2147483647", s.Normalize("num_charges", "2147483647.9"))
	require.Equal(t, "-2147483648", s.Normalize("num_charges", "-2147483648"))
	require.Equal(t, "", s.Normalize("ref_month", "99999999999"))
}

func TestNormalize_SoftDateAndText(t *testing.T) {
	t.Parallel()

	s := testSchema()
	require.Equal(t, "2001-02-03", s.Normalize("prev_condate", "03/02/2001"))
	require.Equal(t, "sometime", s.Normalize("prev_condate", " sometime "))
	require.Equal(t, "NO ACCOUNTS FILED", s.Normalize("prev_condate", "NO ACCOUNTS FILED"))
	require.Equal(t, "Foo, Ltd", s.Normalize("name", "  Foo, Ltd "))
}

func records(lines ...string) [][]string {
	out := make([][]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.Split(l, "|"))
	}
	return out
}

func TestClean_FilterOrder(t *testing.T) {
	t.Parallel()

	s := testSchema()
	tbl, err := FirstRowTable(records(
		"Name|Number|Status",
		"A|001|Active",
		"|| ",
		"NoKey||Active",
		"Gone|002|LIQUIDATION",
		"B|002|Active",
		"A2|001|Dissolved",
		"Short",
	))
	require.NoError(t, err)

	res := s.Clean(tbl)
	require.Equal(t, []string{"name", "number", "status"}, res.Columns)
	require.Equal(t, [][]string{
		{"A", "001", "Active"},
		{"B", "002", "Active"},
	}, res.Rows)
	require.Equal(t, Stats{Read: 7, Emitted: 2, Blank: 1, MissingKey: 2, Excluded: 1, Duplicate: 1}, res.Stats)
	require.Equal(t, map[string]string{"name": "B", "number": "002", "status": "Active"}, res.Record(1))
}

func TestClean_WithoutPrimaryKeySkipsDedup(t *testing.T) {
	t.Parallel()

	s := testSchema()
	tbl, err := FirstRowTable(records("Name|Status", "A|Active", "A|Active"))
	require.NoError(t, err)

	res := s.Clean(tbl)
	require.Len(t, res.Rows, 2)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "deduplication skipped")
}

func TestDetectHeader(t *testing.T) {
	t.Parallel()

	recs := records(
		"Registry extract|",
		"generated|today",
		"name|NUMBER |Status",
		"A|001|Active",
	)
	require.Equal(t, 2, DetectHeader(recs, []string{"Name", "Number"}))
	require.Equal(t, -1, DetectHeader(recs, []string{"Name", "Postcode"}))
	require.Equal(t, 0, DetectHeader(recs, nil))

	tbl, err := DetectedTable(recs, []string{"Name", "Number"})
	require.NoError(t, err)
	require.Equal(t, 2, tbl.HeaderIndex)
	require.Len(t, tbl.Rows, 1)

	_, err = DetectedTable(recs, []string{"Postcode"})
	require.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	recs, err := ReadCSV([]byte("\xEF\xBB\xBFName,Number\n\"Foo, \"\"Ltd\"\"\",001\nBar\n"))
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Name", "Number"}, {`Foo, "Ltd"`, "001"}, {"Bar"}}, recs)

	_, err = ReadCSV([]byte("Name,Number\n\"unterminated,001\n"))
	require.ErrorIs(t, err, ErrParse)

	_, err = ReadCSV(nil)
	require.ErrorIs(t, err, ErrParse)

	recs, enc, err := ReadCSVWithEncoding([]byte("\xEF\xBB\xBFName,Number\nFoo,001\n"))
	require.NoError(t, err)
	require.Equal(t, "utf-8-bom", enc)
	require.Equal(t, [][]string{{"Name", "Number"}, {"Foo", "001"}}, recs)

	recs, enc, err = ReadCSVWithEncoding([]byte("Name\nCaf\xe9\n"))
	require.NoError(t, err)
	require.Equal(t, "windows-1252", enc)
	require.Equal(t, "Café", recs[1][0])
}

func TestDecode(t *testing.T) {
	t.Parallel()

	out, enc, err := Decode([]byte{'C', 'a', 'f', 0xE9})
	require.NoError(t, err)
	require.Equal(t, "windows-1252", enc)
	require.Equal(t, "Café", string(out))

	utf16 := []byte{0xFF, 0xFE, 'A', 0, ',', 0, 'B', 0}
	out, enc, err = Decode(utf16)
	require.NoError(t, err)
	require.Equal(t, "utf-16le", enc)
	require.Equal(t, "A,B", string(out))

	out, enc, err = Decode([]byte("plain"))
	require.NoError(t, err)
	require.Equal(t, "utf-8", enc)
	require.Equal(t, "plain", string(out))
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	t.Parallel()

	res := &Result{
		Columns: []string{"name", "number", "notes"},
		Rows: [][]string{
			{"Foo, Ltd", "001", `said "hi"`},
			{"Bar", "002", "line one\nline two"},
			{"", "003", ""},
		},
	}
	data, err := EncodeCSV(res)
	require.NoError(t, err)

	back, err := ReadCSV(data)
	require.NoError(t, err)
	require.Equal(t, res.Columns, back[0])
	require.Equal(t, res.Rows, back[1:])
}

func TestWriteCSV_NoRows(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteCSV(&buf, &Result{Columns: []string{"a"}})
	require.ErrorIs(t, err, ErrNoRows)
	require.Zero(t, buf.Len())
}

func TestChunk(t *testing.T) {
	t.Parallel()

	require.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Chunk([]int{1, 2, 3, 4, 5}, 2))
	require.Nil(t, Chunk([]int{}, 3))
	require.Equal(t, [][]int{{1, 2}}, Chunk([]int{1, 2}, 0))
}

func TestUpsertBatches_PartialFailure(t *testing.T) {
	t.Parallel()

	res := &Result{Columns: []string{"number"}}
	for i := 0; i < 250; i++ {
		res.Rows = append(res.Rows, []string{fmt.Sprintf("%05d", i)})
	}

	var sizes []int
	calls := 0
	u := UpserterFunc(func(_ context.Context, _ []string, rows [][]string) error {
		calls++
		sizes = append(sizes, len(rows))
		if calls == 2 {
			return errors.New("statement timeout")
		}
		return nil
	})

	report, err := UpsertBatches(context.Background(), u, res, BatchOptions{Size: 100, Key: "number"})
	require.NoError(t, err)
	require.Equal(t, []int{100, 100, 50}, sizes)
	require.Equal(t, 150, report.Written)
	require.Equal(t, 100, report.Failed)
	require.Equal(t, 1, report.FailedBatches())
	require.Equal(t, "statement timeout", report.Batches[1].Error)
	require.True(t, report.Batches[2].OK())
}

func TestUpsertBatches_StopsOnCancel(t *testing.T) {
	t.Parallel()

	res := &Result{Columns: []string{"number"}, Rows: [][]string{{"1"}, {"2"}, {"3"}}}
	ctx, cancel := context.WithCancel(context.Background())
	u := UpserterFunc(func(context.Context, []string, [][]string) error {
		cancel()
		return nil
	})

	report, err := UpsertBatches(ctx, u, res, BatchOptions{Size: 1})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, report.Written)
}

func TestUpsertBatches_NoRows(t *testing.T) {
	t.Parallel()

	_, err := UpsertBatches(context.Background(), UpserterFunc(nil), &Result{}, BatchOptions{})
	require.ErrorIs(t, err, ErrNoRows)
}
