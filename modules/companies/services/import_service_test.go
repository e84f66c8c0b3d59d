package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/ledgerdesk/modules/companies/domain/entities/company"
	"github.com/iota-uz/ledgerdesk/pkg/storage"
	"github.com/iota-uz/ledgerdesk/pkg/tabular"
)

type fakeRepo struct {
	calls    [][][]string
	columns  []string
	failCall int
	byNumber map[string]*company.Company
}

func (r *fakeRepo) Upsert(_ context.Context, columns []string, rows [][]string) error {
	r.calls = append(r.calls, rows)
	r.columns = columns
	if len(r.calls) == r.failCall {
		return errors.New("deadlock detected")
	}
	return nil
}

func (r *fakeRepo) GetByNumber(_ context.Context, number string) (*company.Company, error) {
	if c, ok := r.byNumber[number]; ok {
		return c, nil
	}
	return nil, company.ErrNotFound
}

func (r *fakeRepo) ListDue(context.Context, *company.DueParams) ([]*company.Company, error) {
	return nil, nil
}

func companiesCSV(n int) []byte {
	var b strings.Builder
	b.WriteString("Generated by registry export\n")
	b.WriteString("CompanyName, CompanyNumber,CompanyStatus,Accounts.NextDueDate\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Company %d Ltd,%08d,Active,05/04/2024\n", i, i+1)
	}
	return []byte(b.String())
}

func TestImportService_Clean(t *testing.T) {
	svc := NewImportService(&fakeRepo{}, nil, ImportOptions{})
	data := []byte("CompanyName,CompanyNumber,CompanyStatus,Accounts.NextDueDate\n" +
		"\"Foo, Ltd\",001,Active,05/04/2024\n" +
		"Foo Ltd,001,Dissolved,\n" +
		"Bar Ltd,002,Liquidation,\n")

	out, err := svc.Clean(context.Background(), data, "companies.csv")
	require.NoError(t, err)
	require.Equal(t, "csv", out.Format)
	require.Equal(t, "utf-8", out.Encoding)
	require.Equal(t, 1, out.Result.Stats.Emitted)
	require.Equal(t, "company_name,company_number,company_status,accounts_next_due_date\n\"Foo, Ltd\",001,Active,2024-04-05\n", string(out.CSV))
}

func TestImportService_Clean_NoRows(t *testing.T) {
	svc := NewImportService(&fakeRepo{}, nil, ImportOptions{})
	_, err := svc.Clean(context.Background(), []byte("CompanyNumber,CompanyStatus\n001,liquidation\n"), "x.csv")
	require.ErrorIs(t, err, tabular.ErrNoRows)
	require.Contains(t, err.Error(), "1 excluded")
}

func TestImportService_Clean_RejectsBinary(t *testing.T) {
	svc := NewImportService(&fakeRepo{}, nil, ImportOptions{})
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	_, err := svc.Clean(context.Background(), png, "logo.png")
	require.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = svc.Clean(context.Background(), nil, "empty.csv")
	require.ErrorIs(t, err, ErrEmptyFile)
}

func TestImportService_Clean_EnforcesSizeLimit(t *testing.T) {
	svc := NewImportService(&fakeRepo{}, nil, ImportOptions{MaxFileSize: 10})
	_, err := svc.Clean(context.Background(), []byte("CompanyNumber\n0001\n0002\n"), "x.csv")
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestImportService_Clean_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"CompanyName", "CompanyNumber", "IncorporationDate"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Foo Ltd", "001", "12/01/2001"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	svc := NewImportService(&fakeRepo{}, nil, ImportOptions{})
	out, err := svc.Clean(context.Background(), buf.Bytes(), "companies.xlsx")
	require.NoError(t, err)
	require.Equal(t, "xlsx", out.Format)
	require.Equal(t, "2001-01-12", out.Result.Record(0)["incorporation_date"])
}

func TestImportService_Import_PartialBatchFailure(t *testing.T) {
	repo := &fakeRepo{failCall: 2}
	svc := NewImportService(repo, nil, ImportOptions{BatchSize: 100})

	report, err := svc.Import(context.Background(), companiesCSV(250), "upload.csv")
	require.NoError(t, err)
	require.Len(t, repo.calls, 3)
	require.Len(t, repo.calls[0], 100)
	require.Len(t, repo.calls[1], 100)
	require.Len(t, repo.calls[2], 50)
	require.Equal(t, 150, report.Written)
	require.Equal(t, 100, report.Failed)
	require.Equal(t, 1, report.HeaderRow)
	require.False(t, report.Batches[1].OK())
	require.Equal(t, []string{"company_name", "company_number", "company_status", "accounts_next_due_date"}, repo.columns)
	require.Equal(t, "2024-04-05", repo.calls[0][0][3])
}

func TestImportService_Import_HeaderNotFound(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewImportService(repo, nil, ImportOptions{})
	_, err := svc.Import(context.Background(), []byte("Name,Number\nFoo,1\n"), "upload.csv")
	require.ErrorIs(t, err, tabular.ErrHeaderNotFound)
	require.Empty(t, repo.calls)
}

func TestImportService_Import_NoRowsReturnsReport(t *testing.T) {
	svc := NewImportService(&fakeRepo{}, nil, ImportOptions{})
	report, err := svc.Import(context.Background(), []byte("CompanyName,CompanyNumber\nFoo,\n"), "upload.csv")
	require.ErrorIs(t, err, tabular.ErrNoRows)
	require.NotNil(t, report)
	require.Equal(t, 1, report.Stats.MissingKey)
}

func TestImportService_ImportObject(t *testing.T) {
	store := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, store.Save(context.Background(), "company-imports", "2024/basic.csv", companiesCSV(3), "text/csv"))

	repo := &fakeRepo{}
	svc := NewImportService(repo, store, ImportOptions{Bucket: "company-imports"})
	report, err := svc.ImportObject(context.Background(), "company-imports", "2024/basic.csv")
	require.NoError(t, err)
	require.Equal(t, 3, report.Written)
	require.Equal(t, "company-imports/2024/basic.csv", report.Source)
	require.Positive(t, report.Duration)

	_, err = svc.ImportObject(context.Background(), "company-imports", "missing.csv")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

type fakeRegistry struct {
	enabled bool
	company *company.Company
	err     error
}

func (f *fakeRegistry) Enabled() bool { return f.enabled }

func (f *fakeRegistry) Company(context.Context, string) (*company.Company, error) {
	return f.company, f.err
}

func TestLookupService_Get(t *testing.T) {
	stored := &company.Company{Number: "001", Name: "Stored", Source: "store"}
	live := &company.Company{Number: "001", Name: "Live", Source: "registry"}
	repo := &fakeRepo{byNumber: map[string]*company.Company{"001": stored}}

	got, err := NewLookupService(repo, &fakeRegistry{enabled: true, company: live}).Get(context.Background(), " 001 ")
	require.NoError(t, err)
	require.Equal(t, "Live", got.Name)

	got, err = NewLookupService(repo, &fakeRegistry{enabled: true, err: errors.New("timeout")}).Get(context.Background(), "001")
	require.NoError(t, err)
	require.Equal(t, "Stored", got.Name)

	got, err = NewLookupService(repo, &fakeRegistry{}).Get(context.Background(), "001")
	require.NoError(t, err)
	require.Equal(t, "Stored", got.Name)

	_, err = NewLookupService(repo, nil).Get(context.Background(), "404")
	require.ErrorIs(t, err, company.ErrNotFound)

	_, err = NewLookupService(repo, nil).Get(context.Background(), "  ")
	require.ErrorIs(t, err, ErrInvalidNumber)
}

func TestLookupService_ListDue(t *testing.T) {
	svc := NewLookupService(&fakeRepo{}, nil)
	out, err := svc.ListDue(context.Background(), time.Now(), 10, 0)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestImportService_Detect(t *testing.T) {
	svc := NewImportService(&fakeRepo{}, nil, ImportOptions{})
	idx, err := svc.Detect(companiesCSV(2), "extract.csv")
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	_, err = svc.Detect([]byte("a,b\n1,2\n"), "other.csv")
	require.ErrorIs(t, err, tabular.ErrHeaderNotFound)
}
