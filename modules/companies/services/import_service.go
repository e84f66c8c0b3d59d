package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/iota-uz/ledgerdesk/modules/companies/domain/entities/company"
	"github.com/iota-uz/ledgerdesk/modules/companies/domain/registry"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
	"github.com/iota-uz/ledgerdesk/pkg/serrors"
	"github.com/iota-uz/ledgerdesk/pkg/storage"
	"github.com/iota-uz/ledgerdesk/pkg/tabular"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	ErrUnsupportedFile = serrors.NewError("IMPORT_UNSUPPORTED_FILE", "file must be CSV or XLSX", "Import.Errors.UnsupportedFile")
	ErrFileTooLarge    = serrors.NewError("IMPORT_FILE_TOO_LARGE", "file exceeds the import size limit", "Import.Errors.FileTooLarge")
	ErrEmptyFile       = serrors.NewError("IMPORT_EMPTY_FILE", "file is empty", "Import.Errors.EmptyFile")
)

type ImportOptions struct {
	BatchSize   int
	MaxFileSize int64
	// Bucket is the storage bucket whose uploads are imported.
	Bucket string
}

// CleanResult is the outcome of the interactive variant.
type CleanResult struct {
	Filename string          `json:"filename"`
	Format   string          `json:"format"`
	Encoding string          `json:"encoding"`
	Result   *tabular.Result `json:"result"`
	CSV      []byte          `json:"-"`
}

// Report is the outcome of the triggered variant.
type Report struct {
	Source    string                `json:"source"`
	Format    string                `json:"format"`
	Encoding  string                `json:"encoding"`
	HeaderRow int                   `json:"headerRow"`
	Stats     tabular.Stats         `json:"stats"`
	Batches   []tabular.BatchResult `json:"batches"`
	Written   int                   `json:"written"`
	Failed    int                   `json:"failed"`
	Warnings  []string              `json:"warnings,omitempty"`
	Duration  time.Duration         `json:"durationNs"`
}

type ImportService struct {
	repo    company.Repository
	storage storage.Storage
	opts    ImportOptions
	m       *importMetrics
}

func NewImportService(repo company.Repository, store storage.Storage, opts ImportOptions) *ImportService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = tabular.DefaultBatchSize
	}
	return &ImportService{
		repo:    repo,
		storage: store,
		opts:    opts,
		m:       getImportMetrics(),
	}
}

func (s *ImportService) Bucket() string {
	return s.opts.Bucket
}

type parsed struct {
	records  [][]string
	format   string
	encoding string
}

func (s *ImportService) read(data []byte, filename string) (*parsed, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if s.opts.MaxFileSize > 0 && int64(len(data)) > s.opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, len(data), s.opts.MaxFileSize)
	}
	switch detectFormat(data, filename) {
	case "xlsx":
		records, err := tabular.ReadXLSX(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &parsed{records: records, format: "xlsx", encoding: "xlsx"}, nil
	case "csv":
		records, enc, err := tabular.ReadCSVWithEncoding(data)
		if err != nil {
			return nil, err
		}
		return &parsed{records: records, format: "csv", encoding: enc}, nil
	default:
		return nil, ErrUnsupportedFile
	}
}

// detectFormat sniffs the content. Anything that is neither a spreadsheet
// nor text-like binary is rejected.
func detectFormat(data []byte, filename string) string {
	mt := mimetype.Detect(data)
	isXLSXName := strings.EqualFold(path.Ext(filename), ".xlsx")
	if mt.Is(xlsxMIME) || (mt.Is("application/zip") && isXLSXName) {
		return "xlsx"
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return "csv"
		}
	}
	// Legacy single-byte encodings may not sniff as text.
	if mt.Is("application/octet-stream") && !isXLSXName {
		return "csv"
	}
	return ""
}

// Clean runs the interactive variant: the first record is the header and
// the cleaned table is returned as CSV text. Nothing is written.
func (s *ImportService) Clean(ctx context.Context, data []byte, filename string) (*CleanResult, error) {
	start := time.Now()
	out, err := s.clean(data, filename)
	s.observe("clean", start, statsOf(out), err)
	if err != nil {
		return nil, err
	}
	composables.UseLogger(ctx).WithFields(map[string]any{
		"filename": filename,
		"read":     out.Result.Stats.Read,
		"emitted":  out.Result.Stats.Emitted,
	}).Info("companies: cleaned file")
	return out, nil
}

func (s *ImportService) clean(data []byte, filename string) (*CleanResult, error) {
	p, err := s.read(data, filename)
	if err != nil {
		return nil, err
	}
	table, err := tabular.FirstRowTable(p.records)
	if err != nil {
		return nil, err
	}
	res := registry.Schema().Clean(table)
	out := &CleanResult{Filename: filename, Format: p.format, Encoding: p.encoding, Result: res}
	if len(res.Rows) == 0 {
		return out, noRows(res.Stats)
	}
	out.CSV, err = tabular.EncodeCSV(res)
	if err != nil {
		return out, err
	}
	return out, nil
}

// Import runs the triggered variant: the header row is detected, rows are
// cleaned and upserted in batches. A failing batch does not stop the run.
func (s *ImportService) Import(ctx context.Context, data []byte, source string) (*Report, error) {
	start := time.Now()
	logger := composables.UseLogger(ctx).WithField("source", source)

	report, err := s.importData(ctx, data, source)
	s.observe("import", start, statsOf(report), err)
	if report != nil {
		report.Duration = time.Since(start)
	}
	if err != nil {
		logger.WithError(err).Warn("companies: import failed")
		return report, err
	}
	logger.WithFields(map[string]any{
		"written": report.Written,
		"failed":  report.Failed,
		"batches": len(report.Batches),
	}).Info("companies: import finished")
	return report, nil
}

func (s *ImportService) importData(ctx context.Context, data []byte, source string) (*Report, error) {
	p, err := s.read(data, source)
	if err != nil {
		return nil, err
	}
	table, err := tabular.DetectedTable(p.records, registry.HeaderSample)
	if err != nil {
		return nil, err
	}
	res := registry.Schema().Clean(table)
	report := &Report{
		Source:    source,
		Format:    p.format,
		Encoding:  p.encoding,
		HeaderRow: table.HeaderIndex,
		Stats:     res.Stats,
		Warnings:  res.Warnings,
	}
	if len(res.Rows) == 0 {
		return report, noRows(res.Stats)
	}

	batches, err := tabular.UpsertBatches(ctx, tabular.UpserterFunc(s.repo.Upsert), res, tabular.BatchOptions{
		Size:   s.opts.BatchSize,
		Logger: composables.UseLogger(ctx).WithField("source", source),
		Key:    registry.PrimaryKey,
		OnBatch: func(b tabular.BatchResult) {
			result := "success"
			if !b.OK() {
				result = "failure"
			}
			s.m.batchTotal.WithLabelValues(result).Inc()
		},
	})
	if batches != nil {
		report.Batches = batches.Batches
		report.Written = batches.Written
		report.Failed = batches.Failed
	}
	return report, err
}

// Detect returns the zero based index of the header row in data.
func (s *ImportService) Detect(data []byte, filename string) (int, error) {
	p, err := s.read(data, filename)
	if err != nil {
		return -1, err
	}
	table, err := tabular.DetectedTable(p.records, registry.HeaderSample)
	if err != nil {
		return -1, err
	}
	return table.HeaderIndex, nil
}

// ImportObject downloads an uploaded object and imports it.
func (s *ImportService) ImportObject(ctx context.Context, bucket, objectPath string) (*Report, error) {
	data, err := s.storage.Download(ctx, bucket, objectPath)
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", bucket, objectPath, err)
	}
	return s.Import(ctx, data, bucket+"/"+objectPath)
}

func noRows(stats tabular.Stats) error {
	return fmt.Errorf("%w: %d read, %d blank, %d missing key, %d excluded, %d duplicate",
		tabular.ErrNoRows, stats.Read, stats.Blank, stats.MissingKey, stats.Excluded, stats.Duplicate)
}

func statsOf(v any) *tabular.Stats {
	switch r := v.(type) {
	case *CleanResult:
		if r != nil && r.Result != nil {
			return &r.Result.Stats
		}
	case *Report:
		if r != nil {
			return &r.Stats
		}
	}
	return nil
}

func (s *ImportService) observe(variant string, start time.Time, stats *tabular.Stats, err error) {
	result := "success"
	switch {
	case errors.Is(err, tabular.ErrNoRows):
		result = "empty"
	case err != nil:
		result = "error"
	}
	s.m.runsTotal.WithLabelValues(variant, result).Inc()
	s.m.runDuration.WithLabelValues(variant).Observe(time.Since(start).Seconds())
	if stats == nil {
		return
	}
	for outcome, n := range map[string]int{
		"emitted":     stats.Emitted,
		"blank":       stats.Blank,
		"missing_key": stats.MissingKey,
		"excluded":    stats.Excluded,
		"duplicate":   stats.Duplicate,
	} {
		s.m.rowsTotal.WithLabelValues(variant, outcome).Add(float64(n))
	}
}
