package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// WriteCSV writes the canonical header followed by every row. Fields holding
// a quote, comma or line break are quoted with embedded quotes doubled.
func WriteCSV(w io.Writer, res *Result) error {
	if len(res.Rows) == 0 {
		return ErrNoRows
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(res.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// EncodeCSV is WriteCSV into memory.
func EncodeCSV(res *Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, res); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// Upserter writes one batch of rows keyed on the primary key.
type Upserter interface {
	Upsert(ctx context.Context, columns []string, rows [][]string) error
}

type UpserterFunc func(ctx context.Context, columns []string, rows [][]string) error

func (f UpserterFunc) Upsert(ctx context.Context, columns []string, rows [][]string) error {
	return f(ctx, columns, rows)
}

const DefaultBatchSize = 100

type BatchOptions struct {
	Size   int
	Logger *logrus.Entry
	// Key names the column whose first and last values identify a batch in
	// the logs.
	Key string
	// OnBatch is called after every batch attempt.
	OnBatch func(BatchResult)
}

type BatchResult struct {
	Index int    `json:"index"`
	Rows  int    `json:"rows"`
	Error string `json:"error,omitempty"`
}

func (r BatchResult) OK() bool { return r.Error == "" }

// BatchReport is the outcome of UpsertBatches. Written counts only rows of
// batches that succeeded.
type BatchReport struct {
	Batches []BatchResult `json:"batches"`
	Written int           `json:"written"`
	Failed  int           `json:"failed"`
}

func (r *BatchReport) FailedBatches() int {
	n := 0
	for _, b := range r.Batches {
		if !b.OK() {
			n++
		}
	}
	return n
}

// UpsertBatches writes res in fixed size batches. A failing batch is logged
// and recorded; the remaining batches are still attempted. Context
// cancellation stops the run between batches.
func UpsertBatches(ctx context.Context, u Upserter, res *Result, opts BatchOptions) (*BatchReport, error) {
	if len(res.Rows) == 0 {
		return nil, ErrNoRows
	}
	size := opts.Size
	if size <= 0 {
		size = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}

	keyIdx := -1
	for i, c := range res.Columns {
		if c == opts.Key {
			keyIdx = i
		}
	}

	report := &BatchReport{}
	for i, batch := range Chunk(res.Rows, size) {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("upsert interrupted after %d batches: %w", i, err)
		}
		br := BatchResult{Index: i, Rows: len(batch)}
		if err := u.Upsert(ctx, res.Columns, batch); err != nil {
			br.Error = err.Error()
			report.Failed += len(batch)
			fields := logrus.Fields{"batch": i, "rows": len(batch)}
			if keyIdx >= 0 {
				fields["first_key"] = batch[0][keyIdx]
				fields["last_key"] = batch[len(batch)-1][keyIdx]
			}
			logger.WithError(err).WithFields(fields).Error("batch upsert failed")
		} else {
			report.Written += len(batch)
		}
		report.Batches = append(report.Batches, br)
		if opts.OnBatch != nil {
			opts.OnBatch(br)
		}
	}
	return report, nil
}
