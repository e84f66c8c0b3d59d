package document

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/ledgerdesk/pkg/serrors"
)

var (
	ErrNotFound        = serrors.NewError("DOCUMENT_NOT_FOUND", "document not found", "Documents.Errors.NotFound")
	ErrUnsupportedType = serrors.NewError("DOCUMENT_UNSUPPORTED_TYPE", "file type is not accepted", "Documents.Errors.UnsupportedType")
	ErrEmpty           = serrors.NewError("DOCUMENT_EMPTY", "file is empty", "Documents.Errors.Empty")
	ErrAnalysisFailed  = serrors.NewError("DOCUMENT_ANALYSIS_FAILED", "document analysis failed", "Documents.Errors.AnalysisFailed")
	ErrAnalysisOff     = serrors.NewError("DOCUMENT_ANALYSIS_DISABLED", "document analysis is not configured", "Documents.Errors.AnalysisDisabled")
)

type Document struct {
	ID          uuid.UUID `json:"id"`
	ClientID    uuid.UUID `json:"clientId"`
	Filename    string    `json:"filename"`
	Category    string    `json:"category,omitempty"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	Bucket      string    `json:"-"`
	Path        string    `json:"-"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Document, error)
	Create(ctx context.Context, d *Document) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Analysis is the verdict on whether a client's documents cover a task.
type Analysis struct {
	DocumentID uuid.UUID `json:"documentId"`
	Task       string    `json:"task"`
	Sufficient bool      `json:"sufficient"`
	Missing    []string  `json:"missing"`
	Summary    string    `json:"summary"`
	Model      string    `json:"model"`
	Cached     bool      `json:"cached"`
}
