package persistence

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iota-uz/ledgerdesk/modules/documents/domain/entities/document"
	"github.com/iota-uz/ledgerdesk/modules/documents/infrastructure/persistence/models"
)

func ToDomainDocument(m *models.Document) (*document.Document, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse document id")
	}
	clientID, err := uuid.Parse(m.ClientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse client id")
	}
	return &document.Document{
		ID:          id,
		ClientID:    clientID,
		Filename:    m.Filename,
		Category:    m.Category.String,
		ContentType: m.ContentType,
		Size:        m.Size,
		Checksum:    m.Checksum,
		Bucket:      m.Bucket,
		Path:        m.Path,
		UploadedAt:  m.UploadedAt,
	}, nil
}

func ToDBDocument(d *document.Document) *models.Document {
	return &models.Document{
		ID:          d.ID.String(),
		ClientID:    d.ClientID.String(),
		Filename:    d.Filename,
		Category:    sql.NullString{String: d.Category, Valid: d.Category != ""},
		ContentType: d.ContentType,
		Size:        d.Size,
		Checksum:    d.Checksum,
		Bucket:      d.Bucket,
		Path:        d.Path,
		UploadedAt:  d.UploadedAt,
	}
}
