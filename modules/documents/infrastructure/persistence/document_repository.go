package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/iota-uz/ledgerdesk/modules/documents/domain/entities/document"
	"github.com/iota-uz/ledgerdesk/modules/documents/infrastructure/persistence/models"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
)

const (
	documentColumns = `id, client_id, filename, category, content_type, size, checksum, bucket, path, uploaded_at`

	selectDocumentsQuery = `SELECT ` + documentColumns + ` FROM documents`

	insertDocumentQuery = `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + documentColumns

	deleteDocumentQuery = `DELETE FROM documents WHERE id = $1`
)

type DocumentRepository struct{}

func NewDocumentRepository() document.Repository {
	return &DocumentRepository{}
}

func (g *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	docs, err := g.query(ctx, selectDocumentsQuery+" WHERE id = $1", id.String())
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, document.ErrNotFound
	}
	return docs[0], nil
}

func (g *DocumentRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*document.Document, error) {
	return g.query(ctx, selectDocumentsQuery+" WHERE client_id = $1 ORDER BY uploaded_at DESC", clientID.String())
}

func (g *DocumentRepository) Create(ctx context.Context, d *document.Document) (*document.Document, error) {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now()
	}
	m := ToDBDocument(d)
	created, err := scanDocument(tx.QueryRow(ctx, insertDocumentQuery,
		m.ID, m.ClientID, m.Filename, m.Category, m.ContentType, m.Size, m.Checksum, m.Bucket, m.Path, m.UploadedAt,
	))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}
	return created, nil
}

func (g *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(ctx, deleteDocumentQuery, id.String())
	if err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	if tag.RowsAffected() == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (g *DocumentRepository) query(ctx context.Context, query string, args ...any) ([]*document.Document, error) {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query documents")
	}
	defer rows.Close()

	var out []*document.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating documents")
	}
	return out, nil
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	var m models.Document
	if err := row.Scan(
		&m.ID,
		&m.ClientID,
		&m.Filename,
		&m.Category,
		&m.ContentType,
		&m.Size,
		&m.Checksum,
		&m.Bucket,
		&m.Path,
		&m.UploadedAt,
	); err != nil {
		return nil, err
	}
	return ToDomainDocument(&m)
}
