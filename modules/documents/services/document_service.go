package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/documents/domain/entities/document"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
	"github.com/iota-uz/ledgerdesk/pkg/eventbus"
	"github.com/iota-uz/ledgerdesk/pkg/storage"
	"github.com/iota-uz/ledgerdesk/pkg/tabular"
)

const (
	xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// excerptLimit bounds how much of a document is quoted to the model.
	excerptLimit = 4000
)

// acceptedTypes are matched against the sniffed type and its parents, so
// text/csv is accepted through text/plain.
var acceptedTypes = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"text/plain",
	xlsxMIME,
	docxMIME,
}

type ClientReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*client.Client, error)
}

type DocumentService struct {
	repo      document.Repository
	clients   ClientReader
	store     storage.Storage
	bucket    string
	publisher eventbus.EventBus
}

func NewDocumentService(
	repo document.Repository,
	clients ClientReader,
	store storage.Storage,
	bucket string,
	publisher eventbus.EventBus,
) *DocumentService {
	return &DocumentService{
		repo:      repo,
		clients:   clients,
		store:     store,
		bucket:    bucket,
		publisher: publisher,
	}
}

func (s *DocumentService) GetByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DocumentService) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*document.Document, error) {
	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		return nil, err
	}
	docs, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*document.Document{}
	}
	return docs, nil
}

// Upload stores the file under <client id>/<document id>-<filename> and
// records it. The stored object is removed again if the row cannot be saved.
func (s *DocumentService) Upload(ctx context.Context, clientID uuid.UUID, dto *document.UploadDTO) (*document.Document, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		return nil, err
	}
	contentType, ok := detectType(dto.Data)
	if !ok {
		return nil, document.ErrUnsupportedType
	}

	sum := sha256.Sum256(dto.Data)
	id := uuid.New()
	name := safeFilename(dto.Filename)
	objectPath := fmt.Sprintf("%s/%s-%s", clientID, id, name)
	if err := s.store.Save(ctx, s.bucket, objectPath, dto.Data, contentType); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	created, err := s.repo.Create(ctx, &document.Document{
		ID:          id,
		ClientID:    clientID,
		Filename:    name,
		Category:    dto.Category,
		ContentType: contentType,
		Size:        int64(len(dto.Data)),
		Checksum:    hex.EncodeToString(sum[:]),
		Bucket:      s.bucket,
		Path:        objectPath,
		UploadedAt:  time.Now().UTC(),
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, s.bucket, objectPath); delErr != nil {
			composables.UseLogger(ctx).WithError(delErr).WithField("path", objectPath).
				Warn("documents: failed to remove orphaned object")
		}
		return nil, err
	}

	s.publisher.Publish(&storage.ObjectCreatedEvent{
		Bucket:      created.Bucket,
		Path:        created.Path,
		Size:        created.Size,
		ContentType: created.ContentType,
		Source:      "upload",
		CreatedAt:   created.UploadedAt,
	})
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"document_id": created.ID,
		"client_id":   clientID,
		"size":        created.Size,
	}).Info("documents: uploaded")
	return created, nil
}

// Download returns the document record with its content.
func (s *DocumentService) Download(ctx context.Context, id uuid.UUID) (*document.Document, []byte, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.store.Download(ctx, doc.Bucket, doc.Path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, document.ErrNotFound
		}
		return nil, nil, fmt.Errorf("download document: %w", err)
	}
	return doc, data, nil
}

// Delete removes the stored object and the record. A missing object does not
// keep the record alive.
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, doc.Bucket, doc.Path); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("delete stored document: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return doc, nil
}

func detectType(data []byte) (string, bool) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		for _, accepted := range acceptedTypes {
			if m.Is(accepted) {
				return mt.String(), true
			}
		}
	}
	return "", false
}

func safeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return name
}

// excerpt renders the readable part of a document for the analysis prompt.
// Binary formats other than spreadsheets yield "".
func excerpt(doc *document.Document, data []byte) string {
	switch {
	case mimetype.EqualsAny(baseType(doc.ContentType), xlsxMIME):
		rows, err := tabular.ReadXLSX(bytes.NewReader(data))
		if err != nil {
			return ""
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, strings.Join(row, ", "))
		}
		return clip(strings.Join(lines, "\n"), excerptLimit)
	case strings.HasPrefix(doc.ContentType, "text/"):
		decoded, _, err := tabular.Decode(data)
		if err != nil {
			return ""
		}
		return clip(string(decoded), excerptLimit)
	default:
		return ""
	}
}

func baseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		return strings.TrimSpace(contentType[:i])
	}
	return contentType
}

func clip(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "…"
}
