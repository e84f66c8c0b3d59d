package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/documents/domain/entities/document"
	"github.com/iota-uz/ledgerdesk/pkg/eventbus"
	"github.com/iota-uz/ledgerdesk/pkg/serrors"
	"github.com/iota-uz/ledgerdesk/pkg/storage"
)

const testBucket = "client-documents"

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

type fixture struct {
	svc     *DocumentService
	repo    *memRepo
	root    string
	client  *client.Client
	created []*storage.ObjectCreatedEvent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	bus := eventbus.NewEventPublisher(logger)
	c := &client.Client{ID: uuid.New(), Name: "Acme Ltd"}
	f := &fixture{repo: &memRepo{}, root: t.TempDir(), client: c}
	bus.Subscribe(func(e *storage.ObjectCreatedEvent) {
		f.created = append(f.created, e)
	})
	f.svc = NewDocumentService(f.repo, clientMap{c.ID: c}, storage.NewLocalStorage(f.root), testBucket, bus)
	return f
}

func TestDocumentService_Upload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, f.client.ID, &document.UploadDTO{
		Filename: "  ../2024 accounts.pdf ",
		Category: " Accounts ",
		Data:     pdfBytes,
	})
	require.NoError(t, err)
	require.Equal(t, "2024 accounts.pdf", doc.Filename)
	require.Equal(t, "accounts", doc.Category)
	require.Equal(t, "application/pdf", doc.ContentType)
	require.Equal(t, int64(len(pdfBytes)), doc.Size)
	require.Len(t, doc.Checksum, 64)
	require.Equal(t, f.client.ID.String()+"/"+doc.ID.String()+"-2024 accounts.pdf", doc.Path)

	stored, err := os.ReadFile(filepath.Join(f.root, testBucket, f.client.ID.String(), doc.ID.String()+"-2024 accounts.pdf"))
	require.NoError(t, err)
	require.Equal(t, pdfBytes, stored)

	require.Len(t, f.created, 1)
	require.Equal(t, testBucket, f.created[0].Bucket)
	require.Equal(t, doc.Path, f.created[0].Path)
	require.Equal(t, "upload", f.created[0].Source)
}

func TestDocumentService_Upload_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, f.client.ID, &document.UploadDTO{Filename: "a.pdf"})
	require.ErrorIs(t, err, document.ErrEmpty)

	_, err = f.svc.Upload(ctx, f.client.ID, &document.UploadDTO{Filename: "a.gif", Data: []byte("GIF89a\x01\x00\x01\x00")})
	require.ErrorIs(t, err, document.ErrUnsupportedType)

	_, err = f.svc.Upload(ctx, uuid.New(), &document.UploadDTO{Filename: "a.pdf", Data: pdfBytes})
	require.ErrorIs(t, err, client.ErrNotFound)

	_, err = f.svc.Upload(ctx, f.client.ID, &document.UploadDTO{Filename: "   ", Data: pdfBytes})
	var verrs serrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "Filename")

	require.Empty(t, f.created)
}

func TestDocumentService_Upload_RemovesObjectWhenRecordFails(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("db down")

	_, err := f.svc.Upload(context.Background(), f.client.ID, &document.UploadDTO{Filename: "notes.txt", Data: []byte("hello")})
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(f.root, testBucket, f.client.ID.String()))
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Empty(t, f.created)
}

func TestDocumentService_DownloadAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, f.client.ID, &document.UploadDTO{Filename: "notes.txt", Data: []byte("VAT receipts for Q1")})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(doc.ContentType, "text/plain"))

	got, data, err := f.svc.Download(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.ID, got.ID)
	require.Equal(t, "VAT receipts for Q1", string(data))

	list, err := f.svc.ListByClient(ctx, f.client.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.svc.Delete(ctx, doc.ID)
	require.NoError(t, err)
	_, _, err = f.svc.Download(ctx, doc.ID)
	require.ErrorIs(t, err, document.ErrNotFound)

	list, err = f.svc.ListByClient(ctx, f.client.ID)
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)

	_, err = f.svc.ListByClient(ctx, uuid.New())
	require.ErrorIs(t, err, client.ErrNotFound)
}

func TestSafeFilename(t *testing.T) {
	require.Equal(t, "x.pdf", safeFilename(`C:\Users\me\x.pdf`))
	require.Equal(t, "ab.txt", safeFilename("a\x00b.txt"))
	require.Equal(t, "document", safeFilename("/"))
}

func TestClip(t *testing.T) {
	require.Equal(t, "abc", clip("  abc ", 5))
	require.Equal(t, "ab…", clip("abcdef", 2))
}
