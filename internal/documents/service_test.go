// internal/documents/service_test.go
package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cites-permits/internal/common/logger"
	"cites-permits/internal/models"
)

type fakeStorage struct {
	stored  []Meta
	deleted []string
	err     error
}

func (f *fakeStorage) Store(_ context.Context, _ []byte, meta Meta) (*models.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.stored = append(f.stored, meta)
	return &models.Document{
		StorageID:    "doc-1",
		URL:          "https://permit-docs.s3.eu-west-1.amazonaws.com/documents/doc-1",
		OriginalName: meta.OriginalName,
		Format:       formatOf(meta.OriginalName),
		UploadedAt:   time.Now().UTC(),
	}, nil
}

func (f *fakeStorage) Delete(_ context.Context, storageID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, storageID)
	return nil
}

func TestUploadAllPartialSuccess(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewService(storage, 0, logger.NewTestLogger(t))

	results := svc.UploadAll(context.Background(), []Upload{
		{Data: []byte("pdf bytes"), Meta: Meta{OriginalName: "export-license.pdf", ContentType: "application/pdf"}},
		{Data: []byte("exe bytes"), Meta: Meta{OriginalName: "malware.exe", ContentType: "application/octet-stream"}},
		{Data: []byte("photo"), Meta: Meta{OriginalName: "specimen.jpg", ContentType: "image/jpeg"}},
	})

	require.Len(t, results, 3)
	assert.NotNil(t, results[0].Document)
	assert.Empty(t, results[0].Error)
	assert.Nil(t, results[1].Document)
	assert.Contains(t, results[1].Error, "unsupported file format")
	assert.NotNil(t, results[2].Document)
	assert.Len(t, storage.stored, 2)
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	svc := NewService(&fakeStorage{}, 4, logger.NewTestLogger(t))

	results := svc.UploadAll(context.Background(), []Upload{
		{Data: []byte("too large"), Meta: Meta{OriginalName: "big.pdf"}},
	})

	require.Len(t, results, 1)
	assert.Nil(t, results[0].Document)
	assert.Contains(t, results[0].Error, "byte limit")
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	svc := NewService(&fakeStorage{}, 0, logger.NewTestLogger(t))

	results := svc.UploadAll(context.Background(), []Upload{
		{Data: nil, Meta: Meta{OriginalName: "empty.pdf"}},
	})

	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "empty")
}

func TestUploadBackendFailureDoesNotAbortBatch(t *testing.T) {
	storage := &fakeStorage{err: errors.New("s3 down")}
	svc := NewService(storage, 0, logger.NewTestLogger(t))

	results := svc.UploadAll(context.Background(), []Upload{
		{Data: []byte("a"), Meta: Meta{OriginalName: "a.pdf"}},
		{Data: []byte("b"), Meta: Meta{OriginalName: "b.pdf"}},
	})

	require.Len(t, results, 2)
	assert.NotEmpty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
}

func TestDelete(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewService(storage, 0, logger.NewTestLogger(t))

	require.NoError(t, svc.Delete(context.Background(), "doc-1"))
	assert.Equal(t, []string{"doc-1"}, storage.deleted)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, "pdf", formatOf("license.PDF"))
	assert.Equal(t, "docx", formatOf("statement.docx"))
	assert.Equal(t, "", formatOf("noextension"))
	assert.Equal(t, "", formatOf("trailing."))
}
