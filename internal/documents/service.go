// internal/documents/service.go
package documents

import (
	"context"
	"fmt"
	"strings"

	apperrors "cites-permits/internal/common/errors"
	"cites-permits/internal/common/logger"
	"cites-permits/internal/common/metrics"
	"cites-permits/internal/models"
)

const DefaultMaxSizeBytes = 10 * 1024 * 1024

var allowedFormats = map[string]bool{
	"pdf":  true,
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"doc":  true,
	"docx": true,
}

// Upload is one file in a batch.
type Upload struct {
	Data []byte
	Meta Meta
}

// UploadResult reports the outcome per file.
type UploadResult struct {
	OriginalName string           `json:"originalName"`
	Document     *models.Document `json:"document,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// Service enforces size and format limits and uploads batches with
// per-file partial success.
type Service struct {
	storage      Storage
	maxSizeBytes int64
	logger       logger.Logger
}

func NewService(storage Storage, maxSizeBytes int64, log logger.Logger) *Service {
	if maxSizeBytes <= 0 {
		maxSizeBytes = DefaultMaxSizeBytes
	}
	return &Service{
		storage:      storage,
		maxSizeBytes: maxSizeBytes,
		logger:       log.WithFields(map[string]interface{}{"component": "documents"}),
	}
}

// UploadAll stores every acceptable file. One rejected or failed file
// does not abort the rest of the batch.
func (s *Service) UploadAll(ctx context.Context, uploads []Upload) []UploadResult {
	results := make([]UploadResult, 0, len(uploads))
	for _, up := range uploads {
		results = append(results, s.uploadOne(ctx, up))
	}
	return results
}

func (s *Service) uploadOne(ctx context.Context, up Upload) UploadResult {
	result := UploadResult{OriginalName: up.Meta.OriginalName}

	if err := s.validate(up); err != nil {
		metrics.DocumentUploadsTotal.WithLabelValues("rejected").Inc()
		result.Error = err.Error()
		return result
	}

	doc, err := s.storage.Store(ctx, up.Data, up.Meta)
	if err != nil {
		metrics.DocumentUploadsTotal.WithLabelValues("failure").Inc()
		s.logger.Error("document upload failed", map[string]interface{}{
			"error":    err,
			"filename": up.Meta.OriginalName,
		})
		uploadErr := apperrors.NewStorageUploadFailedError(up.Meta.OriginalName, err)
		result.Error = uploadErr.Message
		return result
	}

	metrics.DocumentUploadsTotal.WithLabelValues("success").Inc()
	s.logger.Info("document uploaded", map[string]interface{}{
		"storageId": doc.StorageID,
		"filename":  doc.OriginalName,
		"format":    doc.Format,
	})
	result.Document = doc
	return result
}

// Delete removes the stored blob. Applications keep their document
// references regardless.
func (s *Service) Delete(ctx context.Context, storageID string) error {
	if err := s.storage.Delete(ctx, storageID); err != nil {
		return apperrors.NewStorageUploadFailedError(storageID, err)
	}
	return nil
}

func (s *Service) validate(up Upload) error {
	if int64(len(up.Data)) > s.maxSizeBytes {
		return fmt.Errorf("file exceeds the %d byte limit", s.maxSizeBytes)
	}
	if len(up.Data) == 0 {
		return fmt.Errorf("file is empty")
	}
	format := formatOf(up.Meta.OriginalName)
	if !allowedFormats[format] {
		return fmt.Errorf("unsupported file format: %q", format)
	}
	return nil
}

func formatOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}
