// internal/documents/storage.go

// Package documents stores supporting files for permit applications.
package documents

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"cites-permits/internal/models"
)

// Meta describes an incoming file.
type Meta struct {
	OriginalName string
	ContentType  string
}

// Storage is the blob backend contract.
type Storage interface {
	Store(ctx context.Context, data []byte, meta Meta) (*models.Document, error)
	Delete(ctx context.Context, storageID string) error
}

// S3API is the slice of the S3 client the storage uses.
type S3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error)
}

// S3Storage keys documents by storage id; the original name and a
// content digest travel in object metadata.
type S3Storage struct {
	client S3API
	bucket string
	prefix string
	region string
	now    func() time.Time
}

func NewS3Storage(client S3API, bucket, prefix, region string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: bucket,
		prefix: prefix,
		region: region,
		now:    time.Now,
	}
}

func (s *S3Storage) Store(ctx context.Context, data []byte, meta Meta) (*models.Document, error) {
	sum := sha256.Sum256(data)
	storageID := uuid.New().String()
	key := s.key(storageID)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(meta.ContentType),
		Metadata: map[string]string{
			"original-name":  meta.OriginalName,
			"content-sha256": hex.EncodeToString(sum[:]),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	return &models.Document{
		StorageID:    storageID,
		URL:          fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key),
		OriginalName: meta.OriginalName,
		Format:       formatOf(meta.OriginalName),
		UploadedAt:   s.now().UTC(),
	}, nil
}

// Delete removes the blob. The document reference on any application
// record stays in place.
func (s *S3Storage) Delete(ctx context.Context, storageID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(storageID)),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *S3Storage) key(storageID string) string {
	return path.Join(s.prefix, storageID)
}
