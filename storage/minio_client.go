// Package storage downloads submitted attachments and mirrors them into an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"loopbot/apperror"
	"loopbot/model"
)

// Mirror copies an attachment and returns the stored object name.
type Mirror interface {
	MirrorAttachment(ctx context.Context, authorID, fileName, sourceURL string) (string, error)
}

// ObjectPutter is the subset of *minio.Client used by MinIOMirror.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinIOMirror stores attachments in a MinIO bucket.
type MinIOMirror struct {
	client ObjectPutter
	bucket string
	http   *http.Client
	now    func() time.Time
}

// NewMinIOMirror connects to the configured endpoint. It returns nil, nil when no endpoint is set.
func NewMinIOMirror(ctx context.Context, cfg model.Integrations, timeout time.Duration) (*MinIOMirror, error) {
	if cfg.MinioEndpoint == "" {
		return nil, nil
	}
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinioBucket, err)
		}
	}
	return NewMirror(client, cfg.MinioBucket, timeout), nil
}

// NewMirror wraps an existing client.
func NewMirror(client ObjectPutter, bucket string, timeout time.Duration) *MinIOMirror {
	return &MinIOMirror{client: client, bucket: bucket, http: &http.Client{Timeout: timeout}, now: time.Now}
}

// MirrorAttachment downloads sourceURL and uploads it under submissions/<author>/<yyyy>/<mm>/<uuid><ext>.
func (m *MinIOMirror) MirrorAttachment(ctx context.Context, authorID, fileName, sourceURL string) (string, error) {
	resp, err := fetch(ctx, m.http, sourceURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	fileExt := strings.ToLower(filepath.Ext(fileName))
	contentType := contentTypeOf(resp, fileName)

	now := m.now().UTC()
	objectName := fmt.Sprintf("submissions/%s/%d/%02d/%s%s", authorID, now.Year(), now.Month(), uuid.New().String(), fileExt)

	_, err = m.client.PutObject(ctx, m.bucket, objectName, resp.Body, resp.ContentLength, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"original-filename": fileName,
			"author-id":         authorID,
			"uploaded-at":       now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", apperror.External("minio", err)
	}
	return objectName, nil
}
