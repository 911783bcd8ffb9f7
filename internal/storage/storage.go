// Package storage uploads finished renders to object storage. Uploads are
// optional: with no bucket configured, renders are only served from the
// local outputs directory.
package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mediaforge/renderd/internal/config"
)

// Storage provides object storage operations
type Storage struct {
	client        *minio.Client
	bucketName    string
	prefix        string
	endpoint      string
	useSSL        bool
	publicBaseURL string
}

// New creates a new storage client and ensures the bucket exists. Returns
// (nil, nil) when no bucket is configured.
func New(cfg config.StorageConfig) (*Storage, error) {
	if cfg.BucketName == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:        client,
		bucketName:    cfg.BucketName,
		prefix:        cfg.Prefix,
		endpoint:      cfg.Endpoint,
		useSSL:        cfg.UseSSL,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// UploadRender uploads a finished render and returns its public URL.
func (s *Storage) UploadRender(ctx context.Context, localPath string) (string, error) {
	key := s.prefix + filepath.Base(localPath)

	_, err := s.client.FPutObject(ctx, s.bucketName, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload render: %w", err)
	}

	return s.objectURL(key), nil
}

// objectURL builds the externally reachable URL for an uploaded object,
// preferring the configured public base URL (CDN) over the raw endpoint.
func (s *Storage) objectURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, s.endpoint, path.Join(s.bucketName, key))
}

// contentType returns the content type based on file extension
func contentType(localPath string) string {
	switch filepath.Ext(localPath) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
