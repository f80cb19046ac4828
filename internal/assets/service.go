// Package assets stores client logos and generated images in S3-compatible
// object storage.
package assets

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Service struct {
	client   *minio.Client
	bucket   string
	endpoint string
	useSSL   bool
}

func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Service, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return &Service{
		client:   client,
		bucket:   bucket,
		endpoint: endpoint,
		useSSL:   useSSL,
	}, nil
}

// EnsureBucket creates the bucket on first boot if it does not exist.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// UploadLogo stores a client's logo and returns its public URL. Re-uploads
// overwrite the previous logo for the same client and extension.
func (s *Service) UploadLogo(ctx context.Context, clientID string, reader io.Reader, size int64, contentType string) (string, error) {
	ext := extensionFor(contentType)
	if ext == "" {
		return "", fmt.Errorf("unsupported logo content type %q", contentType)
	}
	objectName := path.Join("logos", clientID+ext)
	return s.put(ctx, objectName, reader, size, contentType)
}

// UploadGeneratedImage stores an AI-generated image under the owning client.
func (s *Service) UploadGeneratedImage(ctx context.Context, clientID string, reader io.Reader, size int64, contentType string) (string, error) {
	ext := extensionFor(contentType)
	if ext == "" {
		ext = ".png"
	}
	objectName := path.Join("generated", clientID, fmt.Sprintf("%d%s", time.Now().UnixNano(), ext))
	return s.put(ctx, objectName, reader, size, contentType)
}

func (s *Service) put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	return s.objectURL(objectName), nil
}

func (s *Service) objectURL(objectName string) string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, objectName)
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	default:
		return ""
	}
}
