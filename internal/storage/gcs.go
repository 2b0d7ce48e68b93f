package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSStorage uploads assets to a bucket. References are public object URLs,
// under publicBaseURL when one is configured (for a CDN in front of the bucket).
type GCSStorage struct {
	client        *storage.Client
	bucket        string
	prefix        string
	publicBaseURL string
}

func NewGCSStorage(ctx context.Context, bucket, prefix, publicBaseURL string, opts ...option.ClientOption) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	if publicBaseURL == "" {
		publicBaseURL = gcsPublicHost + "/" + bucket
	}

	return &GCSStorage{
		client:        client,
		bucket:        bucket,
		prefix:        strings.Trim(prefix, "/"),
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) objectName(clean string) string {
	if s.prefix == "" {
		return clean
	}
	return s.prefix + "/" + clean
}

func (s *GCSStorage) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	clean, err := CleanPath(name)
	if err != nil {
		return "", err
	}
	object := s.objectName(clean)

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=3600"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", object, err)
	}

	return s.publicBaseURL + "/" + object, nil
}

// List returns the object names stored under dir.
func (s *GCSStorage) List(ctx context.Context, dir string) ([]string, error) {
	query := &storage.Query{Prefix: s.objectName(strings.Trim(dir, "/")) + "/"}

	var names []string
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		names = append(names, attrs.Name)
	}

	return names, nil
}
