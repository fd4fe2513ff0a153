package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/rahmatfadhil/elearn/config"
)

// GCS stores blobs in Google Cloud Storage buckets, one bucket per
// blob kind.
type GCS struct {
	client    *storage.Client
	buckets   map[Kind]string
	cdnDomain string
}

func NewGCS(ctx context.Context, cfg config.Blob) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &GCS{
		client: client,
		buckets: map[Kind]string{
			KindImage: cfg.ImageBucket,
			KindVideo: cfg.VideoBucket,
		},
		cdnDomain: cfg.CDNDomain,
	}, nil
}

func (g *GCS) bucket(kind Kind) (string, error) {
	name, ok := g.buckets[kind]
	if !ok || name == "" {
		return "", fmt.Errorf("no bucket configured for blob kind[%s]", kind)
	}
	return name, nil
}

func (g *GCS) Upload(ctx context.Context, kind Kind, key string, r io.Reader, contentType string) (string, error) {
	bucket, err := g.bucket(kind)
	if err != nil {
		return "", err
	}

	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("writing object[%s] to bucket[%s]: %w", key, bucket, err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing writer of object[%s]: %w", key, err)
	}

	return g.url(bucket, key), nil
}

func (g *GCS) Delete(ctx context.Context, kind Kind, key string) error {
	bucket, err := g.bucket(kind)
	if err != nil {
		return err
	}

	err = g.client.Bucket(bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting object[%s] from bucket[%s]: %w", key, bucket, err)
	}

	return nil
}

func (g *GCS) url(bucket, key string) string {
	if g.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", g.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}
