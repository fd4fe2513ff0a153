package blob

import (
	"context"
	"io"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Store is an opaque blob store keyed by caller-issued identifiers.
// Upload returns the public URL of the stored object.
type Store interface {
	Upload(ctx context.Context, kind Kind, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, kind Kind, key string) error
}
