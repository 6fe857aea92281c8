// Package objectstore holds the byte payloads of uploaded files, addressed by opaque keys.
package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when no object exists under the requested key.
var ErrNotFound = errors.New("object not found")

// ObjectInfo is the result of a stat call.
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// Reader is the read side used by share downloads and media delivery.
// Returned streams must be closed by the caller.
type Reader interface {
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	GetPartial(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error)
}

// Store adds the write side used by uploads and deletes.
type Store interface {
	Reader
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key, downloadName string, expires time.Duration) (string, error)
}
