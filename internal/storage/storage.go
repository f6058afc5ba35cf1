// Package storage is the blob sink the crawler publishes snapshots to and
// the query side reads them back from.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

const (
	contentEncodingGzip = "gzip"
	defaultContentType  = "text/csv; charset=utf-8"
	defaultMaxAge       = 30
)

type BlobStore interface {
	Publish(ctx context.Context, key string, data []byte, opts PublishOptions) error
	FetchBlob(ctx context.Context, key string) ([]byte, error)
}

// PublishOptions is the object metadata written with a snapshot.
type PublishOptions struct {
	ContentType        string
	CacheMaxAgeSeconds int
	ContentLanguage    string
}

func (o PublishOptions) withDefaults() PublishOptions {
	if o.ContentType == "" {
		o.ContentType = defaultContentType
	}
	if o.CacheMaxAgeSeconds <= 0 {
		o.CacheMaxAgeSeconds = defaultMaxAge
	}
	return o
}

func (o PublishOptions) cacheControl() string {
	return fmt.Sprintf("public, max-age=%d", o.CacheMaxAgeSeconds)
}

// StorageError wraps a failed blob operation.
type StorageError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("kind", "StorageError").
		Str("op", e.Op).
		Str("bucket", e.Bucket).
		Str("key", e.Key).
		AnErr("cause", e.Err)
}

// gzipBytes compresses data with a zero header timestamp, so equal input
// yields equal output.
func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing: %w", err)
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return out, nil
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}
