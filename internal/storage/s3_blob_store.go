package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// S3Client defines the interface for S3 operations we need
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3BlobStore publishes and reads snapshot objects in one bucket
type S3BlobStore struct {
	client     S3Client
	bucketName string
}

var _ BlobStore = (*S3BlobStore)(nil)

func NewS3BlobStore(client S3Client, bucketName string) *S3BlobStore {
	return &S3BlobStore{
		client:     client,
		bucketName: bucketName,
	}
}

// Publish gzips data and overwrites key. S3 replaces the object atomically,
// so readers see either the previous or the new snapshot.
func (s *S3BlobStore) Publish(ctx context.Context, key string, data []byte, opts PublishOptions) error {
	if s.bucketName == "" {
		return &StorageError{Op: "publish", Key: key, Err: fmt.Errorf("empty bucket name")}
	}
	opts = opts.withDefaults()

	body, err := gzipBytes(data)
	if err != nil {
		return &StorageError{Op: "publish", Bucket: s.bucketName, Key: key, Err: err}
	}

	input := &s3.PutObjectInput{
		Bucket:            aws.String(s.bucketName),
		Key:               aws.String(key),
		Body:              bytes.NewReader(body),
		ContentLength:     aws.Int64(int64(len(body))),
		ContentType:       aws.String(opts.ContentType),
		ContentEncoding:   aws.String(contentEncodingGzip),
		CacheControl:      aws.String(opts.cacheControl()),
		ChecksumAlgorithm: types.ChecksumAlgorithmCrc32c,
	}
	if opts.ContentLanguage != "" {
		input.ContentLanguage = aws.String(opts.ContentLanguage)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return &StorageError{Op: "publish", Bucket: s.bucketName, Key: key, Err: err}
	}

	log.Debug().
		Str("bucket", s.bucketName).
		Str("key", key).
		Int("bytes", len(data)).
		Int("gzip_bytes", len(body)).
		Msg("Published object to S3")
	return nil
}

// FetchBlob returns the object at key, decompressed when it was stored gzipped.
func (s *S3BlobStore) FetchBlob(ctx context.Context, key string) ([]byte, error) {
	if s.bucketName == "" {
		return nil, &StorageError{Op: "fetch", Key: key, Err: fmt.Errorf("empty bucket name")}
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &StorageError{Op: "fetch", Bucket: s.bucketName, Key: key, Err: err}
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			log.Error().Err(err).Msg("Error closing S3 object body")
		}
	}(result.Body)

	raw, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, &StorageError{Op: "fetch", Bucket: s.bucketName, Key: key, Err: err}
	}

	if aws.ToString(result.ContentEncoding) == contentEncodingGzip || isGzip(raw) {
		if raw, err = gunzipBytes(raw); err != nil {
			return nil, &StorageError{Op: "fetch", Bucket: s.bucketName, Key: key, Err: err}
		}
	}
	return raw, nil
}
