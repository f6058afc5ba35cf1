package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// NewS3Client creates an S3 client. A non-empty endpoint points it at a local
// S3 compatible server (minio, localstack) with path-style addressing.
func NewS3Client(ctx context.Context, endpoint string) (*s3.Client, error) {
	if endpoint != "" {
		log.Debug().Str("endpoint", endpoint).Msg("Using local S3 endpoint")
		cfg, err := config.LoadDefaultConfig(ctx,
			config.WithRegion("us-east-1"),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
			config.WithClientLogMode(aws.LogRetries),
		)
		if err != nil {
			return nil, err
		}

		return s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}), nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg), nil
}
