package report

import (
	"context"
	"fmt"
	"io"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Sink publishes report documents to a single S3 bucket (AWS S3 or an
// S3-compatible store such as MinIO). Document names map to object keys.
type S3Sink struct {
	client *s3.Client
	bucket string
}

// NewS3Sink builds an S3 sink from SinkConfig. Credentials come from the
// default AWS chain.
func NewS3Sink(ctx context.Context, cfg SinkConfig) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 report sink requires a bucket")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Sink{client: client, bucket: cfg.Bucket}, nil
}

// Driver implements Sink.
func (s *S3Sink) Driver() Driver { return DriverS3 }

// Put implements Sink.
func (s *S3Sink) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	contentType := "text/csv"
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &clean,
		Body:        r,
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put report object %s: %w", clean, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, clean), nil
}
