// Package export writes segment membership files to a local directory or an
// S3-compatible bucket.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"rfm-segments/pkg/config"
)

// Sink stores a named export file.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
	// Location describes where name ends up, for logs and CLI output.
	Location(name string) string
}

// FileSink writes files into Dir, creating it when needed.
type FileSink struct {
	Dir string
}

// Put writes data to Dir/name, replacing any existing file.
func (s FileSink) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(s.Location(name), data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s FileSink) Location(name string) string {
	return filepath.Join(s.Dir, name)
}

// objectPutter is the subset of *s3.Client used by S3Sink.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads files under Prefix in Bucket.
// It is compatible with any S3-compatible storage (AWS S3, MinIO, etc.)
type S3Sink struct {
	client objectPutter
	Bucket string
	Prefix string
}

// NewS3Sink creates an S3Sink from configuration. Static credentials are used
// when both keys are set, otherwise the default AWS credential chain applies.
func NewS3Sink(ctx context.Context, cfg config.S3Config, bucket, prefix string) (*S3Sink, error) {
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Sink{client: client, Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

func (s *S3Sink) key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

// Put uploads data as text/csv.
func (s *S3Sink) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", s.Location(name), err)
	}
	return nil
}

func (s *S3Sink) Location(name string) string {
	return "s3://" + s.Bucket + "/" + s.key(name)
}

// NewSink returns an S3Sink for s3://bucket/prefix outputs and a FileSink
// for anything else.
func NewSink(ctx context.Context, output string, s3cfg config.S3Config) (Sink, error) {
	if !strings.HasPrefix(output, "s3://") {
		return FileSink{Dir: output}, nil
	}
	u, err := url.Parse(output)
	if err != nil {
		return nil, fmt.Errorf("invalid s3 output: %w", err)
	}
	return NewS3Sink(ctx, s3cfg, u.Host, u.Path)
}
