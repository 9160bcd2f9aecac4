package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/suspense/internal/errors"
)

// S3API is the part of *s3.Client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store puts artifacts into a bucket under a key prefix.
type S3Store struct {
	client       S3API
	bucket       string
	prefix       string
	cacheControl string
}

// NewS3Store creates a store writing to bucket. prefix may be empty.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Store{
		client:       client,
		bucket:       bucket,
		prefix:       prefix,
		cacheControl: "public, max-age=300",
	}
}

// WithCacheControl sets the Cache-Control header stored with each object.
func (s *S3Store) WithCacheControl(v string) *S3Store {
	s.cacheControl = v
	return s
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, a Artifact) error {
	rel, err := cleanPath(a.Path)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.prefix + rel),
		Body:          bytes.NewReader(a.Body),
		ContentLength: aws.Int64(int64(len(a.Body))),
		ContentType:   aws.String(a.ContentType),
	}
	if s.cacheControl != "" {
		input.CacheControl = aws.String(s.cacheControl)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put %s: %w", *input.Key, err)
	}
	return nil
}

// Location implements Store.
func (s *S3Store) Location() string {
	return "s3://" + s.bucket + "/" + s.prefix
}

// S3Options configures the client OpenStore builds for s3 targets.
type S3Options struct {
	Region string

	// Endpoint overrides the S3 endpoint, e.g. for MinIO. Path-style
	// addressing is used when it is set.
	Endpoint string
}

// NewS3Client builds an S3 client from opts and the standard AWS_*
// environment variables.
func NewS3Client(opts S3Options) *s3.Client {
	region := opts.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	return s3.New(s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(envCredentials{}),
	}, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
}

// envCredentials reads static credentials from the environment.
type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, errors.New("E141").
			WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return creds, nil
}

// Target is a parsed export destination.
type Target struct {
	// Dir is set for local targets.
	Dir string

	// Bucket and Prefix are set for s3 targets.
	Bucket string
	Prefix string
}

// IsS3 reports whether the target is a bucket.
func (t Target) IsS3() bool {
	return t.Bucket != ""
}

// ParseTarget accepts a directory path or "s3://bucket[/prefix]".
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}, errors.New("E124").WithDetail("empty export target")
	}
	rest, ok := strings.CutPrefix(s, "s3://")
	if !ok {
		if strings.Contains(s, "://") {
			return Target{}, errors.New("E124").WithDetailf("unsupported scheme in %q", s)
		}
		return Target{Dir: s}, nil
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Target{}, errors.New("E124").WithDetailf("missing bucket in %q", s)
	}
	return Target{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// OpenStore opens the store a target names.
func OpenStore(target string, opts S3Options) (Store, error) {
	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	if t.IsS3() {
		return NewS3Store(NewS3Client(opts), t.Bucket, t.Prefix), nil
	}
	return NewDirStore(t.Dir)
}
