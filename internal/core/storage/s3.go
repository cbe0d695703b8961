// Package storage issues presigned upload URLs for recipe images. The bytes
// never pass through the API; browsers PUT them straight to the bucket.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Options struct {
	Bucket        string
	Region        string
	Endpoint      string // empty for AWS, e.g. http://127.0.0.1:9000 for MinIO
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	PresignTTL    time.Duration
	UsePathStyle  bool
}

type S3 struct {
	presign *s3.PresignClient
	bucket  string
	public  string
	ttl     time.Duration
}

func NewS3(ctx context.Context, o Options) (*S3, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		so.UsePathStyle = o.UsePathStyle
	})

	public := strings.TrimRight(o.PublicBaseURL, "/")
	if public == "" {
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", o.Bucket, o.Region)
	}
	ttl := o.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3{presign: s3.NewPresignClient(client), bucket: o.Bucket, public: public, ttl: ttl}, nil
}

// PresignPut returns a URL the client can PUT the object body to until it expires.
func (s *S3) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

func (s *S3) PublicURL(key string) string { return s.public + "/" + key }
