package imageformat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrymomot/notifykit/pkg/awsconfig"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Presigner is the subset of s3.PresignClient used by S3.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 signs GET URLs for pre-rendered image sizes stored under
// <prefix>/<preset>/<ref> in a bucket.
type S3 struct {
	presigner Presigner
	bucket    string
	prefix    string
	ttl       time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// S3Option configures an S3 formatter.
type S3Option func(*S3)

// WithPresigner replaces the AWS presign client, mostly for tests.
func WithPresigner(p Presigner) S3Option {
	return func(s *S3) {
		s.presigner = p
	}
}

// WithLogger sets the logger used to report signing failures.
func WithLogger(l *slog.Logger) S3Option {
	return func(s *S3) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewS3 creates an S3-backed formatter.
func NewS3(ctx context.Context, cfg Config, opts ...S3Option) (*S3, error) {
	if cfg.S3Bucket == "" || cfg.S3Region == "" {
		return nil, fmt.Errorf("%w: bucket and region are required", ErrInvalidConfig)
	}

	s := &S3{
		bucket:  cfg.S3Bucket,
		prefix:  strings.Trim(cfg.S3Prefix, "/"),
		ttl:     cfg.PresignTTL,
		timeout: 5 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.presigner == nil {
		awsCfg, err := awsconfig.Load(ctx, awsconfig.Config{
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretKey,
			Endpoint:        cfg.S3Endpoint,
		})
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadAWS, err)
		}

		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.ForcePathStyle
		})
		s.presigner = s3.NewPresignClient(client)
	}

	return s, nil
}

// Format implements template.ImageFormatter. Signing failures are logged and
// resolve to "" so a broken image never blocks a digest.
func (s *S3) Format(ref, size string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if isAbsolute(ref) {
		return ref
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	key := path.Join(s.prefix, strings.ToLower(size), strings.TrimPrefix(ref, "/"))
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to presign image url",
			logger.Component("imageformat"),
			slog.String("key", key),
			logger.Error(errors.Join(ErrFailedToPresign, err)),
		)
		return ""
	}

	return req.URL
}
