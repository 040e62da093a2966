package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/tartampluch/go-bridgedays/internal/config"
)

// Sink stores an encoded export under name.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
}

// FileSink writes exports into Dir.
type FileSink struct {
	Dir string
	Log *zap.Logger
}

// Put writes data to Dir/name, creating Dir if needed.
func (s FileSink) Put(ctx context.Context, name, _ string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, config.DirPermUserRWX); err != nil {
			return fmt.Errorf("%s: %w", config.ErrCreateDir, err)
		}
	}
	target := filepath.Join(s.Dir, name)
	if err := os.WriteFile(target, data, config.FilePermShared); err != nil {
		return fmt.Errorf("%s: %w", config.ErrWriteFile, err)
	}
	logger(s.Log).Info(config.MsgExportWritten,
		zap.String(config.LogKeyComponent, config.CompExport),
		zap.String(config.LogKeyFile, target),
		zap.Int(config.LogKeySizeBytes, len(data)),
	)
	return nil
}

// ObjectPutter is the slice of the S3 API the sink needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads exports to an S3 bucket, typically to serve a public
// calendar subscription.
type S3Sink struct {
	Client ObjectPutter
	Bucket string
	Prefix string
	Log    *zap.Logger
}

// NewS3Sink loads the AWS configuration from the default chain, honouring
// an optional region and shared profile.
func NewS3Sink(ctx context.Context, ps config.PublishSettings, log *zap.Logger) (*S3Sink, error) {
	if ps.Bucket == "" {
		return nil, errors.New(config.ErrBucketEmpty)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if ps.Region != "" {
		opts = append(opts, awsconfig.WithRegion(ps.Region))
	}
	if ps.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(ps.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrAWSConfig, err)
	}

	return &S3Sink{
		Client: s3.NewFromConfig(cfg),
		Bucket: ps.Bucket,
		Prefix: ps.Prefix,
		Log:    log,
	}, nil
}

// Key returns the object key for name.
func (s *S3Sink) Key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

// Put uploads data as Prefix/name.
func (s *S3Sink) Put(ctx context.Context, name, contentType string, data []byte) error {
	if s.Bucket == "" {
		return errors.New(config.ErrBucketEmpty)
	}
	key := s.Key(name)

	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.Bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(config.CacheControlPrivate),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrS3Put, err)
	}

	logger(s.Log).Info(config.MsgPublished,
		zap.String(config.LogKeyComponent, config.CompExport),
		zap.String(config.LogKeyBucket, s.Bucket),
		zap.String(config.LogKeyTarget, key),
		zap.Int(config.LogKeySizeBytes, len(data)),
	)
	return nil
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
