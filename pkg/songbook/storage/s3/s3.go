// Package s3 stores song media in an S3 bucket or an S3-compatible service
// such as MinIO. Clients upload and download through presigned URLs.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/awsutil"
)

// Server-side encryption modes accepted in Config.Encryption
const (
	EncryptionNone   = ""
	EncryptionAES256 = "AES256"
	EncryptionKMS    = "aws:kms"
)

const backendName = "s3"

// Config describes the media bucket.
type Config struct {
	Bucket string
	Region string

	// Static credentials. Empty means the default AWS credential chain.
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint and UsePathStyle point the client at MinIO or another
	// S3-compatible service.
	Endpoint     string
	UsePathStyle bool

	// PublicBaseURL replaces the bucket URL in PublicURL, e.g. a CDN origin.
	PublicBaseURL string

	Encryption string
	KMSKeyID   string

	// CreateBucket makes New create the bucket when it is missing.
	CreateBucket bool
}

// Backend implements songbook.BlobStore on S3.
type Backend struct {
	client  *s3.Client
	presign *s3.PresignClient
	config  Config
}

// New loads AWS configuration and returns a backend for config.Bucket
func New(ctx context.Context, config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	switch config.Encryption {
	case EncryptionNone, EncryptionAES256, EncryptionKMS:
	default:
		return nil, fmt.Errorf("unsupported s3 encryption %q", config.Encryption)
	}

	awsCfg, err := awsutil.LoadConfig(ctx, awsutil.Credentials{
		Region:          config.Region,
		AccessKeyID:     config.AccessKeyID,
		SecretAccessKey: config.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}

	b := NewFromConfig(awsCfg, config)
	if config.CreateBucket {
		if err := b.ensureBucket(ctx); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// NewFromConfig builds a backend on an already loaded aws.Config
func NewFromConfig(awsCfg aws.Config, config Config) *Backend {
	if config.Region == "" {
		config.Region = awsCfg.Region
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		}
	})
	return &Backend{
		client:  client,
		presign: s3.NewPresignClient(client),
		config:  config,
	}
}

// ensureBucket creates the bucket unless HeadBucket finds it.
func (b *Backend) ensureBucket(ctx context.Context) error {
	bucket := aws.String(b.config.Bucket)

	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: bucket})
	if err == nil {
		return nil
	}
	if !bucketMissing(err) {
		return fmt.Errorf("head bucket %s: %w", b.config.Bucket, err)
	}

	in := &s3.CreateBucketInput{Bucket: bucket}
	// us-east-1 rejects an explicit location constraint
	if b.config.Region != "" && b.config.Region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.config.Region),
		}
	}
	if _, err := b.client.CreateBucket(ctx, in); err != nil &&
		!awsutil.HasErrorCode(err, "BucketAlreadyExists", "BucketAlreadyOwnedByYou") {
		return fmt.Errorf("create bucket %s: %w", b.config.Bucket, err)
	}
	return nil
}

// bucketMissing covers the typed AWS errors and the bare codes MinIO sends.
func bucketMissing(err error) bool {
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	return errors.As(err, &notFound) || errors.As(err, &noSuchBucket) ||
		awsutil.HasErrorCode(err, "NotFound", "NoSuchBucket", "BadRequest")
}

func (b *Backend) putInput(key, contentType string, body io.Reader) *s3.PutObjectInput {
	in := &s3.PutObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	switch b.config.Encryption {
	case EncryptionAES256:
		in.ServerSideEncryption = types.ServerSideEncryptionAes256
	case EncryptionKMS:
		in.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		if b.config.KMSKeyID != "" {
			in.SSEKMSKeyId = aws.String(b.config.KMSKeyID)
		}
	}
	return in
}

func storageErr(op, key string, err error) error {
	return &songbook.StorageError{Backend: backendName, Key: key, Op: op, Err: err}
}

func expiresIn(ttl time.Duration) func(*s3.PresignOptions) {
	return func(o *s3.PresignOptions) { o.Expires = ttl }
}

// PresignUpload returns a PUT URL. The uploader must send the same
// Content-Type.
func (b *Backend) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := b.presign.PresignPutObject(ctx, b.putInput(key, contentType, nil), expiresIn(ttl))
	if err != nil {
		return "", storageErr("presign_upload", key, err)
	}
	return req.URL, nil
}

func (b *Backend) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(key),
	}, expiresIn(ttl))
	if err != nil {
		return "", storageErr("presign_download", key, err)
	}
	return req.URL, nil
}

// PublicURL returns an unsigned URL for key. The bucket policy decides
// whether it is readable; songbook only relies on it for public-read keys.
func (b *Backend) PublicURL(key string) string {
	path := escapeKey(key)
	cfg := b.config

	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/") + "/" + path
	}
	if cfg.Endpoint == "" {
		return "https://" + cfg.Bucket + ".s3." + cfg.Region + ".amazonaws.com/" + path
	}
	if cfg.UsePathStyle {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket + "/" + path
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return ""
	}
	u.Host = cfg.Bucket + "." + u.Host
	u.Path = "/" + path
	return u.String()
}

// Upload streams reader into the bucket with the multipart uploader.
func (b *Backend) Upload(ctx context.Context, key, contentType string, reader io.Reader) error {
	if _, err := manager.NewUploader(b.client).Upload(ctx, b.putInput(key, contentType, reader)); err != nil {
		return storageErr("upload", key, err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return storageErr("delete", key, err)
	}
	return nil
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i := range segments {
		segments[i] = url.PathEscape(segments[i])
	}
	return strings.Join(segments, "/")
}
