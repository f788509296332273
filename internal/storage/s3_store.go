package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicBase string
	KeyPrefix  string
}

// S3Store persists uploads to an S3 bucket. It is the durable alternative to
// LocalStore, selected via STORAGE_BACKEND=s3.
type S3Store struct {
	cfg S3Config
	s3  *s3.Client
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "uploads"
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if parsed, err := url.Parse(endpoint); err == nil {
			endpoint = parsed.String()
		}
		opts = append(opts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: endpoint, SigningRegion: cfg.Region}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return &S3Store{cfg: cfg, s3: s3Client}, nil
}

var _ BlobStore = (*S3Store)(nil)

func (s *S3Store) Save(ctx context.Context, r io.Reader, originalName, contentType string) (SavedObject, error) {
	// Buffer the body so the reported size is the byte count actually stored.
	body, err := io.ReadAll(r)
	if err != nil {
		return SavedObject{}, fmt.Errorf("read upload body: %w", err)
	}

	name := storageName(originalName)
	key := s.cfg.KeyPrefix + "/" + name

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.s3.PutObject(ctx, input); err != nil {
		return SavedObject{}, fmt.Errorf("put object %s: %w", key, err)
	}

	return SavedObject{Name: name, Path: s.objectURL(key), Size: int64(len(body))}, nil
}

func (s *S3Store) objectURL(key string) string {
	if s.cfg.PublicBase != "" {
		return s.cfg.PublicBase + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key)
}
