package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreOpts configures an ObjectStore
type ObjectStoreOpts func(c *objectStoreConfig)

type objectStoreConfig struct {
	endpoint        string
	bucket          string
	accessKey       string
	secretAccessKey string
	publicBaseURL   string
	useSSL          bool
}

// ObjectStore stores uploaded résumés in an S3-compatible bucket
type ObjectStore struct {
	cfg    *objectStoreConfig
	client *minio.Client
}

// NewObjectStore connects to the object store. No network call is made until first use.
func NewObjectStore(opts ...ObjectStoreOpts) (*ObjectStore, error) {
	cfg := &objectStoreConfig{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.endpoint == "" || cfg.bucket == "" {
		return nil, fmt.Errorf("object store endpoint and bucket are required")
	}

	client, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &ObjectStore{cfg: cfg, client: client}, nil
}

// Bucket returns the default bucket name
func (s *ObjectStore) Bucket() string {
	return s.cfg.bucket
}

// Get reads a whole object into memory
func (s *ObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = object.Close() }()

	info, err := object.Stat()
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != info.Size {
		return nil, fmt.Errorf("failed to read the entire object. expected bytes %d received %d", info.Size, len(data))
	}
	return data, nil
}

// Upload writes r under key in the default bucket and returns a URL the pipeline can download from.
func (s *ObjectStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	exists, err := s.client.BucketExists(ctx, s.cfg.bucket)
	if err != nil {
		return "", fmt.Errorf("failed to check bucket %s: %w", s.cfg.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", fmt.Errorf("failed to create bucket %s: %w", s.cfg.bucket, err)
		}
	}

	_, err = s.client.PutObject(ctx, s.cfg.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return s.PublicURL(key), nil
}

// PublicURL returns the publicly resolvable URL for key, or an s3:// URL when no public base is set.
func (s *ObjectStore) PublicURL(key string) string {
	return BuildObjectURL(s.cfg.publicBaseURL, s.cfg.bucket, key)
}

// BuildObjectURL joins a public base URL and key; without a base it returns s3://bucket/key.
func BuildObjectURL(publicBaseURL, bucket, key string) string {
	key = strings.TrimLeft(key, "/")
	if publicBaseURL == "" {
		return fmt.Sprintf("s3://%s/%s", bucket, key)
	}
	return strings.TrimRight(publicBaseURL, "/") + "/" + key
}

// ParseObjectURL splits s3://bucket/key into its parts
func ParseObjectURL(u *url.URL) (bucket, key string, ok bool) {
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimLeft(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return u.Host, key, true
}

// WithEndpoint sets the host:port of the object store
func WithEndpoint(endpoint string) ObjectStoreOpts {
	return func(c *objectStoreConfig) {
		c.endpoint = endpoint
	}
}

// WithBucket sets the default bucket
func WithBucket(bucket string) ObjectStoreOpts {
	return func(c *objectStoreConfig) {
		c.bucket = bucket
	}
}

// WithAccessKey sets the access key
func WithAccessKey(accessKey string) ObjectStoreOpts {
	return func(c *objectStoreConfig) {
		c.accessKey = accessKey
	}
}

// WithSecretKey sets the secret key
func WithSecretKey(secretKey string) ObjectStoreOpts {
	return func(c *objectStoreConfig) {
		c.secretAccessKey = secretKey
	}
}

// WithSSL toggles TLS
func WithSSL(useSSL bool) ObjectStoreOpts {
	return func(c *objectStoreConfig) {
		c.useSSL = useSSL
	}
}

// WithPublicBaseURL sets the base URL uploaded objects are served from
func WithPublicBaseURL(base string) ObjectStoreOpts {
	return func(c *objectStoreConfig) {
		c.publicBaseURL = base
	}
}
