package blob

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const keyPrefix = "medias/"

// S3API is the part of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Region          string
}

// NewR2Client builds an S3 client for a Cloudflare R2 account.
func NewR2Client(ctx context.Context, c S3Config) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithHTTPClient(r2HTTPClient()),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.AccessKeySecret, "")),
		config.WithRegion(c.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID))
	}), nil
}

// r2HTTPClient keeps the default transport settings but refuses anything
// older than TLS 1.2.
func r2HTTPClient() *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	return &http.Client{Transport: tr}
}

// S3Store keeps uploads in a bucket. With a public URL configured, references
// are public object URLs; otherwise they are the bare object keys.
type S3Store struct {
	client    S3API
	bucket    string
	publicURL string
}

func NewS3Store(client S3API, bucket, publicURL string) *S3Store {
	return &S3Store{client: client, bucket: bucket, publicURL: publicURL}
}

func (s *S3Store) Put(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	key := keyPrefix + uuid.New().String()
	if name := baseName(filename); name != "" {
		key += "_" + name
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	return s.ref(key), nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	key, err := s.keyFromRef(ref)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// ref turns an object key into the reference saved on the media row. Key
// segments are path-escaped so keyFromRef can always recover the exact key.
func (s *S3Store) ref(key string) string {
	if s.publicURL == "" {
		return key
	}
	escaped := escapeKey(key)
	if strings.Contains(s.publicURL, "%s") {
		return fmt.Sprintf(s.publicURL, escaped)
	}
	return strings.TrimRight(s.publicURL, "/") + "/" + escaped
}

func (s *S3Store) keyFromRef(ref string) (string, error) {
	if s.publicURL == "" {
		if !strings.HasPrefix(ref, keyPrefix) {
			return "", fmt.Errorf("invalid blob reference %q", ref)
		}
		return ref, nil
	}

	// the escaped file name cannot contain a slash, so the last match is the key
	i := strings.LastIndex(ref, keyPrefix)
	if i < 0 {
		return "", fmt.Errorf("invalid blob reference %q", ref)
	}
	key, err := url.PathUnescape(ref[i:])
	if err != nil {
		return "", fmt.Errorf("invalid blob reference %q: %w", ref, err)
	}
	return key, nil
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
