// Package s3 stores uploaded files in an S3-compatible bucket.
package s3

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/config"
)

// Object describes a stored upload.
type Object struct {
	Key      string
	URL      string
	FileName string
	Size     int64
}

type Client struct {
	s3      *s3.Client
	presig  *s3.PresignClient
	bucket  string
	ttl     time.Duration
	baseURL string
	maxSize int64
}

func New(cfg config.S3Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is required")
	}

	// without static keys the default chain applies (env, shared files, IAM role)
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	ttl := time.Duration(cfg.PresignTTLSec) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	maxMB := cfg.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 20
	}
	base := cfg.PublicBaseURL
	if base == "" {
		base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &Client{
		s3:      cli,
		presig:  s3.NewPresignClient(cli),
		bucket:  cfg.Bucket,
		ttl:     ttl,
		baseURL: strings.TrimRight(base, "/"),
		maxSize: int64(maxMB) << 20,
	}, nil
}

// Key builds {prefix}/{yyyy}/{mm}/{uuid}{ext}. The extension is taken from
// the client's file name, lowercased.
func Key(prefix, fileName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("%s/%04d/%02d/%s%s", strings.Trim(prefix, "/"), now.Year(), int(now.Month()), uuid.New().String(), ext)
}

// URL is the public address of key.
func (c *Client) URL(key string) string { return c.baseURL + "/" + key }

func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("s3 upload %q: %w", key, err)
	}
	return nil
}

// ErrTooLarge is returned by UploadFile for files above the configured cap.
type ErrTooLarge struct{ Limit int64 }

func (e ErrTooLarge) Error() string {
	return fmt.Sprintf("file exceeds the %d MB upload limit", e.Limit>>20)
}

// UploadFile stores one multipart part under prefix.
func (c *Client) UploadFile(ctx context.Context, prefix string, fh *multipart.FileHeader) (*Object, error) {
	if fh.Size > c.maxSize {
		return nil, ErrTooLarge{Limit: c.maxSize}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	key := Key(prefix, fh.Filename, time.Now().UTC())
	if err := c.Upload(ctx, key, ct, f, fh.Size); err != nil {
		return nil, err
	}
	return &Object{Key: key, URL: c.URL(key), FileName: fh.Filename, Size: fh.Size}, nil
}

func (c *Client) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := c.presig.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign %q: %w", key, err)
	}
	return req.URL, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	return nil
}

// KeyFromURL reverses URL for objects in this bucket.
func (c *Client) KeyFromURL(u string) (string, bool) {
	prefix := c.baseURL + "/"
	if !strings.HasPrefix(u, prefix) {
		return "", false
	}
	return strings.TrimPrefix(u, prefix), true
}
