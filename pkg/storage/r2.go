package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var ErrForeignURL = errors.New("file URL does not belong to this bucket")

// R2Storage stores product photos in a Cloudflare R2 (S3 compatible) bucket.
type R2Storage struct {
	client        *s3.Client
	bucketName    string
	publicURL     string
	uploadTimeout time.Duration
}

type R2Config struct {
	AccountID     string
	AccessKey     string
	SecretKey     string
	BucketName    string
	PublicURL     string
	UploadTimeout time.Duration
}

// Enabled reports whether enough is configured to talk to R2.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKey != "" && c.SecretKey != "" && c.BucketName != ""
}

func NewR2Storage(ctx context.Context, c R2Config) (*R2Storage, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	timeout := c.UploadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &R2Storage{
		client:        client,
		bucketName:    c.BucketName,
		publicURL:     strings.TrimSuffix(c.PublicURL, "/"),
		uploadTimeout: timeout,
	}, nil
}

// ObjectKey builds "<prefix>/<uuid><ext>" from the content type.
func ObjectKey(prefix, contentType string) string {
	ext := ".bin"
	switch contentType {
	case "image/webp":
		ext = ".webp"
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "uploads"
	}
	return fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), ext)
}

// UploadBuffer uploads processed image bytes and returns the public URL.
func (s *R2Storage) UploadBuffer(ctx context.Context, prefix string, data []byte, contentType string) (string, error) {
	key := ObjectKey(prefix, contentType)

	uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	_, err := s.client.PutObject(uploadCtx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload buffer to R2: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.publicURL, key), nil
}

// DeleteFile removes an object given the public URL UploadBuffer returned.
func (s *R2Storage) DeleteFile(ctx context.Context, fileURL string) error {
	key, err := KeyFromURL(s.publicURL, fileURL)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from R2: %w", err)
	}
	return nil
}

// KeyFromURL strips the public base URL. URLs from other hosts are refused.
func KeyFromURL(publicURL, fileURL string) (string, error) {
	publicURL = strings.TrimSuffix(publicURL, "/")
	if publicURL == "" || !strings.HasPrefix(fileURL, publicURL+"/") {
		return "", ErrForeignURL
	}
	key := strings.TrimPrefix(fileURL, publicURL+"/")
	if key == "" {
		return "", ErrForeignURL
	}
	return key, nil
}
