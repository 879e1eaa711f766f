package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3BlobStore stores document assets in an S3 bucket. Presigned GET URLs
// let viewers fetch PDFs straight from S3 instead of proxying the bytes
// through the application.
type S3BlobStore struct {
	svc    *s3.S3
	bucket string
}

// NewS3BlobStore creates a blob store over the given bucket. Credentials
// come from the default AWS chain (environment, shared config, instance
// role).
func NewS3BlobStore(region, bucket string) *S3BlobStore {
	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(region),
	}))
	return &S3BlobStore{
		svc:    s3.New(sess),
		bucket: bucket,
	}
}

// Put stores data under key.
func (s *S3BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return nil
}

// Get downloads the object stored under key.
func (s *S3BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s from S3: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	return data, nil
}

// Delete removes the object stored under key. S3 treats deleting a missing
// key as success, which matches the BlobStore contract.
func (s *S3BlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", key, err)
	}
	return nil
}

// PresignGet returns a URL that fetches the object without credentials
// until expiry.
func (s *S3BlobStore) PresignGet(key string, expiry time.Duration) (string, error) {
	req, _ := s.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return url, nil
}
