package certificate

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"coursecert/certificate-backend/pkg/storage"
)

// Archive stores issued certificate PDFs in S3.
type Archive struct {
	s3         storage.S3Client
	bucket     string
	presignTTL time.Duration
}

func NewArchive(s3 storage.S3Client, bucket string, presignTTL time.Duration) *Archive {
	return &Archive{s3: s3, bucket: bucket, presignTTL: presignTTL}
}

// Key returns the object key an issued certificate is stored under.
func (a *Archive) Key(issued *Issued) string {
	return fmt.Sprintf("certificates/%s/%s.pdf", issued.IssuedAt.Format("2006/01"), issued.ID)
}

func (a *Archive) Store(ctx context.Context, issued *Issued, data []byte) (string, error) {
	key := a.Key(issued)
	if err := a.s3.Upload(ctx, a.bucket, key, bytes.NewReader(data), ContentType); err != nil {
		return "", err
	}
	return key, nil
}

// Remove deletes an archived copy that was never recorded.
func (a *Archive) Remove(ctx context.Context, key string) error {
	return a.s3.Delete(ctx, a.bucket, key)
}

func (a *Archive) URL(ctx context.Context, key string) (string, error) {
	return a.s3.GetPresignedURL(ctx, a.bucket, key, a.presignTTL)
}
