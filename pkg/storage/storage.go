package storage

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Uploader is the object storage capability the sync engine consumes.
type Uploader interface {
	Upload(ctx context.Context, data []byte, key, mimeType string) (string, error)
}

// GCSUploader stores objects in a Google Cloud Storage bucket.
type GCSUploader struct {
	client *gcs.Client
	bucket string
}

func NewGCSUploader(ctx context.Context, bucket, credentialsFile string) (*GCSUploader, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	return &GCSUploader{
		client: client,
		bucket: bucket,
	}, nil
}

// Upload writes data under key and returns the public object URL.
func (u *GCSUploader) Upload(ctx context.Context, data []byte, key, mimeType string) (string, error) {
	w := u.client.Bucket(u.bucket).Object(key).NewWriter(ctx)
	w.ContentType = mimeType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object %s: %v", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %v", key, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, key), nil
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}
