package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Uploader pushes captured label images to a GCS bucket and returns the
// publicly fetchable URL the later stages work from.
type Uploader struct {
	client *storage.Client
	bucket string
}

// NewUploader creates an Uploader targeting the given bucket.
func NewUploader(ctx context.Context, bucket string) (*Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("upload bucket must be provided to create an uploader")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// Close releases the underlying storage client.
func (u *Uploader) Close() error {
	return u.client.Close()
}

// Upload reads the locally captured image at imageRef and writes it to
// scans/<id>.jpg. The write carries a DoesNotExist precondition: if the
// object already exists the upload is skipped and treated as success, so a
// run interrupted after a completed upload never pushes the bytes twice.
func (u *Uploader) Upload(ctx context.Context, id, imageRef string) (string, error) {
	data, err := os.ReadFile(imageRef)
	if err != nil {
		return "", fmt.Errorf("failed to read captured image %s: %w", imageRef, err)
	}

	objectName := fmt.Sprintf("scans/%s.jpg", id)
	writer := u.client.Bucket(u.bucket).Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "image/jpeg"

	_, copyErr := io.Copy(writer, bytes.NewReader(data))
	closeErr := writer.Close()
	if err := firstUploadError(copyErr, closeErr); err != nil {
		if gerr, ok := asGoogleAPIError(err); ok && gerr.Code == 412 {
			slog.Info("Image object already exists, reusing it.", "object", objectName)
			return u.publicURL(objectName), nil
		}
		return "", fmt.Errorf("failed to upload image to GCS: %w", err)
	}
	return u.publicURL(objectName), nil
}

func (u *Uploader) publicURL(objectName string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, objectName)
}

func firstUploadError(copyErr, closeErr error) error {
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

func asGoogleAPIError(err error) (*googleapi.Error, bool) {
	gerr, ok := err.(*googleapi.Error)
	if ok {
		return gerr, true
	}
	return nil, false
}
