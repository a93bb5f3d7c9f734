// Package archive persists finished monthly reports as JSON objects in a
// GCS bucket.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/pennyflow/pennyflow/internal/report"
)

// GCSArchive writes one object per report under
// reports/<YYYY-MM>/<user_id>.json.
type GCSArchive struct {
	client *storage.Client
	bucket string
}

// NewGCSArchive creates the archive with a shared storage client. When
// credentialsFile is empty, Application Default Credentials are used.
func NewGCSArchive(ctx context.Context, bucket, credentialsFile string) (*GCSArchive, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: create storage client: %w", err)
	}
	return &GCSArchive{client: client, bucket: bucket}, nil
}

// Close releases the storage client.
func (a *GCSArchive) Close() error {
	return a.client.Close()
}

// ArchiveReport implements report.Archiver.
func (a *GCSArchive) ArchiveReport(ctx context.Context, doc report.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("archive: encoding report: %w", err)
	}

	objectName := fmt.Sprintf("reports/%s/%s.json", doc.Month, doc.UserID)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return fmt.Errorf("archive: writing object %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("archive: finalizing object %q: %w", objectName, err)
	}
	return nil
}

var _ report.Archiver = (*GCSArchive)(nil)
