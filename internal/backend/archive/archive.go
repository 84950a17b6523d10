// Package archive keeps copies of fetched transfer documents.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const pdfContentType = "application/pdf"

// Archiver stores a document under a name. Storing a name twice is not an error.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) error
	Close() error
}

// NoopArchiver discards documents.
type NoopArchiver struct{}

func (NoopArchiver) Archive(context.Context, string, []byte) error { return nil }

func (NoopArchiver) Close() error { return nil }

// GCSArchiver writes documents to a Cloud Storage bucket, each object at most once.
type GCSArchiver struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewGCSArchiver connects to Cloud Storage using application default credentials
// unless opts say otherwise.
func NewGCSArchiver(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSArchiver{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: prefix,
	}, nil
}

// ObjectName is the object a document called name is stored at.
func (a *GCSArchiver) ObjectName(name string) string {
	if a.prefix == "" {
		return name
	}
	return path.Join(a.prefix, name)
}

func (a *GCSArchiver) Archive(ctx context.Context, name string, data []byte) error {
	objectName := a.ObjectName(name)
	writer := a.bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = pdfContentType
	writer.ChunkSize = 0

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		if alreadyExists(err) {
			slog.Debug("GCSArchiver: object already exists", "object", objectName)
			return nil
		}
		return fmt.Errorf("failed to write %s: %w", objectName, err)
	}

	if err := writer.Close(); err != nil {
		if alreadyExists(err) {
			slog.Debug("GCSArchiver: object already exists", "object", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize %s: %w", objectName, err)
	}

	slog.Info("GCSArchiver: archived", "object", objectName, "bytes", len(data))
	return nil
}

func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

// alreadyExists reports a failed DoesNotExist precondition.
func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
