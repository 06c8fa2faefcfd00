// Package source opens transaction record streams from local files, stdin
// or Google Cloud Storage.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsScheme = "gs://"

// Stdin is the input name that selects standard input.
const Stdin = "-"

// ObjectStore provides streaming reads of cloud storage objects.
// This interface enables mocking of storage in tests.
type ObjectStore interface {
	// NewObjectReader opens object in bucket for sequential reading.
	NewObjectReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)

	// Close releases the underlying client.
	Close() error
}

// GCSStore is the Google Cloud Storage implementation of ObjectStore.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a storage client. Without options it uses
// Application Default Credentials.
func NewGCSStore(ctx context.Context, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: creating storage client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// NewObjectReader opens a streaming reader on the object. The object is
// never buffered in memory as a whole.
func (s *GCSStore) NewObjectReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewObjectReader: reading object %s/%s: %w", bucket, object, err)
	}
	return r, nil
}

// Close closes the storage client.
func (s *GCSStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, gcsScheme) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, gcsScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// IsGCSURI reports whether uri names a Cloud Storage object.
func IsGCSURI(uri string) bool {
	return strings.HasPrefix(uri, gcsScheme)
}

// Name returns a short display name for uri, e.g. "gs://b/dir/tx.csv" -> "tx.csv".
func Name(uri string) string {
	if uri == Stdin {
		return "stdin"
	}
	if _, object, err := ParseGCSURI(uri); err == nil {
		return path.Base(object)
	}
	return path.Base(uri)
}

// Open returns a reader over the records named by uri: Stdin, a gs:// URI or
// a local path. The caller must close the result; closing stdin is a no-op.
func Open(ctx context.Context, uri string, opts ...option.ClientOption) (io.ReadCloser, error) {
	return open(ctx, uri, os.Stdin, func(ctx context.Context) (ObjectStore, error) {
		return NewGCSStore(ctx, opts...)
	})
}

type storeFactory func(ctx context.Context) (ObjectStore, error)

func open(ctx context.Context, uri string, stdin io.Reader, newStore storeFactory) (io.ReadCloser, error) {
	switch {
	case uri == Stdin:
		return io.NopCloser(stdin), nil

	case IsGCSURI(uri):
		bucket, object, err := ParseGCSURI(uri)
		if err != nil {
			return nil, fmt.Errorf("Open: %w", err)
		}
		store, err := newStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("Open: %w", err)
		}
		r, err := store.NewObjectReader(ctx, bucket, object)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("Open: %w", err)
		}
		return &objectReader{ReadCloser: r, store: store}, nil

	default:
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("Open: open file %q: %w", uri, err)
		}
		return f, nil
	}
}

// objectReader closes the owning store together with the object reader.
type objectReader struct {
	io.ReadCloser
	store ObjectStore
}

func (r *objectReader) Close() error {
	return errors.Join(r.ReadCloser.Close(), r.store.Close())
}
