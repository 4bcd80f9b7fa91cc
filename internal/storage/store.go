// Package storage provides access to the remote object store. The
// agent uses exactly three remote operations: paginated listing under
// a prefix, download-to-file, and upload-from-file.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"gocloud.dev/blob"
)

// ObjectStore abstracts the remote object store.
type ObjectStore interface {
	// List returns all object keys under the prefix, following
	// pagination until the listing is exhausted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Download copies an object to a local file path.
	Download(ctx context.Context, key, localPath string) error

	// Upload copies a local file to an object key.
	Upload(ctx context.Context, localPath, key string) error

	// URI returns the canonical URI for the given key, for log lines.
	URI(key string) string

	// Close releases any resources.
	Close() error
}

// Config configures the remote store connection.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional custom endpoint (MinIO, R2, B2)
	AccessKeyID     string
	SecretAccessKey string
}

// BucketStore implements ObjectStore over a gocloud.dev blob bucket.
type BucketStore struct {
	bucket *blob.Bucket
	uri    string // URI root, e.g. "s3://bucket-name"
}

// NewBucketStore wraps an already-open bucket. Production code opens
// buckets with NewS3Store; tests hand in in-memory buckets here.
func NewBucketStore(bucket *blob.Bucket, uri string) *BucketStore {
	return &BucketStore{bucket: bucket, uri: uri}
}

// List returns all object keys under the prefix.
func (s *BucketStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	iter := s.bucket.List(&blob.ListOptions{
		Prefix: prefix,
	})

	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects under %s: %w", prefix, err)
		}
		if obj.IsDir {
			continue
		}
		keys = append(keys, obj.Key)
	}

	return keys, nil
}

// Download copies an object to localPath. The file is written via a
// temp path and renamed into place so a partial download never looks
// like a completed one; an existing file is overwritten.
func (s *BucketStore) Download(ctx context.Context, key, localPath string) error {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("open object %s: %w", key, err)
	}
	defer r.Close()

	tempPath := localPath + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("create file %s: %w", tempPath, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("copy object %s: %w", key, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("close file %s: %w", tempPath, err)
	}

	if err := os.Rename(tempPath, localPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename %s to %s: %w", tempPath, localPath, err)
	}

	return nil
}

// Upload copies a local file to the object key.
func (s *BucketStore) Upload(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open file %s: %w", localPath, err)
	}
	defer f.Close()

	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}

	return nil
}

// URI returns the canonical URI for the given key.
func (s *BucketStore) URI(key string) string {
	return s.uri + "/" + key
}

// Close releases the bucket connection.
func (s *BucketStore) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}
