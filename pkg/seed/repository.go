package seed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DirRepository keeps seeders as <name>.json files in one directory.
type DirRepository struct {
	dir string
}

// NewDirRepository returns a repository rooted at dir.
func NewDirRepository(dir string) *DirRepository {
	return &DirRepository{dir: dir}
}

// Dir returns the repository directory.
func (r *DirRepository) Dir() string { return r.dir }

// Ensure creates the directory when it does not exist yet.
func (r *DirRepository) Ensure() error {
	return os.MkdirAll(r.dir, 0o775)
}

// List returns the names of *.json files. A missing directory holds no seeders.
func (r *DirRepository) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), Extension))
	}
	return names, nil
}

func (r *DirRepository) Read(ctx context.Context, name string) ([]byte, error) {
	return os.ReadFile(r.Path(name))
}

func (r *DirRepository) Write(ctx context.Context, name string, body []byte) error {
	if err := r.Ensure(); err != nil {
		return err
	}
	return os.WriteFile(r.Path(name), body, 0o644)
}

// Path returns the file path for name.
func (r *DirRepository) Path(name string) string {
	return filepath.Join(r.dir, name+Extension)
}

// ObjectStore is the subset of an object storage client the bucket
// repository needs.
type ObjectStore interface {
	ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutBytes(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// BucketRepository keeps seeders as <prefix>/<name>.json objects.
type BucketRepository struct {
	store  ObjectStore
	bucket string
	prefix string
}

// NewBucketRepository returns a repository over bucket, scoped to prefix.
func NewBucketRepository(store ObjectStore, bucket, prefix string) (*BucketRepository, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	return &BucketRepository{store: store, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// List returns seeders directly under the prefix; nested keys are ignored.
func (r *BucketRepository) List(ctx context.Context) ([]string, error) {
	listPrefix := ""
	if r.prefix != "" {
		listPrefix = r.prefix + "/"
	}
	keys, err := r.store.ListKeys(ctx, r.bucket, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("list s3://%s/%s: %w", r.bucket, listPrefix, err)
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		rel := strings.TrimPrefix(key, listPrefix)
		if rel == "" || strings.Contains(rel, "/") || !strings.HasSuffix(rel, Extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(rel, Extension))
	}
	return names, nil
}

func (r *BucketRepository) Read(ctx context.Context, name string) ([]byte, error) {
	return r.store.GetObject(ctx, r.bucket, r.Key(name))
}

func (r *BucketRepository) Write(ctx context.Context, name string, body []byte) error {
	return r.store.PutBytes(ctx, r.bucket, r.Key(name), body, "application/json")
}

// Key returns the object key for name.
func (r *BucketRepository) Key(name string) string {
	if r.prefix == "" {
		return name + Extension
	}
	return path.Join(r.prefix, name+Extension)
}
