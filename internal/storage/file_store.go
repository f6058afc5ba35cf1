package storage

import (
	"context"
	"os"
	"path/filepath"
)

// FileStore keeps blobs as plain files under a directory. It is used by the
// command line harness in place of S3.
type FileStore struct {
	dir string
}

var _ BlobStore = (*FileStore)(nil)

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Publish writes data uncompressed through a temporary file and a rename, so
// a concurrent reader never sees a partial snapshot.
func (s *FileStore) Publish(_ context.Context, key string, data []byte, _ PublishOptions) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &StorageError{Op: "publish", Bucket: s.dir, Key: key, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".publish-*")
	if err != nil {
		return &StorageError{Op: "publish", Bucket: s.dir, Key: key, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &StorageError{Op: "publish", Bucket: s.dir, Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "publish", Bucket: s.dir, Key: key, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &StorageError{Op: "publish", Bucket: s.dir, Key: key, Err: err}
	}
	return nil
}

func (s *FileStore) FetchBlob(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, &StorageError{Op: "fetch", Bucket: s.dir, Key: key, Err: err}
	}
	if isGzip(data) {
		if data, err = gunzipBytes(data); err != nil {
			return nil, &StorageError{Op: "fetch", Bucket: s.dir, Key: key, Err: err}
		}
	}
	return data, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}
