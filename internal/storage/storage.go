package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the engine needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// FeedExtensions are the file types a feed directory accepts.
var FeedExtensions = []string{".csv", ".xlsx"}

// FetchPrefix downloads every feed file under prefix into destDir, flattening
// object keys to their base names. It returns the local paths written.
func FetchPrefix(ctx context.Context, store ObjectStorage, prefix, destDir string) ([]string, error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, obj := range objects {
		if !isFeedFile(obj.Key) {
			continue
		}
		dest := filepath.Join(destDir, path.Base(obj.Key))
		if err := store.DownloadObject(ctx, obj.Key, dest); err != nil {
			return written, fmt.Errorf("download %s: %w", obj.Key, err)
		}
		written = append(written, dest)
	}
	return written, nil
}

func isFeedFile(key string) bool {
	if strings.HasSuffix(key, "/") {
		return false
	}
	ext := strings.ToLower(path.Ext(key))
	for _, e := range FeedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
