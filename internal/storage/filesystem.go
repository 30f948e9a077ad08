package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mixdown/internal/services"
)

// Filesystem is an ObjectStore backed by a directory tree. Buckets map to
// top-level directories under the store root.
type Filesystem struct {
	root string
}

// NewFilesystem roots a store at dir, creating it when absent.
func NewFilesystem(dir string) (*Filesystem, error) {
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "init", "store root is empty", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "init",
			fmt.Sprintf("cannot create store root %s", dir), err)
	}
	return &Filesystem{root: dir}, nil
}

func (f *Filesystem) resolve(storagePath string) (string, error) {
	bucket, key, err := ParseStoragePath(storagePath)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, bucket, filepath.FromSlash(key)), nil
}

// Download copies an object to a local path.
func (f *Filesystem) Download(ctx context.Context, storagePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := f.resolve(storagePath)
	if err != nil {
		return err
	}
	if err := copyFile(src, localPath); err != nil {
		if os.IsNotExist(err) {
			return services.Wrap(services.ErrNotFound, "storage", "download",
				fmt.Sprintf("object %s does not exist", storagePath), err)
		}
		return services.Wrap(services.ErrTransient, "storage", "download",
			fmt.Sprintf("cannot download %s", storagePath), err)
	}
	return nil
}

// Upload copies a local file into the store. Content type is recorded by
// richer backends; the filesystem ignores it.
func (f *Filesystem) Upload(ctx context.Context, localPath, storagePath, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := f.resolve(storagePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "storage", "upload",
			fmt.Sprintf("cannot create bucket for %s", storagePath), err)
	}
	if err := copyFile(localPath, dst); err != nil {
		if os.IsNotExist(err) {
			return services.Wrap(services.ErrNotFound, "storage", "upload",
				fmt.Sprintf("local file %s does not exist", localPath), err)
		}
		return services.Wrap(services.ErrTransient, "storage", "upload",
			fmt.Sprintf("cannot upload %s", storagePath), err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
