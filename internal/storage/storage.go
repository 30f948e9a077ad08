// Package storage abstracts where stems and rendered mixes live. Jobs carry
// opaque storage paths of the form "bucket/key"; the worker only ever moves
// bytes between storage and its scratch directory through this interface.
package storage

import (
	"context"
	"fmt"
	"strings"

	"mixdown/internal/services"
)

// ObjectStore moves files between durable storage and local paths.
type ObjectStore interface {
	Download(ctx context.Context, storagePath, localPath string) error
	Upload(ctx context.Context, localPath, storagePath, contentType string) error
}

// ParseStoragePath splits "bucket/key..." into its bucket and key parts.
func ParseStoragePath(storagePath string) (bucket, key string, err error) {
	cleaned := strings.Trim(strings.TrimSpace(storagePath), "/")
	if cleaned == "" {
		return "", "", services.Wrap(services.ErrValidation, "storage", "parse", "storage path is empty", nil)
	}
	bucket, key, found := strings.Cut(cleaned, "/")
	if !found || key == "" {
		return "", "", services.Wrap(services.ErrValidation, "storage", "parse",
			fmt.Sprintf("storage path %q needs a bucket and a key", storagePath), nil)
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." || part == "." {
			return "", "", services.Wrap(services.ErrValidation, "storage", "parse",
				fmt.Sprintf("storage path %q contains a relative segment", storagePath), nil)
		}
	}
	return bucket, key, nil
}
