package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mixdown/internal/services"
	"mixdown/internal/storage"
	"mixdown/internal/testsupport"
)

func TestParseStoragePath(t *testing.T) {
	bucket, key, err := storage.ParseStoragePath("stems/owner-1/vocal.wav")
	if err != nil {
		t.Fatalf("ParseStoragePath: %v", err)
	}
	if bucket != "stems" || key != "owner-1/vocal.wav" {
		t.Fatalf("parsed %q / %q", bucket, key)
	}

	for _, bad := range []string{"", "bucketonly", "stems/", "stems/../etc/passwd", "a/./b"} {
		if _, _, err := storage.ParseStoragePath(bad); err == nil {
			t.Errorf("path %q accepted", bad)
		}
	}
}

func TestFilesystemRoundTrip(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewFilesystem(filepath.Join(root, "objects"))
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}

	local := filepath.Join(root, "mix.mp3")
	testsupport.WriteFile(t, local, 96*1024)
	want, err := os.ReadFile(local)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Upload(ctx, local, "results/job-1/mix.mp3", "audio/mpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	fetched := filepath.Join(root, "fetched.mp3")
	if err := store.Download(ctx, "results/job-1/mix.mp3", fetched); err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, err := os.ReadFile(fetched)
	if err != nil || string(data) != string(want) {
		t.Fatalf("round trip mismatch: %d bytes, %v", len(data), err)
	}
}

func TestFilesystemDownloadMissingObject(t *testing.T) {
	store, err := storage.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	err = store.Download(context.Background(), "stems/absent.wav", filepath.Join(t.TempDir(), "out.wav"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not-found marker", err)
	}
}

func TestFilesystemUploadMissingLocal(t *testing.T) {
	store, err := storage.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	err = store.Upload(context.Background(), "/nonexistent/file.mp3", "results/x.mp3", "audio/mpeg")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not-found marker", err)
	}
}
