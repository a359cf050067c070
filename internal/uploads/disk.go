package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// DiskStorage stores uploads in a local directory, created on first use.
type DiskStorage struct {
	dir    string
	logger *slog.Logger
}

// NewDiskStorage creates a DiskStorage rooted at dir.
func NewDiskStorage(dir string, logger *slog.Logger) *DiskStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskStorage{dir: dir, logger: logger}
}

// Dir returns the root directory.
func (d *DiskStorage) Dir() string {
	return d.dir
}

// Destination implements Storage.
func (d *DiskStorage) Destination() string {
	return filepath.ToSlash(d.dir) + "/"
}

func (d *DiskStorage) ensureDir() error {
	if _, err := os.Stat(d.dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	d.logger.Info("upload directory created", "dir", d.dir)
	return nil
}

// Save implements Storage.
func (d *DiskStorage) Save(_ context.Context, name, _ string, r io.Reader, _ int64) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	if err := d.ensureDir(); err != nil {
		return "", err
	}

	dst := filepath.Join(d.dir, name)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return filepath.ToSlash(dst), nil
}

// Open implements Storage.
func (d *DiskStorage) Open(_ context.Context, name string) (io.ReadCloser, string, error) {
	if !ValidName(name) {
		return nil, "", ErrNotFound
	}
	f, err := os.Open(filepath.Join(d.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open %s: %w", name, err)
	}
	mt, err := mimetype.DetectReader(f)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		f.Close()
		return nil, "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return f, mt.String(), nil
}
