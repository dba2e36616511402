package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"insureportal-backend/shared/config"
	applog "insureportal-backend/shared/logger"
)

// ErrObjectNotFound is returned by Storage.Open for unknown names
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored upload
type ObjectInfo struct {
	Name        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Storage keeps uploaded files under flat, already sanitized names.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadSeekCloser, *ObjectInfo, error)
}

// NewStorage builds the backend selected by STORAGE_DRIVER
func NewStorage(cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case "", "disk":
		return NewDiskStorage(cfg.UploadDir)
	case "minio":
		return NewMinIOService(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// DiskStorage stores uploads in a local directory
type DiskStorage struct {
	dir string
}

func NewDiskStorage(dir string) (*DiskStorage, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	applog.Info().Str("dir", dir).Msg("📁 Disk storage ready")
	return &DiskStorage{dir: dir}, nil
}

// Dir returns the upload directory
func (s *DiskStorage) Dir() string {
	return s.dir
}

// Save writes to a temporary file first so readers never see a partial upload.
func (s *DiskStorage) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to store file: %w", err)
	}
	return nil
}

func (s *DiskStorage) Open(_ context.Context, name string) (io.ReadSeekCloser, *ObjectInfo, error) {
	file, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	if stat.IsDir() {
		file.Close()
		return nil, nil, ErrObjectNotFound
	}

	return file, &ObjectInfo{
		Name:        name,
		Size:        stat.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		ModTime:     stat.ModTime(),
	}, nil
}
