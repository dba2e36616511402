package services

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"time"

	"insureportal-backend/shared/apperrors"
	applog "insureportal-backend/shared/logger"
	"insureportal-backend/shared/utils/document"
)

// UploadService validates, names and stores uploaded documents.
type UploadService struct {
	storage Storage
	maxSize int64
	now     func() time.Time
}

func NewUploadService(storage Storage, maxSize int64) *UploadService {
	return &UploadService{storage: storage, maxSize: maxSize, now: time.Now}
}

// MaxSize returns the upload limit in bytes, 0 meaning unlimited
func (s *UploadService) MaxSize() int64 {
	return s.maxSize
}

// Upload stores one file under a fresh name and returns its public reference.
func (s *UploadService) Upload(ctx context.Context, header *multipart.FileHeader) (*document.UploadResponse, error) {
	if header == nil {
		return nil, apperrors.InvalidInput("No file uploaded")
	}
	if err := document.ValidateUploadedFile(header, s.maxSize); err != nil {
		if s.maxSize > 0 && header.Size > s.maxSize {
			return nil, apperrors.TooLarge("%s", err.Error())
		}
		return nil, apperrors.InvalidInput("%s", err.Error())
	}

	file, err := header.Open()
	if err != nil {
		return nil, apperrors.Internal("Failed to read uploaded file", err)
	}
	defer file.Close()

	storedName := document.GenerateStoredFileName(header.Filename, s.now())
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(storedName))
	}

	if err := s.storage.Save(ctx, storedName, file, header.Size, contentType); err != nil {
		return nil, apperrors.Internal("Failed to store uploaded file", err)
	}

	applog.Info().Str("name", header.Filename).Str("stored_as", storedName).Int64("size", header.Size).
		Msg("📎 File uploaded")

	response := document.BuildUploadResponse(filepath.Base(header.Filename), storedName)
	return &response, nil
}

// Open returns a stored upload by its public name
func (s *UploadService) Open(ctx context.Context, name string) (io.ReadSeekCloser, *ObjectInfo, error) {
	storedName, ok := document.StoredNameFromURL(name)
	if !ok {
		return nil, nil, apperrors.NotFound("File not found")
	}
	object, info, err := s.storage.Open(ctx, storedName)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, nil, apperrors.NotFound("File not found")
		}
		return nil, nil, apperrors.Internal("Failed to read file", err)
	}
	return object, info, nil
}
