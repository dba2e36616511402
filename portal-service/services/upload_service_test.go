package services

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insureportal-backend/shared/apperrors"
)

// fileHeader builds a parsed multipart header the way net/http hands it to handlers.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func newDiskUploads(t *testing.T, maxSize int64) (*UploadService, *DiskStorage) {
	t.Helper()
	storage, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)
	return NewUploadService(storage, maxSize), storage
}

func TestUploadService_UploadAndOpen(t *testing.T) {
	uploads, storage := newDiskUploads(t, 1024)
	ctx := context.Background()

	resp, err := uploads.Upload(ctx, fileHeader(t, "Policy Scan.pdf", []byte("%PDF-1.4 test")))
	require.NoError(t, err)
	assert.Equal(t, "Policy Scan.pdf", resp.Name)
	assert.Regexp(t, `^/uploads/\d+-[0-9a-f-]{36}\.pdf$`, resp.FileURL)

	stored := strings.TrimPrefix(resp.FileURL, "/uploads/")
	_, err = os.Stat(filepath.Join(storage.Dir(), stored))
	require.NoError(t, err)

	file, info, err := uploads.Open(ctx, resp.FileURL)
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(content))
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)
}

func TestUploadService_Rejections(t *testing.T) {
	uploads, _ := newDiskUploads(t, 8)
	ctx := context.Background()

	_, err := uploads.Upload(ctx, fileHeader(t, "big.pdf", bytes.Repeat([]byte("x"), 9)))
	assert.True(t, apperrors.IsKind(err, apperrors.KindTooLarge), "got %v", err)

	_, err = uploads.Upload(ctx, fileHeader(t, "empty.pdf", nil))
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput), "got %v", err)

	_, err = uploads.Upload(ctx, nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput))
}

func TestUploadService_OpenMissingOrTraversal(t *testing.T) {
	uploads, storage := newDiskUploads(t, 0)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(storage.Dir()), "secret.env"), []byte("x"), 0o600))

	for _, name := range []string{"/uploads/missing.pdf", "/uploads/../secret.env", "../secret.env", ""} {
		_, _, err := uploads.Open(ctx, name)
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound), "name %q: %v", name, err)
	}
}

func TestNewStorage(t *testing.T) {
	cfg := testConfig()
	cfg.UploadDir = t.TempDir()

	storage, err := NewStorage(cfg)
	require.NoError(t, err)
	assert.IsType(t, &DiskStorage{}, storage)

	cfg.StorageDriver = "ftp"
	_, err = NewStorage(cfg)
	assert.Error(t, err)
}
