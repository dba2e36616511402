package document

import (
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PublicPrefix is the URL path uploaded files are served under
const PublicPrefix = "/uploads/"

// ValidateUploadedFile validates uploaded file. maxSize <= 0 disables the size check.
func ValidateUploadedFile(header *multipart.FileHeader, maxSize int64) error {
	if header.Size == 0 {
		return fmt.Errorf("file is empty")
	}

	if maxSize > 0 && header.Size > maxSize {
		return fmt.Errorf("file size exceeds %s limit", HumanSize(maxSize))
	}

	return nil
}

// GenerateStoredFileName builds a collision-resistant name keeping the original extension
func GenerateStoredFileName(originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if len(ext) > 16 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString(), ext)
}

// PublicURL returns the relative URL for a stored file name
func PublicURL(storedName string) string {
	return PublicPrefix + storedName
}

// StoredNameFromURL extracts and sanitizes the stored name from a public URL or path
func StoredNameFromURL(raw string) (string, bool) {
	name := strings.TrimPrefix(raw, PublicPrefix)
	name = strings.TrimPrefix(name, "/")
	if name == "" || name != path.Base(name) || name == "." || name == ".." || strings.Contains(name, `\`) {
		return "", false
	}
	return name, true
}

// HumanSize formats a byte count such as 10485760 as "10MB"
func HumanSize(size int64) string {
	switch {
	case size >= 1<<30 && size%(1<<30) == 0:
		return fmt.Sprintf("%dGB", size>>30)
	case size >= 1<<20 && size%(1<<20) == 0:
		return fmt.Sprintf("%dMB", size>>20)
	case size >= 1<<10 && size%(1<<10) == 0:
		return fmt.Sprintf("%dKB", size>>10)
	default:
		return fmt.Sprintf("%dB", size)
	}
}
