package document

import (
	"mime/multipart"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateStoredFileName(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	name := GenerateStoredFileName("Policy Scan.PDF", now)
	assert.Regexp(t, `^1700000000000-[0-9a-f-]{36}\.pdf$`, name)
	assert.NotEqual(t, name, GenerateStoredFileName("Policy Scan.PDF", now))

	assert.Regexp(t, `^1700000000000-[0-9a-f-]{36}$`, GenerateStoredFileName("README", now))
	assert.Regexp(t, `^\d+-[0-9a-f-]{36}\.png$`, GenerateStoredFileName("../../etc/shot.png", now))
}

func TestStoredNameFromURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"/uploads/1700000000000-abc.pdf", "1700000000000-abc.pdf", true},
		{"1700000000000-abc.pdf", "1700000000000-abc.pdf", true},
		{"/1700000000000-abc.pdf", "1700000000000-abc.pdf", true},
		{"/uploads/../secret.env", "", false},
		{"/uploads/a/b.pdf", "", false},
		{`/uploads/..\secret`, "", false},
		{"/uploads/", "", false},
		{"..", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := StoredNameFromURL(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateUploadedFile(t *testing.T) {
	assert.EqualError(t, ValidateUploadedFile(&multipart.FileHeader{Size: 0}, 10), "file is empty")
	assert.EqualError(t, ValidateUploadedFile(&multipart.FileHeader{Size: 11 << 20}, 10<<20), "file size exceeds 10MB limit")
	assert.NoError(t, ValidateUploadedFile(&multipart.FileHeader{Size: 10 << 20}, 10<<20))
	assert.NoError(t, ValidateUploadedFile(&multipart.FileHeader{Size: 1 << 40}, 0))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "10MB", HumanSize(10<<20))
	assert.Equal(t, "2GB", HumanSize(2<<30))
	assert.Equal(t, "512KB", HumanSize(512<<10))
	assert.Equal(t, "1500B", HumanSize(1500))
}

func TestBuildUploadResponse(t *testing.T) {
	resp := BuildUploadResponse("scan.pdf", "1-abc.pdf")
	assert.Equal(t, UploadResponse{Name: "scan.pdf", FileURL: "/uploads/1-abc.pdf"}, resp)
}
