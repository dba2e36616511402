package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDateOfBirth(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1990-01-01", "1990-01-01", false},
		{" 1990-01-01 ", "1990-01-01", false},
		{"1990-01-01T00:00:00Z", "1990-01-01", false},
		{"01/01/1990", "", true},
		{"1990-13-01", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDateOfBirth(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeFullName(t *testing.T) {
	assert.Equal(t, "John Doe", NormalizeFullName("  John   Doe "))
	assert.Equal(t, "", NormalizeFullName("   "))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("john@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(" "))
}
