package utils

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// DateLayout is the wire format for dates of birth and effective dates
const DateLayout = "2006-01-02"

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}

	_, err := mail.ParseAddress(email)
	if err != nil {
		return errors.New("invalid email format")
	}

	return nil
}

// NormalizeDateOfBirth accepts YYYY-MM-DD or an RFC 3339 timestamp and returns YYYY-MM-DD
func NormalizeDateOfBirth(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("date of birth is required")
	}

	if t, err := time.Parse(DateLayout, value); err == nil {
		return t.Format(DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format(DateLayout), nil
	}
	return "", errors.New("date of birth must be formatted as YYYY-MM-DD")
}

// NormalizeFullName trims and collapses inner whitespace
func NormalizeFullName(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
