package validator

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	minEmailLength    = 3
	maxEmailLength    = 255
	minPasswordLength = 8
	maxPasswordLength = 128
	otpLength         = 6
	maxIDLength       = 64
	maxReasonLength   = 1000
	asciiControlStart = 32
	asciiDelete       = 127

	errEmailEmptyFmt         = "email cannot be empty"
	errEmailLengthFmt        = "email must be between %d and %d characters"
	errEmailInvalidFmt       = "invalid email format"
	errPasswordMinLengthFmt  = "password must be at least %d characters"
	errPasswordMaxLengthFmt  = "password must not exceed %d characters"
	errOTPLengthFmt          = "verification code must be %d digits"
	errOTPDigitsFmt          = "verification code must contain only digits"
	errIDEmptyFmt            = "id cannot be empty"
	errIDInvalidFmt          = "id must be at most %d letters, digits, '-' or '_'"
	errReasonMaxLengthFmt    = "note must not exceed %d characters"
	errReasonControlCharsFmt = "note cannot contain control characters"
	errRedirectInvalidFmt    = "redirect must be a local path"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	idRegex    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

func Email(email string) error {
	if email == "" {
		return fmt.Errorf(errEmailEmptyFmt)
	}

	if len(email) < minEmailLength || len(email) > maxEmailLength {
		return fmt.Errorf(errEmailLengthFmt, minEmailLength, maxEmailLength)
	}

	if !emailRegex.MatchString(email) {
		return fmt.Errorf(errEmailInvalidFmt)
	}

	return nil
}

func Password(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf(errPasswordMinLengthFmt, minPasswordLength)
	}

	if len(password) > maxPasswordLength {
		return fmt.Errorf(errPasswordMaxLengthFmt, maxPasswordLength)
	}

	return nil
}

func OTP(code string) error {
	if len(code) != otpLength {
		return fmt.Errorf(errOTPLengthFmt, otpLength)
	}

	for _, char := range code {
		if char < '0' || char > '9' {
			return fmt.Errorf(errOTPDigitsFmt)
		}
	}

	return nil
}

// ID validates a path identifier forwarded to the remote API.
func ID(id string) error {
	if id == "" {
		return fmt.Errorf(errIDEmptyFmt)
	}

	if len(id) > maxIDLength || !idRegex.MatchString(id) {
		return fmt.Errorf(errIDInvalidFmt, maxIDLength)
	}

	return nil
}

func Reason(note string) error {
	if len(note) > maxReasonLength {
		return fmt.Errorf(errReasonMaxLengthFmt, maxReasonLength)
	}

	for _, char := range note {
		if char == '\n' || char == '\t' {
			continue
		}
		if char < asciiControlStart || char == asciiDelete {
			return fmt.Errorf(errReasonControlCharsFmt)
		}
	}

	return nil
}

// RedirectPath accepts only same-origin absolute paths.
func RedirectPath(p string) error {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return fmt.Errorf(errRedirectInvalidFmt)
	}

	return nil
}
