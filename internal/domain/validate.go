package domain

import (
	"regexp"
	"strings"
)

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidateAddress checks that s is a 0x-prefixed 20-byte hex address.
func ValidateAddress(s string) error {
	if !addressPattern.MatchString(s) {
		return ErrInvalidAddress
	}
	return nil
}

// NormalizeAddress lowercases an address so lookups are case-insensitive.
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateEmail performs a shallow structural check on an email address.
func ValidateEmail(s string) error {
	if !emailPattern.MatchString(s) {
		return ErrInvalidEmail
	}
	return nil
}
