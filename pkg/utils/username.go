package utils

import (
	"regexp"
	"strings"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_]*$`)

var reservedUsernames = map[string]bool{
	"admin":     true,
	"calmsteps": true,
	"support":   true,
	"nhs":       true,
	"system":    true,
}

// ValidateUsername checks 3-20 characters of letters, digits and underscores,
// starting with a letter or digit. Reserved names are rejected.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)

	if len(username) < MinUsernameLength {
		return &ValidationError{Field: "username", Message: "Username must be at least 3 characters"}
	}
	if len(username) > MaxUsernameLength {
		return &ValidationError{Field: "username", Message: "Username must be at most 20 characters"}
	}
	if !usernameRegex.MatchString(username) {
		return &ValidationError{Field: "username", Message: "Username can only contain letters, numbers, and underscores, and must start with a letter or number"}
	}
	if reservedUsernames[NormalizeUsername(username)] {
		return &ValidationError{Field: "username", Message: "Username is not available"}
	}
	return nil
}

// NormalizeUsername converts username to lowercase for storage
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidationError names the offending field; Message is safe to show users.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
