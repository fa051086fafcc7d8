package registry

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a referenced record, image, user, or request
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyResolved is returned when a request in a terminal state is
// resolved again. The losing side of a concurrent resolution race observes
// this error; the winning transition is never double-applied.
var ErrAlreadyResolved = errors.New("request already resolved")

// ErrConflict is returned for store-level transaction conflicts. It is the
// only retryable error kind; callers may retry the whole logical operation
// once.
var ErrConflict = errors.New("store conflict")

// ValidationError reports a missing or malformed field in a request payload.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsDuplicateKey reports whether the error is a unique-constraint violation.
// GORM translates some driver errors to ErrDuplicatedKey; the string checks
// cover sqlite, postgres, and mysql messages that slip through untranslated.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}
