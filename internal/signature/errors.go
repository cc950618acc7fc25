package signature

import "fmt"

// ValidationError represents a codec configuration error
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(format string, args ...interface{}) ValidationError {
	return ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}
