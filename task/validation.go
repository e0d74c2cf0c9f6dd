package task

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxDescriptionLength is the maximum number of characters in a task
// description.
const MaxDescriptionLength = 1024

// ValidateDescription trims the description and checks that it is neither
// empty nor longer than [MaxDescriptionLength]. It returns the trimmed value.
func ValidateDescription(description string) (string, error) {
	trimmed := strings.TrimSpace(description)

	if trimmed == "" {
		return "", fmt.Errorf("%w: description cannot be empty", ErrInvalidTask)
	}

	if n := utf8.RuneCountInString(trimmed); n > MaxDescriptionLength {
		return "", fmt.Errorf("%w: description is %d characters, maximum is %d", ErrInvalidTask, n, MaxDescriptionLength)
	}

	return trimmed, nil
}
