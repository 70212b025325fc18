// Package generation contains the asynchronous document generation engine:
// the submission service, the variant resolver and the job poller.
package generation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound marks a dangling template/variant/version/environment
// reference or a request the tenant does not own.
var ErrNotFound = errors.New("not found")

// ErrNoMatchingVariant is returned when selection criteria match no variant.
var ErrNoMatchingVariant = errors.New("no matching variant")

// ValidationError rejects a submission before anything is persisted.
// Duplicates lists every correlation id and filename that appeared more
// than once within one batch.
type ValidationError struct {
	Message    string
	Duplicates []string
}

func (e *ValidationError) Error() string {
	if len(e.Duplicates) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Duplicates, ", "))
}

// IsValidation reports whether err is a submission validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
