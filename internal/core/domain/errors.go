package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Adapters map them to transport-level responses;
// anything unwrapped is treated as internal.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrPrecondition     = errors.New("precondition failed")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError attaches a kind and the failing operation to err so callers
// can branch on the kind without losing the cause chain.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err, kind error) bool {
	return errors.Is(err, kind)
}
