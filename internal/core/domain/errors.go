package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrRetryNotAllowed = errors.New("retry not allowed")
	ErrBusy            = errors.New("upload in progress")
	ErrTemporary       = errors.New("temporary failure")

	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrRateLimited        = errors.New("rate limited")
	ErrEmbedding          = errors.New("embedding failure")
	ErrFileInvalid        = errors.New("file invalid")
	ErrPersistence        = errors.New("persistence failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
