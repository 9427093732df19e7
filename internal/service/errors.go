package service

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced to the HTTP boundary. Read failures deliberately
// conflate "missing" and "not visible to the caller" under ErrNotFound so
// entity existence cannot be probed; ErrForbidden is reserved for entities the
// caller can already see.
var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
