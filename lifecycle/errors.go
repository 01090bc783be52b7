package lifecycle

import (
	"errors"
	"fmt"

	"github.com/digibiomics/LungSense-main/shared/security"
	"github.com/digibiomics/LungSense-main/store"
)

var (
	ErrDuplicateEmail          = errors.New("email already registered")
	ErrDuplicatePractitionerID = errors.New("practitioner id already registered")
	// ErrInvalidCredentials is returned for every login failure so callers
	// cannot tell a missing account from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = security.ErrUnauthorized
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("account not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStorageTimeout     = errors.New("storage timeout")
)

// ValidationError reports a bad input field. Unprocessable marks input that
// was well-formed but semantically invalid, such as an impossible date.
type ValidationError struct {
	Field         string
	Message       string
	Unprocessable bool
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// storageErr translates store errors into the lifecycle taxonomy. Errors that
// already belong to it pass through unchanged.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	var verr *ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrDuplicatePractitionerID),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrStorageUnavailable),
		errors.Is(err, ErrStorageTimeout):
		return err
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrTimeout):
		return fmt.Errorf("%w: %v", ErrStorageTimeout, err)
	}

	var conflict *store.ConflictError
	if errors.As(err, &conflict) {
		switch conflict.Column {
		case "email":
			return ErrDuplicateEmail
		case "practitioner_id":
			return ErrDuplicatePractitionerID
		}
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
