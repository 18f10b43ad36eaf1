package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or state conflict.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates rejected input before any write.
	ErrValidation = errors.New("validation failed")
	// ErrNotEligible indicates a redemption blocked by business rules.
	ErrNotEligible = errors.New("not eligible")
	// ErrForbidden indicates a missing permission.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates a missing or unresolvable identity.
	ErrUnauthorized = errors.New("unauthorized")
)

// UserSafeMessage returns a message safe to surface to end users.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotEligible):
		return err.Error()
	default:
		return "something went wrong, please try again"
	}
}
