package billing

import "errors"

// Error taxonomy for webhook processing. Store faults are anything not
// matching one of these sentinels and always propagate unmodified.
var (
	ErrMissingSignature    = errors.New("missing webhook signature")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrMalformedEvent      = errors.New("malformed webhook event")
	ErrValidation          = errors.New("event validation failed")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// IsAuthError reports whether err is a signature authentication failure.
// Callers must map both variants to the same generic unauthorized response.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingSignature) || errors.Is(err, ErrInvalidSignature)
}
