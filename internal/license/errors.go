package license

import (
	"errors"
	"fmt"
)

// Sentinel errors for the verification taxonomy. Callers distinguish them
// with errors.Is: an invalid license needs different remediation advice than
// an expired one or one bound to different hardware.
var (
	// ErrValidation reports caller-supplied generation parameters that fail
	// local syntactic checks.
	ErrValidation = errors.New("validation error")

	// ErrLicenseInvalid reports a structural or trust-anchor failure: bad
	// JSON, missing field, unsupported version, bad date, bad signature, or
	// bad preseed commitment.
	ErrLicenseInvalid = errors.New("license invalid")

	// ErrLicenseExpired reports a license whose signature and preseed are
	// valid but whose expiry date has passed.
	ErrLicenseExpired = errors.New("license expired")

	// ErrHardwareMismatch reports a license bound to different hardware.
	ErrHardwareMismatch = errors.New("hardware mismatch")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrLicenseInvalid, fmt.Sprintf(format, args...))
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// errorType maps a verification error onto its summary bucket.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrLicenseExpired):
		return "expired"
	case errors.Is(err, ErrHardwareMismatch):
		return "hardware_mismatch"
	default:
		return "invalid"
	}
}
