package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"licforge/internal/hardware"
	"licforge/internal/signing"
)

// Manager verifies license records. It holds the issuer's public key and the
// preseed commitment, which must equal the one used at generation time for a
// license to validate. A Manager performs no internal mutation during
// verification beyond the idempotent fingerprint cache and is safe for
// concurrent use.
type Manager struct {
	publicKey string
	preseed   string
	hw        *hardware.Fingerprint
	metrics   *Metrics
}

// Status reports the informational state of a license whose trust anchor
// has already been verified.
type Status struct {
	IsExpired       bool `json:"is_expired"`
	HardwareMatches bool `json:"hardware_matches"`
	PreseedValid    bool `json:"preseed_valid"`
}

// NewManager creates a Manager from a base64(PEM) public key and a preseed
// commitment string.
func NewManager(publicKey, preseed string) *Manager {
	return &Manager{
		publicKey: publicKey,
		preseed:   preseed,
		hw:        hardware.New(),
	}
}

// WithMetrics attaches OpenTelemetry instrumentation to the manager.
func (m *Manager) WithMetrics(metrics *Metrics) *Manager {
	m.metrics = metrics
	return m
}

// VerifyLicense runs the full verification state machine and returns the
// parsed record on success. The signature and preseed checks always run;
// expiry and hardware checks are individually skippable.
func (m *Manager) VerifyLicense(licenseString string, checkHardware, checkExpiry bool) (Record, error) {
	start := time.Now()
	record, err := m.verify(licenseString, checkHardware, checkExpiry)
	m.metrics.recordVerification(context.Background(), time.Since(start), err)

	if err != nil {
		slog.Debug("license verification failed",
			slog.String("error", err.Error()),
			slog.String("outcome", errorType(err)),
		)
		return nil, err
	}

	slog.Debug("license verified",
		slog.String("hw_type", record.String(FieldHardwareType)),
		slog.String("expiry", record.String(FieldExpiry)),
		slog.String("component", record.String(FieldComponentName)),
	)
	return record, nil
}

func (m *Manager) verify(licenseString string, checkHardware, checkExpiry bool) (Record, error) {
	record, err := Parse(licenseString)
	if err != nil {
		return nil, err
	}
	if err := record.checkStructure(); err != nil {
		return nil, err
	}

	// Trust anchor: never skippable.
	if err := m.verifySignature(record); err != nil {
		return nil, err
	}
	if err := m.verifyPreseed(record); err != nil {
		return nil, err
	}

	if checkExpiry {
		expired, err := m.isExpired(record)
		if err != nil {
			return nil, err
		}
		if expired {
			return nil, fmt.Errorf("%w: license expired on %s", ErrLicenseExpired, record.String(FieldExpiry))
		}
	}

	if checkHardware {
		matches, err := m.hardwareMatches(record)
		if err != nil {
			return nil, err
		}
		if !matches {
			return nil, fmt.Errorf("%w: license is bound to different hardware (%s)",
				ErrHardwareMismatch, record.String(FieldHardwareType))
		}
	}

	return record, nil
}

// IsValid collapses the full taxonomy into a boolean for simple gating.
func (m *Manager) IsValid(licenseString string, checkHardware, checkExpiry bool) bool {
	_, err := m.VerifyLicense(licenseString, checkHardware, checkExpiry)
	return err == nil
}

// LicenseInfo parses a license and verifies its trust anchor (structure,
// signature, preseed), then returns the record augmented with a "status"
// object describing expiry and hardware state informationally, without
// failing for either. Callers can inspect a license non-destructively
// before deciding whether to enforce it with VerifyLicense.
func (m *Manager) LicenseInfo(licenseString string) (Record, error) {
	record, err := Parse(licenseString)
	if err != nil {
		return nil, err
	}
	if err := record.checkStructure(); err != nil {
		return nil, err
	}
	if err := m.verifySignature(record); err != nil {
		return nil, err
	}
	if err := m.verifyPreseed(record); err != nil {
		return nil, err
	}

	expired, err := m.isExpired(record)
	if err != nil {
		return nil, err
	}
	matches, err := m.hardwareMatches(record)
	if err != nil {
		return nil, err
	}

	info := make(Record, len(record)+1)
	for k, v := range record {
		info[k] = v
	}
	info["status"] = Status{
		IsExpired:       expired,
		HardwareMatches: matches,
		PreseedValid:    true,
	}
	return info, nil
}

// DaysUntilExpiry returns the signed day difference between the license
// expiry and today: negative when expired, zero when it expires today. It
// fails only when the license cannot be parsed or structurally validated.
func (m *Manager) DaysUntilExpiry(licenseString string) (int, error) {
	record, err := Parse(licenseString)
	if err != nil {
		return 0, err
	}
	if err := record.checkStructure(); err != nil {
		return 0, err
	}

	expiry, err := record.expiryDate()
	if err != nil {
		return 0, invalidf("Invalid date format")
	}

	return daysBetween(today(), expiry), nil
}

// HardwareFingerprint returns the current machine's digest for a class.
func (m *Manager) HardwareFingerprint(fingerprintType string) (string, error) {
	return m.hw.Get(fingerprintType)
}

func (m *Manager) verifySignature(record Record) error {
	payload, err := record.canonicalPayload()
	if err != nil {
		return invalidf("license is not serializable")
	}

	ok, err := signing.Verify(payload, record.String(FieldSignature), m.publicKey)
	if err != nil {
		if errors.Is(err, signing.ErrInvalidKey) {
			// The verifier's own key material is broken, not the license.
			return err
		}
		return invalidf("signature is invalid")
	}
	if !ok {
		return invalidf("signature is invalid")
	}
	return nil
}

func (m *Manager) verifyPreseed(record Record) error {
	expected := signing.PreseedHash(
		m.preseed,
		record.String(FieldHardwareInfo),
		record.String(FieldHardwareType),
		record.String(FieldExpiry),
		record.String(FieldComponentName),
	)
	if record.String(FieldPreseedHash) != expected {
		return invalidf("preseed hash is invalid")
	}
	return nil
}

func (m *Manager) isExpired(record Record) (bool, error) {
	expiry, err := record.expiryDate()
	if err != nil {
		return false, invalidf("Invalid date format")
	}
	return expiry.Before(today()), nil
}

func (m *Manager) hardwareMatches(record Record) (bool, error) {
	current, err := m.hw.Get(record.String(FieldHardwareType))
	if err != nil {
		return false, invalidf("%v", err)
	}
	matches := current == record.String(FieldHardwareInfo)
	if !matches {
		m.metrics.recordFingerprintMismatch(context.Background())
	}
	return matches, nil
}

// today returns the current date truncated to day granularity, so expiry
// comparisons are calendar-exact.
func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
