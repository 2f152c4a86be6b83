package license

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"licforge/internal/hardware"
	"licforge/internal/signing"
)

// Generator mints license records. It holds the issuer's private key and the
// preseed commitment (the hash produced by loading a preseed file, not the
// raw secret). A Generator performs no internal mutation after construction
// and is safe for concurrent use.
type Generator struct {
	privateKey string
	preseed    string
	hw         *hardware.Fingerprint
	validate   *validator.Validate
}

// generateParams carries the caller-supplied generation inputs through
// syntactic validation.
type generateParams struct {
	ExpiryDate      string `validate:"required,datetime=2006-01-02"`
	FingerprintType string `validate:"required,oneof=mac disk cpu system composite"`
}

// NewGenerator creates a Generator from a base64(PEM) private key and a
// preseed commitment string.
func NewGenerator(privateKey, preseed string) *Generator {
	return &Generator{
		privateKey: privateKey,
		preseed:    preseed,
		hw:         hardware.New(),
		validate:   validator.New(),
	}
}

// GenerateKeyPair creates a fresh ECDSA P-256 issuer key pair, both halves
// returned as base64(PEM).
func GenerateKeyPair() (privateKey, publicKey string, err error) {
	return signing.GenerateKeyPair()
}

// GenerateLicense builds, signs, and serializes a license record for the
// current machine. additionalData fields are merged flatly into the record
// and covered by the signature; hardwareOverride, when non-empty, is used
// verbatim as hw_info instead of querying local hardware.
func (g *Generator) GenerateLicense(expiryDate, fingerprintType string, additionalData map[string]any, componentName, hardwareOverride string) (string, error) {
	if err := g.checkParams(expiryDate, fingerprintType); err != nil {
		return "", err
	}

	hwInfo := hardwareOverride
	if hwInfo == "" {
		digest, err := g.hw.Get(fingerprintType)
		if err != nil {
			return "", validationf("%v", err)
		}
		hwInfo = digest
	}

	record := Record{
		FieldVersion:       Version,
		FieldHardwareType:  fingerprintType,
		FieldHardwareInfo:  hwInfo,
		FieldExpiry:        expiryDate,
		FieldIssued:        time.Now().Format(DateFormat),
		FieldPreseedHash:   signing.PreseedHash(g.preseed, hwInfo, fingerprintType, expiryDate, componentName),
		FieldComponentName: componentName,
	}

	for key, value := range additionalData {
		if reservedFields[key] {
			return "", validationf("additional data may not use reserved field %q", key)
		}
		record[key] = value
	}

	payload, err := record.canonicalPayload()
	if err != nil {
		return "", fmt.Errorf("failed to serialize license: %w", err)
	}
	signature, err := signing.Sign(payload, g.privateKey)
	if err != nil {
		return "", err
	}
	record[FieldSignature] = signature

	out, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to serialize license: %w", err)
	}

	slog.Info("license generated",
		slog.String("hw_type", fingerprintType),
		slog.String("expiry", expiryDate),
		slog.String("component", componentName),
	)
	return string(out), nil
}

// GenerateForTarget mints a license for a remote machine whose hardware
// descriptors were collected elsewhere. The fingerprint is derived from the
// descriptors with the same canonicalization the target machine applies
// locally, so the license verifies there.
func (g *Generator) GenerateForTarget(target hardware.TargetInfo, expiryDate, fingerprintType string, additionalData map[string]any, componentName string) (string, error) {
	if fingerprintType == "" {
		fingerprintType = hardware.KindComposite
	}

	hwInfo, err := hardware.FromTarget(fingerprintType, target)
	if err != nil {
		return "", validationf("%v", err)
	}
	return g.GenerateLicense(expiryDate, fingerprintType, additionalData, componentName, hwInfo)
}

// ParseLicense deserializes a license string without verifying it.
func (g *Generator) ParseLicense(licenseString string) (Record, error) {
	return Parse(licenseString)
}

// HardwareInfo returns the raw descriptors backing one fingerprint class of
// the current machine, keyed the way the target-hardware interchange format
// expects them.
func (g *Generator) HardwareInfo(fingerprintType string) (map[string]any, error) {
	if !hardware.ValidKind(fingerprintType) {
		return nil, validationf("Invalid fingerprint type: %q", fingerprintType)
	}

	info := g.hw.Collect()
	switch fingerprintType {
	case hardware.KindMAC:
		return map[string]any{"mac_addresses": info.MACAddresses}, nil
	case hardware.KindDisk:
		return map[string]any{"disk_info": info.DiskInfo}, nil
	case hardware.KindCPU:
		return map[string]any{"cpu_info": info.CPUInfo}, nil
	case hardware.KindSystem:
		return map[string]any{"system_info": info.SystemInfo}, nil
	}
	return map[string]any{
		"mac_addresses": info.MACAddresses,
		"disk_info":     info.DiskInfo,
		"cpu_info":      info.CPUInfo,
		"system_info":   info.SystemInfo,
	}, nil
}

// CollectHardware gathers the full descriptor set of the local machine for
// out-of-band transfer to an issuer.
func (g *Generator) CollectHardware() hardware.TargetInfo {
	return g.hw.Collect()
}

func (g *Generator) checkParams(expiryDate, fingerprintType string) error {
	err := g.validate.Struct(generateParams{
		ExpiryDate:      expiryDate,
		FingerprintType: fingerprintType,
	})
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return validationf("%v", err)
	}
	switch fieldErrors[0].Field() {
	case "ExpiryDate":
		return validationf("expiry date must be in YYYY-MM-DD format, got %q", expiryDate)
	default:
		return validationf("Invalid fingerprint type: %q", fingerprintType)
	}
}
