// Package signing provides the asymmetric and hashing primitives for the
// license protocol: ECDSA P-256 key management, signing, verification, and
// the SHA-256 preseed commitment.
//
// Keys cross the package boundary as base64-wrapped PEM text so they can be
// embedded in JSON key files or passed on the command line without newline
// handling issues.
package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Curve is the only curve the license protocol supports.
const Curve = "P-256"

// Sentinel errors for malformed key or signature encodings. Value-level
// failures (wrong key, tampered data) are reported as a false verification
// result, never as an error.
var (
	ErrInvalidKey       = errors.New("invalid key encoding")
	ErrInvalidSignature = errors.New("invalid signature encoding")
)

const (
	pemTypePrivate = "PRIVATE KEY"
	pemTypePublic  = "PUBLIC KEY"
)

// GenerateKeyPair creates a new ECDSA P-256 key pair. Both keys are returned
// as base64(PEM): PKCS#8 for the private key, PKIX for the public key.
func GenerateKeyPair() (privateKey, publicKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate ECDSA key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{Type: pemTypePrivate, Bytes: privDER})
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: pemTypePublic, Bytes: pubDER})

	slog.Debug("ECDSA key pair generated", slog.String("curve", Curve))

	return base64.StdEncoding.EncodeToString(privPEM),
		base64.StdEncoding.EncodeToString(pubPEM), nil
}

// LoadPrivateKey decodes a base64(PEM) private key. PKCS#8 is the native
// format; SEC1 "EC PRIVATE KEY" blocks are accepted for keys produced by
// other tooling.
func LoadPrivateKey(text string) (*ecdsa.PrivateKey, error) {
	block, err := decodePEM(text, pemTypePrivate, "EC PRIVATE KEY")
	if err != nil {
		return nil, err
	}

	var key *ecdsa.PrivateKey
	if parsed, perr := x509.ParsePKCS8PrivateKey(block.Bytes); perr == nil {
		ecKey, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an ECDSA private key", ErrInvalidKey)
		}
		key = ecKey
	} else if ecKey, serr := x509.ParseECPrivateKey(block.Bytes); serr == nil {
		key = ecKey
	} else {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, perr)
	}

	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: curve %s is not %s", ErrInvalidKey, key.Curve.Params().Name, Curve)
	}
	return key, nil
}

// LoadPublicKey decodes a base64(PEM) PKIX public key.
func LoadPublicKey(text string) (*ecdsa.PublicKey, error) {
	block, err := decodePEM(text, pemTypePublic)
	if err != nil {
		return nil, err
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA public key", ErrInvalidKey)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: curve %s is not %s", ErrInvalidKey, key.Curve.Params().Name, Curve)
	}
	return key, nil
}

// Sign produces a base64 ASN.1 ECDSA signature over the SHA-256 digest of data.
func Sign(data []byte, privateKey string) (string, error) {
	key, err := LoadPrivateKey(privateKey)
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256(data)
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return "", fmt.Errorf("signing failed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 ASN.1 ECDSA signature over data. It returns false
// for a wrong key or tampered data; an error is reserved for malformed key
// or signature encodings.
func Verify(data []byte, signature, publicKey string) (bool, error) {
	key, err := LoadPublicKey(publicKey)
	if err != nil {
		return false, err
	}

	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	digest := sha256.Sum256(data)
	return ecdsa.VerifyASN1(key, digest[:], sig), nil
}

// HashData returns the SHA-256 digest of data as 64 lowercase hex characters.
func HashData(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

// PreseedHash computes the commitment binding a license to one
// (preseed, hardware value, hardware class, expiry, component) tuple.
// Generator and verifier must agree on this byte-for-byte, so the field
// order and "|" separator are fixed.
func PreseedHash(preseed, hwFingerprint, fingerprintType, expiry, componentName string) string {
	combined := strings.Join([]string{preseed, hwFingerprint, fingerprintType, expiry, componentName}, "|")
	return HashData([]byte(combined))
}

// decodePEM unwraps base64(PEM) text and checks the block type against the
// accepted set.
func decodePEM(text string, accepted ...string) (*pem.Block, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64: %v", ErrInvalidKey, err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKey)
	}
	for _, t := range accepted {
		if block.Type == t {
			return block, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected PEM block type %q", ErrInvalidKey, block.Type)
}
