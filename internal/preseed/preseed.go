// Package preseed generates and persists the application-level shared
// secret that accompanies a key pair. Possession of the public key alone is
// not enough to mint acceptable licenses; the verifier additionally demands
// a matching preseed commitment.
//
// The secret goes through two hashing stages, and both are load-bearing:
// loading a preseed file hashes secret + metadata + format version into the
// commitment callers pass around, and license generation later folds that
// commitment into the per-license preseed_hash. Changing file metadata
// therefore invalidates previously issued commitments, while the second
// stage binds each license to its own five-tuple.
package preseed

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"licforge/internal/signing"
)

// FormatVersion identifies the preseed file layout.
const FormatVersion = "1.0"

// DefaultLength is the secret entropy in bytes.
const DefaultLength = 64

// ErrFormat reports a preseed file whose content is not usable: not JSON,
// or missing a required field.
var ErrFormat = errors.New("invalid preseed file")

// File is the on-disk preseed layout.
type File struct {
	SecretContent string            `json:"secret_content"`
	GeneratedAt   string            `json:"generated_at"`
	Length        int               `json:"length"`
	FormatVersion string            `json:"format_version"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Info describes a preseed file without exposing its secret.
type Info struct {
	FilePath      string            `json:"file_path"`
	GeneratedAt   string            `json:"generated_at"`
	Length        int               `json:"length"`
	FormatVersion string            `json:"format_version"`
	HasMetadata   bool              `json:"has_metadata"`
	FileSize      int64             `json:"file_size"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Generate returns a cryptographically secure URL-safe secret derived from
// length random bytes.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to gather entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateFile writes a new preseed file to path, creating parent directories
// as needed, and returns the raw secret. The metadata key is omitted
// entirely when metadata is empty.
func CreateFile(fs afero.Fs, path string, metadata map[string]string, length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	secret, err := Generate(length)
	if err != nil {
		return "", err
	}

	file := File{
		SecretContent: secret,
		GeneratedAt:   time.Now().Format(time.RFC3339),
		Length:        length,
		FormatVersion: FormatVersion,
	}
	if len(metadata) > 0 {
		file.Metadata = metadata
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode preseed file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write preseed file: %w", err)
	}

	slog.Info("preseed file created",
		slog.String("path", path),
		slog.Int("length", length),
		slog.Bool("has_metadata", file.Metadata != nil),
	)
	return secret, nil
}

// LoadFromFile reads a preseed file and returns the commitment derived from
// its content-bearing fields: sha256(secret + canonical metadata JSON +
// format version). The raw secret never leaves this function; the
// commitment is what generators and managers consume as their preseed.
func LoadFromFile(fs afero.Fs, path string) (string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("preseed file not found: %w", err)
		}
		return "", fmt.Errorf("failed to read preseed file: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return "", fmt.Errorf("%w: not valid JSON: %v", ErrFormat, err)
	}
	if file.SecretContent == "" {
		return "", fmt.Errorf("%w: missing 'secret_content' field", ErrFormat)
	}

	metadata := file.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	// Sorted-key compact JSON keeps the commitment independent of how the
	// file happened to order its metadata keys.
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("%w: unencodable metadata: %v", ErrFormat, err)
	}

	return signing.HashData([]byte(file.SecretContent + string(metadataJSON) + file.FormatVersion)), nil
}

// ValidateFile inspects a preseed file and reports its descriptive fields
// without exposing the secret.
func ValidateFile(fs afero.Fs, path string) (*Info, error) {
	stat, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("preseed file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to stat preseed file: %w", err)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preseed file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", ErrFormat, err)
	}
	for _, field := range []string{"generated_at", "length", "format_version"} {
		if _, ok := raw[field]; !ok {
			return nil, fmt.Errorf("%w: missing required field: %s", ErrFormat, field)
		}
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	info := &Info{
		FilePath:      path,
		GeneratedAt:   file.GeneratedAt,
		Length:        file.Length,
		FormatVersion: file.FormatVersion,
		HasMetadata:   len(file.Metadata) > 0,
		FileSize:      stat.Size(),
	}
	if info.HasMetadata {
		info.Metadata = file.Metadata
	}
	return info, nil
}
