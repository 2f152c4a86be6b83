package license

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// File naming conventions the discovery scan recognizes. Matching is
// case-insensitive on the base name.
var (
	licenseFilePatterns = []string{"license*.txt", "licenses*.txt", "*.license", "*_license.txt"}
	keyFilePatterns     = []string{"keys*.json", "*keys.json", "key*.json", "public_key*"}
)

// Scan bounds so a pathological directory tree cannot hang discovery.
const (
	DefaultMaxScanDepth = 3
	DefaultMaxScanFiles = 512
)

// AutoVerifyOptions configures a discovery run.
type AutoVerifyOptions struct {
	CheckHardware bool
	CheckExpiry   bool

	// PreseedFallback is the raw preseed commitment to use when a key file
	// carries no preseed of its own (typically sourced from the
	// environment).
	PreseedFallback string

	// MaxDepth and MaxFiles bound the scan; zero selects the defaults.
	MaxDepth int
	MaxFiles int
}

// InvalidLicense describes one candidate line that failed verification.
type InvalidLicense struct {
	File         string `json:"file"`
	LineNumber   int    `json:"line_number"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}

// AutoVerifySummary aggregates the outcome counts of a discovery run.
type AutoVerifySummary struct {
	TotalLicenses         int `json:"total_licenses"`
	ValidCount            int `json:"valid_count"`
	InvalidCount          int `json:"invalid_count"`
	ExpiredCount          int `json:"expired_count"`
	HardwareMismatchCount int `json:"hardware_mismatch_count"`
}

// AutoVerifyResult is the full outcome of a discovery run. Error is set
// instead of returning a Go error: discovery is driver-tolerant and never
// throws at its caller.
type AutoVerifyResult struct {
	Error             string            `json:"error,omitempty"`
	ValidLicenses     []Record          `json:"valid_licenses"`
	InvalidLicenses   []InvalidLicense  `json:"invalid_licenses"`
	LicenseFilesFound []string          `json:"license_files_found"`
	KeyFilesFound     []string          `json:"key_files_found"`
	Summary           AutoVerifySummary `json:"summary"`
}

// keyFileContent is the JSON key-file interchange form. Key files may also
// hold a bare base64(PEM) public key as plain text.
type keyFileContent struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
	Preseed    string `json:"preseed"`
}

// AutoVerify scans dir for license-like and key-like files, treats each
// non-blank line of each license file as one candidate license, and
// verifies every candidate against the first usable key material found.
func AutoVerify(appFs afero.Fs, dir string, opts AutoVerifyOptions) *AutoVerifyResult {
	result := &AutoVerifyResult{
		ValidLicenses:   []Record{},
		InvalidLicenses: []InvalidLicense{},
	}

	licenseFiles, keyFiles, err := scanDirectory(appFs, dir, opts)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.LicenseFilesFound = licenseFiles
	result.KeyFilesFound = keyFiles

	if len(licenseFiles) == 0 {
		result.Error = "No license files found"
		return result
	}
	if len(keyFiles) == 0 {
		result.Error = "No key files found"
		return result
	}

	publicKey, preseed := loadKeyMaterial(appFs, keyFiles, opts.PreseedFallback)
	if publicKey == "" {
		result.Error = "No key files found"
		return result
	}

	manager := NewManager(publicKey, preseed)
	for _, file := range licenseFiles {
		data, err := afero.ReadFile(appFs, file)
		if err != nil {
			slog.Warn("failed to read license file",
				slog.String("file", file),
				slog.String("error", err.Error()),
			)
			continue
		}

		for i, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			result.Summary.TotalLicenses++

			record, err := manager.VerifyLicense(line, opts.CheckHardware, opts.CheckExpiry)
			if err == nil {
				result.ValidLicenses = append(result.ValidLicenses, record)
				result.Summary.ValidCount++
				continue
			}

			kind := errorType(err)
			switch kind {
			case "expired":
				result.Summary.ExpiredCount++
			case "hardware_mismatch":
				result.Summary.HardwareMismatchCount++
			}
			result.Summary.InvalidCount++
			result.InvalidLicenses = append(result.InvalidLicenses, InvalidLicense{
				File:         file,
				LineNumber:   i + 1,
				ErrorType:    kind,
				ErrorMessage: err.Error(),
			})
		}
	}

	slog.Info("auto-discovery completed",
		slog.String("dir", dir),
		slog.Int("total", result.Summary.TotalLicenses),
		slog.Int("valid", result.Summary.ValidCount),
		slog.Int("invalid", result.Summary.InvalidCount),
	)
	return result
}

// scanDirectory walks dir collecting license-like and key-like files,
// bounded by depth and file count.
func scanDirectory(appFs afero.Fs, dir string, opts AutoVerifyOptions) (licenseFiles, keyFiles []string, err error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxScanDepth
	}
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxScanFiles
	}

	root := filepath.Clean(dir)
	seen := 0

	walkErr := afero.Walk(appFs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if info.IsDir() {
			if depthOf(root, path) > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		seen++
		if seen > maxFiles {
			return fmt.Errorf("scan aborted: directory holds more than %d files", maxFiles)
		}

		name := strings.ToLower(info.Name())
		if matchesAny(name, licenseFilePatterns) {
			licenseFiles = append(licenseFiles, path)
		} else if matchesAny(name, keyFilePatterns) {
			keyFiles = append(keyFiles, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}
	return licenseFiles, keyFiles, nil
}

// loadKeyMaterial returns the first usable public key among the key files,
// with its preseed: from the key file itself when present, else the
// caller's fallback.
func loadKeyMaterial(appFs afero.Fs, keyFiles []string, preseedFallback string) (publicKey, preseed string) {
	for _, file := range keyFiles {
		data, err := afero.ReadFile(appFs, file)
		if err != nil {
			continue
		}

		var content keyFileContent
		if err := json.Unmarshal(data, &content); err == nil && content.PublicKey != "" {
			preseed = content.Preseed
			if preseed == "" {
				preseed = preseedFallback
			}
			return content.PublicKey, preseed
		}

		// Plain-text key file: the whole content is the key, the preseed
		// must come from the environment fallback.
		if text := strings.TrimSpace(string(data)); text != "" && !strings.HasPrefix(text, "{") {
			return text, preseedFallback
		}
	}
	return "", ""
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}
