package hardware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Fingerprint classes.
const (
	KindMAC       = "mac"
	KindDisk      = "disk"
	KindCPU       = "cpu"
	KindSystem    = "system"
	KindComposite = "composite"
)

// TargetInfo carries the raw hardware descriptors of a machine, either
// collected locally or received out-of-band for remote license issuance.
type TargetInfo struct {
	MACAddresses []string          `json:"mac_addresses"`
	DiskInfo     []string          `json:"disk_info"`
	CPUInfo      map[string]string `json:"cpu_info"`
	SystemInfo   map[string]string `json:"system_info"`
}

// Fingerprint computes and caches per-class machine digests.
// Cached values are immutable once computed; concurrent callers may share
// one instance without external locking.
type Fingerprint struct {
	cache      map[string]string
	cacheMutex sync.RWMutex
}

// New creates a Fingerprint with an empty digest cache.
func New() *Fingerprint {
	return &Fingerprint{cache: make(map[string]string)}
}

// AvailableKinds returns the supported fingerprint classes.
func AvailableKinds() []string {
	return []string{KindMAC, KindDisk, KindCPU, KindSystem, KindComposite}
}

// ValidKind reports whether kind names a supported fingerprint class.
func ValidKind(kind string) bool {
	switch kind {
	case KindMAC, KindDisk, KindCPU, KindSystem, KindComposite:
		return true
	}
	return false
}

// Get returns the 64-character hex digest for the given fingerprint class.
func (f *Fingerprint) Get(kind string) (string, error) {
	if !ValidKind(kind) {
		return "", fmt.Errorf("unsupported fingerprint type: %q (valid: %s)",
			kind, strings.Join(AvailableKinds(), ", "))
	}

	f.cacheMutex.RLock()
	if digest, ok := f.cache[kind]; ok {
		f.cacheMutex.RUnlock()
		return digest, nil
	}
	f.cacheMutex.RUnlock()

	digest := f.compute(kind)

	f.cacheMutex.Lock()
	f.cache[kind] = digest
	f.cacheMutex.Unlock()

	slog.Debug("hardware fingerprint computed",
		slog.String("kind", kind),
		slog.String("digest", digest),
	)
	return digest, nil
}

// ClearCache drops all cached digests. Intended for tests; recomputation
// yields identical digests on unchanged hardware.
func (f *Fingerprint) ClearCache() {
	f.cacheMutex.Lock()
	defer f.cacheMutex.Unlock()
	f.cache = make(map[string]string)
}

// Collect gathers the raw descriptors of the local machine. The result can
// be serialized and shipped to an issuer for remote license generation.
func (f *Fingerprint) Collect() TargetInfo {
	return TargetInfo{
		MACAddresses: collectMACAddresses(),
		DiskInfo:     collectDiskInfo(),
		CPUInfo:      collectCPUInfo(),
		SystemInfo:   collectSystemInfo(),
	}
}

func (f *Fingerprint) compute(kind string) string {
	switch kind {
	case KindMAC:
		return hashCanonical(canonicalList(collectMACAddresses()))
	case KindDisk:
		return hashCanonical(canonicalList(collectDiskInfo()))
	case KindCPU:
		return hashCanonical(canonicalMap(collectCPUInfo()))
	case KindSystem:
		return hashCanonical(canonicalMap(collectSystemInfo()))
	default: // composite
		return compositeDigest(f.Collect())
	}
}

// FromTarget computes the digest a machine described by info would compute
// for itself. The canonicalization must mirror the local path byte-for-byte
// or remotely issued licenses will never verify on the target machine.
func FromTarget(kind string, info TargetInfo) (string, error) {
	switch kind {
	case KindMAC:
		return hashCanonical(canonicalList(info.MACAddresses)), nil
	case KindDisk:
		return hashCanonical(canonicalList(info.DiskInfo)), nil
	case KindCPU:
		return hashCanonical(canonicalMap(info.CPUInfo)), nil
	case KindSystem:
		return hashCanonical(canonicalMap(info.SystemInfo)), nil
	case KindComposite:
		return compositeDigest(info), nil
	}
	return "", fmt.Errorf("unsupported fingerprint type: %q (valid: %s)",
		kind, strings.Join(AvailableKinds(), ", "))
}

// compositeDigest hashes the labeled raw descriptor sections of all four
// classes in a fixed order. The composite is a single hash over canonical
// raw inputs, not a combination of the per-class digests.
func compositeDigest(info TargetInfo) string {
	combined := strings.Join([]string{
		"mac:" + canonicalList(info.MACAddresses),
		"disk:" + canonicalList(info.DiskInfo),
		"cpu:" + canonicalMap(info.CPUInfo),
		"system:" + canonicalMap(info.SystemInfo),
	}, "|")
	return hashCanonical(combined)
}

// canonicalList sorts the descriptors and joins them with newlines.
// Empty and whitespace-only entries are dropped.
func canonicalList(values []string) string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	sort.Strings(cleaned)
	return strings.Join(cleaned, "\n")
}

// canonicalMap renders key=value lines in sorted key order.
func canonicalMap(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values[k])
	}
	return strings.Join(lines, "\n")
}

func hashCanonical(canonical string) string {
	digest := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(digest[:])
}
