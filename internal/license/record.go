package license

import (
	"encoding/json"
	"time"
)

// Version is the only license record version this implementation accepts.
const Version = "1.0"

// DateFormat is the sortable date layout used for expiry and issued fields.
const DateFormat = "2006-01-02"

// Reserved record fields.
const (
	FieldVersion       = "version"
	FieldHardwareType  = "hw_type"
	FieldHardwareInfo  = "hw_info"
	FieldExpiry        = "expiry"
	FieldIssued        = "issued"
	FieldPreseedHash   = "preseed_hash"
	FieldComponentName = "component_name"
	FieldSignature     = "signature"
)

// requiredFields in the order their absence is reported.
var requiredFields = []string{
	FieldVersion,
	FieldHardwareType,
	FieldHardwareInfo,
	FieldExpiry,
	FieldIssued,
	FieldPreseedHash,
	FieldComponentName,
	FieldSignature,
}

// reservedFields are the keys caller-supplied additional data may not use.
var reservedFields = map[string]bool{
	FieldVersion:       true,
	FieldHardwareType:  true,
	FieldHardwareInfo:  true,
	FieldExpiry:        true,
	FieldIssued:        true,
	FieldPreseedHash:   true,
	FieldComponentName: true,
	FieldSignature:     true,
}

// Record is a license as an open mapping: the reserved fields plus any
// caller-supplied extension fields, all covered by the signature.
type Record map[string]any

// Parse deserializes a license string without verifying anything. It is a
// read-only accessor for callers that want to display metadata before
// trusting it.
func Parse(licenseString string) (Record, error) {
	var record Record
	if err := json.Unmarshal([]byte(licenseString), &record); err != nil {
		return nil, invalidf("license is not valid JSON")
	}
	return record, nil
}

// String returns the record's value for key if it is a string, else "".
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// checkStructure validates field presence, the version constant, and the
// date formats. It reports the first problem found.
func (r Record) checkStructure() error {
	for _, field := range requiredFields {
		if _, ok := r[field]; !ok {
			return invalidf("Missing required field: %s", field)
		}
	}
	if r.String(FieldVersion) != Version {
		return invalidf("Unsupported license version")
	}
	for _, field := range []string{FieldExpiry, FieldIssued} {
		if _, err := time.Parse(DateFormat, r.String(field)); err != nil {
			return invalidf("Invalid date format")
		}
	}
	return nil
}

// canonicalPayload serializes every field except the signature as compact
// JSON with lexicographically sorted keys. Both the signing and the
// verifying path build the signed bytes through this function.
func (r Record) canonicalPayload() ([]byte, error) {
	payload := make(map[string]any, len(r))
	for k, v := range r {
		if k == FieldSignature {
			continue
		}
		payload[k] = v
	}
	// encoding/json emits map keys in sorted order with no insignificant
	// whitespace, which is exactly the canonical form we need.
	return json.Marshal(payload)
}

// expiryDate parses the record's expiry field. checkStructure must have
// passed first.
func (r Record) expiryDate() (time.Time, error) {
	return time.Parse(DateFormat, r.String(FieldExpiry))
}
