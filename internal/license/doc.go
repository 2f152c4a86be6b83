// Package license implements the offline license record protocol: canonical
// serialization, ECDSA signing and verification, the preseed commitment, and
// the verification state machine.
//
// # License records
//
// A license is a single-line JSON object with the reserved fields version,
// hw_type, hw_info, expiry, issued, preseed_hash, component_name, and
// signature, plus arbitrary caller-supplied fields merged flatly alongside
// them. The signature covers every field except itself, computed over a
// canonical serialization (compact JSON, lexicographically sorted keys) so
// that signer and verifier agree byte-for-byte regardless of field insertion
// order.
//
// # Verification flow
//
// Verification is strictly sequential and short-circuits on the first
// failure:
//
//	1. Parse JSON
//	2. Check required fields and the protocol version
//	3. Validate date formats
//	4. Verify the ECDSA signature
//	5. Recompute and compare the preseed commitment
//	6. Check expiry (skippable)
//	7. Check the hardware fingerprint (skippable)
//
// The signature and preseed checks are the trust anchor and can never be
// skipped. Expiry and hardware failures are reported as distinct error
// types so callers can tell "tampered" from "expired" from "wrong machine".
//
// # Auto-discovery
//
// AutoVerify scans a directory for license-like and key-like files and
// verifies every candidate line, reporting per-candidate failures and a
// summary. It never returns an error to its caller; a missing prerequisite
// is reported through the result's Error field.
package license
