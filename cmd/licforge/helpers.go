package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"licforge/internal/license"
)

// keyFromArg resolves a key flag that may be either the base64 key itself or
// a path to a key file. Key files are JSON ({"private_key": ..} or
// {"public_key": ..}) or hold the bare key as plain text.
func keyFromArg(arg, field string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return arg, nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("reading key file: %w", err)
	}

	var keys map[string]string
	if err := json.Unmarshal(data, &keys); err == nil {
		if keys[field] == "" {
			return "", fmt.Errorf("key file %s has no %q field", arg, field)
		}
		return keys[field], nil
	}
	return strings.TrimSpace(string(data)), nil
}

// licenseFromArg resolves a license flag that may be the license string
// itself or a path to a file holding either the raw license or a JSON
// document with a "license" field.
func licenseFromArg(arg string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return arg, nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("reading license file: %w", err)
	}

	var wrapper struct {
		License string `json:"license"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.License != "" {
		return wrapper.License, nil
	}
	return strings.TrimSpace(string(data)), nil
}

// resolveExpiry turns an --expires value into a YYYY-MM-DD date. The value
// may already be a date, or a day count like "30d" relative to today. Empty
// selects one year from today.
func resolveExpiry(expires string) (string, error) {
	if expires == "" {
		return time.Now().AddDate(0, 0, 365).Format(license.DateFormat), nil
	}
	if strings.HasSuffix(expires, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(expires, "d"))
		if err != nil {
			return "", fmt.Errorf("invalid day count %q", expires)
		}
		return time.Now().AddDate(0, 0, days).Format(license.DateFormat), nil
	}
	if _, err := time.Parse(license.DateFormat, expires); err != nil {
		return "", fmt.Errorf("expiry %q must be YYYY-MM-DD or a day count like 30d", expires)
	}
	return expires, nil
}
