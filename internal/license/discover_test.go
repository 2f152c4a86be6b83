package license

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyFile(t *testing.T, appFs afero.Fs, path, publicKey, preseed string) {
	t.Helper()
	data, err := json.Marshal(keyFileContent{PublicKey: publicKey, Preseed: preseed})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(appFs, path, data, 0o600))
}

func TestAutoVerifyNoLicenseFiles(t *testing.T) {
	appFs := afero.NewMemMapFs()
	require.NoError(t, appFs.MkdirAll("workdir", 0o755))

	result := AutoVerify(appFs, "workdir", AutoVerifyOptions{})

	assert.Contains(t, result.Error, "No license files found")
	assert.Empty(t, result.ValidLicenses)
}

func TestAutoVerifyNoKeyFiles(t *testing.T) {
	appFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(appFs, "workdir/license.txt", []byte("dummy license content"), 0o600))

	result := AutoVerify(appFs, "workdir", AutoVerifyOptions{})

	assert.Contains(t, result.Error, "No key files found")
	assert.Len(t, result.LicenseFilesFound, 1)
}

func TestAutoVerifySuccess(t *testing.T) {
	issuer := newTestIssuer(t)
	appFs := afero.NewMemMapFs()

	licenseString, err := issuer.generator.GenerateLicense(daysFromNow(30), "mac", nil, "AutoTestComponent", "")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(appFs, "workdir/license.txt", []byte(licenseString), 0o600))
	writeKeyFile(t, appFs, "workdir/keys.json", issuer.publicKey, testPreseed)

	result := AutoVerify(appFs, "workdir", AutoVerifyOptions{CheckHardware: true, CheckExpiry: true})

	require.Empty(t, result.Error)
	assert.Len(t, result.LicenseFilesFound, 1)
	assert.Len(t, result.KeyFilesFound, 1)
	assert.Equal(t, 1, result.Summary.TotalLicenses)
	assert.Equal(t, 1, result.Summary.ValidCount)
	assert.Equal(t, 0, result.Summary.InvalidCount)
	require.Len(t, result.ValidLicenses, 1)
	assert.Equal(t, "AutoTestComponent", result.ValidLicenses[0].String(FieldComponentName))
}

func TestAutoVerifyMultipleLicensesPerFile(t *testing.T) {
	issuer := newTestIssuer(t)
	appFs := afero.NewMemMapFs()

	var lines []string
	for i := 1; i <= 3; i++ {
		licenseString, err := issuer.generator.GenerateLicense(daysFromNow(30), "mac", nil,
			fmt.Sprintf("Component%d", i), "")
		require.NoError(t, err)
		lines = append(lines, licenseString)
	}
	// Blank lines between candidates are ignored
	content := lines[0] + "\n\n" + lines[1] + "\n" + lines[2] + "\n"
	require.NoError(t, afero.WriteFile(appFs, "workdir/licenses.txt", []byte(content), 0o600))
	writeKeyFile(t, appFs, "workdir/keys.json", issuer.publicKey, testPreseed)

	result := AutoVerify(appFs, "workdir", AutoVerifyOptions{CheckHardware: false, CheckExpiry: false})

	require.Empty(t, result.Error)
	assert.Equal(t, 3, result.Summary.TotalLicenses)
	assert.Equal(t, 3, result.Summary.ValidCount)
}

func TestAutoVerifyAcrossMultipleFiles(t *testing.T) {
	issuer := newTestIssuer(t)
	appFs := afero.NewMemMapFs()

	for i, name := range []string{"license.txt", "license_backup.txt", "licenses.txt"} {
		licenseString, err := issuer.generator.GenerateLicense(daysFromNow(30), "mac", nil,
			fmt.Sprintf("File%d", i), "")
		require.NoError(t, err)
		require.NoError(t, afero.WriteFile(appFs, "workdir/"+name, []byte(licenseString), 0o600))
	}
	writeKeyFile(t, appFs, "workdir/keys.json", issuer.publicKey, testPreseed)

	result := AutoVerify(appFs, "workdir", AutoVerifyOptions{})

	require.Empty(t, result.Error)
	assert.Len(t, result.LicenseFilesFound, 3)
	assert.Equal(t, 3, result.Summary.TotalLicenses)
	assert.Equal(t, 3, result.Summary.ValidCount)
}

func TestAutoVerifyClassifiesFailures(t *testing.T) {
	issuer := newTestIssuer(t)
	appFs := afero.NewMemMapFs()

	valid, err := issuer.generator.GenerateLicense(daysFromNow(30), "mac", nil, "", "")
	require.NoError(t, err)
	expired, err := issuer.generator.GenerateLicense(daysFromNow(-5), "mac", nil, "", "")
	require.NoError(t, err)
	wrongMachine, err := issuer.generator.GenerateLicense(daysFromNow(30), "mac", nil, "",
		"fingerprint-of-a-different-machine")
	require.NoError(t, err)

	content := strings.Join([]string{valid, expired, wrongMachine, "garbage line"}, "\n")
	require.NoError(t, afero.WriteFile(appFs, "workdir/licenses.txt", []byte(content), 0o600))
	writeKeyFile(t, appFs, "workdir/keys.json", issuer.publicKey, testPreseed)

	result := AutoVerify(appFs, "workdir", AutoVerifyOptions{CheckHardware: true, CheckExpiry: true})

	require.Empty(t, result.Error)
	assert.Equal(t, 4, result.Summary.TotalLicenses)
	assert.Equal(t, 1, result.Summary.ValidCount)
	assert.Equal(t, 3, result.Summary.InvalidCount)
	assert.Equal(t, 1, result.Summary.ExpiredCount)
	assert.Equal(t, 1, result.Summary.HardwareMismatchCount)

	types := make(map[string]int)
	for _, invalid := range result.InvalidLicenses {
		types[invalid.ErrorType]++
		assert.Equal(t, "workdir/licenses.txt", invalid.File)
		assert.Positive(t, invalid.LineNumber)
	}
	assert.Equal(t, map[string]int{"expired": 1, "hardware_mismatch": 1, "invalid": 1}, types)
}

func TestAutoVerifyPlainTextKeyWithPreseedFallback(t *testing.T) {
	issuer := newTestIssuer(t)
	appFs := afero.NewMemMapFs()

	licenseString, err := issuer.generator.GenerateLicense(daysFromNow(30), "mac", nil, "", "")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(appFs, "workdir/license.txt", []byte(licenseString), 0o600))
	// Bare base64(PEM) key file; the preseed arrives via the fallback
	require.NoError(t, afero.WriteFile(appFs, "workdir/public_key.txt", []byte(issuer.publicKey), 0o600))

	result := AutoVerify(appFs, "workdir", AutoVerifyOptions{
		CheckHardware:   true,
		CheckExpiry:     true,
		PreseedFallback: testPreseed,
	})

	require.Empty(t, result.Error)
	assert.Equal(t, 1, result.Summary.ValidCount)
}

func TestAutoVerifyDepthBound(t *testing.T) {
	issuer := newTestIssuer(t)
	appFs := afero.NewMemMapFs()

	licenseString, err := issuer.generator.GenerateLicense(daysFromNow(30), "mac", nil, "", "")
	require.NoError(t, err)

	// Within the bound
	require.NoError(t, afero.WriteFile(appFs, "workdir/sub/license.txt", []byte(licenseString), 0o600))
	writeKeyFile(t, appFs, "workdir/keys.json", issuer.publicKey, testPreseed)
	// Beyond the bound: must be ignored, not scanned
	require.NoError(t, afero.WriteFile(appFs, "workdir/a/b/c/d/license.txt", []byte("junk"), 0o600))

	result := AutoVerify(appFs, "workdir", AutoVerifyOptions{MaxDepth: 2})

	require.Empty(t, result.Error)
	assert.Equal(t, 1, result.Summary.TotalLicenses)
	assert.Equal(t, 1, result.Summary.ValidCount)
}

func TestAutoVerifyFileCountBound(t *testing.T) {
	appFs := afero.NewMemMapFs()
	for i := 0; i < 20; i++ {
		require.NoError(t, afero.WriteFile(appFs,
			fmt.Sprintf("workdir/file%02d.dat", i), []byte("x"), 0o600))
	}

	result := AutoVerify(appFs, "workdir", AutoVerifyOptions{MaxFiles: 10})

	assert.Contains(t, result.Error, "scan aborted")
}
