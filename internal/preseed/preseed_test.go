package preseed

import (
	"encoding/json"
	"os"
	"regexp"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		minLength int
	}{
		{name: "default length", length: 0, minLength: 60},
		{name: "explicit 64", length: 64, minLength: 60},
		{name: "short 32", length: 32, minLength: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, err := Generate(tt.length)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(secret), tt.minLength)

			// URL-safe: no padding, no '+' or '/'
			assert.NotContains(t, secret, "+")
			assert.NotContains(t, secret, "/")
			assert.NotContains(t, secret, "=")
		})
	}
}

func TestGenerateUnique(t *testing.T) {
	a, err := Generate(64)
	require.NoError(t, err)
	b, err := Generate(64)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCreateFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	metadata := map[string]string{"project": "Test", "description": "Test preseed"}

	secret, err := CreateFile(fs, "test_preseed.json", metadata, 64)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "test_preseed.json")
	require.NoError(t, err)

	var file File
	require.NoError(t, json.Unmarshal(data, &file))

	assert.Equal(t, secret, file.SecretContent)
	assert.Equal(t, 64, file.Length)
	assert.Equal(t, "1.0", file.FormatVersion)
	assert.Equal(t, metadata, file.Metadata)
	assert.NotEmpty(t, file.GeneratedAt)
}

func TestCreateFileNoMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := CreateFile(fs, "preseed.json", nil, 32)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "preseed.json")
	require.NoError(t, err)

	// Metadata key must be omitted entirely, not written as an empty object
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "metadata")
}

func TestCreateFileMakesParentDirs(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := CreateFile(fs, "nested/dir/preseed.json", nil, 64)
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "nested/dir/preseed.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLoadFromFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := CreateFile(fs, "preseed.json", map[string]string{"project": "Test"}, 64)
	require.NoError(t, err)

	commitment, err := LoadFromFile(fs, "preseed.json")
	require.NoError(t, err)
	assert.Regexp(t, hexDigest, commitment)

	// Loading the same file yields the same commitment
	again, err := LoadFromFile(fs, "preseed.json")
	require.NoError(t, err)
	assert.Equal(t, commitment, again)
}

func TestLoadFromFileMetadataBinding(t *testing.T) {
	fs := afero.NewMemMapFs()

	// Same secret, different metadata: the commitment must differ
	for path, project := range map[string]string{"p1.json": "Project1", "p2.json": "Project2"} {
		file := File{
			SecretContent: "same_secret_content_for_both",
			GeneratedAt:   "2025-01-01T00:00:00Z",
			Length:        64,
			FormatVersion: FormatVersion,
			Metadata:      map[string]string{"project": project},
		}
		data, err := json.Marshal(file)
		require.NoError(t, err)
		require.NoError(t, afero.WriteFile(fs, path, data, 0o600))
	}

	h1, err := LoadFromFile(fs, "p1.json")
	require.NoError(t, err)
	h2, err := LoadFromFile(fs, "p2.json")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestLoadFromFileTimestampIrrelevant(t *testing.T) {
	fs := afero.NewMemMapFs()

	write := func(path, generatedAt string) {
		file := File{
			SecretContent: "fixed_secret",
			GeneratedAt:   generatedAt,
			Length:        64,
			FormatVersion: FormatVersion,
		}
		data, err := json.Marshal(file)
		require.NoError(t, err)
		require.NoError(t, afero.WriteFile(fs, path, data, 0o600))
	}
	write("a.json", "2025-01-01T00:00:00Z")
	write("b.json", "2026-06-15T12:00:00Z")

	// Only the content-bearing fields participate in the commitment
	h1, err := LoadFromFile(fs, "a.json")
	require.NoError(t, err)
	h2, err := LoadFromFile(fs, "b.json")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestLoadFromFileErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromFile(fs, "does_not_exist.json")
		require.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("not JSON", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "bad.json", []byte("invalid json content"), 0o600))
		_, err := LoadFromFile(fs, "bad.json")
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("missing secret_content", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "nosecret.json",
			[]byte(`{"generated_at":"2025-01-01T00:00:00Z","length":64,"format_version":"1.0"}`), 0o600))
		_, err := LoadFromFile(fs, "nosecret.json")
		require.ErrorIs(t, err, ErrFormat)
		assert.Contains(t, err.Error(), "secret_content")
	})
}

func TestValidateFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	metadata := map[string]string{"project": "Test", "version": "1.0"}

	secret, err := CreateFile(fs, "preseed.json", metadata, 64)
	require.NoError(t, err)

	info, err := ValidateFile(fs, "preseed.json")
	require.NoError(t, err)

	assert.Equal(t, "preseed.json", info.FilePath)
	assert.Equal(t, 64, info.Length)
	assert.Equal(t, "1.0", info.FormatVersion)
	assert.True(t, info.HasMetadata)
	assert.Equal(t, metadata, info.Metadata)
	assert.Positive(t, info.FileSize)
	assert.NotEmpty(t, info.GeneratedAt)

	// The secret must not leak through validation
	encoded, err := json.Marshal(info)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), secret)
}

func TestValidateFileNoMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := CreateFile(fs, "preseed.json", nil, 32)
	require.NoError(t, err)

	info, err := ValidateFile(fs, "preseed.json")
	require.NoError(t, err)
	assert.False(t, info.HasMetadata)
	assert.Nil(t, info.Metadata)
}

func TestValidateFileMissingFields(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "partial.json",
		[]byte(`{"secret_content":"test","generated_at":"2025-01-01T00:00:00Z"}`), 0o600))

	_, err := ValidateFile(fs, "partial.json")
	require.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "missing required field")
}

func TestValidateFileNotFound(t *testing.T) {
	_, err := ValidateFile(afero.NewMemMapFs(), "nope.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
