package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSettingsFile(t *testing.T) {
	t.Run("YAML", func(t *testing.T) {
		path := writeSettings(t, "settings.yaml", `
firestore:
  project_id: shop-prod
  api_key: key-123
sheets:
  spreadsheet_id: sheet-1
  access_token: tok-456
`)

		settings, err := LoadSettingsFile(path)
		require.NoError(t, err)

		assert.Equal(t, "shop-prod", settings.Firestore.ProjectID)
		assert.Equal(t, "key-123", settings.Firestore.APIKey)
		assert.Equal(t, "sheet-1", settings.Sheets.SpreadsheetID)
		assert.Equal(t, "tok-456", settings.Sheets.AccessToken)
		assert.True(t, settings.Firestore.Configured())
		assert.True(t, settings.Sheets.Configured())
	})

	t.Run("JSON", func(t *testing.T) {
		path := writeSettings(t, "settings.json",
			`{"firestore":{"projectId":"shop-prod","apiKey":"key-123"}}`)

		settings, err := LoadSettingsFile(path)
		require.NoError(t, err)

		assert.Equal(t, "shop-prod", settings.Firestore.ProjectID)
		assert.True(t, settings.Firestore.Configured())
		assert.False(t, settings.Sheets.Configured())
	})

	t.Run("UnknownExtensionJSONBody", func(t *testing.T) {
		// JSON would also pass the YAML decoder, silently dropping every
		// camelCase field. The loader must pick JSON from the shape.
		path := writeSettings(t, "settings.conf",
			`{"sheets":{"spreadsheetId":"sheet-9","accessToken":"tok"}}`)

		settings, err := LoadSettingsFile(path)
		require.NoError(t, err)
		assert.Equal(t, "sheet-9", settings.Sheets.SpreadsheetID)
		assert.Equal(t, "tok", settings.Sheets.AccessToken)
		assert.True(t, settings.Sheets.Configured())
	})

	t.Run("UnknownExtensionYAMLBody", func(t *testing.T) {
		path := writeSettings(t, "settings.conf", `
sheets:
  spreadsheet_id: sheet-9
  access_token: tok
`)

		settings, err := LoadSettingsFile(path)
		require.NoError(t, err)
		assert.Equal(t, "sheet-9", settings.Sheets.SpreadsheetID)
		assert.True(t, settings.Sheets.Configured())
	})

	t.Run("UnknownExtensionMalformedJSONBody", func(t *testing.T) {
		path := writeSettings(t, "settings.conf", `{"sheets":`)
		_, err := LoadSettingsFile(path)
		assert.ErrorContains(t, err, "invalid JSON")
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadSettingsFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("EmptyFile", func(t *testing.T) {
		path := writeSettings(t, "settings.yaml", "")
		_, err := LoadSettingsFile(path)
		assert.ErrorContains(t, err, "empty")
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		path := writeSettings(t, "settings.json", "{not json")
		_, err := LoadSettingsFile(path)
		assert.ErrorContains(t, err, "invalid JSON")
	})
}
