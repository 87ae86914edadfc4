package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antelabs/bodyshop/pkg/model"
)

func TestLoad(t *testing.T) {
	// Run from an empty directory so a developer's bodyshop.yaml in the
	// repo root cannot leak into the test.
	chdir(t, t.TempDir())

	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load(viper.New(), "")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Empty(t, cfg.Logging.File)
		assert.Equal(t, "firestore", cfg.Backend)
		assert.NotEmpty(t, cfg.DataDir)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bodyshop.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/bodyshop
logging:
  level: debug
backend: sheets
settings:
  sheets:
    spreadsheet_id: sheet-42
`), 0o644))

		cfg, err := Load(viper.New(), path)
		require.NoError(t, err)

		assert.Equal(t, "/var/lib/bodyshop", cfg.DataDir)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "sheets", cfg.Backend)
		assert.Equal(t, "sheet-42", cfg.Settings.Sheets.SpreadsheetID)
	})

	t.Run("MissingExplicitFileFails", func(t *testing.T) {
		_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("BODYSHOP_BACKEND", "sheets")
		t.Setenv("BODYSHOP_LOGGING_LEVEL", "warn")

		cfg, err := Load(viper.New(), "")
		require.NoError(t, err)

		assert.Equal(t, "sheets", cfg.Backend)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("FileBeatsDefaultsEnvBeatsFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bodyshop.yaml")
		require.NoError(t, os.WriteFile(path, []byte("backend: sheets\n"), 0o644))
		t.Setenv("BODYSHOP_BACKEND", "firestore")

		cfg, err := Load(viper.New(), path)
		require.NoError(t, err)
		assert.Equal(t, "firestore", cfg.Backend)
	})
}

func TestMergeSettings(t *testing.T) {
	persisted := model.AppSettings{
		Firestore: model.FirestoreConfig{
			ProjectID: "shop-prod",
			APIKey:    "persisted-key",
		},
		Sheets: model.SheetsConfig{
			SpreadsheetID: "sheet-1",
			AccessToken:   "persisted-token",
		},
	}

	t.Run("EmptyOverrideKeepsPersisted", func(t *testing.T) {
		out := MergeSettings(persisted, model.AppSettings{})
		assert.Equal(t, persisted, out)
	})

	t.Run("NonEmptyFieldsWin", func(t *testing.T) {
		override := model.AppSettings{
			Firestore: model.FirestoreConfig{APIKey: "env-key"},
			Sheets:    model.SheetsConfig{AccessToken: "env-token"},
		}

		out := MergeSettings(persisted, override)

		assert.Equal(t, "env-key", out.Firestore.APIKey)
		assert.Equal(t, "env-token", out.Sheets.AccessToken)

		// Fields the override does not set stay persisted.
		assert.Equal(t, "shop-prod", out.Firestore.ProjectID)
		assert.Equal(t, "sheet-1", out.Sheets.SpreadsheetID)
	})
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}
