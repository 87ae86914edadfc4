// Package config loads process configuration: where local state lives,
// how to log, and which backend a sync targets by default.
//
// Precedence is flags > environment (BODYSHOP_*) > config file >
// defaults, resolved through viper by the command layer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/antelabs/bodyshop/pkg/model"
)

// Config is the resolved process configuration.
type Config struct {
	// DataDir holds jobs.json and settings.json.
	DataDir string `mapstructure:"data_dir"`

	Logging struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"logging"`

	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	// Backend is the default sync target: firestore or sheets.
	Backend string `mapstructure:"backend"`

	// Settings overrides credentials from the persisted settings blob.
	// Useful for injecting tokens via environment in CI or cron runs.
	Settings model.AppSettings `mapstructure:"settings"`
}

// SetDefaults registers configuration defaults on the given viper
// instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("backend", "firestore")

	// Credential overlay keys are registered so BODYSHOP_SETTINGS_*
	// environment variables bind without a config file mentioning them.
	v.SetDefault("settings.firestore.api_key", "")
	v.SetDefault("settings.firestore.auth_domain", "")
	v.SetDefault("settings.firestore.project_id", "")
	v.SetDefault("settings.firestore.app_id", "")
	v.SetDefault("settings.sheets.spreadsheet_id", "")
	v.SetDefault("settings.sheets.access_token", "")
}

// Load resolves the configuration from defaults, an optional config
// file (bodyshop.yaml in the working directory or ~/.bodyshop/), and
// BODYSHOP_* environment variables.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("BODYSHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("bodyshop")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".bodyshop"))
		}
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional; anything else is a real error.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// MergeSettings overlays non-empty credential fields from the config
// onto the persisted settings blob. The blob remains the source of
// truth for anything the environment does not override.
func MergeSettings(persisted model.AppSettings, override model.AppSettings) model.AppSettings {
	out := persisted
	if override.Firestore.APIKey != "" {
		out.Firestore.APIKey = override.Firestore.APIKey
	}
	if override.Firestore.AuthDomain != "" {
		out.Firestore.AuthDomain = override.Firestore.AuthDomain
	}
	if override.Firestore.ProjectID != "" {
		out.Firestore.ProjectID = override.Firestore.ProjectID
	}
	if override.Firestore.AppID != "" {
		out.Firestore.AppID = override.Firestore.AppID
	}
	if override.Sheets.SpreadsheetID != "" {
		out.Sheets.SpreadsheetID = override.Sheets.SpreadsheetID
	}
	if override.Sheets.AccessToken != "" {
		out.Sheets.AccessToken = override.Sheets.AccessToken
	}
	return out
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bodyshop"
	}
	return filepath.Join(home, ".bodyshop")
}
