package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/antelabs/bodyshop/pkg/model"
)

// LoadSettingsFile reads backend credentials from a YAML or JSON file,
// for importing into the persisted settings blob.
//
// Format is determined by extension (.yaml/.yml/.json); an unknown
// extension is decoded by sniffing the payload shape.
func LoadSettingsFile(path string) (model.AppSettings, error) {
	var settings model.AppSettings

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, fmt.Errorf("settings file not found: %s", path)
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}
	if len(data) == 0 {
		return settings, errors.New("settings file is empty")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &settings); err != nil {
			return model.AppSettings{}, fmt.Errorf("invalid JSON in settings file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return model.AppSettings{}, fmt.Errorf("invalid YAML in settings file: %w", err)
		}
	default:
		// A JSON document is also valid YAML, but the YAML decoder
		// matches it against the snake_case tags and yields empty
		// settings. Sniff the shape so the right decoder runs.
		trimmed := bytes.TrimLeft(data, " \t\r\n")
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			if err := json.Unmarshal(data, &settings); err != nil {
				return model.AppSettings{}, fmt.Errorf("invalid JSON in settings file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &settings); err != nil {
			return model.AppSettings{}, fmt.Errorf("invalid YAML in settings file: %w", err)
		}
	}

	return settings, nil
}
