package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Dir returns ~/.bslnav, the directory holding the user config file and
// index state.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".bslnav"), nil
}

func LoadFromUserConfig() error {
	dir, err := Dir()
	if err != nil {
		// Best-effort: if we can't resolve home, just skip file loading.
		return nil
	}
	return LoadFile(filepath.Join(dir, "config.json"))
}

// LoadFile applies a JSON object of string values onto the environment.
// A missing file is not an error.
func LoadFile(configPath string) error {
	file, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var cfg map[string]string
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return err
	}

	for key, value := range cfg {
		if value == "" {
			continue
		}
		// Values from ~/.bslnav/config.json take precedence over existing env vars.
		_ = os.Setenv(key, value)
	}

	return nil
}
