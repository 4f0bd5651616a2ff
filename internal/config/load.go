package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

var searchExtensions = []string{"yaml", "yml", "json", "toml"}

// Locate returns the config file path to load: explicitPath if given,
// otherwise the first "ram-sentinel.<ext>" found under $XDG_CONFIG_HOME (or
// $HOME/.config as go-homedir resolves it), in searchExtensions order.
// found is false when no file exists anywhere and defaults should be used.
func Locate(explicitPath string) (path string, found bool, err error) {
	if explicitPath != "" {
		if _, statErr := os.Stat(explicitPath); statErr != nil {
			return "", false, exitErr(2, "config file specified but not found: %s", explicitPath)
		}
		return explicitPath, true, nil
	}

	configHome, err := configDir()
	if err != nil {
		return "", false, nil // nolint: nilerr -- no config dir resolvable, fall through to defaults
	}
	for _, ext := range searchExtensions {
		candidate := filepath.Join(configHome, fmt.Sprintf("ram-sentinel.%s", ext))
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, true, nil
		}
	}
	return "", false, nil
}

func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config"), nil
}

// Load discovers (or is pointed at) a config file, parses it, validates it,
// and returns the resulting RuntimeContext. totalRAMBytes is supplied by
// the caller (read once from the live gauges) to validate PSI's
// amount-to-free ≤ 50% ceiling.
func Load(explicitPath string, totalRAMBytes uint64) (*RuntimeContext, error) {
	path, found, err := Locate(explicitPath)
	if err != nil {
		return nil, err
	}

	var fc fileConfig
	if found {
		fc, err = parseFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		fc = defaultFileConfig()
	}

	return build(fc, totalRAMBytes)
}

func parseFile(path string) (fileConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, exitErr(2, "error reading config file %s: %w", path, err)
	}

	ext := filepath.Ext(path)
	if len(ext) > 0 {
		ext = ext[1:]
	}

	var fc fileConfig
	switch ext {
	case "json":
		err = json.Unmarshal(content, &fc)
	case "toml":
		err = toml.Unmarshal(content, &fc)
	case "yaml", "yml", "":
		err = yaml.Unmarshal(content, &fc)
	default:
		err = yaml.Unmarshal(content, &fc)
	}
	if err != nil {
		return fileConfig{}, exitErr(3, "error parsing config file %s: %w", path, err)
	}
	return fc, nil
}
