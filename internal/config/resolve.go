package config

import (
	"errors"
	"os"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// Resolve builds the effective configuration for root: defaults, then the
// config file (explicitPath, or the nearest FileName above root), then the
// environment, then flags. It returns the config file used, if any.
//
// A config file that simply does not exist is not an error unless it was
// named explicitly.
func Resolve(root, explicitPath string, flags Layer) (Config, string, error) {
	path := explicitPath
	if path == "" {
		path = FindFile(root)
	} else if _, err := os.Stat(path); err != nil {
		return Config{}, path, &schema.ConfigError{Path: path, Err: err}
	}

	layers := []Layer{Defaults()}
	if path != "" {
		fl, err := LoadFile(path)
		if err != nil {
			return Config{}, path, err
		}
		layers = append(layers, fl)
	}
	layers = append(layers, EnvLayer(), flags)

	cfg, err := Finalize(Merge(layers...))
	if err != nil {
		var ce *schema.ConfigError
		if path != "" && errors.As(err, &ce) && ce.Path == "" {
			ce.Path = path
		}
		return Config{}, path, err
	}
	return cfg, path, nil
}
