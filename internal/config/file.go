package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// FindFile walks from start towards the filesystem root and returns the first
// FileName found, or "" when there is none.
func FindFile(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadFile parses a TOML configuration file into a layer.
func LoadFile(path string) (Layer, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Layer{}, &schema.ConfigError{
			Path:   path,
			Err:    err,
			Remedy: "fix the TOML syntax or regenerate the file with `yoro-audit config init --force`",
		}
	}
	var l Layer
	if err := v.Unmarshal(&l); err != nil {
		return Layer{}, &schema.ConfigError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	return l, nil
}

const fileHeader = `# yoro-audit configuration.
# Precedence: built-in defaults < this file < YORO_AUDIT_* environment < command-line flags.

`

// DefaultFile renders the built-in defaults as a TOML document.
func DefaultFile() ([]byte, error) {
	body, err := toml.Marshal(Defaults())
	if err != nil {
		return nil, fmt.Errorf("encode default config: %w", err)
	}
	return append([]byte(fileHeader), body...), nil
}

// ErrFileExists is returned by WriteDefault when the target exists and force is off.
var ErrFileExists = errors.New("config file already exists")

// WriteDefault writes the default configuration to dir/FileName.
func WriteDefault(dir string, force bool) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%s: %w (use --force to overwrite)", path, ErrFileExists)
	}
	data, err := DefaultFile()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
