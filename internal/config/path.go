package config

import (
	"os"
	"path/filepath"
)

// Dir returns the per-user application directory, creating it if needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, AppDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// DefaultConfigPath resolves the config file location, preferring the
// INKPOST_CONFIG environment variable.
func DefaultConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := Dir()
	if err != nil {
		return ConfigFileName
	}
	return filepath.Join(dir, ConfigFileName)
}

// TokenPath resolves where the session token is stored.
func (c *Config) TokenPath() (string, error) {
	if c.Session.TokenPath != "" {
		return c.Session.TokenPath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, TokenFileName), nil
}

// DraftsPath resolves where the local draft database lives.
func (c *Config) DraftsPath() (string, error) {
	if c.Drafts.Path != "" {
		return c.Drafts.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DraftsFileName), nil
}
