package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360/saltstreams/errors"
)

const (
	maxConfigSize = 1 << 20 // 1MB max config file size
	maxEnvVarLen  = 10000
	maxPathLen    = 4096
)

// validateConfigPath does basic path validation
func validateConfigPath(path string) error {
	if path == "" {
		return stderrors.New("empty config path")
	}
	if len(path) > maxPathLen {
		return fmt.Errorf("path too long: %d > %d", len(path), maxPathLen)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return fmt.Errorf("only YAML or JSON config files allowed: %s", path)
	}
	return nil
}

// safeReadFile reads a config file with size and type checks. The checks
// run against the opened file and the read is capped at maxConfigSize.
func safeReadFile(path string) ([]byte, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "validate config path")
	}

	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s", errors.ErrConfigNotFound, path),
				"Loader", "Load", "open config file")
		}
		return nil, errors.WrapInvalid(err, "Loader", "Load", "open config file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.WrapTransient(err, "Loader", "Load", "stat config file")
	}
	if !info.Mode().IsRegular() {
		return nil, errors.WrapInvalid(fmt.Errorf("not a regular file: %s", path), "Loader", "Load", "stat config file")
	}

	data, err := io.ReadAll(io.LimitReader(f, maxConfigSize+1))
	if err != nil {
		return nil, errors.WrapTransient(err, "Loader", "Load", "read config file")
	}
	if len(data) > maxConfigSize {
		return nil, errors.WrapInvalid(
			fmt.Errorf("config file larger than %d bytes", maxConfigSize),
			"Loader", "Load", "read config file")
	}
	return data, nil
}

// safeWriteFile writes a config file readable only by its owner
func safeWriteFile(path string, data []byte) error {
	if err := validateConfigPath(path); err != nil {
		return errors.WrapInvalid(err, "Config", "SaveToFile", "validate config path")
	}
	if len(data) > maxConfigSize {
		return errors.WrapInvalid(
			fmt.Errorf("config data too large: %d bytes > %d", len(data), maxConfigSize),
			"Config", "SaveToFile", "check size")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapTransient(err, "Config", "SaveToFile", "write config file")
	}
	return nil
}

// validateEnvVar rejects oversized values and values containing NUL bytes
func validateEnvVar(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("environment variable %s too long: %d > %d", key, len(value), maxEnvVarLen)
	}
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("null byte in environment variable %s", key)
	}
	return nil
}
