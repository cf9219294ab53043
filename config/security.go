package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	maxConfigSize = 1 << 20 // 1MB
	maxDepth      = 32      // nesting of decoded layers
	maxEnvVarLen  = 4096
	maxPathLen    = 4096
)

// layerExtensions maps accepted layer extensions to their format.
var layerExtensions = map[string]string{
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
}

// layerFormat returns the format of a layer file, or an error for extensions
// the loader cannot parse.
func layerFormat(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := layerExtensions[ext]
	if !ok {
		return "", fmt.Errorf("unsupported config extension %q (want .json, .yaml or .yml)", ext)
	}
	return format, nil
}

// validateConfigPath accepts absolute paths and relative paths that stay
// inside the working directory.
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("empty config path")
	}
	if len(path) > maxPathLen {
		return fmt.Errorf("path too long: %d > %d", len(path), maxPathLen)
	}
	if _, err := layerFormat(path); err != nil {
		return err
	}
	if filepath.IsAbs(path) {
		return nil
	}

	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s resolves outside the working directory", path)
	}
	return nil
}

// safeReadFile reads a layer after checking its path, size and type.
// Symlinks are followed, so mounted config maps work, but the target must
// be a regular file.
func safeReadFile(path string) ([]byte, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve config file: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("cannot stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes > %d", info.Size(), maxConfigSize)
	}

	return os.ReadFile(resolved)
}

// validateEnvVar rejects override values that cannot be a single config
// field: overlong values and values with control characters.
func validateEnvVar(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("environment variable %s too long: %d > %d", key, len(value), maxEnvVarLen)
	}
	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("control character %U in environment variable %s", r, key)
		}
	}
	return nil
}

// checkDepth bounds the nesting of a decoded layer. The config schema is
// shallow, so anything deeper is a malformed or hostile file.
func checkDepth(v any, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("config nesting too deep: > %d", maxDepth)
	}
	switch val := v.(type) {
	case map[string]any:
		for _, child := range val {
			if err := checkDepth(child, depth+1); err != nil {
				return err
			}
		}
	case []any:
		for _, child := range val {
			if err := checkDepth(child, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
