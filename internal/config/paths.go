package config

import (
	"os"
	"path/filepath"
)

// FindConfigFile returns the first config file present in the common
// locations, or "" when none exists
func FindConfigFile() string {
	for _, location := range configLocations {
		if FileExists(location) {
			return location
		}
	}
	return ""
}

// FileExists reports whether path names an existing regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ResolvePath anchors a relative path at base. Absolute and empty paths are
// returned unchanged.
func ResolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}
