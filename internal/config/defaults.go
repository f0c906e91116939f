package config

import (
	"os"
	"path/filepath"
)

// Default application name and log level. The state-directory helpers
// below root their paths under the user's home config directory, matching
// the teacher's ~/.config/zohosync/ layout.
const (
	DefaultAppName  = "syncctl"
	DefaultLogLevel = "info"
)

// StateDir returns the directory persistent state (database, metadata
// cache) lives under for appName.
func StateDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", appName)
}

// DatabasePath returns the default SQLite database path for appName.
func DatabasePath(appName string) string {
	return filepath.Join(StateDir(appName), "sync.db")
}

// CacheDiskPath returns the default MetadataCache persistence path for
// appName.
func CacheDiskPath(appName string) string {
	return filepath.Join(StateDir(appName), "manifest_cache.json")
}
