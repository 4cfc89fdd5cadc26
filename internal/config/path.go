package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the default data directory for the host OS,
// falling back to a dotdir under the user's home directory.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "wrapsync")
	}
	if isDir("/var/lib") {
		return "/var/lib/wrapsync"
	}
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "Wrapsync")
	}
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", "Wrapsync")
	}
	return filepath.Join(homeDir, ".wrapsync")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
