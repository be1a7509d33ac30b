package paths

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the user's config directory for ragengine.
//
// If the home directory cannot be determined, it falls back to a directory
// under the system temporary directory. This is a best-effort fallback and
// not intended to be a security boundary.
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp directory
		return filepath.Clean(filepath.Join(os.TempDir(), ".ragengine-config"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".config", "ragengine"))
}

// GetDataDir returns the user's data directory for ragengine (sqlite store, caches, logs).
//
// If the home directory cannot be determined, it falls back to a directory
// under the system temporary directory.
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".ragengine"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".ragengine"))
}

// GetHomeDir returns the user's home directory.
//
// Returns an empty string if the home directory cannot be determined.
func GetHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Clean(homeDir)
}
