package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// FilePermissions is the default permission mode for regular files (read/write for owner, read for others)
	FilePermissions = 0644
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755
)

var (
	// ConfigDir is the global configuration directory (~/.reqproc)
	ConfigDir string

	// DatabasePath is the SQLite database file for run history
	DatabasePath string

	// ConfigFile is the optional global settings file
	ConfigFile string
)

// Initialize sets up the configuration directory
// It creates ~/.reqproc/ if it doesn't exist
func Initialize() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	return InitializeAt(filepath.Join(homeDir, ".reqproc"))
}

// InitializeAt sets the global paths below dir and creates it
func InitializeAt(dir string) error {
	ConfigDir = dir
	DatabasePath = filepath.Join(ConfigDir, "reqproc.db")
	ConfigFile = filepath.Join(ConfigDir, "config.yaml")

	if err := os.MkdirAll(ConfigDir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", ConfigDir, err)
	}

	return nil
}

// LocalConfigFile returns ./reqproc.yaml when present, otherwise the global config file
func LocalConfigFile() string {
	if _, err := os.Stat("reqproc.yaml"); err == nil {
		return "reqproc.yaml"
	}
	return ConfigFile
}
