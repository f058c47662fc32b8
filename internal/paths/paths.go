// Package paths resolves where the tablestore CLI keeps its configuration
// and its database file.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user config and data directories.
const AppName = "tablestore"

// DefaultDBFile is the database file name inside the data directory.
const DefaultDBFile = "tablestore.db"

// Environment variable names for overrides.
const (
	EnvConfigDir = "TABLESTORE_CONFIG_DIR"
	EnvDB        = "TABLESTORE_DB"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/tablestore (fallback ~/.config/tablestore)
// macOS:   ~/Library/Application Support/tablestore
// Windows: %APPDATA%/tablestore
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/tablestore (fallback ~/.local/share/tablestore)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	return DefaultConfigDir()
}

func xdgDir(env, homeRel string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, AppName), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > TABLESTORE_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDBPath returns the database file following the precedence chain:
// flag > configValue (db_path in config.yaml) > TABLESTORE_DB env >
// DefaultDataDir()/tablestore.db. The result is absolute.
func ResolveDBPath(flag, configValue string) (string, error) {
	for _, p := range []string{flag, configValue, os.Getenv(EnvDB)} {
		if p != "" {
			return filepath.Abs(p)
		}
	}
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultDBFile), nil
}
