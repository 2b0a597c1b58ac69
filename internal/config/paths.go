package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tverho/mailchat-go/internal/addr"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "mailchat"

// Config file name.
const configFileName = "config.toml"

// DefaultConfigDir returns the platform-specific directory for config
// files. On Linux, respects XDG_CONFIG_HOME (defaults to
// ~/.config/mailchat). On macOS, uses ~/Library/Application Support per
// Apple guidelines. Other platforms fall back to ~/.config/mailchat.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}

		return filepath.Join(home, ".config", appName)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), configFileName)
}

// DefaultDataDir returns the platform-specific directory for
// application data (state database, token files, PID file). On Linux,
// respects XDG_DATA_HOME (defaults to ~/.local/share/mailchat). On
// macOS config and data share one directory, per platform convention.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}

		return filepath.Join(home, ".local", "share", appName)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

// DBPath returns the state database path for an account inside dataDir.
func DBPath(dataDir string, account addr.Addr) string {
	return filepath.Join(dataDir, account.String()+".db")
}

// PIDPath returns the PID file path guarding `mailchat run` for an
// account inside dataDir.
func PIDPath(dataDir string, account addr.Addr) string {
	return filepath.Join(dataDir, account.String()+".pid")
}
