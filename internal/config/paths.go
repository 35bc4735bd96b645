package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "fritzmon"

// GetConfigDir returns the platform-specific config directory.
// Unix: $XDG_CONFIG_HOME/fritzmon or ~/.config/fritzmon
// Windows: %APPDATA%\fritzmon
func GetConfigDir() (string, error) {
	return appDir("XDG_CONFIG_HOME", "APPDATA", []string{".config"}, []string{"AppData", "Roaming"})
}

// GetDataDir returns the platform-specific data directory, used for logs.
// Unix: $XDG_DATA_HOME/fritzmon or ~/.local/share/fritzmon
// Windows: %LOCALAPPDATA%\fritzmon
func GetDataDir() (string, error) {
	return appDir("XDG_DATA_HOME", "LOCALAPPDATA", []string{".local", "share"}, []string{"AppData", "Local"})
}

func appDir(xdgEnv, winEnv string, unixFallback, winFallback []string) (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv(winEnv)
		if base == "" {
			base = filepath.Join(append([]string{os.Getenv("USERPROFILE")}, winFallback...)...)
		}
	default:
		base = os.Getenv(xdgEnv)
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(append([]string{home}, unixFallback...)...)
		}
	}
	return filepath.Join(base, appName), nil
}

// GetConfigPath returns the path of config.toml.
func GetConfigPath() (string, error) {
	return inDir(GetConfigDir, "config.toml")
}

// GetProfileStorePath returns the path to the encrypted router profile store.
func GetProfileStorePath() (string, error) {
	return inDir(GetConfigDir, "routers.enc")
}

// GetLogPath returns the log file used while the dashboard owns the terminal.
func GetLogPath() (string, error) {
	return inDir(GetDataDir, "fritzmon.log")
}

func inDir(dir func() (string, error), name string) (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name), nil
}

// EnsureDirs creates all required directories if they don't exist.
func EnsureDirs() error {
	for _, fn := range []func() (string, error){GetConfigDir, GetDataDir} {
		dir, err := fn()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}
