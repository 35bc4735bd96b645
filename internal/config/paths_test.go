package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error: %v", err)
	}
	if filepath.Base(dir) != "fritzmon" {
		t.Errorf("expected dir to end with 'fritzmon', got %q", filepath.Base(dir))
	}
}

func TestGetConfigDirXDG(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG test not applicable on Windows")
	}
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error: %v", err)
	}
	if expected := filepath.Join(tmp, "fritzmon"); dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}

func TestStorePaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG test not applicable on Windows")
	}
	cfgHome, dataHome := t.TempDir(), t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	t.Setenv("XDG_DATA_HOME", dataHome)

	cases := []struct {
		fn   func() (string, error)
		want string
	}{
		{GetConfigPath, filepath.Join(cfgHome, "fritzmon", "config.toml")},
		{GetProfileStorePath, filepath.Join(cfgHome, "fritzmon", "routers.enc")},
		{GetLogPath, filepath.Join(dataHome, "fritzmon", "fritzmon.log")},
	}
	for _, c := range cases {
		got, err := c.fn()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != c.want {
			t.Errorf("expected %q, got %q", c.want, got)
		}
	}
}

func TestEnsureDirs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG test not applicable on Windows")
	}
	cfgHome, dataHome := t.TempDir(), t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	t.Setenv("XDG_DATA_HOME", dataHome)

	if err := EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error: %v", err)
	}
	for _, dir := range []string{filepath.Join(cfgHome, "fritzmon"), filepath.Join(dataHome, "fritzmon")} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory %q to exist", dir)
		}
	}
}
