// Package testutil provides utilities for testing prelude in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TestEnv describes the isolated directories SetupTestEnv created.
type TestEnv struct {
	Home       string
	ConfigDir  string
	ConfigPath string
}

// SetupTestEnv points the process environment at isolated temp directories so
// tests never read the developer's real shell configuration. HOME, the XDG
// base dirs and the PRELUDE_* overrides are all redirected; cleanup is
// handled by t.Setenv and t.TempDir.
func SetupTestEnv(t *testing.T) TestEnv {
	t.Helper()

	home := t.TempDir()
	configDir := filepath.Join(home, ".config", "prelude")
	configPath := filepath.Join(configDir, "prelude.lua")

	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, ".local", "state"))

	t.Setenv("PRELUDE_CONFIG", configPath)
	t.Setenv("PRELUDE_SHELL", "")
	t.Setenv("PRELUDE_DEBUG", "")
	t.Setenv("HOSTNAME", "testhost")

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create test config directory: %v", err)
	}

	return TestEnv{Home: home, ConfigDir: configDir, ConfigPath: configPath}
}

// WriteConfig writes a config file into the isolated environment.
func (e TestEnv) WriteConfig(t *testing.T, luaCode string) {
	t.Helper()
	if err := os.WriteFile(e.ConfigPath, []byte(luaCode), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}
