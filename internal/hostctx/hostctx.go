// Package hostctx builds the immutable host context one prelude run starts
// from: an environment snapshot, home and XDG paths, the detected platform,
// the best-effort shell guess, and the short hostname.
//
// The context is constructed once per invocation and shared read-only; the
// mutable per-run state lives in the runtime package.
package hostctx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/prelude-sh/prelude/internal/platform"
	"github.com/prelude-sh/prelude/internal/shell"
)

// Env var names prelude publishes into the runtime snapshot.
const (
	EnvConfig    = "PRELUDE_CONFIG"
	EnvConfigDir = "PRELUDE_CONFIG_DIR"
	EnvShell     = "PRELUDE_SHELL"
	EnvPlatform  = "PRELUDE_PLATFORM"
	EnvHost      = "PRELUDE_HOST"
	EnvDebug     = "PRELUDE_DEBUG"
)

// Context is the read-only host context for one generation run.
type Context struct {
	// Vars is the process environment snapshot, normalized (HOME,
	// USERPROFILE and XDG_CONFIG_HOME are always present).
	Vars map[string]string

	Home          string
	XDGConfigHome string
	Platform      platform.Platform
	// Shell is the best-effort guess; ShellUnknown when nothing matched.
	Shell shell.ShellType
	Host  string

	// ConfigPath and ConfigDir are set by LocateConfig.
	ConfigPath string
	ConfigDir  string
}

// New builds the host context from the actual process environment.
func New(ctx context.Context) (*Context, error) {
	return build(ctx, snapshotEnviron(), platform.NewDetector())
}

// build assembles a Context from an env snapshot. Factored out of New so
// tests can feed synthetic environments.
func build(ctx context.Context, vars map[string]string, det platform.Detector) (*Context, error) {
	home, err := detectHome(vars)
	if err != nil {
		return nil, err
	}

	// Normalize HOME / USERPROFILE so cross-platform config expansion works.
	if vars["HOME"] == "" {
		vars["HOME"] = home
	}
	if vars["USERPROFILE"] == "" {
		vars["USERPROFILE"] = home
	}

	xdg := strings.TrimSpace(vars["XDG_CONFIG_HOME"])
	if xdg == "" {
		xdg = filepath.Join(home, ".config")
	}
	vars["XDG_CONFIG_HOME"] = xdg

	p, err := det.Detect(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}

	sh := shell.DetectShell(vars)
	hostname := detectHostname(ctx, vars)

	vars[EnvPlatform] = p.String()
	if sh != shell.ShellUnknown {
		vars[EnvShell] = sh.String()
	}
	vars[EnvHost] = hostname

	return &Context{
		Vars:          vars,
		Home:          home,
		XDGConfigHome: xdg,
		Platform:      p,
		Shell:         sh,
		Host:          hostname,
	}, nil
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/prelude/prelude.lua.
func (c *Context) DefaultConfigPath() string {
	return filepath.Join(c.XDGConfigHome, "prelude", "prelude.lua")
}

// LocateConfig resolves the config path: PRELUDE_CONFIG if set, otherwise the
// default XDG location. The file must exist; no auto-creation happens here
// (prelude init does that).
func (c *Context) LocateConfig() (string, error) {
	path := strings.TrimSpace(c.Vars[EnvConfig])
	if path == "" {
		path = c.DefaultConfigPath()
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("config not found: %s (set %s to override)", path, EnvConfig)
		}
		return "", fmt.Errorf("cannot access config %s: %w", path, err)
	}

	c.ConfigPath = path
	c.ConfigDir = filepath.Dir(path)
	c.Vars[EnvConfig] = path
	c.Vars[EnvConfigDir] = c.ConfigDir
	return path, nil
}

// snapshotEnviron copies the process environment into a map.
func snapshotEnviron() map[string]string {
	environ := os.Environ()
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars
}

// detectHome determines the home directory, preferring the OS answer and
// falling back to HOME / USERPROFILE from the snapshot.
func detectHome(vars map[string]string) (string, error) {
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return h, nil
	}
	if h := strings.TrimSpace(vars["HOME"]); h != "" {
		return h, nil
	}
	if h := strings.TrimSpace(vars["USERPROFILE"]); h != "" {
		return h, nil
	}
	return "", fmt.Errorf("could not determine home directory")
}

// detectHostname returns the short hostname, best effort. Env vars are
// consulted first, then gopsutil; failure degrades to "unknown".
func detectHostname(ctx context.Context, vars map[string]string) string {
	if h := strings.TrimSpace(vars["HOSTNAME"]); h != "" {
		return shortHostname(h)
	}
	if h := strings.TrimSpace(vars["COMPUTERNAME"]); h != "" {
		return shortHostname(h)
	}

	if info, err := host.InfoWithContext(ctx); err == nil && info.Hostname != "" {
		return shortHostname(info.Hostname)
	}

	return "unknown"
}

// shortHostname strips any domain suffix: "dev.example.com" -> "dev".
func shortHostname(h string) string {
	if i := strings.IndexByte(h, '.'); i >= 0 {
		return h[:i]
	}
	return h
}
