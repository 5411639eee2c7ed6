// Package detect decides whether a configured module is present on this
// machine. The cascade tries env vars, then commands, then files, then
// paths; the first hit wins and fills the module's detect.* tokens.
package detect

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prelude-sh/prelude/internal/config"
	"github.com/prelude-sh/prelude/internal/hostctx"
	"github.com/prelude-sh/prelude/internal/resolve"
)

// Vars holds the detect.* token values for one detected module.
type Vars = map[string]string

// Detector runs presence detection for one host context.
type Detector struct {
	host *hostctx.Context
	run  runner
}

// New creates a detector over the host context.
func New(host *hostctx.Context) *Detector {
	return &Detector{host: host, run: execRunner{}}
}

// Module runs the detection cascade for one module against the given working
// env vars. The vars are the caller's evolving runtime snapshot, so earlier
// modules' PATH and env effects influence later detections. Returns the
// detect vars and true when any method matched.
func (d *Detector) Module(ctx context.Context, vars map[string]string, spec *config.ModuleSpec) (Vars, bool, error) {
	detect := Vars{}
	r := resolve.New(d.host).WithVars(vars)

	// 1) env: first present, non-blank candidate wins. The value doubles as
	// detect.path since these vars conventionally hold install locations.
	if key, val, ok := firstPresentEnv(vars, spec.Detect.Env.AnyOf); ok {
		detect["env"] = key
		detect["path"] = val
		if err := d.attachVersion(ctx, r, spec, detect); err != nil {
			return nil, false, err
		}
		return detect, true, nil
	}

	// 2) commands
	for _, raw := range spec.Detect.Commands.AnyOf {
		cmd, err := r.Resolve(raw)
		if err != nil {
			return nil, false, fmt.Errorf("%s: resolve detect command %q: %w", spec.Key(), raw, err)
		}
		if found, ok := resolveCommand(d.host.Platform, vars, cmd); ok {
			detect["command"] = cmd
			detect["command_path"] = found
			detect["command_dir"] = filepath.Dir(found)
			if err := d.attachVersion(ctx, r, spec, detect); err != nil {
				return nil, false, err
			}
			return detect, true, nil
		}
	}

	// 3) files
	for _, raw := range spec.Detect.Files.ForPlatform(d.host.Platform) {
		resolved, err := r.Resolve(raw)
		if err != nil {
			return nil, false, fmt.Errorf("%s: resolve detect file pattern %q: %w", spec.Key(), raw, err)
		}
		found, ok, err := firstPathMatch(resolved)
		if err != nil {
			return nil, false, err
		}
		if ok {
			detect["file"] = found
			if err := d.attachVersion(ctx, r, spec, detect); err != nil {
				return nil, false, err
			}
			return detect, true, nil
		}
	}

	// 4) paths
	for _, raw := range spec.Detect.Paths.ForPlatform(d.host.Platform) {
		resolved, err := r.Resolve(raw)
		if err != nil {
			return nil, false, fmt.Errorf("%s: resolve detect path pattern %q: %w", spec.Key(), raw, err)
		}
		found, ok, err := firstPathMatch(resolved)
		if err != nil {
			return nil, false, err
		}
		if ok {
			detect["path"] = found
			if err := d.attachVersion(ctx, r, spec, detect); err != nil {
				return nil, false, err
			}
			return detect, true, nil
		}
	}

	return nil, false, nil
}

// attachVersion runs the module's version probe for this platform, if any,
// and records detect.version on success. Probe misses are silent; only
// malformed config (bad regex, unresolvable token) is an error.
func (d *Detector) attachVersion(ctx context.Context, r *resolve.Resolver, spec *config.ModuleSpec, detect Vars) error {
	if spec.Detect.Version == nil {
		return nil
	}
	probe := spec.Detect.Version.ForPlatform(d.host.Platform)
	if probe == nil {
		return nil
	}

	v, ok, err := d.probeVersion(ctx, r.WithDetect(detect), detect, probe)
	if err != nil {
		return fmt.Errorf("%s: version probe: %w", spec.Key(), err)
	}
	if ok {
		detect["version"] = v
	}
	return nil
}

func firstPresentEnv(vars map[string]string, keys []string) (string, string, bool) {
	for _, k := range keys {
		if v := strings.TrimSpace(vars[k]); v != "" {
			return k, v, true
		}
	}
	return "", "", false
}
