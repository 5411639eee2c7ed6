package detect

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/prelude-sh/prelude/internal/config"
	"github.com/prelude-sh/prelude/internal/platform"
	"github.com/prelude-sh/prelude/internal/resolve"
)

// probeTimeout bounds every external version probe. A hung tool must not
// stall shell startup.
const probeTimeout = 5 * time.Second

// runner executes external commands for version probes.
type runner interface {
	run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

func (execRunner) run(ctx context.Context, name string, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errOut strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err := cmd.Run()
	return out.String(), errOut.String(), err
}

// probeVersion dispatches one version probe. The bool result distinguishes a
// missed probe (soft, no version) from a config error (returned error).
// Platform-metadata shapes only run on their own platform; elsewhere they are
// a no-op miss, even when reached through the "all" slot.
func (d *Detector) probeVersion(ctx context.Context, r *resolve.Resolver, detect Vars, probe config.VersionProbe) (string, bool, error) {
	switch p := probe.(type) {
	case *config.CommandProbe:
		return d.probeCommand(ctx, r, detect, p)
	case *config.PathRegexProbe:
		return probePathRegex(detect, p)
	case *config.PlistProbe:
		if d.host.Platform != platform.Mac {
			return "", false, nil
		}
		return d.probePlist(ctx, r, detect, p)
	case *config.FileVersionProbe:
		if d.host.Platform != platform.Windows {
			return "", false, nil
		}
		return d.probeFileVersion(ctx, r, p)
	case *config.DesktopEntryProbe:
		if d.host.Platform != platform.Linux && d.host.Platform != platform.WSL {
			return "", false, nil
		}
		return probeDesktopEntry(r, p)
	default:
		return "", false, fmt.Errorf("unsupported version probe %T", probe)
	}
}

// probeCommand runs the tool and extracts the version from its output.
// The already-detected command path is preferred over re-resolving the name.
func (d *Detector) probeCommand(ctx context.Context, r *resolve.Resolver, detect Vars, p *config.CommandProbe) (string, bool, error) {
	name := detect["command_path"]
	if name == "" {
		resolved, err := r.Resolve(p.Command)
		if err != nil {
			return "", false, err
		}
		name = resolved
	}

	args := make([]string, 0, len(p.Args))
	for _, a := range p.Args {
		resolved, err := r.Resolve(a)
		if err != nil {
			return "", false, fmt.Errorf("resolve version arg %q: %w", a, err)
		}
		args = append(args, resolved)
	}

	stdout, stderr, err := d.run.run(ctx, name, args...)
	if err != nil {
		return "", false, nil
	}

	text := strings.TrimSpace(stdout)
	if text == "" {
		text = strings.TrimSpace(stderr)
	}
	if text == "" {
		return "", false, nil
	}

	if p.Regex != "" {
		return applyCapture(text, p.Regex, p.Capture)
	}

	// No regex: the first non-blank line is the version.
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)
	return line, line != "", nil
}

// probePathRegex matches against whatever the cascade already found.
func probePathRegex(detect Vars, p *config.PathRegexProbe) (string, bool, error) {
	target := detect["path"]
	if target == "" {
		target = detect["file"]
	}
	if target == "" {
		target = detect["command"]
	}
	if target == "" {
		return "", false, nil
	}
	return applyCapture(target, p.Regex, p.Capture)
}

// probePlist reads a bundle plist key via defaults(1). An empty path falls
// back to whatever the cascade detected; a bare .app path is extended to its
// Contents/Info plist.
func (d *Detector) probePlist(ctx context.Context, r *resolve.Resolver, detect Vars, p *config.PlistProbe) (string, bool, error) {
	path := detect["path"]
	if path == "" {
		path = detect["file"]
	}
	if p.Path != "" {
		var err error
		path, err = r.Resolve(p.Path)
		if err != nil {
			return "", false, err
		}
	}
	if path == "" {
		return "", false, nil
	}
	if strings.HasSuffix(path, ".app") {
		path = filepath.Join(path, "Contents", "Info")
	}

	stdout, _, err := d.run.run(ctx, "defaults", "read", path, p.Key)
	if err != nil {
		return "", false, nil
	}

	value := strings.TrimSpace(stdout)
	if value == "" {
		return "", false, nil
	}
	if p.Regex != "" {
		return applyCapture(value, p.Regex, p.Capture)
	}
	return value, true, nil
}

// probeFileVersion queries the VersionInfo resource of a Windows binary.
func (d *Detector) probeFileVersion(ctx context.Context, r *resolve.Resolver, p *config.FileVersionProbe) (string, bool, error) {
	path, err := r.Resolve(p.Path)
	if err != nil {
		return "", false, err
	}

	script := fmt.Sprintf("(Get-Item %s).VersionInfo.FileVersion", pwshSingleQuote(path))
	stdout, _, err := d.run.run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	if err != nil {
		return "", false, nil
	}

	value := strings.TrimSpace(stdout)
	if value == "" {
		return "", false, nil
	}
	if p.Regex != "" {
		return applyCapture(value, p.Regex, p.Capture)
	}
	return value, true, nil
}

// probeDesktopEntry reads a key from the [Desktop Entry] section of a
// freedesktop .desktop file.
func probeDesktopEntry(r *resolve.Resolver, p *config.DesktopEntryProbe) (string, bool, error) {
	path, err := r.Resolve(p.Path)
	if err != nil {
		return "", false, err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", false, nil
	}
	defer f.Close()

	value, ok := scanDesktopEntry(f, p.Key)
	if !ok {
		return "", false, nil
	}
	if p.Regex != "" {
		return applyCapture(value, p.Regex, p.Capture)
	}
	return value, true, nil
}

func scanDesktopEntry(f *os.File, key string) (string, bool) {
	scanner := bufio.NewScanner(f)
	inSection := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
		case strings.HasPrefix(line, "["):
			inSection = line == "[Desktop Entry]"
		case inSection:
			k, v, ok := strings.Cut(line, "=")
			if ok && strings.TrimSpace(k) == key {
				return strings.TrimSpace(v), true
			}
		}
	}
	return "", false
}

// applyCapture refines a probe value with a regex. The named capture group is
// preferred, then group 1. A malformed regex is a config error; a non-match
// is a silent miss.
func applyCapture(text, pattern, capture string) (string, bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", false, fmt.Errorf("invalid version regex %q: %w", pattern, err)
	}

	match := re.FindStringSubmatch(text)
	if match == nil {
		return "", false, nil
	}

	// Index 0 is the whole match; only real groups count.
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		if name == capture && i < len(match) && match[i] != "" {
			return match[i], true, nil
		}
	}
	if len(match) > 1 && match[1] != "" {
		return match[1], true, nil
	}
	return "", false, nil
}

// pwshSingleQuote quotes a string for PowerShell by doubling single quotes.
func pwshSingleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
