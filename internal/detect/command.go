package detect

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/prelude-sh/prelude/internal/platform"
)

// resolveCommand locates an executable the way the emitted shell code later
// will: explicit paths are checked directly, bare names are searched on PATH
// and then in well-known install locations that login shells often have but
// the generating process may not.
func resolveCommand(p platform.Platform, vars map[string]string, cmd string) (string, bool) {
	if strings.ContainsAny(cmd, `/\`) {
		if isFile(cmd) {
			return cmd, true
		}
		return "", false
	}

	if found, ok := resolveOnPath(p, vars, cmd); ok {
		return found, true
	}

	for _, dir := range fallbackCommandDirs(p, vars) {
		if found, ok := resolveInDir(p, vars, dir, cmd); ok {
			return found, true
		}
	}
	return "", false
}

func resolveOnPath(p platform.Platform, vars map[string]string, cmd string) (string, bool) {
	pathVal := vars[p.PathKey()]
	if pathVal == "" {
		pathVal = vars["PATH"]
	}
	if pathVal == "" {
		pathVal = vars["Path"]
	}
	if strings.TrimSpace(pathVal) == "" {
		return "", false
	}

	for _, dir := range strings.Split(pathVal, p.PathListSeparator()) {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if found, ok := resolveInDir(p, vars, dir, cmd); ok {
			return found, true
		}
	}
	return "", false
}

func resolveInDir(p platform.Platform, vars map[string]string, dir, cmd string) (string, bool) {
	if !isDir(dir) {
		return "", false
	}

	if p == platform.Windows {
		// A name that already carries an extension is tried as-is.
		if strings.Contains(cmd, ".") {
			full := filepath.Join(dir, cmd)
			return full, isFile(full)
		}
		for _, ext := range pathextList(vars) {
			full := filepath.Join(dir, cmd+ext)
			if isFile(full) {
				return full, true
			}
		}
		return "", false
	}

	full := filepath.Join(dir, cmd)
	return full, isFile(full)
}

// fallbackCommandDirs lists per-platform install locations scanned after
// PATH. Order matters: package-manager dirs come before system dirs.
func fallbackCommandDirs(p platform.Platform, vars map[string]string) []string {
	home := vars["HOME"]
	if home == "" {
		home = vars["USERPROFILE"]
	}

	var out []string
	addHome := func(suffix ...string) {
		if home != "" {
			out = append(out, filepath.Join(append([]string{home}, suffix...)...))
		}
	}

	switch p {
	case platform.Mac:
		out = append(out,
			"/opt/homebrew/bin",
			"/usr/local/bin",
			"/usr/bin",
			"/bin",
			"/usr/sbin",
			"/sbin",
		)
		addHome(".local", "bin")
		addHome(".cargo", "bin")

	case platform.Linux, platform.Other:
		out = append(out,
			"/usr/local/sbin",
			"/usr/local/bin",
			"/usr/sbin",
			"/usr/bin",
			"/sbin",
			"/bin",
		)
		addHome(".local", "bin")
		addHome(".cargo", "bin")

	case platform.WSL:
		out = append(out,
			"/usr/local/sbin",
			"/usr/local/bin",
			"/usr/sbin",
			"/usr/bin",
			"/sbin",
			"/bin",
		)
		addHome(".local", "bin")
		addHome(".cargo", "bin")

		user := vars["USERNAME"]
		if user == "" {
			user = vars["USER"]
		}
		if strings.TrimSpace(user) != "" {
			out = append(out,
				"/mnt/c/Users/"+user+"/.cargo/bin",
				"/mnt/c/Users/"+user+"/scoop/shims",
			)
		}

	case platform.Windows:
		out = append(out,
			`C:\Windows\System32`,
			`C:\Windows`,
		)
		addHome(".cargo", "bin")
		addHome("scoop", "shims")
		addHome("AppData", "Local", "Microsoft", "WindowsApps")

		if pf := strings.TrimSpace(vars["ProgramFiles"]); pf != "" {
			out = append(out, filepath.Join(pf, "Git", "cmd"))
		}
	}

	return dedupe(out)
}

// pathextList returns the Windows executable extensions, lowercased and
// dot-prefixed, from PATHEXT or the conventional defaults.
func pathextList(vars map[string]string) []string {
	raw := vars["PATHEXT"]
	if raw == "" {
		raw = ".COM;.EXE;.BAT;.CMD"
	}

	var out []string
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, strings.ToLower(part))
	}

	if len(out) == 0 {
		out = []string{".com", ".exe", ".bat", ".cmd"}
	}
	return out
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
