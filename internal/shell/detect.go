package shell

import (
	"path/filepath"
	"strings"
)

// DetectShell guesses the invoking shell from an environment snapshot.
//
// PowerShell markers are checked first: on mac and linux SHELL often still
// points at the login shell (zsh) even when prelude is invoked from pwsh, so
// PSModulePath is the stronger signal. After that the SHELL basename decides.
// Returns ShellUnknown when nothing matches; callers fall back to the config
// default.
func DetectShell(environ map[string]string) ShellType {
	if _, ok := environ["PSModulePath"]; ok {
		return ShellPwsh
	}
	if _, ok := environ["POWERSHELL_DISTRIBUTION_CHANNEL"]; ok {
		return ShellPwsh
	}

	if sh := environ["SHELL"]; sh != "" {
		return parseShellFromPath(sh)
	}

	return ShellUnknown
}

// parseShellFromPath extracts the shell type from a shell binary path,
// e.g. /usr/bin/zsh -> zsh.
func parseShellFromPath(shellPath string) ShellType {
	base := strings.ToLower(filepath.Base(shellPath))

	switch {
	case strings.Contains(base, "zsh"):
		return ShellZsh
	case strings.Contains(base, "bash"):
		return ShellBash
	case strings.Contains(base, "fish"):
		return ShellFish
	case strings.Contains(base, "pwsh"), strings.Contains(base, "powershell"):
		return ShellPwsh
	default:
		return ShellUnknown
	}
}

// normalize lowercases and trims a shell name for parsing.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
