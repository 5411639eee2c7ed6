package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Marker lines delimiting the prelude activation block in rc files.
// Everything between them belongs to prelude and is detected on re-install.
const (
	MarkBegin = "# >>> prelude >>>"
	MarkEnd   = "# <<< prelude <<<"
)

// RCFileError represents an error with shell rc file operations.
type RCFileError struct {
	Path    string
	Message string
	Cause   error
}

func (e *RCFileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rc file error (%s): %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("rc file error (%s): %s", e.Path, e.Message)
}

func (e *RCFileError) Unwrap() error {
	return e.Cause
}

// RCFilePath returns the rc file the activation hook belongs in for a shell.
// The pwsh profile path used here is the XDG location pwsh uses on mac and
// linux; Windows PowerShell users point PRELUDE at their $PROFILE by hand.
func RCFilePath(s ShellType, home, xdgConfigHome string) (string, error) {
	switch s {
	case ShellZsh:
		return filepath.Join(home, ".zshrc"), nil
	case ShellBash:
		return filepath.Join(home, ".bashrc"), nil
	case ShellFish:
		return filepath.Join(xdgConfigHome, "fish", "config.fish"), nil
	case ShellPwsh:
		return filepath.Join(xdgConfigHome, "powershell", "Microsoft.PowerShell_profile.ps1"), nil
	default:
		return "", &UnsupportedShellError{Shell: s.String()}
	}
}

// HookBlock returns the marker-delimited activation block for a shell.
// The block is guarded at shell-execution time so a missing prelude binary
// never breaks shell startup.
func HookBlock(s ShellType) string {
	switch s {
	case ShellZsh, ShellBash:
		return fmt.Sprintf(`%s
if command -v prelude >/dev/null 2>&1; then
  eval "$(PRELUDE_SHELL=%s prelude)"
fi
%s
`, MarkBegin, s, MarkEnd)
	case ShellFish:
		return fmt.Sprintf(`%s
if type -q prelude
  env PRELUDE_SHELL=fish prelude | source
end
%s
`, MarkBegin, MarkEnd)
	case ShellPwsh:
		return fmt.Sprintf(`%s
if (Get-Command prelude -ErrorAction SilentlyContinue) {
  $env:PRELUDE_SHELL = "pwsh"
  (& prelude) | Out-String | Invoke-Expression
}
%s
`, MarkBegin, MarkEnd)
	default:
		return fmt.Sprintf(`%s
# Unknown shell. Add manually:
#   eval "$(PRELUDE_SHELL=<shell> prelude)"
%s
`, MarkBegin, MarkEnd)
	}
}

// HasHook reports whether the rc file already contains the activation block.
// A missing file counts as no hook.
func HasHook(rcPath string) (bool, error) {
	data, err := os.ReadFile(rcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &RCFileError{Path: rcPath, Message: "failed to read file", Cause: err}
	}
	s := string(data)
	return strings.Contains(s, MarkBegin) && strings.Contains(s, MarkEnd), nil
}

// AppendHookIfMissing appends the activation block to the rc file unless the
// markers are already present. Parent directories are created as needed
// (fish and pwsh profiles live in subdirectories that may not exist yet).
// Returns true if the block was added.
func AppendHookIfMissing(rcPath string, block string) (bool, error) {
	present, err := HasHook(rcPath)
	if err != nil {
		return false, err
	}
	if present {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(rcPath), 0o755); err != nil {
		return false, &RCFileError{Path: rcPath, Message: "failed to create parent directory", Cause: err}
	}

	existing, err := os.ReadFile(rcPath)
	if err != nil && !os.IsNotExist(err) {
		return false, &RCFileError{Path: rcPath, Message: "failed to read file", Cause: err}
	}

	f, err := os.OpenFile(rcPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, &RCFileError{Path: rcPath, Message: "failed to open file", Cause: err}
	}
	defer f.Close()

	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, &RCFileError{Path: rcPath, Message: "failed to write", Cause: err}
		}
	}
	if _, err := f.WriteString(block); err != nil {
		return false, &RCFileError{Path: rcPath, Message: "failed to write hook block", Cause: err}
	}

	return true, nil
}
