// Package shell models the shell dialects prelude can emit code for, guesses
// the invoking shell from the environment, and installs the activation hook
// into shell rc files.
package shell

import "fmt"

// ShellType represents a supported shell dialect.
type ShellType string

const (
	// ShellZsh represents the Z shell.
	ShellZsh ShellType = "zsh"
	// ShellBash represents the Bash shell.
	ShellBash ShellType = "bash"
	// ShellFish represents the Fish shell.
	ShellFish ShellType = "fish"
	// ShellPwsh represents PowerShell (pwsh and Windows PowerShell).
	ShellPwsh ShellType = "pwsh"
	// ShellUnknown represents an unknown or undetected shell.
	ShellUnknown ShellType = "unknown"
)

// String returns the string representation of the shell type.
func (s ShellType) String() string {
	return string(s)
}

// IsValid returns true if the shell type is supported for emission.
func (s ShellType) IsValid() bool {
	switch s {
	case ShellZsh, ShellBash, ShellFish, ShellPwsh:
		return true
	default:
		return false
	}
}

// Parse converts common shell strings into a ShellType.
// Accepts: zsh, bash, fish, pwsh, powershell (case matters not).
func Parse(s string) (ShellType, bool) {
	switch normalize(s) {
	case "zsh":
		return ShellZsh, true
	case "bash":
		return ShellBash, true
	case "fish":
		return ShellFish, true
	case "pwsh", "powershell":
		return ShellPwsh, true
	default:
		return ShellUnknown, false
	}
}

// Ext returns the script file extension for the shell ({shell_ext} token).
// Unknown shells fall back to plain sh.
func (s ShellType) Ext() string {
	switch s {
	case ShellZsh:
		return "zsh"
	case ShellBash:
		return "bash"
	case ShellFish:
		return "fish"
	case ShellPwsh:
		return "ps1"
	default:
		return "sh"
	}
}

// Family returns the dialect family ({shell_family} token): zsh and bash
// share POSIX export syntax, fish and pwsh are their own families.
func (s ShellType) Family() string {
	switch s {
	case ShellFish:
		return "fish"
	case ShellPwsh:
		return "pwsh"
	default:
		return "posix"
	}
}

// FamilyExt returns the family's script extension ({shell_family_ext} token).
func (s ShellType) FamilyExt() string {
	switch s {
	case ShellFish:
		return "fish"
	case ShellPwsh:
		return "ps1"
	default:
		return "sh"
	}
}

// InitArg returns the argument shape third-party init subcommands expect
// ({shell_init} token), e.g. `zoxide init <arg>`. PowerShell tools take
// "powershell" rather than "pwsh"; unknown shells get generic "sh".
func (s ShellType) InitArg() string {
	switch s {
	case ShellZsh:
		return "zsh"
	case ShellBash:
		return "bash"
	case ShellFish:
		return "fish"
	case ShellPwsh:
		return "powershell"
	default:
		return "sh"
	}
}

// UnsupportedShellError represents an unsupported shell error.
type UnsupportedShellError struct {
	Shell string
}

func (e *UnsupportedShellError) Error() string {
	return fmt.Sprintf("unsupported shell: %s (supported: zsh, bash, fish, pwsh)", e.Shell)
}

// ValidateShell returns an error if the shell is not supported for emission.
func ValidateShell(s ShellType) error {
	if !s.IsValid() {
		return &UnsupportedShellError{Shell: s.String()}
	}
	return nil
}
