// Package platform identifies the host platform for prelude's module
// activation engine.
//
// Platform is a closed enumeration; WSL is detected separately from plain
// Linux because module detection and PATH handling differ there. Detection
// uses runtime.GOOS plus gopsutil kernel inspection, with graceful fallback
// when kernel inspection fails.
package platform

import "context"

// Platform is the closed set of host platforms prelude distinguishes.
type Platform string

const (
	// Mac is macOS (darwin).
	Mac Platform = "mac"
	// Linux is a non-WSL Linux host.
	Linux Platform = "linux"
	// Windows is native Windows.
	Windows Platform = "windows"
	// WSL is Linux running under the Windows Subsystem for Linux.
	WSL Platform = "wsl"
	// Other is any platform not covered above.
	Other Platform = "other"
)

// String returns the string representation of the platform.
func (p Platform) String() string {
	return string(p)
}

// IsValid returns true if the platform is a member of the closed set.
func (p Platform) IsValid() bool {
	switch p {
	case Mac, Linux, Windows, WSL, Other:
		return true
	default:
		return false
	}
}

// Parse converts a config string into a Platform.
// Accepts the canonical names plus "macos"/"darwin" and "win" conveniences.
func Parse(s string) (Platform, bool) {
	switch s {
	case "mac", "macos", "darwin":
		return Mac, true
	case "linux":
		return Linux, true
	case "windows", "win":
		return Windows, true
	case "wsl":
		return WSL, true
	case "other":
		return Other, true
	default:
		return "", false
	}
}

// PathListSeparator returns the PATH entry separator for the platform.
func (p Platform) PathListSeparator() string {
	if p == Windows {
		return ";"
	}
	return ":"
}

// PathKey returns the canonical-case PATH variable name for the platform.
// Both casings are always mirrored in the runtime env; this is the one the
// platform's own tools write.
func (p Platform) PathKey() string {
	if p == Windows {
		return "Path"
	}
	return "PATH"
}

// IsUnixLike returns true for platforms where POSIX path conventions apply.
func (p Platform) IsUnixLike() bool {
	return p == Mac || p == Linux || p == WSL || p == Other
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context, environ map[string]string) (Platform, error)
}
