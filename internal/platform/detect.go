package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using the actual host.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect classifies the running host. The environ snapshot is consulted for
// WSL interop markers before anything else, because inside WSL runtime.GOOS
// is plain "linux".
//
// On Linux without WSL env markers the kernel version string is inspected via
// gopsutil; Microsoft kernels mean WSL. If kernel inspection fails, detection
// falls back to plain Linux rather than erroring; distinguishing WSL is a
// refinement, not a requirement.
func (d *RealDetector) Detect(ctx context.Context, environ map[string]string) (Platform, error) {
	if isWSLEnviron(environ) {
		return WSL, nil
	}

	switch runtime.GOOS {
	case "darwin":
		return Mac, nil
	case "windows":
		return Windows, nil
	case "linux":
		kernel, err := host.KernelVersionWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			return Linux, nil
		}
		if strings.Contains(strings.ToLower(kernel), "microsoft") {
			return WSL, nil
		}
		return Linux, nil
	default:
		return Other, nil
	}
}

// isWSLEnviron reports whether the env snapshot carries WSL interop markers.
func isWSLEnviron(environ map[string]string) bool {
	if environ == nil {
		return false
	}
	_, distro := environ["WSL_DISTRO_NAME"]
	_, interop := environ["WSL_INTEROP"]
	return distro || interop
}
