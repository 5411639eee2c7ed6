package platform

import (
	"context"
	"runtime"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Platform
		ok    bool
	}{
		{name: "canonical mac", input: "mac", want: Mac, ok: true},
		{name: "darwin alias", input: "darwin", want: Mac, ok: true},
		{name: "macos alias", input: "macos", want: Mac, ok: true},
		{name: "linux", input: "linux", want: Linux, ok: true},
		{name: "windows", input: "windows", want: Windows, ok: true},
		{name: "win alias", input: "win", want: Windows, ok: true},
		{name: "wsl", input: "wsl", want: WSL, ok: true},
		{name: "other", input: "other", want: Other, ok: true},
		{name: "unknown", input: "beos", want: "", ok: false},
		{name: "empty", input: "", want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			if ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPathConventions(t *testing.T) {
	if got := Windows.PathListSeparator(); got != ";" {
		t.Errorf("Windows separator = %q, want %q", got, ";")
	}
	if got := Linux.PathListSeparator(); got != ":" {
		t.Errorf("Linux separator = %q, want %q", got, ":")
	}
	if got := Windows.PathKey(); got != "Path" {
		t.Errorf("Windows path key = %q, want %q", got, "Path")
	}
	if got := Mac.PathKey(); got != "PATH" {
		t.Errorf("Mac path key = %q, want %q", got, "PATH")
	}
}

func TestDetectWSLFromEnviron(t *testing.T) {
	d := NewDetector()

	got, err := d.Detect(context.Background(), map[string]string{
		"WSL_DISTRO_NAME": "Ubuntu",
	})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got != WSL {
		t.Errorf("Detect() with WSL_DISTRO_NAME = %q, want %q", got, WSL)
	}

	got, err = d.Detect(context.Background(), map[string]string{
		"WSL_INTEROP": "/run/WSL/1_interop",
	})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got != WSL {
		t.Errorf("Detect() with WSL_INTEROP = %q, want %q", got, WSL)
	}
}

func TestDetectHostPlatform(t *testing.T) {
	d := NewDetector()
	got, err := d.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	switch runtime.GOOS {
	case "darwin":
		if got != Mac {
			t.Errorf("Detect() = %q on darwin, want %q", got, Mac)
		}
	case "windows":
		if got != Windows {
			t.Errorf("Detect() = %q on windows, want %q", got, Windows)
		}
	case "linux":
		if got != Linux && got != WSL {
			t.Errorf("Detect() = %q on linux, want %q or %q", got, Linux, WSL)
		}
	default:
		if got != Other {
			t.Errorf("Detect() = %q, want %q", got, Other)
		}
	}
}
