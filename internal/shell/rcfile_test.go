package shell

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRCFilePath(t *testing.T) {
	home := "/home/u"
	xdg := "/home/u/.config"

	tests := []struct {
		shell ShellType
		want  string
	}{
		{ShellZsh, filepath.Join(home, ".zshrc")},
		{ShellBash, filepath.Join(home, ".bashrc")},
		{ShellFish, filepath.Join(xdg, "fish", "config.fish")},
		{ShellPwsh, filepath.Join(xdg, "powershell", "Microsoft.PowerShell_profile.ps1")},
	}

	for _, tt := range tests {
		t.Run(string(tt.shell), func(t *testing.T) {
			got, err := RCFilePath(tt.shell, home, xdg)
			if err != nil {
				t.Fatalf("RCFilePath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RCFilePath() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := RCFilePath(ShellUnknown, home, xdg); err == nil {
		t.Error("RCFilePath(unknown) expected error, got nil")
	}
}

func TestHookBlockMarkers(t *testing.T) {
	for _, s := range []ShellType{ShellZsh, ShellBash, ShellFish, ShellPwsh} {
		block := HookBlock(s)
		if !strings.Contains(block, MarkBegin) || !strings.Contains(block, MarkEnd) {
			t.Errorf("HookBlock(%s) missing markers:\n%s", s, block)
		}
		if !strings.Contains(block, "prelude") {
			t.Errorf("HookBlock(%s) does not invoke prelude:\n%s", s, block)
		}
	}
}

func TestAppendHookIfMissing(t *testing.T) {
	dir := t.TempDir()
	rc := filepath.Join(dir, ".zshrc")
	block := HookBlock(ShellZsh)

	// First append creates the file and adds the block.
	added, err := AppendHookIfMissing(rc, block)
	if err != nil {
		t.Fatalf("AppendHookIfMissing() error = %v", err)
	}
	if !added {
		t.Fatal("AppendHookIfMissing() = false on fresh file, want true")
	}

	// Second append is a no-op.
	added, err = AppendHookIfMissing(rc, block)
	if err != nil {
		t.Fatalf("AppendHookIfMissing() second call error = %v", err)
	}
	if added {
		t.Error("AppendHookIfMissing() = true on already-hooked file, want false")
	}

	data, err := os.ReadFile(rc)
	if err != nil {
		t.Fatalf("read rc file: %v", err)
	}
	if n := strings.Count(string(data), MarkBegin); n != 1 {
		t.Errorf("rc file contains %d begin markers, want 1", n)
	}
}

func TestAppendHookPreservesExistingContent(t *testing.T) {
	dir := t.TempDir()
	rc := filepath.Join(dir, ".bashrc")
	if err := os.WriteFile(rc, []byte("export EDITOR=vim"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := AppendHookIfMissing(rc, HookBlock(ShellBash)); err != nil {
		t.Fatalf("AppendHookIfMissing() error = %v", err)
	}

	data, err := os.ReadFile(rc)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "export EDITOR=vim\n") {
		t.Errorf("existing content not preserved with newline:\n%s", content)
	}
	if !strings.Contains(content, MarkBegin) {
		t.Error("hook block not appended")
	}
}

func TestAppendHookCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	rc := filepath.Join(dir, "fish", "config.fish")

	added, err := AppendHookIfMissing(rc, HookBlock(ShellFish))
	if err != nil {
		t.Fatalf("AppendHookIfMissing() error = %v", err)
	}
	if !added {
		t.Error("AppendHookIfMissing() = false, want true")
	}
	if _, err := os.Stat(rc); err != nil {
		t.Errorf("rc file not created: %v", err)
	}
}
