package resolve

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prelude-sh/prelude/internal/hostctx"
	"github.com/prelude-sh/prelude/internal/platform"
	"github.com/prelude-sh/prelude/internal/shell"
)

func testContext() *hostctx.Context {
	return &hostctx.Context{
		Vars: map[string]string{
			"HOME": "/home/ada",
			"USER": "ada",
		},
		Home:          "/home/ada",
		XDGConfigHome: "/home/ada/.config",
		Platform:      platform.Linux,
		Shell:         shell.ShellZsh,
		Host:          "workstation",
		ConfigPath:    "/home/ada/.config/prelude/prelude.lua",
		ConfigDir:     "/home/ada/.config/prelude",
	}
}

func TestResolveTokens(t *testing.T) {
	r := New(testContext())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no braces passthrough", input: "plain text", want: "plain text"},
		{name: "home", input: "{home}/bin", want: "/home/ada/bin"},
		{name: "config dir", input: "{config_dir}/hooks", want: "/home/ada/.config/prelude/hooks"},
		{name: "config path", input: "{config_path}", want: "/home/ada/.config/prelude/prelude.lua"},
		{name: "host and platform", input: "{host}-{platform}", want: "workstation-linux"},
		{name: "shell", input: "{shell}", want: "zsh"},
		{name: "shell ext", input: "rc.{shell_ext}", want: "rc.zsh"},
		{name: "shell family", input: "{shell_family}", want: "posix"},
		{name: "shell family ext", input: "init.{shell_family_ext}", want: "init.sh"},
		{name: "shell init", input: "zoxide init {shell_init}", want: "zoxide init zsh"},
		{name: "username", input: "{username}", want: "ada"},
		{name: "userprofile falls back to home", input: "{userprofile}", want: "/home/ada"},
		{name: "xdg config home", input: "{xdg_config_home}", want: "/home/ada/.config"},
		{name: "xdg cache default", input: "{xdg_cache_home}", want: filepath.Join("/home/ada", ".cache")},
		{name: "xdg data default", input: "{xdg_data_home}", want: filepath.Join("/home/ada", ".local", "share")},
		{name: "xdg state default", input: "{xdg_state_home}", want: filepath.Join("/home/ada", ".local", "state")},
		{name: "escaped braces", input: "a {{literal}} b", want: "a {literal} b"},
		{name: "double close escape", input: "x}}y", want: "x}y"},
		{name: "lone close brace literal", input: "x } y", want: "x } y"},
		{name: "shell var passthrough", input: "${HOME}/bin:{home}/bin", want: "${HOME}/bin:/home/ada/bin"},
		{name: "unclosed shell var degrades", input: "echo ${FOO", want: "echo ${FOO"},
		{name: "adjacent tokens", input: "{home}{shell_ext}", want: "/home/ada" + "zsh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.input)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	r := New(testContext())

	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{name: "unknown token", input: "{bogus}", reason: "unknown token"},
		{name: "empty token", input: "pre{}post", reason: "empty token"},
		{name: "unclosed token", input: "pre{home", reason: "unclosed token"},
		{name: "detect without vars", input: "{detect.path}", reason: "unknown token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.input)
			if err == nil {
				t.Fatalf("Resolve(%q) expected error", tt.input)
			}
			var tokErr *TokenError
			if !errors.As(err, &tokErr) {
				t.Fatalf("error type = %T, want *TokenError", err)
			}
			if tokErr.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", tokErr.Reason, tt.reason)
			}
			if !strings.Contains(err.Error(), tt.input) {
				t.Errorf("error %q should quote the input string", err)
			}
		})
	}
}

func TestResolveDetectVars(t *testing.T) {
	r := New(testContext()).WithDetect(map[string]string{
		"path":         "/home/ada/Dropbox",
		"command_path": "/usr/local/bin/uv",
		"command_dir":  "/usr/local/bin",
		"version":      "0.4.18",
	})

	got, err := r.Resolve("{detect.command_dir}/bin v{detect.version}")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := "/usr/local/bin/bin v0.4.18"; got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}

	if _, err := r.Resolve("{detect.missing}"); err == nil {
		t.Error("unknown detect var should error")
	}
}

func TestResolveShellOverride(t *testing.T) {
	ctx := testContext()
	ctx.Vars[hostctx.EnvShell] = "fish"
	r := New(ctx)

	got, err := r.Resolve("{shell}/{shell_family}/{shell_init}")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := "fish/fish/fish"; got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveUnknownShellFallbacks(t *testing.T) {
	ctx := testContext()
	ctx.Shell = shell.ShellUnknown
	r := New(ctx)

	got, err := r.Resolve("{shell}|{shell_ext}|{shell_family}|{shell_family_ext}|{shell_init}")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := "unknown|sh|posix|sh|sh"; got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveXDGEnvOverride(t *testing.T) {
	ctx := testContext()
	ctx.Vars["XDG_CACHE_HOME"] = "/tmp/cache"
	r := New(ctx)

	got, err := r.Resolve("{xdg_cache_home}")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "/tmp/cache" {
		t.Errorf("Resolve() = %q, want /tmp/cache", got)
	}
}

func TestResolveWithVars(t *testing.T) {
	ctx := testContext()
	r := New(ctx).WithVars(map[string]string{
		"USER":          "grace",
		"XDG_DATA_HOME": "/srv/data",
	})

	got, err := r.Resolve("{username}:{xdg_data_home}")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := "grace:/srv/data"; got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveAll(t *testing.T) {
	r := New(testContext())

	got, err := r.ResolveAll([]string{"{home}/a", "{home}/b"})
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	if len(got) != 2 || got[0] != "/home/ada/a" || got[1] != "/home/ada/b" {
		t.Errorf("ResolveAll() = %v", got)
	}

	if _, err := r.ResolveAll([]string{"{home}", "{nope}"}); err == nil {
		t.Error("ResolveAll should fail on the first bad string")
	}
}
