package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prelude-sh/prelude/internal/config"
	"github.com/prelude-sh/prelude/internal/hostctx"
	"github.com/prelude-sh/prelude/internal/platform"
	"github.com/prelude-sh/prelude/internal/shell"
)

func testHost(t *testing.T) *hostctx.Context {
	t.Helper()
	home := t.TempDir()
	return &hostctx.Context{
		Vars:          map[string]string{"HOME": home},
		Home:          home,
		XDGConfigHome: filepath.Join(home, ".config"),
		Platform:      platform.Linux,
		Shell:         shell.ShellZsh,
		Host:          "test",
		ConfigDir:     home,
	}
}

func writeTemplate(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRender(t *testing.T) {
	host := testHost(t)
	writeTemplate(t, host.Home, "greet.tmpl",
		"# {{.Data.project}} on {{.Platform}} ({{.Shell}})\nexport GREETING={{.Data.greeting | tojson}}\n")

	spec := &config.TemplateSpec{
		Name:      "greet",
		Templates: config.TemplatePaths{All: "{home}/greet.tmpl"},
		Data:      map[string]any{"project": "demo", "greeting": `say "hi"`},
	}

	got, ok, err := Render(host, host.Vars, shell.ShellZsh, spec)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !ok {
		t.Fatal("expected a render")
	}
	if !strings.Contains(got, "# demo on linux (zsh)") {
		t.Errorf("render = %q", got)
	}
	if !strings.Contains(got, `export GREETING="say \"hi\""`) {
		t.Errorf("tojson output wrong: %q", got)
	}
}

func TestRenderVars(t *testing.T) {
	host := testHost(t)
	writeTemplate(t, host.Home, "vars.tmpl", "editor={{index .Vars \"EDITOR\"}}\n")

	spec := &config.TemplateSpec{
		Name:      "vars",
		Templates: config.TemplatePaths{All: "{home}/vars.tmpl"},
	}

	vars := map[string]string{"HOME": host.Home, "EDITOR": "nvim"}
	got, ok, err := Render(host, vars, shell.ShellZsh, spec)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !ok || got != "editor=nvim\n" {
		t.Errorf("Render() = %q, %v", got, ok)
	}
}

func TestRenderShellSelection(t *testing.T) {
	host := testHost(t)
	writeTemplate(t, host.Home, "fish.tmpl", "fish specific\n")

	spec := &config.TemplateSpec{
		Name:      "sel",
		Templates: config.TemplatePaths{Fish: "{home}/fish.tmpl"},
	}

	if _, ok, err := Render(host, host.Vars, shell.ShellZsh, spec); err != nil || ok {
		t.Errorf("zsh render = ok=%v err=%v, want silent skip", ok, err)
	}

	got, ok, err := Render(host, host.Vars, shell.ShellFish, spec)
	if err != nil || !ok || got != "fish specific\n" {
		t.Errorf("fish render = %q, %v, %v", got, ok, err)
	}
}

func TestRenderErrorsAreFatal(t *testing.T) {
	host := testHost(t)
	writeTemplate(t, host.Home, "bad.tmpl", "{{.Data.x")

	tests := []struct {
		name string
		spec *config.TemplateSpec
	}{
		{
			name: "missing file",
			spec: &config.TemplateSpec{
				Name:      "missing",
				Templates: config.TemplatePaths{All: "{home}/nope.tmpl"},
			},
		},
		{
			name: "parse error",
			spec: &config.TemplateSpec{
				Name:      "bad",
				Templates: config.TemplatePaths{All: "{home}/bad.tmpl"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Render(host, host.Vars, shell.ShellZsh, tt.spec); err == nil {
				t.Error("Render() expected error")
			}
		})
	}
}
