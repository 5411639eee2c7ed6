package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prelude-sh/prelude/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmitScriptEndToEnd(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	env.WriteConfig(t, `
prelude = {
  meta = { schema_version = 1, default_shell = "zsh" },
  bootstrap = { env = { PRELUDE_E2E_EDITOR = "vim" } },
  global = {
    aliases = { shell = { zsh = { reload = "exec zsh" } } },
  },
  modules = {
    apps = {
      items = {
        home = {
          detect = { env = { any_of = { "HOME" } } },
          emit = { env = { PRELUDE_SMOKE = "{home}" } },
        },
      },
    },
  },
}
`)

	out, err := emitScript(context.Background(), []string{"zsh"}, testLogger())
	if err != nil {
		t.Fatalf("emitScript: %v", err)
	}

	for _, want := range []string{
		"export PRELUDE_E2E_EDITOR=\"vim\"",
		"alias reload='exec zsh'",
		"# --- apps: home ---",
		"export PRELUDE_SMOKE=\"" + env.Home + "\"",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEmitScriptShellArg(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	env.WriteConfig(t, `
prelude = {
  meta = { schema_version = 1 },
  bootstrap = { env = { PRELUDE_E2E_EDITOR = "vim" } },
}
`)

	out, err := emitScript(context.Background(), []string{"fish"}, testLogger())
	if err != nil {
		t.Fatalf("emitScript: %v", err)
	}
	if !strings.Contains(out, "set -gx PRELUDE_E2E_EDITOR \"vim\"") {
		t.Fatalf("want fish syntax for explicit shell arg:\n%s", out)
	}

	if _, err := emitScript(context.Background(), []string{"ksh"}, testLogger()); err == nil {
		t.Fatal("unsupported shell must error")
	}
	if _, err := emitScript(context.Background(), []string{"zsh", "extra"}, testLogger()); err == nil {
		t.Fatal("extra args must error")
	}
}

func TestEmitScriptMissingConfig(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	if err := os.Remove(env.ConfigPath); err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	// Point at a path that does not exist.
	t.Setenv("PRELUDE_CONFIG", filepath.Join(env.Home, "nope.lua"))

	_, err := emitScript(context.Background(), nil, testLogger())
	if err == nil {
		t.Fatal("missing config must error")
	}
	if !strings.Contains(err.Error(), "prelude init") {
		t.Fatalf("error should point at prelude init, got: %v", err)
	}
}
