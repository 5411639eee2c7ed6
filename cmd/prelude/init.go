package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prelude-sh/prelude/internal/hostctx"
	"github.com/prelude-sh/prelude/internal/shell"
)

// starterConfig is written on first init. It keeps every section present but
// mostly commented out, so the file documents itself.
const starterConfig = `-- prelude configuration
-- Docs: https://github.com/prelude-sh/prelude
prelude = {
  meta = {
    schema_version = 1,
    default_shell = "zsh",
  },

  bootstrap = {
    env = {
      -- EDITOR = "vim",
    },
    -- env_file = "{config_dir}/.env",
    -- secrets_file = "{config_dir}/.secrets.env.gpg",
    -- secrets_strategy = "fill_missing",
  },

  global = {
    aliases = {
      -- platform = { mac = { o = "open ." } },
      -- shell = { zsh = { reload = "exec zsh" } },
    },
  },

  modules = {
    cloud = {
      items = {
        -- aws = {
        --   detect = { env = { any_of = { "AWS_PROFILE", "AWS_DEFAULT_PROFILE" } } },
        --   emit = { env = { AWS_SDK_LOAD_CONFIG = "1" } },
        -- },
      },
    },

    apps = {
      items = {
        -- zoxide = {
        --   detect = { commands = { any_of = { "zoxide" } } },
        --   emit = { init = { { command = "zoxide", args = { "init", "{shell_init}" } } } },
        -- },
      },
    },

    hooks = {
      items = {
        -- { name = "local", script = "{config_dir}/hooks/local.{shell_ext}" },
      },
    },

    templates = {
      items = {
        -- prompt = {
        --   templates = { all = "{config_dir}/templates/prompt.tmpl" },
        --   data = { color = "blue" },
        -- },
      },
    },
  },
}
`

// skeletonDirs are created under the config directory on init.
var skeletonDirs = []string{"functions", "hooks", "templates"}

// runInit handles `prelude init [shell]`: create the config skeleton and
// install the activation hook into the shell rc file.
func runInit(args []string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if len(args) > 1 {
		return fmt.Errorf("usage: prelude init [shell]\nSupported shells: zsh, bash, fish, pwsh")
	}

	host, err := hostctx.New(ctx)
	if err != nil {
		return err
	}

	sh := host.Shell
	if len(args) == 1 {
		parsed, ok := shell.Parse(args[0])
		if !ok {
			return fmt.Errorf("unsupported shell: %s\nSupported shells: zsh, bash, fish, pwsh", args[0])
		}
		sh = parsed
	}
	if err := shell.ValidateShell(sh); err != nil {
		return fmt.Errorf("could not detect your shell, pass it explicitly: prelude init <shell>")
	}

	configPath := strings.TrimSpace(host.Vars[hostctx.EnvConfig])
	if configPath == "" {
		configPath = host.DefaultConfigPath()
	}
	logger.Debug("initializing", "config", configPath, "shell", sh)

	created, err := createConfigSkeleton(configPath)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Created starter config: %s\n", configPath)
	} else {
		fmt.Printf("Config already exists: %s\n", configPath)
	}

	rcPath, err := shell.RCFilePath(sh, host.Home, host.XDGConfigHome)
	if err != nil {
		return err
	}
	added, err := shell.AppendHookIfMissing(rcPath, shell.HookBlock(sh))
	if err != nil {
		return err
	}
	if added {
		fmt.Printf("Added activation hook to %s\n", rcPath)
		fmt.Println("Restart your shell (or source the file) to activate prelude.")
	} else {
		fmt.Printf("Activation hook already present in %s\n", rcPath)
	}

	return nil
}

// createConfigSkeleton makes the config directory layout and writes the
// starter config unless one already exists. Reports whether the config file
// was created.
func createConfigSkeleton(configPath string) (bool, error) {
	configDir := filepath.Dir(configPath)
	for _, d := range skeletonDirs {
		if err := os.MkdirAll(filepath.Join(configDir, d), 0o755); err != nil {
			return false, fmt.Errorf("create config directory: %w", err)
		}
	}

	if _, err := os.Stat(configPath); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("cannot access config %s: %w", configPath, err)
	}
	if err := os.WriteFile(configPath, []byte(starterConfig), 0o644); err != nil {
		return false, fmt.Errorf("write starter config: %w", err)
	}
	return true, nil
}
