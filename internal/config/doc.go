// Package config loads prelude's declarative module tree from a sandboxed
// Lua file.
//
// The config declares a global `prelude` table:
//
//	prelude = {
//	  meta = { schema_version = 1, default_shell = "zsh" },
//	  bootstrap = {
//	    env = { EDITOR = "nvim" },
//	    env_file = "{config_dir}/.env",
//	    secrets_file = "{config_dir}/.secrets.env.gpg",
//	    secrets_strategy = "fill_missing",
//	  },
//	  global = { aliases = { platform = { mac = { o = "open" } },
//	                         shell = { zsh = { reload = "exec zsh" } } } },
//	  modules = {
//	    cloud = { enabled = true, items = { dropbox = { ... } } },
//	    apps = { enabled = true, items = { uv = {
//	      priority = 10,
//	      platforms = { "mac", "linux" },
//	      requires = { "cloud.dropbox" },
//	      detect = { commands = { any_of = { "uv" } } },
//	      emit = { env = { UV_BIN = "{detect.command_path}" } },
//	    } } },
//	    hooks = { enabled = true, items = { { name = "work",
//	      script = "{config_dir}/hooks/work.{shell_family_ext}" } } },
//	    templates = { enabled = true, items = { greet = {
//	      templates = { all = "{config_dir}/templates/greet.tmpl" },
//	      data = { project = "demo" },
//	    } } },
//	  },
//	}
//
// The Lua VM is sandboxed: no os, io, require, load or debug. A read-only
// `platform` table is injected so configs can branch per host. The parser
// only extracts data; all activation logic lives in the engine.
package config
