package config

import (
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/prelude-sh/prelude/internal/platform"
	"github.com/prelude-sh/prelude/internal/shell"
)

// Parser parses prelude Lua configs for one host platform.
type Parser struct {
	platform platform.Platform
}

// NewParser creates a config parser. The platform is injected read-only into
// the Lua state so configs can branch per host.
func NewParser(p platform.Platform) *Parser {
	return &Parser{platform: p}
}

// ParseError represents a config parsing error with a friendly message.
type ParseError struct {
	Message string // user-facing message
	Detail  string // raw Lua error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// ParseFile parses a Lua config file.
func (p *Parser) ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := p.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseString parses a Lua config from a string. Useful for tests and
// in-memory config generation.
func (p *Parser) ParseString(luaCode string) (*Config, error) {
	L := newSandboxedVM()
	defer L.Close()

	if err := platform.InjectPlatformTable(L, p.platform); err != nil {
		return nil, fmt.Errorf("inject platform table: %w", err)
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{Message: "Lua syntax error", Detail: err.Error()}
	}

	return extractConfig(L)
}

// extractConfig extracts the config from an executed Lua state. It expects a
// global "prelude" table.
func extractConfig(L *lua.LState) (*Config, error) {
	root := L.GetGlobal("prelude")
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'prelude' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)

	cfg := &Config{
		Meta: Meta{SchemaVersion: 1, DefaultShell: shell.ShellZsh},
		Bootstrap: Bootstrap{
			SecretsStrategy: StrategyFillMissing,
		},
		Modules: Modules{
			Cloud:     Group{Enabled: true, Items: map[string]*ModuleSpec{}},
			Apps:      Group{Enabled: true, Items: map[string]*ModuleSpec{}},
			Hooks:     HookGroup{Enabled: true},
			Templates: TemplateGroup{Enabled: true, Items: map[string]*TemplateSpec{}},
		},
	}

	if t, ok := tableField(table, "meta"); ok {
		if err := extractMeta(t, &cfg.Meta); err != nil {
			return nil, err
		}
	}
	if t, ok := tableField(table, "bootstrap"); ok {
		if err := extractBootstrap(t, &cfg.Bootstrap); err != nil {
			return nil, err
		}
	}
	if t, ok := tableField(table, "global"); ok {
		if err := extractGlobal(t, &cfg.Global); err != nil {
			return nil, err
		}
	}
	if t, ok := tableField(table, "modules"); ok {
		if err := extractModules(t, &cfg.Modules); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func extractMeta(t *lua.LTable, meta *Meta) error {
	meta.SchemaVersion = intField(t, "schema_version", meta.SchemaVersion)

	if s := stringField(t, "default_shell"); s != "" {
		sh, ok := shell.Parse(s)
		if !ok {
			return &Error{Field: "meta.default_shell", Message: fmt.Sprintf("invalid shell %q", s)}
		}
		meta.DefaultShell = sh
	}
	return nil
}

func extractBootstrap(t *lua.LTable, b *Bootstrap) error {
	if env, ok := tableField(t, "env"); ok {
		b.Env = stringMap(env)
	}
	b.EnvFile = stringField(t, "env_file")
	b.SecretsFile = stringField(t, "secrets_file")

	if s := stringField(t, "secrets_strategy"); s != "" {
		switch MergeStrategy(s) {
		case StrategyFillMissing, StrategyOverride:
			b.SecretsStrategy = MergeStrategy(s)
		default:
			return &Error{Field: "bootstrap.secrets_strategy", Message: fmt.Sprintf("invalid strategy %q (want fill_missing or override)", s)}
		}
	}
	return nil
}

func extractGlobal(t *lua.LTable, g *Global) error {
	aliases, ok := tableField(t, "aliases")
	if !ok {
		return nil
	}

	if pt, ok := tableField(aliases, "platform"); ok {
		g.Aliases.Platform = map[platform.Platform]map[string]string{}
		var err error
		pt.ForEach(func(k, v lua.LValue) {
			if err != nil {
				return
			}
			p, pok := platform.Parse(lua.LVAsString(k))
			if !pok {
				err = &Error{Field: "global.aliases.platform", Message: fmt.Sprintf("invalid platform %q", lua.LVAsString(k))}
				return
			}
			if vt, tok := v.(*lua.LTable); tok {
				g.Aliases.Platform[p] = stringMap(vt)
			}
		})
		if err != nil {
			return err
		}
	}

	if st, ok := tableField(aliases, "shell"); ok {
		g.Aliases.Shell = map[shell.ShellType]map[string]string{}
		var err error
		st.ForEach(func(k, v lua.LValue) {
			if err != nil {
				return
			}
			sh, sok := shell.Parse(lua.LVAsString(k))
			if !sok {
				err = &Error{Field: "global.aliases.shell", Message: fmt.Sprintf("invalid shell %q", lua.LVAsString(k))}
				return
			}
			if vt, tok := v.(*lua.LTable); tok {
				g.Aliases.Shell[sh] = stringMap(vt)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func extractModules(t *lua.LTable, m *Modules) error {
	if gt, ok := tableField(t, GroupCloud); ok {
		if err := extractGroup(gt, GroupCloud, &m.Cloud); err != nil {
			return err
		}
	}
	if gt, ok := tableField(t, GroupApps); ok {
		if err := extractGroup(gt, GroupApps, &m.Apps); err != nil {
			return err
		}
	}
	if ht, ok := tableField(t, GroupHooks); ok {
		if err := extractHooks(ht, &m.Hooks); err != nil {
			return err
		}
	}
	if tt, ok := tableField(t, GroupTemplates); ok {
		if err := extractTemplates(tt, &m.Templates); err != nil {
			return err
		}
	}
	return nil
}

func extractGroup(t *lua.LTable, group string, g *Group) error {
	g.Enabled = boolField(t, "enabled", true)

	items, ok := tableField(t, "items")
	if !ok {
		return nil
	}

	var err error
	items.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		name := lua.LVAsString(k)
		vt, tok := v.(*lua.LTable)
		if !tok {
			err = &Error{Module: group + "." + name, Message: "module must be a table"}
			return
		}
		var spec *ModuleSpec
		spec, err = extractModuleSpec(vt, group, name)
		if err != nil {
			return
		}
		g.Items[name] = spec
	})
	return err
}

func extractModuleSpec(t *lua.LTable, group, name string) (*ModuleSpec, error) {
	key := group + "." + name

	spec := &ModuleSpec{
		Name:     name,
		Group:    group,
		Enabled:  boolField(t, "enabled", true),
		Priority: intField(t, "priority", DefaultPriority),
		Requires: stringList(t.RawGetString("requires")),
	}

	platforms, err := platformList(t.RawGetString("platforms"), key, "platforms")
	if err != nil {
		return nil, err
	}
	spec.Platforms = platforms

	if dt, ok := tableField(t, "detect"); ok {
		if err := extractDetect(dt, key, &spec.Detect); err != nil {
			return nil, err
		}
	}
	if et, ok := tableField(t, "emit"); ok {
		extractEmit(et, &spec.Emit)
	}
	return spec, nil
}

func extractDetect(t *lua.LTable, module string, d *DetectSpec) error {
	if et, ok := tableField(t, "env"); ok {
		d.Env = extractAnyOf(et)
	}
	if ct, ok := tableField(t, "commands"); ok {
		d.Commands = extractAnyOf(ct)
	}
	if ft, ok := tableField(t, "files"); ok {
		d.Files = extractPlatformAnyOf(ft)
	}
	if pt, ok := tableField(t, "paths"); ok {
		d.Paths = extractPlatformAnyOf(pt)
	}
	if vt, ok := tableField(t, "version"); ok {
		spec, err := extractVersionSpec(vt, module)
		if err != nil {
			return err
		}
		d.Version = spec
	}
	return nil
}

func extractAnyOf(t *lua.LTable) AnyOf {
	return AnyOf{AnyOf: stringList(t.RawGetString("any_of"))}
}

func extractPlatformAnyOf(t *lua.LTable) PlatformAnyOf {
	var out PlatformAnyOf
	if mt, ok := tableField(t, "mac"); ok {
		out.Mac = extractAnyOf(mt)
	}
	if lt, ok := tableField(t, "linux"); ok {
		out.Linux = extractAnyOf(lt)
	}
	if wt, ok := tableField(t, "windows"); ok {
		out.Windows = extractAnyOf(wt)
	}
	if st, ok := tableField(t, "wsl"); ok {
		out.WSL = extractAnyOf(st)
	}
	if ot, ok := tableField(t, "other"); ok {
		out.Other = extractAnyOf(ot)
	}
	return out
}

func extractVersionSpec(t *lua.LTable, module string) (*VersionSpec, error) {
	spec := &VersionSpec{}
	slots := []struct {
		name string
		dst  *VersionProbe
	}{
		{"all", &spec.All},
		{"mac", &spec.Mac},
		{"linux", &spec.Linux},
		{"windows", &spec.Windows},
		{"wsl", &spec.WSL},
		{"other", &spec.Other},
	}
	for _, slot := range slots {
		pt, ok := tableField(t, slot.name)
		if !ok {
			continue
		}
		probe, err := extractVersionProbe(pt, module, "detect.version."+slot.name)
		if err != nil {
			return nil, err
		}
		*slot.dst = probe
	}
	return spec, nil
}

func extractVersionProbe(t *lua.LTable, module, field string) (VersionProbe, error) {
	capture := stringField(t, "capture")
	if capture == "" {
		capture = "version"
	}
	regex := stringField(t, "regex")

	kind := stringField(t, "type")
	switch kind {
	case "command":
		cmd := stringField(t, "command")
		if cmd == "" {
			return nil, &Error{Module: module, Field: field, Message: "command probe requires a command"}
		}
		return &CommandProbe{
			Command: cmd,
			Args:    stringList(t.RawGetString("args")),
			Regex:   regex,
			Capture: capture,
		}, nil
	case "path_regex":
		if regex == "" {
			return nil, &Error{Module: module, Field: field, Message: "path_regex probe requires a regex"}
		}
		return &PathRegexProbe{Regex: regex, Capture: capture}, nil
	case "plist":
		key := stringField(t, "key")
		if key == "" {
			return nil, &Error{Module: module, Field: field, Message: "plist probe requires a key"}
		}
		return &PlistProbe{Path: stringField(t, "path"), Key: key, Regex: regex, Capture: capture}, nil
	case "file_version":
		return &FileVersionProbe{Path: stringField(t, "path"), Regex: regex, Capture: capture}, nil
	case "desktop_entry":
		key := stringField(t, "key")
		if key == "" {
			key = "Version"
		}
		return &DesktopEntryProbe{Path: stringField(t, "path"), Key: key, Regex: regex, Capture: capture}, nil
	default:
		return nil, &Error{Module: module, Field: field, Message: fmt.Sprintf("unknown version probe type %q", kind)}
	}
}

func extractEmit(t *lua.LTable, e *EmitSpec) {
	if et, ok := tableField(t, "env"); ok {
		e.Env = stringMap(et)
	}
	if dt, ok := tableField(t, "env_derived"); ok {
		e.EnvDerived = stringMap(dt)
	}
	if at, ok := tableField(t, "aliases"); ok {
		e.Aliases = stringMap(at)
	}
	if st, ok := tableField(t, "source"); ok {
		e.Source = stringList(st.RawGetString("files"))
	}
	if ft, ok := tableField(t, "functions"); ok {
		e.Functions = stringList(ft.RawGetString("files"))
	}
	if pt, ok := tableField(t, "paths"); ok {
		e.PathPrepend = stringList(pt.RawGetString("prepend_if_exists"))
		e.PathAppend = stringList(pt.RawGetString("append_if_exists"))
	}
	if it, ok := tableField(t, "init"); ok {
		it.ForEach(func(_, v lua.LValue) {
			vt, ok := v.(*lua.LTable)
			if !ok {
				return
			}
			cmd := stringField(vt, "command")
			if cmd == "" {
				return
			}
			e.Init = append(e.Init, InitCommand{
				Command:       cmd,
				Args:          stringList(vt.RawGetString("args")),
				PwshOutString: boolField(vt, "pwsh_out_string", false),
			})
		})
	}
}

func extractHooks(t *lua.LTable, g *HookGroup) error {
	g.Enabled = boolField(t, "enabled", true)

	items, ok := tableField(t, "items")
	if !ok {
		return nil
	}

	var err error
	items.ForEach(func(_, v lua.LValue) {
		if err != nil {
			return
		}
		vt, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		name := stringField(vt, "name")
		if name == "" {
			err = &Error{Field: "modules.hooks.items", Message: "hook requires a name"}
			return
		}
		script := stringField(vt, "script")
		if script == "" {
			err = &Error{Module: "hooks." + name, Field: "script", Message: "hook requires a script path"}
			return
		}

		hook := Hook{
			Name:    name,
			Enabled: boolField(vt, "enabled", true),
			Hosts:   stringList(vt.RawGetString("hosts")),
			Script:  script,
		}

		hook.Platforms, err = platformList(vt.RawGetString("platforms"), "hooks."+name, "platforms")
		if err != nil {
			return
		}
		hook.Shells, err = shellList(vt.RawGetString("shells"), "hooks."+name, "shells")
		if err != nil {
			return
		}

		g.Items = append(g.Items, hook)
	})
	return err
}

func extractTemplates(t *lua.LTable, g *TemplateGroup) error {
	g.Enabled = boolField(t, "enabled", true)

	items, ok := tableField(t, "items")
	if !ok {
		return nil
	}

	var err error
	items.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		name := lua.LVAsString(k)
		vt, ok := v.(*lua.LTable)
		if !ok {
			err = &Error{Module: "templates." + name, Message: "template module must be a table"}
			return
		}

		spec := &TemplateSpec{
			Name:     name,
			Enabled:  boolField(vt, "enabled", true),
			Priority: intField(vt, "priority", DefaultPriority),
			Requires: stringList(vt.RawGetString("requires")),
		}

		spec.Platforms, err = platformList(vt.RawGetString("platforms"), "templates."+name, "platforms")
		if err != nil {
			return
		}

		if pt, tok := tableField(vt, "templates"); tok {
			spec.Templates = TemplatePaths{
				Zsh:  stringField(pt, "zsh"),
				Bash: stringField(pt, "bash"),
				Fish: stringField(pt, "fish"),
				Pwsh: stringField(pt, "pwsh"),
				All:  stringField(pt, "all"),
			}
		}
		if dt, tok := tableField(vt, "data"); tok {
			spec.Data = anyMap(dt)
		}

		g.Items[name] = spec
	})
	return err
}

// -------------------- lua extraction helpers --------------------

func tableField(t *lua.LTable, name string) (*lua.LTable, bool) {
	v := t.RawGetString(name)
	vt, ok := v.(*lua.LTable)
	return vt, ok
}

func stringField(t *lua.LTable, name string) string {
	v := t.RawGetString(name)
	if v.Type() != lua.LTString {
		return ""
	}
	return lua.LVAsString(v)
}

func boolField(t *lua.LTable, name string, def bool) bool {
	v := t.RawGetString(name)
	if v.Type() != lua.LTBool {
		return def
	}
	return lua.LVAsBool(v)
}

func intField(t *lua.LTable, name string, def int) int {
	v := t.RawGetString(name)
	if v.Type() != lua.LTNumber {
		return def
	}
	return int(lua.LVAsNumber(v))
}

// stringList converts a Lua array table into a string slice. A bare string is
// accepted as a one-element list; anything else yields nil.
func stringList(v lua.LValue) []string {
	switch val := v.(type) {
	case lua.LString:
		return []string{string(val)}
	case *lua.LTable:
		var out []string
		val.ForEach(func(_, item lua.LValue) {
			if item.Type() == lua.LTString {
				out = append(out, lua.LVAsString(item))
			}
		})
		return out
	default:
		return nil
	}
}

// stringMap converts a Lua table of string keys/values into a Go map.
func stringMap(t *lua.LTable) map[string]string {
	out := map[string]string{}
	t.ForEach(func(k, v lua.LValue) {
		if k.Type() == lua.LTString && v.Type() == lua.LTString {
			out[lua.LVAsString(k)] = lua.LVAsString(v)
		}
	})
	return out
}

// anyMap converts a Lua table into nested Go values for template data.
func anyMap(t *lua.LTable) map[string]any {
	out := map[string]any{}
	t.ForEach(func(k, v lua.LValue) {
		out[lua.LVAsString(k)] = anyValue(v)
	})
	return out
}

func anyValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case lua.LBool:
		return bool(val)
	case *lua.LTable:
		// Array-shaped tables become slices, everything else a map.
		if val.MaxN() > 0 {
			var arr []any
			for i := 1; i <= val.MaxN(); i++ {
				arr = append(arr, anyValue(val.RawGetInt(i)))
			}
			return arr
		}
		return anyMap(val)
	default:
		return nil
	}
}

func platformList(v lua.LValue, module, field string) ([]platform.Platform, error) {
	names := stringList(v)
	out := make([]platform.Platform, 0, len(names))
	for _, n := range names {
		p, ok := platform.Parse(n)
		if !ok {
			return nil, &Error{Module: module, Field: field, Message: fmt.Sprintf("invalid platform %q", n)}
		}
		out = append(out, p)
	}
	return out, nil
}

func shellList(v lua.LValue, module, field string) ([]shell.ShellType, error) {
	names := stringList(v)
	out := make([]shell.ShellType, 0, len(names))
	for _, n := range names {
		s, ok := shell.Parse(n)
		if !ok {
			return nil, &Error{Module: module, Field: field, Message: fmt.Sprintf("invalid shell %q", n)}
		}
		out = append(out, s)
	}
	return out, nil
}
