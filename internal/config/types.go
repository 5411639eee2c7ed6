package config

import (
	"fmt"

	"github.com/prelude-sh/prelude/internal/platform"
	"github.com/prelude-sh/prelude/internal/shell"
)

// DefaultPriority is assigned to modules that do not declare one. Priority is
// only a tie-break within the dependency order; lower runs earlier.
const DefaultPriority = 1000

// Group names, in the fixed emission sequence.
const (
	GroupCloud     = "cloud"
	GroupApps      = "apps"
	GroupHooks     = "hooks"
	GroupTemplates = "templates"
)

// Config is the complete parsed prelude configuration. Immutable once loaded.
type Config struct {
	Meta      Meta
	Bootstrap Bootstrap
	Global    Global
	Modules   Modules
}

// Meta contains schema metadata.
type Meta struct {
	SchemaVersion int
	DefaultShell  shell.ShellType
}

// MergeStrategy controls how env/secrets file entries merge into the runtime
// snapshot.
type MergeStrategy string

const (
	// StrategyFillMissing only sets keys that are absent or blank.
	StrategyFillMissing MergeStrategy = "fill_missing"
	// StrategyOverride always overwrites.
	StrategyOverride MergeStrategy = "override"
)

// Bootstrap describes the initial runtime-env construction.
type Bootstrap struct {
	// Env holds default variables, applied fill-missing before any file merge.
	Env map[string]string
	// EnvFile is the dotenv file to merge; empty means "{config_dir}/.env".
	EnvFile string
	// SecretsFile is an optional second dotenv file; a .gpg/.pgp suffix means
	// OpenPGP-encrypted.
	SecretsFile string
	// SecretsStrategy applies to both file merges.
	SecretsStrategy MergeStrategy
}

// Global holds configuration emitted before any module group.
type Global struct {
	Aliases GlobalAliases
}

// GlobalAliases are platform- and shell-conditional aliases.
type GlobalAliases struct {
	Platform map[platform.Platform]map[string]string
	Shell    map[shell.ShellType]map[string]string
}

// Modules is the module tree, one field per group.
type Modules struct {
	Cloud     Group
	Apps      Group
	Hooks     HookGroup
	Templates TemplateGroup
}

// Group is a namespace of same-kind detectable modules.
type Group struct {
	Enabled bool
	Items   map[string]*ModuleSpec
}

// ModuleSpec declares one detectable, activatable module. Immutable once
// loaded.
type ModuleSpec struct {
	Name    string
	Group   string
	Enabled bool
	// Priority breaks ordering ties only; dependency edges always win.
	Priority int
	// Platforms is an allow-list; empty means all platforms.
	Platforms []platform.Platform
	// Requires lists "group.name" keys (optionally "modules."-prefixed) that
	// must be active before this module is considered.
	Requires []string
	Detect   DetectSpec
	Emit     EmitSpec
}

// Key returns the fully-qualified "group.name" module key.
func (m *ModuleSpec) Key() string {
	return m.Group + "." + m.Name
}

// SupportsPlatform applies the platform allow-list (empty list = all).
func (m *ModuleSpec) SupportsPlatform(p platform.Platform) bool {
	if len(m.Platforms) == 0 {
		return true
	}
	for _, allowed := range m.Platforms {
		if allowed == p {
			return true
		}
	}
	return false
}

// DetectSpec is the ordered cascade of presence strategies. Strategy order is
// fixed: env, then commands, then files, then paths; the first hit wins.
type DetectSpec struct {
	Env      AnyOf
	Commands AnyOf
	Files    PlatformAnyOf
	Paths    PlatformAnyOf
	Version  *VersionSpec
}

// AnyOf is an ordered candidate list; the first present candidate wins.
type AnyOf struct {
	AnyOf []string
}

// PlatformAnyOf partitions candidate lists per platform.
type PlatformAnyOf struct {
	Mac     AnyOf
	Linux   AnyOf
	Windows AnyOf
	WSL     AnyOf
	Other   AnyOf
}

// ForPlatform projects the candidate list for one platform.
func (b *PlatformAnyOf) ForPlatform(p platform.Platform) []string {
	switch p {
	case platform.Mac:
		return b.Mac.AnyOf
	case platform.Linux:
		return b.Linux.AnyOf
	case platform.Windows:
		return b.Windows.AnyOf
	case platform.WSL:
		return b.WSL.AnyOf
	default:
		return b.Other.AnyOf
	}
}

// VersionSpec holds per-platform version probes; All is the fallback when the
// platform-specific slot is empty.
type VersionSpec struct {
	All     VersionProbe
	Mac     VersionProbe
	Linux   VersionProbe
	Windows VersionProbe
	WSL     VersionProbe
	Other   VersionProbe
}

// ForPlatform projects the probe for one platform, falling back to All.
func (s *VersionSpec) ForPlatform(p platform.Platform) VersionProbe {
	var probe VersionProbe
	switch p {
	case platform.Mac:
		probe = s.Mac
	case platform.Linux:
		probe = s.Linux
	case platform.Windows:
		probe = s.Windows
	case platform.WSL:
		probe = s.WSL
	default:
		probe = s.Other
	}
	if probe == nil {
		probe = s.All
	}
	return probe
}

// VersionProbe is the closed set of version-detection shapes. Each shape may
// carry a regex+capture refinement; capture defaults to "version" and falls
// back to the first group.
type VersionProbe interface {
	isVersionProbe()
}

// CommandProbe runs an external command and extracts the version from its
// output.
type CommandProbe struct {
	Command string
	Args    []string
	Regex   string
	Capture string
}

// PathRegexProbe applies a regex to the already-detected path/file/command.
type PathRegexProbe struct {
	Regex   string
	Capture string
}

// PlistProbe reads a key from a macOS bundle property list. Only runs on mac.
type PlistProbe struct {
	// Path is the bundle or plist path; empty means the detected path/file.
	Path    string
	Key     string
	Regex   string
	Capture string
}

// FileVersionProbe reads the file-version field of a Windows binary. Only
// runs on windows.
type FileVersionProbe struct {
	Path    string
	Regex   string
	Capture string
}

// DesktopEntryProbe reads a key from a freedesktop .desktop entry. Only runs
// on linux and wsl.
type DesktopEntryProbe struct {
	Path    string
	Key     string
	Regex   string
	Capture string
}

func (*CommandProbe) isVersionProbe()      {}
func (*PathRegexProbe) isVersionProbe()    {}
func (*PlistProbe) isVersionProbe()        {}
func (*FileVersionProbe) isVersionProbe()  {}
func (*DesktopEntryProbe) isVersionProbe() {}

// EmitSpec declares the shell code a module contributes once detected.
type EmitSpec struct {
	Env         map[string]string
	EnvDerived  map[string]string
	Aliases     map[string]string
	Source      []string
	Functions   []string
	PathPrepend []string
	PathAppend  []string
	Init        []InitCommand
}

// InitCommand is a tool init subcommand whose output gets evaluated, e.g.
// `zoxide init zsh`.
type InitCommand struct {
	Command string
	Args    []string
	// PwshOutString wraps the pwsh invocation in Out-String, for tools whose
	// init subcommand returns a non-string object there.
	PwshOutString bool
}

// HookGroup holds hook modules; they are ordered as written, not dep-sorted.
type HookGroup struct {
	Enabled bool
	Items   []Hook
}

// Hook sources one script, filtered by platform, host and shell.
type Hook struct {
	Name      string
	Enabled   bool
	Platforms []platform.Platform
	Hosts     []string
	Shells    []shell.ShellType
	Script    string
}

// Matches applies the hook's filters (empty list = no filter).
func (h *Hook) Matches(p platform.Platform, host string, s shell.ShellType) bool {
	if !h.Enabled {
		return false
	}
	if len(h.Platforms) > 0 && !containsPlatform(h.Platforms, p) {
		return false
	}
	if len(h.Hosts) > 0 && !containsString(h.Hosts, host) {
		return false
	}
	if len(h.Shells) > 0 && !containsShell(h.Shells, s) {
		return false
	}
	return true
}

// TemplateGroup holds template modules, dep-sorted like cloud/apps.
type TemplateGroup struct {
	Enabled bool
	Items   map[string]*TemplateSpec
}

// TemplateSpec declares one rendered-template module.
type TemplateSpec struct {
	Name      string
	Enabled   bool
	Priority  int
	Platforms []platform.Platform
	Requires  []string
	Templates TemplatePaths
	// Data is arbitrary module-supplied data handed to the renderer.
	Data map[string]any
}

// Key returns the fully-qualified "templates.name" module key.
func (t *TemplateSpec) Key() string {
	return GroupTemplates + "." + t.Name
}

// SupportsPlatform applies the platform allow-list (empty list = all).
func (t *TemplateSpec) SupportsPlatform(p platform.Platform) bool {
	if len(t.Platforms) == 0 {
		return true
	}
	return containsPlatform(t.Platforms, p)
}

// TemplatePaths are per-shell template file paths with an "all" fallback.
type TemplatePaths struct {
	Zsh  string
	Bash string
	Fish string
	Pwsh string
	All  string
}

// ForShell returns the template path for a shell, or "" when the module has
// nothing to render there.
func (t *TemplatePaths) ForShell(s shell.ShellType) string {
	var path string
	switch s {
	case shell.ShellZsh:
		path = t.Zsh
	case shell.ShellBash:
		path = t.Bash
	case shell.ShellFish:
		path = t.Fish
	case shell.ShellPwsh:
		path = t.Pwsh
	}
	if path == "" {
		path = t.All
	}
	return path
}

// Error represents a fatal configuration error, naming the offending module
// and field.
type Error struct {
	Module  string
	Field   string
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Module != "" && e.Field != "":
		return fmt.Sprintf("config error in %s (%s): %s", e.Module, e.Field, e.Message)
	case e.Module != "":
		return fmt.Sprintf("config error in %s: %s", e.Module, e.Message)
	default:
		return fmt.Sprintf("config error: %s", e.Message)
	}
}

func containsPlatform(list []platform.Platform, p platform.Platform) bool {
	for _, x := range list {
		if x == p {
			return true
		}
	}
	return false
}

func containsShell(list []shell.ShellType, s shell.ShellType) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
