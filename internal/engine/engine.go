// Package engine orchestrates one generation run: build the runtime env,
// walk the module groups in their fixed sequence, and stitch the emitted
// shell fragments into the final output.
//
// The group sequence is env delta, global aliases, cloud, apps, hooks,
// templates. Cloud and apps activate modules (detection plus requires
// gating) and mutate the working env as they go; hooks and templates run
// against the final env, with hooks filtered rather than activated.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/prelude-sh/prelude/internal/config"
	"github.com/prelude-sh/prelude/internal/deps"
	"github.com/prelude-sh/prelude/internal/detect"
	"github.com/prelude-sh/prelude/internal/emit"
	"github.com/prelude-sh/prelude/internal/hostctx"
	"github.com/prelude-sh/prelude/internal/resolve"
	"github.com/prelude-sh/prelude/internal/runtime"
	"github.com/prelude-sh/prelude/internal/shell"
	"github.com/prelude-sh/prelude/internal/templates"
)

// Engine runs generation for one host context and parsed config.
type Engine struct {
	host *hostctx.Context
	cfg  *config.Config
	det  *detect.Detector
	log  *slog.Logger
}

// New creates an engine.
func New(host *hostctx.Context, cfg *config.Config, log *slog.Logger) *Engine {
	return &Engine{
		host: host,
		cfg:  cfg,
		det:  detect.New(host),
		log:  log,
	}
}

// EffectiveShell picks the shell to emit for: the PRELUDE_SHELL override,
// then the detected shell, then the config default.
func (e *Engine) EffectiveShell() shell.ShellType {
	if v := strings.TrimSpace(e.host.Vars[hostctx.EnvShell]); v != "" {
		if sh, ok := shell.Parse(v); ok {
			return sh
		}
	}
	if e.host.Shell != shell.ShellUnknown {
		return e.host.Shell
	}
	return e.cfg.Meta.DefaultShell
}

// Generate produces the complete init fragment for the given shell.
func (e *Engine) Generate(ctx context.Context, sh shell.ShellType) (string, error) {
	if err := shell.ValidateShell(sh); err != nil {
		return "", err
	}
	e.host.Vars[hostctx.EnvShell] = sh.String()

	baseline := make(map[string]string, len(e.host.Vars))
	for k, v := range e.host.Vars {
		baseline[k] = v
	}

	env, err := runtime.Build(e.host, e.cfg)
	if err != nil {
		return "", err
	}

	em := emit.New(sh)
	active := map[string]bool{}

	deltaScript := runtime.EmitEnvDelta(em, baseline, env.Vars)
	globalScript := e.emitGlobal(em, sh)

	cloudScript, err := e.emitGroup(ctx, em, env, &e.cfg.Modules.Cloud, config.GroupCloud, active)
	if err != nil {
		return "", err
	}
	appsScript, err := e.emitGroup(ctx, em, env, &e.cfg.Modules.Apps, config.GroupApps, active)
	if err != nil {
		return "", err
	}
	hooksScript, err := e.emitHooks(em, env, sh)
	if err != nil {
		return "", err
	}
	templatesScript, err := e.emitTemplates(em, env, sh, active)
	if err != nil {
		return "", err
	}

	return stitch(deltaScript, globalScript, cloudScript, appsScript, hooksScript, templatesScript), nil
}

// emitGlobal writes the platform and shell alias tables.
func (e *Engine) emitGlobal(em *emit.Emitter, sh shell.ShellType) string {
	platformAliases := e.cfg.Global.Aliases.Platform[e.host.Platform]
	shellAliases := e.cfg.Global.Aliases.Shell[sh]
	if len(platformAliases) == 0 && len(shellAliases) == 0 {
		return ""
	}

	var out strings.Builder
	em.Header(&out, "prelude (global)")
	for _, name := range sortedKeys(platformAliases) {
		em.Alias(&out, name, platformAliases[name])
	}
	for _, name := range sortedKeys(shellAliases) {
		em.Alias(&out, name, shellAliases[name])
	}
	return out.String()
}

// emitGroup runs one activating group: topo-sort the eligible modules, gate
// each on its requires, detect sequentially against the evolving env, emit
// the active ones, and fold their effects back into the env.
func (e *Engine) emitGroup(ctx context.Context, em *emit.Emitter, env *runtime.Env, group *config.Group, groupName string, active map[string]bool) (string, error) {
	if !group.Enabled {
		return "", nil
	}

	var nodes []deps.Node
	for name, m := range group.Items {
		if !m.Enabled || !m.SupportsPlatform(e.host.Platform) {
			continue
		}
		requires, err := deps.NormalizeRequires(m.Requires)
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", groupName, name, err)
		}
		nodes = append(nodes, deps.Node{
			Key:      deps.Key(groupName, name),
			Name:     name,
			Priority: m.Priority,
			Requires: requires,
		})
	}

	ordered, err := deps.TopoSortGroup(nodes, groupName)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	em.Header(&out, "prelude ("+groupName+")")

	emittedAny := false
	for _, node := range ordered {
		if !deps.Satisfied(active, node.Requires) {
			e.log.Debug("module skipped, requires unmet",
				"module", node.Key, "requires", node.Requires)
			continue
		}

		m := group.Items[node.Name]
		detected, ok, err := e.det.Module(ctx, env.Vars, m)
		if err != nil {
			return "", err
		}
		if !ok {
			e.log.Debug("module not detected", "module", node.Key)
			continue
		}
		emittedAny = true

		em.Comment(&out, fmt.Sprintf("--- %s: %s ---", groupName, node.Name))
		if err := e.emitModuleBlock(em, &out, env, detected, &m.Emit); err != nil {
			return "", fmt.Errorf("%s: %w", node.Key, err)
		}

		if err := runtime.ApplyModuleEffects(e.host, env, detected, &m.Emit); err != nil {
			return "", fmt.Errorf("%s: %w", node.Key, err)
		}
		active[node.Key] = true
		em.Blank(&out)
	}

	if !emittedAny {
		return "", nil
	}
	return out.String(), nil
}

// emitModuleBlock renders one active module's emit spec: env exports in
// reference order, then PATH mods (so functions and init see the tools),
// then sourced scripts, aliases, and init evals.
func (e *Engine) emitModuleBlock(em *emit.Emitter, out *strings.Builder, env *runtime.Env, detected detect.Vars, spec *config.EmitSpec) error {
	r := resolve.New(e.host).WithVars(env.Vars).WithDetect(detected)

	assigns := map[string]string{}
	for k, v := range spec.Env {
		resolved, err := r.Resolve(v)
		if err != nil {
			return err
		}
		assigns[k] = resolved
	}
	for k, v := range spec.EnvDerived {
		resolved, err := r.Resolve(v)
		if err != nil {
			return err
		}
		assigns[k] = resolved
	}
	for _, a := range emit.OrderEnvAssignments(assigns) {
		em.SetEnv(out, a.Key, a.Value)
	}

	if len(spec.PathPrepend) > 0 || len(spec.PathAppend) > 0 {
		em.Blank(out)
		for _, raw := range spec.PathPrepend {
			d, err := r.Resolve(raw)
			if err != nil {
				return err
			}
			em.PathPrepend(out, d)
		}
		for _, raw := range spec.PathAppend {
			d, err := r.Resolve(raw)
			if err != nil {
				return err
			}
			em.PathAppend(out, d)
		}
	}

	if len(spec.Functions) > 0 {
		em.Blank(out)
		if err := e.emitSourceList(em, out, r, spec.Functions); err != nil {
			return err
		}
	}
	if len(spec.Source) > 0 {
		em.Blank(out)
		if err := e.emitSourceList(em, out, r, spec.Source); err != nil {
			return err
		}
	}

	if len(spec.Aliases) > 0 {
		em.Blank(out)
		for _, name := range sortedKeys(spec.Aliases) {
			val, err := r.Resolve(spec.Aliases[name])
			if err != nil {
				return err
			}
			em.Alias(out, name, val)
		}
	}

	if len(spec.Init) > 0 {
		em.Blank(out)
		for _, init := range spec.Init {
			cmd, err := r.Resolve(init.Command)
			if err != nil {
				return err
			}
			args := make([]string, 0, len(init.Args))
			for _, a := range init.Args {
				resolved, err := r.Resolve(a)
				if err != nil {
					return err
				}
				args = append(args, resolved)
			}
			em.InitEval(out, cmd, args, init.PwshOutString)
		}
	}
	return nil
}

// emitSourceList writes guarded sources, skipping duplicate resolved paths.
func (e *Engine) emitSourceList(em *emit.Emitter, out *strings.Builder, r *resolve.Resolver, files []string) error {
	seen := map[string]bool{}
	for _, raw := range files {
		p, err := r.Resolve(raw)
		if err != nil {
			return err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		em.SourceIfExists(out, p)
	}
	return nil
}

// emitHooks writes the matching hook sources. Hooks are filters, not
// modules: no detection, no requires, no active-set membership.
func (e *Engine) emitHooks(em *emit.Emitter, env *runtime.Env, sh shell.ShellType) (string, error) {
	if !e.cfg.Modules.Hooks.Enabled {
		return "", nil
	}

	var out strings.Builder
	em.Header(&out, "prelude (hooks)")

	emittedAny := false
	for _, h := range e.cfg.Modules.Hooks.Items {
		if !h.Enabled || !h.Matches(e.host.Platform, e.host.Host, sh) {
			continue
		}

		r := resolve.New(e.host).WithVars(env.Vars)
		script, err := r.Resolve(h.Script)
		if err != nil {
			return "", fmt.Errorf("hooks.%s: resolve script path: %w", h.Name, err)
		}

		em.Comment(&out, "--- hook: "+h.Name+" ---")
		em.SourceIfExists(&out, script)
		em.Blank(&out)
		emittedAny = true
	}

	if !emittedAny {
		return "", nil
	}
	return out.String(), nil
}

// emitTemplates renders the template modules, dep-sorted and gated like the
// activating groups. A rendered template joins the active set.
func (e *Engine) emitTemplates(em *emit.Emitter, env *runtime.Env, sh shell.ShellType, active map[string]bool) (string, error) {
	if !e.cfg.Modules.Templates.Enabled {
		return "", nil
	}

	var nodes []deps.Node
	for name, m := range e.cfg.Modules.Templates.Items {
		if !m.Enabled || !m.SupportsPlatform(e.host.Platform) {
			continue
		}
		requires, err := deps.NormalizeRequires(m.Requires)
		if err != nil {
			return "", fmt.Errorf("templates.%s: %w", name, err)
		}
		nodes = append(nodes, deps.Node{
			Key:      deps.Key(config.GroupTemplates, name),
			Name:     name,
			Priority: m.Priority,
			Requires: requires,
		})
	}

	ordered, err := deps.TopoSortGroup(nodes, config.GroupTemplates)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	em.Header(&out, "prelude (templates)")

	emittedAny := false
	for _, node := range ordered {
		if !deps.Satisfied(active, node.Requires) {
			e.log.Debug("template skipped, requires unmet",
				"module", node.Key, "requires", node.Requires)
			continue
		}

		m := e.cfg.Modules.Templates.Items[node.Name]
		text, ok, err := templates.Render(e.host, env.Vars, sh, m)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		emittedAny = true

		em.Comment(&out, "--- template: "+node.Name+" ---")
		out.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			out.WriteByte('\n')
		}
		em.Blank(&out)

		active[node.Key] = true
	}

	if !emittedAny {
		return "", nil
	}
	return out.String(), nil
}

// stitch joins section fragments with exactly one blank line between
// non-empty sections and a single trailing newline.
func stitch(sections ...string) string {
	var out strings.Builder
	for _, s := range sections {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(strings.TrimRight(s, "\n"))
		out.WriteByte('\n')
	}
	return out.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
