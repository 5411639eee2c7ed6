package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/prelude-sh/prelude/internal/config"
	"github.com/prelude-sh/prelude/internal/deps"
	"github.com/prelude-sh/prelude/internal/hostctx"
	"github.com/prelude-sh/prelude/internal/runtime"
	"github.com/prelude-sh/prelude/internal/shell"
	"github.com/prelude-sh/prelude/internal/templates"
)

// Module terminal states as a report shows them.
const (
	StateActive          = "active"
	StateInactive        = "inactive"
	StateDisabled        = "disabled"
	StateSkippedPlatform = "skipped (platform)"
	StateSkippedRequires = "skipped (requires)"
	StateSourced         = "sourced"
	StateFiltered        = "filtered"
	StateRendered        = "rendered"
	StateNoTemplate      = "no template for shell"
)

// ModuleReport is one module's outcome in a dry run.
type ModuleReport struct {
	Name    string
	State   string
	Version string
}

// Report summarizes what a generation run would do for one shell: the same
// detection, gating and env propagation as Generate, with states collected
// instead of script emitted.
type Report struct {
	Shell     shell.ShellType
	Cloud     []ModuleReport
	Apps      []ModuleReport
	Hooks     []ModuleReport
	Templates []ModuleReport
}

// DryRun walks the module groups without emitting and reports each module's
// terminal state.
func (e *Engine) DryRun(ctx context.Context, sh shell.ShellType) (*Report, error) {
	if err := shell.ValidateShell(sh); err != nil {
		return nil, err
	}
	e.host.Vars[hostctx.EnvShell] = sh.String()

	env, err := runtime.Build(e.host, e.cfg)
	if err != nil {
		return nil, err
	}

	rep := &Report{Shell: sh}
	active := map[string]bool{}

	rep.Cloud, err = e.reportGroup(ctx, env, &e.cfg.Modules.Cloud, config.GroupCloud, active)
	if err != nil {
		return nil, err
	}
	rep.Apps, err = e.reportGroup(ctx, env, &e.cfg.Modules.Apps, config.GroupApps, active)
	if err != nil {
		return nil, err
	}
	rep.Hooks = e.reportHooks(sh)
	rep.Templates, err = e.reportTemplates(env, sh, active)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (e *Engine) reportGroup(ctx context.Context, env *runtime.Env, group *config.Group, groupName string, active map[string]bool) ([]ModuleReport, error) {
	var out []ModuleReport
	if !group.Enabled {
		for _, name := range sortedSpecNames(group.Items) {
			out = append(out, ModuleReport{Name: name, State: StateDisabled})
		}
		return out, nil
	}

	var nodes []deps.Node
	for name, m := range group.Items {
		switch {
		case !m.Enabled:
			out = append(out, ModuleReport{Name: name, State: StateDisabled})
		case !m.SupportsPlatform(e.host.Platform):
			out = append(out, ModuleReport{Name: name, State: StateSkippedPlatform})
		default:
			requires, err := deps.NormalizeRequires(m.Requires)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", groupName, name, err)
			}
			nodes = append(nodes, deps.Node{
				Key:      deps.Key(groupName, name),
				Name:     name,
				Priority: m.Priority,
				Requires: requires,
			})
		}
	}

	ordered, err := deps.TopoSortGroup(nodes, groupName)
	if err != nil {
		return nil, err
	}

	for _, node := range ordered {
		if !deps.Satisfied(active, node.Requires) {
			out = append(out, ModuleReport{Name: node.Name, State: StateSkippedRequires})
			continue
		}

		m := group.Items[node.Name]
		detected, ok, err := e.det.Module(ctx, env.Vars, m)
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, ModuleReport{Name: node.Name, State: StateInactive})
			continue
		}

		if err := runtime.ApplyModuleEffects(e.host, env, detected, &m.Emit); err != nil {
			return nil, fmt.Errorf("%s: %w", node.Key, err)
		}
		active[node.Key] = true
		out = append(out, ModuleReport{
			Name:    node.Name,
			State:   StateActive,
			Version: detected["version"],
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (e *Engine) reportHooks(sh shell.ShellType) []ModuleReport {
	var out []ModuleReport
	for _, h := range e.cfg.Modules.Hooks.Items {
		state := StateFiltered
		switch {
		case !e.cfg.Modules.Hooks.Enabled || !h.Enabled:
			state = StateDisabled
		case h.Matches(e.host.Platform, e.host.Host, sh):
			state = StateSourced
		}
		out = append(out, ModuleReport{Name: h.Name, State: state})
	}
	return out
}

func (e *Engine) reportTemplates(env *runtime.Env, sh shell.ShellType, active map[string]bool) ([]ModuleReport, error) {
	var out []ModuleReport
	g := &e.cfg.Modules.Templates
	if !g.Enabled {
		for name := range g.Items {
			out = append(out, ModuleReport{Name: name, State: StateDisabled})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, nil
	}

	var nodes []deps.Node
	for name, m := range g.Items {
		switch {
		case !m.Enabled:
			out = append(out, ModuleReport{Name: name, State: StateDisabled})
		case !m.SupportsPlatform(e.host.Platform):
			out = append(out, ModuleReport{Name: name, State: StateSkippedPlatform})
		default:
			requires, err := deps.NormalizeRequires(m.Requires)
			if err != nil {
				return nil, fmt.Errorf("templates.%s: %w", name, err)
			}
			nodes = append(nodes, deps.Node{
				Key:      deps.Key(config.GroupTemplates, name),
				Name:     name,
				Priority: m.Priority,
				Requires: requires,
			})
		}
	}

	ordered, err := deps.TopoSortGroup(nodes, config.GroupTemplates)
	if err != nil {
		return nil, err
	}

	for _, node := range ordered {
		if !deps.Satisfied(active, node.Requires) {
			out = append(out, ModuleReport{Name: node.Name, State: StateSkippedRequires})
			continue
		}
		m := g.Items[node.Name]
		if _, ok, err := templates.Render(e.host, env.Vars, sh, m); err != nil {
			return nil, err
		} else if !ok {
			out = append(out, ModuleReport{Name: node.Name, State: StateNoTemplate})
			continue
		}
		active[node.Key] = true
		out = append(out, ModuleReport{Name: node.Name, State: StateRendered})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func sortedSpecNames(items map[string]*config.ModuleSpec) []string {
	names := make([]string, 0, len(items))
	for n := range items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
