// Package runtime owns the mutable env snapshot one generation run works
// against. The snapshot starts from the host context, absorbs bootstrap
// defaults, dotenv and secrets files, and then tracks every module's env and
// PATH effects so later detections see earlier activations.
package runtime

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/prelude-sh/prelude/internal/config"
	"github.com/prelude-sh/prelude/internal/emit"
	"github.com/prelude-sh/prelude/internal/hostctx"
	"github.com/prelude-sh/prelude/internal/resolve"
)

// defaultEnvFile is the dotenv location when bootstrap.env_file is unset.
const defaultEnvFile = "{config_dir}/.env"

// Env is the evolving env snapshot for one run. Each run owns exactly one.
type Env struct {
	Vars map[string]string
}

// Clone deep-copies the env.
func (e *Env) Clone() *Env {
	vars := make(map[string]string, len(e.Vars))
	for k, v := range e.Vars {
		vars[k] = v
	}
	return &Env{Vars: vars}
}

// Build assembles the runtime env: the host snapshot, bootstrap defaults
// (always fill-missing), then the dotenv file and the optional secrets file
// merged under the configured strategy.
func Build(host *hostctx.Context, cfg *config.Config) (*Env, error) {
	env := &Env{Vars: make(map[string]string, len(host.Vars))}
	for k, v := range host.Vars {
		env.Vars[k] = v
	}

	for _, a := range emit.OrderEnvAssignments(cfg.Bootstrap.Env) {
		if env.Vars[a.Key] != "" {
			continue
		}
		r := resolve.New(host).WithVars(env.Vars)
		resolved, err := r.Resolve(a.Value)
		if err != nil {
			return nil, fmt.Errorf("resolve bootstrap env value for %s: %w", a.Key, err)
		}
		env.Vars[a.Key] = resolved
	}

	strategy := cfg.Bootstrap.SecretsStrategy

	envFileRaw := cfg.Bootstrap.EnvFile
	if envFileRaw == "" {
		envFileRaw = defaultEnvFile
	}
	envFile, err := resolve.New(host).WithVars(env.Vars).Resolve(envFileRaw)
	if err != nil {
		return nil, fmt.Errorf("resolve bootstrap env_file %q: %w", envFileRaw, err)
	}
	if err := mergeEnvFile(host, env, envFile, strategy); err != nil {
		return nil, err
	}

	if cfg.Bootstrap.SecretsFile != "" {
		secretsPath, err := resolve.New(host).WithVars(env.Vars).Resolve(cfg.Bootstrap.SecretsFile)
		if err != nil {
			return nil, fmt.Errorf("resolve bootstrap secrets_file %q: %w", cfg.Bootstrap.SecretsFile, err)
		}
		if err := mergeSecretsFile(host, env, secretsPath, strategy); err != nil {
			return nil, err
		}
	}

	return env, nil
}

// mergeEnvFile loads a dotenv file and merges it. A missing file is fine.
func mergeEnvFile(host *hostctx.Context, env *Env, path string, strategy config.MergeStrategy) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}

	incoming, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("parse env file %s: %w", path, err)
	}
	return mergeIncoming(host, env, incoming, path, strategy)
}

// mergeIncoming token-resolves incoming values against the current vars and
// applies the merge strategy.
func mergeIncoming(host *hostctx.Context, env *Env, incoming map[string]string, path string, strategy config.MergeStrategy) error {
	resolved := make(map[string]string, len(incoming))
	for k, v := range incoming {
		r := resolve.New(host).WithVars(env.Vars)
		val, err := r.Resolve(v)
		if err != nil {
			return fmt.Errorf("resolve token in env file %s for key %s: %w", path, k, err)
		}
		resolved[k] = val
	}

	for _, a := range emit.OrderEnvAssignments(resolved) {
		switch strategy {
		case config.StrategyOverride:
			env.Vars[a.Key] = a.Value
		default:
			if env.Vars[a.Key] == "" {
				env.Vars[a.Key] = a.Value
			}
		}
	}
	return nil
}

// EmitEnvDelta renders the difference between the process baseline and the
// built runtime env as exported assignments, so the user's shell sees the
// bootstrap and dotenv values too. Keys are emitted in reference order.
func EmitEnvDelta(em *emit.Emitter, baseline, built map[string]string) string {
	delta := map[string]string{}
	for k, v := range built {
		if baseline[k] != v {
			delta[k] = v
		}
	}
	if len(delta) == 0 {
		return ""
	}

	var out strings.Builder
	em.Header(&out, "prelude (env)")
	for _, a := range emit.OrderEnvAssignments(delta) {
		em.SetEnv(&out, a.Key, a.Value)
	}
	em.Blank(&out)
	return out.String()
}

// ApplyModuleEffects folds a detected module's emit block into the runtime
// env so later modules detect against it. Env assignments resolve against a
// snapshot, then PATH candidates resolve against the updated vars; only
// existing directories join PATH, which is mirrored under both PATH and Path.
func ApplyModuleEffects(host *hostctx.Context, env *Env, detect map[string]string, spec *config.EmitSpec) error {
	snap1 := env.Clone()
	r1 := resolve.New(host).WithVars(snap1.Vars).WithDetect(detect)

	assigns := map[string]string{}
	for k, v := range spec.Env {
		resolved, err := r1.Resolve(v)
		if err != nil {
			return err
		}
		assigns[k] = resolved
	}
	for k, v := range spec.EnvDerived {
		resolved, err := r1.Resolve(v)
		if err != nil {
			return err
		}
		assigns[k] = resolved
	}
	for _, a := range emit.OrderEnvAssignments(assigns) {
		env.Vars[a.Key] = a.Value
	}

	snap2 := env.Clone()
	r2 := resolve.New(host).WithVars(snap2.Vars).WithDetect(detect)

	sep := host.Platform.PathListSeparator()
	pathVal := snap2.Vars[host.Platform.PathKey()]
	if pathVal == "" {
		pathVal = snap2.Vars["PATH"]
	}
	if pathVal == "" {
		pathVal = snap2.Vars["Path"]
	}

	var parts []string
	have := map[string]bool{}
	for _, p := range strings.Split(pathVal, sep) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts = append(parts, p)
		have[p] = true
	}

	for _, raw := range spec.PathPrepend {
		d, err := r2.Resolve(raw)
		if err != nil {
			return err
		}
		if d == "" || !isDir(d) || have[d] {
			continue
		}
		have[d] = true
		parts = append([]string{d}, parts...)
	}
	for _, raw := range spec.PathAppend {
		d, err := r2.Resolve(raw)
		if err != nil {
			return err
		}
		if d == "" || !isDir(d) || have[d] {
			continue
		}
		have[d] = true
		parts = append(parts, d)
	}

	joined := strings.Join(parts, sep)
	env.Vars["PATH"] = joined
	env.Vars["Path"] = joined
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
