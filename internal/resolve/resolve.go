// Package resolve expands {token} placeholders in config strings against the
// host context and per-module detection results.
//
// Escapes: "{{" yields a literal "{", "}}" a literal "}". A "{" preceded by
// "$" is shell parameter syntax and is copied through verbatim including its
// closing "}". A lone "}" is literal. Empty, unclosed, and unknown tokens are
// errors; config authors get the offending string back in the message.
package resolve

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prelude-sh/prelude/internal/hostctx"
	"github.com/prelude-sh/prelude/internal/shell"
)

// TokenError reports a placeholder the resolver could not expand.
type TokenError struct {
	Input  string // the full string being resolved
	Token  string // the offending token, empty for unclosed/empty braces
	Reason string
}

func (e *TokenError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: {%s} in: %s", e.Reason, e.Token, e.Input)
	}
	return fmt.Sprintf("%s in string: %s", e.Reason, e.Input)
}

// Resolver expands tokens for one host context. Zero or one detection var set
// may be attached per module via WithDetect.
type Resolver struct {
	ctx    *hostctx.Context
	vars   map[string]string
	detect map[string]string
}

// New creates a resolver over the host context, reading env-backed tokens
// from the context's snapshot.
func New(ctx *hostctx.Context) *Resolver {
	return &Resolver{ctx: ctx, vars: ctx.Vars}
}

// WithVars returns a resolver reading env-backed tokens from the given vars
// instead of the context snapshot. Module activation mutates its working env
// as modules emit, and later tokens must see those mutations.
func (r *Resolver) WithVars(vars map[string]string) *Resolver {
	return &Resolver{ctx: r.ctx, vars: vars, detect: r.detect}
}

// WithDetect returns a resolver that additionally answers detect.* tokens
// from the given detection vars. The receiver is not modified.
func (r *Resolver) WithDetect(detect map[string]string) *Resolver {
	return &Resolver{ctx: r.ctx, vars: r.vars, detect: detect}
}

// Resolve expands all tokens in the input string.
func (r *Resolver) Resolve(input string) (string, error) {
	// Fast path: nothing brace-shaped.
	if !strings.ContainsAny(input, "{}") {
		return input, nil
	}

	// Byte-wise scan; safe because we only branch on ASCII braces and copy
	// everything else through as-is.
	var out strings.Builder
	out.Grow(len(input) + 8)

	i := 0
	for i < len(input) {
		j := i
		for j < len(input) && input[j] != '{' && input[j] != '}' {
			j++
		}
		if j > i {
			out.WriteString(input[i:j])
			i = j
		}
		if i >= len(input) {
			break
		}

		if input[i] == '{' {
			// "{{" is a literal brace.
			if i+1 < len(input) && input[i+1] == '{' {
				out.WriteByte('{')
				i += 2
				continue
			}

			// "${VAR}" is shell syntax, not a token. Copy through the
			// matching "}"; an unclosed "${" degrades to a literal "{".
			if i > 0 && input[i-1] == '$' {
				end := i + 1
				for end < len(input) && input[end] != '}' {
					end++
				}
				if end < len(input) {
					out.WriteString(input[i : end+1])
					i = end + 1
					continue
				}
				out.WriteByte('{')
				i++
				continue
			}

			start := i + 1
			end := start
			for end < len(input) && input[end] != '}' {
				end++
			}
			if end >= len(input) {
				return "", &TokenError{Input: input, Reason: "unclosed token"}
			}

			token := input[start:end]
			if token == "" {
				return "", &TokenError{Input: input, Reason: "empty token"}
			}

			repl, ok := r.tokenValue(token)
			if !ok {
				return "", &TokenError{Input: input, Token: token, Reason: "unknown token"}
			}
			out.WriteString(repl)
			i = end + 1
			continue
		}

		// "}}" is a literal brace, a lone "}" is copied as-is.
		if i+1 < len(input) && input[i+1] == '}' {
			out.WriteByte('}')
			i += 2
			continue
		}
		out.WriteByte('}')
		i++
	}

	return out.String(), nil
}

// ResolveAll expands every string in the slice, failing on the first bad one.
func (r *Resolver) ResolveAll(inputs []string) ([]string, error) {
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		s, err := r.Resolve(in)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// envNonEmpty reads a trimmed env var from the snapshot, treating blank
// values as absent.
func (r *Resolver) envNonEmpty(key string) (string, bool) {
	v := strings.TrimSpace(r.vars[key])
	return v, v != ""
}

// effectiveShell honors a PRELUDE_SHELL override before the detected shell,
// so emitted hooks can force the dialect they were installed for.
func (r *Resolver) effectiveShell() shell.ShellType {
	if v, ok := r.envNonEmpty(hostctx.EnvShell); ok {
		if sh, parsed := shell.Parse(v); parsed {
			return sh
		}
	}
	return r.ctx.Shell
}

func (r *Resolver) tokenValue(token string) (string, bool) {
	if rest, isDetect := strings.CutPrefix(token, "detect."); isDetect {
		if r.detect == nil {
			return "", false
		}
		v, ok := r.detect[rest]
		return v, ok
	}

	sh := r.effectiveShell()

	switch token {
	case "home":
		return r.ctx.Home, true
	case "config_dir":
		return r.ctx.ConfigDir, r.ctx.ConfigDir != ""
	case "config_path":
		return r.ctx.ConfigPath, r.ctx.ConfigPath != ""
	case "host":
		return r.ctx.Host, true
	case "platform":
		return r.ctx.Platform.String(), true
	case "shell":
		return sh.String(), true
	case "shell_ext":
		return sh.Ext(), true
	case "shell_family":
		return sh.Family(), true
	case "shell_family_ext":
		return sh.FamilyExt(), true
	case "shell_init":
		return sh.InitArg(), true
	case "xdg_config_home":
		if v, ok := r.envNonEmpty("XDG_CONFIG_HOME"); ok {
			return v, true
		}
		return r.ctx.XDGConfigHome, true
	case "xdg_cache_home":
		if v, ok := r.envNonEmpty("XDG_CACHE_HOME"); ok {
			return v, true
		}
		return filepath.Join(r.ctx.Home, ".cache"), true
	case "xdg_data_home":
		if v, ok := r.envNonEmpty("XDG_DATA_HOME"); ok {
			return v, true
		}
		return filepath.Join(r.ctx.Home, ".local", "share"), true
	case "xdg_state_home":
		if v, ok := r.envNonEmpty("XDG_STATE_HOME"); ok {
			return v, true
		}
		return filepath.Join(r.ctx.Home, ".local", "state"), true
	case "userprofile":
		if v, ok := r.envNonEmpty("USERPROFILE"); ok {
			return v, true
		}
		return r.envNonEmpty("HOME")
	case "username":
		if v, ok := r.envNonEmpty("USERNAME"); ok {
			return v, true
		}
		return r.envNonEmpty("USER")
	default:
		return "", false
	}
}
