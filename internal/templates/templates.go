// Package templates renders user-provided shell fragments with Go's
// text/template. Unlike detection, rendering has no soft-failure mode: a
// missing or broken template file is a configuration error.
package templates

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/prelude-sh/prelude/internal/config"
	"github.com/prelude-sh/prelude/internal/hostctx"
	"github.com/prelude-sh/prelude/internal/resolve"
	"github.com/prelude-sh/prelude/internal/shell"
)

// Context is the data a template executes against.
type Context struct {
	Shell    string
	Platform string
	Vars     map[string]string
	Data     map[string]any
}

var funcs = template.FuncMap{
	// tojson renders a value as a JSON literal, useful for quoting into
	// generated code.
	"tojson": func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	},
}

// Render renders one template module for the given shell. Returns false with
// no error when the module does not provide a template for this shell.
func Render(host *hostctx.Context, vars map[string]string, sh shell.ShellType, spec *config.TemplateSpec) (string, bool, error) {
	raw := spec.Templates.ForShell(sh)
	if raw == "" {
		return "", false, nil
	}

	r := resolve.New(host).WithVars(vars)
	path, err := r.Resolve(raw)
	if err != nil {
		return "", false, fmt.Errorf("templates.%s: resolve template path %q: %w", spec.Name, raw, err)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("templates.%s: read template %s: %w", spec.Name, path, err)
	}

	tpl, err := template.New(spec.Name).Funcs(funcs).Parse(string(source))
	if err != nil {
		return "", false, fmt.Errorf("templates.%s: parse %s: %w", spec.Name, path, err)
	}

	var out strings.Builder
	err = tpl.Execute(&out, Context{
		Shell:    sh.String(),
		Platform: host.Platform.String(),
		Vars:     vars,
		Data:     spec.Data,
	})
	if err != nil {
		return "", false, fmt.Errorf("templates.%s: render %s: %w", spec.Name, path, err)
	}

	return out.String(), true, nil
}
