// Package emit renders shell fragments in the four supported dialects. All
// runtime guards (command existence, directory existence, PATH duplicate
// checks) are emitted into the generated code and run inside the user's
// shell, not in the generating process: the shell that evaluates the output
// can have a different view of the filesystem and PATH than we do.
package emit

import (
	"strings"

	"github.com/prelude-sh/prelude/internal/shell"
)

// Emitter renders shell code for one dialect.
type Emitter struct {
	shell shell.ShellType
}

// New creates an emitter for the given shell.
func New(s shell.ShellType) *Emitter {
	return &Emitter{shell: s}
}

// Header writes a section banner followed by a blank line.
func (e *Emitter) Header(out *strings.Builder, title string) {
	out.WriteString("# ")
	out.WriteString(title)
	out.WriteString("\n\n")
}

// Comment writes a single comment line.
func (e *Emitter) Comment(out *strings.Builder, text string) {
	out.WriteString("# ")
	out.WriteString(text)
	out.WriteByte('\n')
}

// Blank writes an empty line.
func (e *Emitter) Blank(out *strings.Builder) {
	out.WriteByte('\n')
}

// SetEnv writes an exported environment assignment.
func (e *Emitter) SetEnv(out *strings.Builder, key, value string) {
	v := e.rewriteValue(value)

	switch e.shell {
	case shell.ShellFish:
		out.WriteString("set -gx ")
		out.WriteString(key)
		out.WriteByte(' ')
		out.WriteString(quoteFish(v))
	case shell.ShellPwsh:
		out.WriteString("$env:")
		out.WriteString(key)
		out.WriteString(" = ")
		out.WriteString(quotePwsh(v))
	default:
		out.WriteString("export ")
		out.WriteString(key)
		out.WriteByte('=')
		out.WriteString(quotePosix(v))
	}
	out.WriteByte('\n')
}

// Alias writes an alias definition. PowerShell has no argument-passing
// aliases, so it gets a wrapper function instead.
func (e *Emitter) Alias(out *strings.Builder, name, command string) {
	cmd := e.rewriteValue(command)

	switch e.shell {
	case shell.ShellFish:
		out.WriteString("alias ")
		out.WriteString(name)
		out.WriteByte(' ')
		out.WriteString(quoteFishSingle(cmd))
	case shell.ShellPwsh:
		out.WriteString("function ")
		out.WriteString(name)
		out.WriteString(" { ")
		out.WriteString(cmd)
		out.WriteString(" }")
	default:
		out.WriteString("alias ")
		out.WriteString(name)
		out.WriteByte('=')
		out.WriteString(quotePosixSingle(cmd))
	}
	out.WriteByte('\n')
}

// InitEval writes a guarded eval of a tool's init output (starship, zoxide
// and friends). Explicit paths are guarded by an executable check, bare
// names by a command lookup.
func (e *Emitter) InitEval(out *strings.Builder, cmd string, args []string, pwshOutString bool) {
	c := e.rewriteValue(cmd)
	rewritten := make([]string, len(args))
	for i, a := range args {
		rewritten[i] = e.rewriteValue(a)
	}
	isPath := strings.ContainsAny(c, `/\`)

	switch e.shell {
	case shell.ShellFish:
		words := joinWords(c, rewritten, quoteFish)
		if isPath {
			out.WriteString("if test -x ")
			out.WriteString(quoteFish(c))
		} else {
			out.WriteString("if type -q ")
			out.WriteString(c)
		}
		out.WriteString("; ")
		out.WriteString(words)
		out.WriteString(" | source; end\n")

	case shell.ShellPwsh:
		words := "& " + joinWords(c, rewritten, quotePwsh)
		if isPath {
			out.WriteString("if (Test-Path -Path ")
			out.WriteString(quotePwsh(c))
			out.WriteString(" -PathType Leaf) { ")
		} else {
			out.WriteString("if (Get-Command ")
			out.WriteString(quotePwsh(c))
			out.WriteString(" -ErrorAction SilentlyContinue) { ")
		}
		if pwshOutString {
			out.WriteString("Invoke-Expression (& { (")
			out.WriteString(words)
			out.WriteString(" | Out-String) })")
		} else {
			out.WriteString("Invoke-Expression (")
			out.WriteString(words)
			out.WriteString(")")
		}
		out.WriteString(" }\n")

	default:
		words := joinWords(c, rewritten, quotePosix)
		if isPath {
			out.WriteString("if [ -x ")
			out.WriteString(quotePosix(c))
			out.WriteString(" ]; then eval \"$(")
		} else {
			out.WriteString("if command -v ")
			out.WriteString(c)
			out.WriteString(" >/dev/null 2>&1; then eval \"$(")
		}
		out.WriteString(words)
		out.WriteString(")\"; fi\n")
	}
}

// PathPrepend writes a guarded PATH prepend: the directory must exist and
// not already be on PATH when the shell evaluates the fragment.
func (e *Emitter) PathPrepend(out *strings.Builder, dir string) {
	e.pathMod(out, dir, true)
}

// PathAppend writes a guarded PATH append.
func (e *Emitter) PathAppend(out *strings.Builder, dir string) {
	e.pathMod(out, dir, false)
}

func (e *Emitter) pathMod(out *strings.Builder, dir string, prepend bool) {
	d := e.rewriteValue(dir)

	switch e.shell {
	case shell.ShellFish:
		flag := "-a"
		if prepend {
			flag = "-p"
		}
		out.WriteString("if test -d ")
		out.WriteString(quoteFish(d))
		out.WriteString("; fish_add_path -g ")
		out.WriteString(flag)
		out.WriteByte(' ')
		out.WriteString(quoteFish(d))
		out.WriteString("; end\n")

	case shell.ShellPwsh:
		joined := "@($env:PATH, " + quotePwsh(d) + ")"
		if prepend {
			joined = "@(" + quotePwsh(d) + ", $env:PATH)"
		}
		out.WriteString("if (Test-Path -Path ")
		out.WriteString(quotePwsh(d))
		out.WriteString(" -PathType Container) { ")
		out.WriteString("$sep = [IO.Path]::PathSeparator; ")
		out.WriteString("$parts = $env:PATH -split [regex]::Escape($sep); ")
		out.WriteString("if ($parts -notcontains ")
		out.WriteString(quotePwsh(d))
		out.WriteString(") { $env:PATH = (")
		out.WriteString(joined)
		out.WriteString(" | Where-Object { $_ }) -join $sep } }\n")

	default:
		newPath := "$PATH:$__prelude_dir"
		if prepend {
			newPath = "$__prelude_dir:$PATH"
		}
		out.WriteString("if [ -d ")
		out.WriteString(quotePosix(d))
		out.WriteString(" ]; then __prelude_dir=")
		out.WriteString(quotePosix(d))
		out.WriteString("; case \":$PATH:\" in *\":$__prelude_dir:\"*) ;; *) export PATH=")
		out.WriteString(quotePosix(newPath))
		out.WriteString(" ;; esac; unset __prelude_dir; fi\n")
	}
}

// SourceIfExists writes a guarded source of an external script.
func (e *Emitter) SourceIfExists(out *strings.Builder, path string) {
	p := e.rewriteValue(path)

	switch e.shell {
	case shell.ShellFish:
		out.WriteString("if test -r ")
		out.WriteString(quoteFish(p))
		out.WriteString("; source ")
		out.WriteString(quoteFish(p))
		out.WriteString("; end\n")
	case shell.ShellPwsh:
		out.WriteString("if (Test-Path -Path ")
		out.WriteString(quotePwsh(p))
		out.WriteString(" -PathType Leaf) { . ")
		out.WriteString(quotePwsh(p))
		out.WriteString(" }\n")
	default:
		out.WriteString("if [ -r ")
		out.WriteString(quotePosix(p))
		out.WriteString(" ]; then source ")
		out.WriteString(quotePosix(p))
		out.WriteString("; fi\n")
	}
}

// rewriteValue adjusts env references for the target dialect. Only pwsh
// needs this: $NAME and ${NAME} become $env:NAME.
func (e *Emitter) rewriteValue(s string) string {
	if e.shell == shell.ShellPwsh {
		return rewriteEnvRefsForPwsh(s)
	}
	return s
}

func joinWords(cmd string, args []string, quote func(string) string) string {
	var b strings.Builder
	b.WriteString(quote(cmd))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}
