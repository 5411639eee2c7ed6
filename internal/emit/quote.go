package emit

import "strings"

// quotePosix double-quotes for sh-family shells, escaping backslash and
// double quote. Dollar signs stay live so env references keep working.
func quotePosix(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, ch := range s {
		if ch == '\\' || ch == '"' {
			b.WriteByte('\\')
		}
		b.WriteRune(ch)
	}
	b.WriteByte('"')
	return b.String()
}

// quotePosixSingle single-quotes for sh-family shells using the close,
// escape, reopen idiom for embedded quotes.
func quotePosixSingle(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, ch := range s {
		if ch == '\'' {
			b.WriteString(`'\''`)
			continue
		}
		b.WriteRune(ch)
	}
	b.WriteByte('\'')
	return b.String()
}

func quoteFish(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, ch := range s {
		if ch == '\\' || ch == '"' {
			b.WriteByte('\\')
		}
		b.WriteRune(ch)
	}
	b.WriteByte('"')
	return b.String()
}

// quoteFishSingle single-quotes for fish, where a backslash escape works
// inside single quotes.
func quoteFishSingle(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, ch := range s {
		if ch == '\'' {
			b.WriteString(`\'`)
			continue
		}
		b.WriteRune(ch)
	}
	b.WriteByte('\'')
	return b.String()
}

// quotePwsh double-quotes for PowerShell with backtick escaping.
func quotePwsh(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	for _, ch := range s {
		switch ch {
		case '`':
			b.WriteString("``")
		case '"':
			b.WriteString("`\"")
		default:
			b.WriteRune(ch)
		}
	}
	return `"` + b.String() + `"`
}

// rewriteEnvRefsForPwsh converts posix env references ($NAME, ${NAME}) into
// PowerShell $env:NAME. Already-rewritten $env: references pass through and
// invalid names keep their dollar sign untouched.
func rewriteEnvRefsForPwsh(input string) string {
	var out strings.Builder
	out.Grow(len(input) + 8)

	i := 0
	for i < len(input) {
		if input[i] != '$' {
			out.WriteByte(input[i])
			i++
			continue
		}

		if strings.HasPrefix(input[i:], "$env:") {
			out.WriteString("$env:")
			i += 5
			continue
		}

		if i+1 < len(input) && input[i+1] == '{' {
			j := i + 2
			for j < len(input) && input[j] != '}' {
				j++
			}
			if j < len(input) {
				name := input[i+2 : j]
				if isValidEnvName(name) {
					out.WriteString("$env:")
					out.WriteString(name)
					i = j + 1
					continue
				}
			}
			out.WriteByte('$')
			i++
			continue
		}

		j := i + 1
		for j < len(input) && isIdentByte(input[j]) {
			j++
		}
		name := input[i+1 : j]
		if isValidEnvName(name) {
			out.WriteString("$env:")
			out.WriteString(name)
			i = j
			continue
		}

		out.WriteByte('$')
		i++
	}

	return out.String()
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isValidEnvName(s string) bool {
	if s == "" {
		return false
	}
	first := s[0]
	if first != '_' && !(first >= 'a' && first <= 'z') && !(first >= 'A' && first <= 'Z') {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}
