package detect

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// firstPathMatch checks a path pattern for existence. Plain paths are stat'd
// directly. Patterns with * or ? in the final segment are matched against a
// lexically sorted listing of the parent directory; the first hit wins. Globs
// in intermediate segments are not supported.
func firstPathMatch(pattern string) (string, bool, error) {
	if !strings.ContainsAny(pattern, "*?") {
		if _, err := os.Stat(pattern); err == nil {
			return pattern, true, nil
		}
		return "", false, nil
	}

	dir := filepath.Dir(pattern)
	glob := filepath.Base(pattern)

	if !isDir(dir) {
		return "", false, nil
	}

	re, err := globToRegexp(glob)
	if err != nil {
		return "", false, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, fmt.Errorf("read dir for glob %s: %w", pattern, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, e := range entries {
		if re.MatchString(e.Name()) {
			return filepath.Join(dir, e.Name()), true, nil
		}
	}
	return "", false, nil
}

// globToRegexp converts a single-segment glob into an anchored regexp:
// * matches any run, ? any single char, everything else is literal.
func globToRegexp(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for _, ch := range glob {
		switch ch {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '.', '+', '(', ')', '|', '^', '$', '{', '}', '[', ']', '\\':
			b.WriteByte('\\')
			b.WriteRune(ch)
		default:
			b.WriteRune(ch)
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}
