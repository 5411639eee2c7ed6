package emit

import (
	"regexp"
	"sort"
)

var envRefPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)|\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Assignment is one ordered env export.
type Assignment struct {
	Key   string
	Value string
}

// OrderEnvAssignments orders a module's env assignments so that a value
// referencing $OTHER comes after OTHER when OTHER is assigned in the same
// block. Ties resolve lexically. Reference cycles never fail; the leftover
// keys are appended in lexical order so every assignment is still emitted.
func OrderEnvAssignments(assigns map[string]string) []Assignment {
	keys := make([]string, 0, len(assigns))
	for k := range assigns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	deps := make(map[string]map[string]bool, len(assigns))
	indeg := make(map[string]int, len(assigns))
	for _, k := range keys {
		ds := map[string]bool{}
		for _, ref := range extractEnvRefs(assigns[k]) {
			if _, sameBlock := assigns[ref]; sameBlock {
				ds[ref] = true
			}
		}
		deps[k] = ds
		indeg[k] = len(ds)
	}

	var queue []string
	for _, k := range keys {
		if indeg[k] == 0 {
			queue = append(queue, k)
		}
	}

	ordered := make([]string, 0, len(keys))
	done := make(map[string]bool, len(keys))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		ordered = append(ordered, n)
		done[n] = true

		for _, k := range keys {
			if deps[k][n] {
				indeg[k]--
				if indeg[k] == 0 {
					queue = append(queue, k)
				}
			}
		}
	}

	// Cyclic references fall back to lexical order after the sorted ones.
	if len(ordered) != len(keys) {
		for _, k := range keys {
			if !done[k] {
				ordered = append(ordered, k)
			}
		}
	}

	out := make([]Assignment, len(ordered))
	for i, k := range ordered {
		out[i] = Assignment{Key: k, Value: assigns[k]}
	}
	return out
}

// extractEnvRefs lists the env var names a value references via $NAME or
// ${NAME}.
func extractEnvRefs(v string) []string {
	var out []string
	for _, m := range envRefPattern.FindAllStringSubmatch(v, -1) {
		if m[1] != "" {
			out = append(out, m[1])
		} else if m[2] != "" {
			out = append(out, m[2])
		}
	}
	return out
}
