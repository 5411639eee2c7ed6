// Package deps orders modules within a group by their declared requires
// edges, with deterministic tie-breaking.
package deps

import (
	"fmt"
	"sort"
	"strings"
)

// Node is one module in the ordering graph.
type Node struct {
	Key      string   // group-qualified, e.g. "apps.uv"
	Name     string   // module name within the group
	Priority int      // tie-break before name
	Requires []string // normalized keys
}

// Key builds the group-qualified module key.
func Key(group, name string) string {
	return group + "." + name
}

// RequireKeyError reports a malformed requires entry.
type RequireKeyError struct {
	Raw     string
	Message string
}

func (e *RequireKeyError) Error() string {
	if e.Raw == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: got %q", e.Message, e.Raw)
}

// UnknownRequireError reports a same-group requires pointing at a module
// that does not exist.
type UnknownRequireError struct {
	Module  string
	Group   string
	Require string
}

func (e *UnknownRequireError) Error() string {
	return fmt.Sprintf("%s: requires unknown %s module %q", e.Module, e.Group, e.Require)
}

// CycleError reports a dependency cycle; Stuck holds every node that could
// not be scheduled, sorted by key.
type CycleError struct {
	Group string
	Stuck []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected in %s requires graph: %v", e.Group, e.Stuck)
}

// NormalizeRequireKey canonicalizes a requires entry to "group.name".
// Accepts "apps.uv", "cloud.dropbox", and the same with a "modules." prefix.
// The group is lowercased, the name kept as written.
func NormalizeRequireKey(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &RequireKeyError{Message: "requires entry cannot be empty"}
	}

	s = strings.TrimPrefix(s, "modules.")
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return "", &RequireKeyError{
			Raw:     raw,
			Message: "requires must be like 'apps.uv' or 'cloud.dropbox' (optionally prefixed with 'modules.')",
		}
	}

	group := strings.ToLower(strings.TrimSpace(parts[0]))
	name := strings.TrimSpace(parts[1])
	if group == "" || name == "" {
		return "", &RequireKeyError{Raw: raw, Message: "invalid requires key"}
	}
	return group + "." + name, nil
}

// NormalizeRequires canonicalizes a whole requires list.
func NormalizeRequires(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		k, err := NormalizeRequireKey(r)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// Satisfied reports whether every required key is in the active set.
func Satisfied(active map[string]bool, requires []string) bool {
	for _, k := range requires {
		if !active[k] {
			return false
		}
	}
	return true
}

// TopoSortGroup orders the nodes of one group so that every same-group
// requirement comes before its dependent. Cross-group requires do not
// constrain ordering here; they gate activation instead. Among ready nodes
// the order is priority, then name, then key. A same-group requires naming a
// module absent from the list is an error, as is any cycle.
func TopoSortGroup(nodes []Node, group string) ([]Node, error) {
	groupPrefix := group + "."

	byKey := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byKey[n.Key] = n
	}

	indeg := make(map[string]int, len(byKey))
	outgoing := make(map[string][]string, len(byKey))
	for k := range byKey {
		indeg[k] = 0
	}

	for k, node := range byKey {
		for _, dep := range node.Requires {
			if !strings.HasPrefix(dep, groupPrefix) {
				continue
			}
			if _, known := byKey[dep]; !known {
				return nil, &UnknownRequireError{Module: k, Group: group, Require: dep}
			}
			outgoing[dep] = append(outgoing[dep], k)
			indeg[k]++
		}
	}

	ready := newReadyQueue()
	for k, d := range indeg {
		if d == 0 {
			ready.push(byKey[k])
		}
	}

	ordered := make([]Node, 0, len(byKey))
	for ready.len() > 0 {
		n := ready.pop()
		ordered = append(ordered, n)

		for _, child := range outgoing[n.Key] {
			indeg[child]--
			if indeg[child] == 0 {
				ready.push(byKey[child])
			}
		}
	}

	if len(ordered) != len(byKey) {
		var stuck []string
		for k, d := range indeg {
			if d > 0 {
				stuck = append(stuck, k)
			}
		}
		sort.Strings(stuck)
		return nil, &CycleError{Group: group, Stuck: stuck}
	}

	return ordered, nil
}

// readyQueue keeps schedulable nodes sorted by (priority, name, key). The
// group sizes involved are small, so a re-sorted slice beats a heap.
type readyQueue struct {
	nodes []Node
}

func newReadyQueue() *readyQueue {
	return &readyQueue{}
}

func (q *readyQueue) len() int { return len(q.nodes) }

func (q *readyQueue) push(n Node) {
	i := sort.Search(len(q.nodes), func(i int) bool {
		return !nodeLess(q.nodes[i], n)
	})
	q.nodes = append(q.nodes, Node{})
	copy(q.nodes[i+1:], q.nodes[i:])
	q.nodes[i] = n
}

func (q *readyQueue) pop() Node {
	n := q.nodes[0]
	q.nodes = q.nodes[1:]
	return n
}

func nodeLess(a, b Node) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Key < b.Key
}
