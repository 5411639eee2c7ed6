package deps

import (
	"errors"
	"testing"
)

func keys(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key
	}
	return out
}

func equalKeys(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNormalizeRequireKey(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "apps.uv", want: "apps.uv"},
		{name: "modules prefix stripped", raw: "modules.cloud.dropbox", want: "cloud.dropbox"},
		{name: "group lowercased", raw: "Apps.uv", want: "apps.uv"},
		{name: "whitespace trimmed", raw: "  apps.uv  ", want: "apps.uv"},
		{name: "empty", raw: "", wantErr: true},
		{name: "no dot", raw: "uv", wantErr: true},
		{name: "too many parts", raw: "a.b.c", wantErr: true},
		{name: "blank name", raw: "apps. ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeRequireKey(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeRequireKey(%q) expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeRequireKey(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeRequireKey(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSatisfied(t *testing.T) {
	active := map[string]bool{"cloud.dropbox": true, "apps.uv": true}

	if !Satisfied(active, nil) {
		t.Error("empty requires should always be satisfied")
	}
	if !Satisfied(active, []string{"cloud.dropbox"}) {
		t.Error("present key should satisfy")
	}
	if Satisfied(active, []string{"cloud.dropbox", "apps.rg"}) {
		t.Error("missing key should not satisfy")
	}
}

func TestTopoSortGroupPriorityOrder(t *testing.T) {
	nodes := []Node{
		{Key: "apps.c", Name: "c", Priority: 30},
		{Key: "apps.a", Name: "a", Priority: 10},
		{Key: "apps.b", Name: "b", Priority: 20},
	}

	got, err := TopoSortGroup(nodes, "apps")
	if err != nil {
		t.Fatalf("TopoSortGroup() error = %v", err)
	}
	if !equalKeys(keys(got), "apps.a", "apps.b", "apps.c") {
		t.Errorf("order = %v", keys(got))
	}
}

func TestTopoSortGroupRequiresBeatsPriority(t *testing.T) {
	// b has the lower priority but requires a, so a must come first.
	nodes := []Node{
		{Key: "apps.a", Name: "a", Priority: 100},
		{Key: "apps.b", Name: "b", Priority: 1, Requires: []string{"apps.a"}},
	}

	got, err := TopoSortGroup(nodes, "apps")
	if err != nil {
		t.Fatalf("TopoSortGroup() error = %v", err)
	}
	if !equalKeys(keys(got), "apps.a", "apps.b") {
		t.Errorf("order = %v", keys(got))
	}
}

func TestTopoSortGroupNameTieBreak(t *testing.T) {
	nodes := []Node{
		{Key: "apps.zig", Name: "zig", Priority: 50},
		{Key: "apps.ant", Name: "ant", Priority: 50},
	}

	got, err := TopoSortGroup(nodes, "apps")
	if err != nil {
		t.Fatalf("TopoSortGroup() error = %v", err)
	}
	if !equalKeys(keys(got), "apps.ant", "apps.zig") {
		t.Errorf("order = %v", keys(got))
	}
}

func TestTopoSortGroupIgnoresCrossGroupRequires(t *testing.T) {
	nodes := []Node{
		{Key: "apps.a", Name: "a", Priority: 10, Requires: []string{"cloud.dropbox"}},
		{Key: "apps.b", Name: "b", Priority: 20},
	}

	got, err := TopoSortGroup(nodes, "apps")
	if err != nil {
		t.Fatalf("TopoSortGroup() error = %v", err)
	}
	if !equalKeys(keys(got), "apps.a", "apps.b") {
		t.Errorf("order = %v", keys(got))
	}
}

func TestTopoSortGroupUnknownRequire(t *testing.T) {
	nodes := []Node{
		{Key: "apps.a", Name: "a", Requires: []string{"apps.ghost"}},
	}

	_, err := TopoSortGroup(nodes, "apps")
	var unknownErr *UnknownRequireError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("error = %v, want *UnknownRequireError", err)
	}
	if unknownErr.Require != "apps.ghost" {
		t.Errorf("Require = %q", unknownErr.Require)
	}
}

func TestTopoSortGroupCycle(t *testing.T) {
	nodes := []Node{
		{Key: "apps.a", Name: "a", Requires: []string{"apps.b"}},
		{Key: "apps.b", Name: "b", Requires: []string{"apps.a"}},
		{Key: "apps.free", Name: "free"},
	}

	_, err := TopoSortGroup(nodes, "apps")
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error = %v, want *CycleError", err)
	}
	if !equalKeys(cycleErr.Stuck, "apps.a", "apps.b") {
		t.Errorf("Stuck = %v, want the cycle members sorted", cycleErr.Stuck)
	}
}

func TestTopoSortGroupDiamond(t *testing.T) {
	nodes := []Node{
		{Key: "apps.d", Name: "d", Priority: 1, Requires: []string{"apps.b", "apps.c"}},
		{Key: "apps.b", Name: "b", Priority: 2, Requires: []string{"apps.a"}},
		{Key: "apps.c", Name: "c", Priority: 1, Requires: []string{"apps.a"}},
		{Key: "apps.a", Name: "a", Priority: 9},
	}

	got, err := TopoSortGroup(nodes, "apps")
	if err != nil {
		t.Fatalf("TopoSortGroup() error = %v", err)
	}
	if !equalKeys(keys(got), "apps.a", "apps.c", "apps.b", "apps.d") {
		t.Errorf("order = %v", keys(got))
	}
}
