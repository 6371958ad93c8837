package graph

import (
	"errors"
	"reflect"
	"testing"
)

// fakeNode is a minimal Node for graph tests.
type fakeNode struct {
	id   string
	deps []string
}

func (n fakeNode) ID() string             { return n.id }
func (n fakeNode) Dependencies() []string { return n.deps }

func nodesFrom(spec map[string][]string, order []string) []Node {
	out := make([]Node, 0, len(order))
	for _, id := range order {
		out = append(out, fakeNode{id: id, deps: spec[id]})
	}
	return out
}

func TestBuildRegistersNodesAndEdges(t *testing.T) {
	g := New()
	err := g.Build(nodesFrom(map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": {"a", "b"},
	}, []string{"a", "b", "c"}))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if g.Size() != 3 {
		t.Errorf("Size() = %d, want 3", g.Size())
	}
	if g.Node("b") == nil {
		t.Error("Node(b) = nil, want node")
	}
	if got := g.Dependencies("c"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Dependencies(c) = %v, want [a b]", got)
	}
	if got := g.Dependents("a"); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("Dependents(a) = %v, want [b c]", got)
	}
}

func TestBuildDuplicateID(t *testing.T) {
	g := New()
	err := g.Build([]Node{
		fakeNode{id: "a"},
		fakeNode{id: "a"},
	})
	if err == nil {
		t.Fatal("Build() with duplicate IDs should fail")
	}
}

func TestBuildUnknownDependency(t *testing.T) {
	g := New()
	err := g.Build([]Node{
		fakeNode{id: "a", deps: []string{"ghost"}},
	})
	if err == nil {
		t.Fatal("Build() with unknown dependency should fail")
	}

	var unknownErr *UnknownDependencyError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Build() error = %T, want *UnknownDependencyError", err)
	}
	if unknownErr.HookID != "a" || unknownErr.DependencyID != "ghost" {
		t.Errorf("UnknownDependencyError = %+v, want hook a -> ghost", unknownErr)
	}
}

func TestBuildDetectsCycles(t *testing.T) {
	tests := []struct {
		name  string
		spec  map[string][]string
		order []string
	}{
		{
			name:  "self loop",
			spec:  map[string][]string{"a": {"a"}},
			order: []string{"a"},
		},
		{
			name:  "two node cycle",
			spec:  map[string][]string{"a": {"b"}, "b": {"a"}},
			order: []string{"a", "b"},
		},
		{
			name: "cycle behind a chain",
			spec: map[string][]string{
				"a": nil,
				"b": {"a", "d"},
				"c": {"b"},
				"d": {"c"},
			},
			order: []string{"a", "b", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			err := g.Build(nodesFrom(tt.spec, tt.order))
			if err == nil {
				t.Fatal("Build() should detect the cycle")
			}
			if !errors.Is(err, ErrCycleDetected) {
				t.Errorf("errors.Is(err, ErrCycleDetected) = false, err = %v", err)
			}

			var cycleErr *CyclicDependencyError
			if !errors.As(err, &cycleErr) {
				t.Fatalf("Build() error = %T, want *CyclicDependencyError", err)
			}
			if len(cycleErr.Cycle) < 2 {
				t.Fatalf("Cycle = %v, want at least two entries", cycleErr.Cycle)
			}
			if first, last := cycleErr.Cycle[0], cycleErr.Cycle[len(cycleErr.Cycle)-1]; first != last {
				t.Errorf("cycle should close on itself: first %s, last %s", first, last)
			}
		})
	}
}

func TestCycleErrorNamesTheCycle(t *testing.T) {
	g := New()
	err := g.Build(nodesFrom(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}, []string{"a", "b", "c"}))

	var cycleErr *CyclicDependencyError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Build() error = %v, want *CyclicDependencyError", err)
	}
	want := []string{"a", "b", "c", "a"}
	if !reflect.DeepEqual(cycleErr.Cycle, want) {
		t.Errorf("Cycle = %v, want %v", cycleErr.Cycle, want)
	}
}

func TestHasCycle(t *testing.T) {
	acyclic := New()
	if err := acyclic.Build(nodesFrom(map[string][]string{
		"a": nil,
		"b": {"a"},
	}, []string{"a", "b"})); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if acyclic.HasCycle() {
		t.Error("HasCycle() = true for an acyclic graph")
	}
}
