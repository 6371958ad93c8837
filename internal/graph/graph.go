// Package graph provides the hook dependency graph and resolves it into a
// staged execution plan.
package graph

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrCycleDetected indicates a circular dependency was found in the hook graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// Node is the minimal contract the graph needs from a hook: identity and
// declared dependencies.
type Node interface {
	ID() string
	Dependencies() []string
}

// CyclicDependencyError is a fatal configuration error naming the offending
// cycle. It is raised before any hook executes and is never retried.
type CyclicDependencyError struct {
	// Cycle lists the hook IDs forming the cycle, in dependency order,
	// with the first ID repeated at the end.
	Cycle []string
}

// Error implements error.
func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap allows errors.Is(err, ErrCycleDetected).
func (e *CyclicDependencyError) Unwrap() error { return ErrCycleDetected }

// UnknownDependencyError is a fatal configuration error: a hook declared a
// dependency on an ID that was never registered for this run.
type UnknownDependencyError struct {
	HookID       string
	DependencyID string
}

// Error implements error.
func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("hook %s depends on unknown hook %s", e.HookID, e.DependencyID)
}

// DependencyGraph is a directed acyclic graph over hooks. Edges point from a
// hook to the hooks it depends on ("must precede" relationships). The graph
// is immutable once built for a run and freely shared for reads.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps hook ID to the hook itself.
	nodes map[string]Node
	// edges maps hook ID to the IDs of hooks it depends on.
	edges map[string][]string
	// order preserves registration order so staging is deterministic.
	order []string
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]Node),
		edges: make(map[string][]string),
	}
}

// Build constructs the graph from a slice of hooks. It fails with
// UnknownDependencyError if a dependency references an unregistered hook
// and with CyclicDependencyError if the graph contains a cycle. Both are
// configuration errors detected before any hook runs.
func (g *DependencyGraph) Build(nodes []Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	// First pass: register all hooks as nodes.
	for _, n := range nodes {
		id := n.ID()
		if _, exists := g.nodes[id]; exists {
			return fmt.Errorf("duplicate hook id %s", id)
		}
		g.nodes[id] = n
		g.edges[id] = nil
		g.order = append(g.order, id)
	}

	// Second pass: build edges from declared dependencies.
	for _, n := range nodes {
		for _, depID := range n.Dependencies() {
			if _, exists := g.nodes[depID]; !exists {
				return &UnknownDependencyError{HookID: n.ID(), DependencyID: depID}
			}
			g.edges[n.ID()] = append(g.edges[n.ID()], depID)
		}
	}

	if cycle := g.findCycleLocked(); cycle != nil {
		return &CyclicDependencyError{Cycle: cycle}
	}
	return nil
}

// HasCycle returns true if the graph contains a circular dependency.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.findCycleLocked() != nil
}

// findCycleLocked runs a three-color depth-first search and returns the
// node IDs of the first cycle found, or nil. A back-edge to a gray node
// closes a cycle. Caller must hold the lock.
func (g *DependencyGraph) findCycleLocked() []string {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		colors[id] = 1
		stack = append(stack, id)

		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				// Back edge: the cycle is the stack suffix from depID onward.
				for i, sid := range stack {
					if sid == depID {
						cycle := append([]string{}, stack[i:]...)
						return append(cycle, depID)
					}
				}
			case 0:
				if cycle := visit(depID); cycle != nil {
					return cycle
				}
			}
		}

		colors[id] = 2
		stack = stack[:len(stack)-1]
		return nil
	}

	for _, id := range g.order {
		if colors[id] == 0 {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Node returns the hook for a given ID, or nil if not found.
func (g *DependencyGraph) Node(id string) Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// Size returns the number of hooks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the IDs of hooks the given hook depends on.
func (g *DependencyGraph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[id]
}

// Dependents returns the IDs of hooks that depend on the given hook,
// in registration order.
func (g *DependencyGraph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, candidate := range g.order {
		for _, depID := range g.edges[candidate] {
			if depID == id {
				dependents = append(dependents, candidate)
				break
			}
		}
	}
	return dependents
}
