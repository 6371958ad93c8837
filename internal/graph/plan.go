package graph

import "fmt"

// DefaultOverwhelmThreshold is the default maximum number of hooks per stage
// before the overwhelm-limiting pass subdivides it.
const DefaultOverwhelmThreshold = 5

// Stage is one step of an execution plan: a set of hooks with no dependency
// edges among them, safe to run together.
type Stage struct {
	// Hooks lists the hook IDs in this stage, in deterministic order.
	Hooks []string
	// Parallel indicates the scheduler chose to run this stage concurrently.
	// Single-hook stages are always sequential.
	Parallel bool
}

// ExecutionPlan is the ordered sequence of stages produced by resolving a
// dependency graph. For every hook, all of its dependencies appear in
// strictly earlier stages. The plan is immutable once built.
type ExecutionPlan struct {
	Stages []Stage
}

// HookCount returns the total number of hooks across all stages.
func (p *ExecutionPlan) HookCount() int {
	n := 0
	for _, s := range p.Stages {
		n += len(s.Hooks)
	}
	return n
}

// StageOf returns the stage index containing the given hook, or -1.
func (p *ExecutionPlan) StageOf(hookID string) int {
	for i, s := range p.Stages {
		for _, id := range s.Hooks {
			if id == hookID {
				return i
			}
		}
	}
	return -1
}

// HookIDs returns every hook ID in plan order.
func (p *ExecutionPlan) HookIDs() []string {
	ids := make([]string, 0, p.HookCount())
	for _, s := range p.Stages {
		ids = append(ids, s.Hooks...)
	}
	return ids
}

// Resolve produces an execution plan from the graph via topological
// leveling: repeatedly collect every hook whose dependencies have all been
// placed into earlier stages. Hooks in the same level are mutually
// independent by construction, so multi-hook stages are marked parallel.
// A stage larger than overwhelmThreshold is split into consecutive
// sub-stages of at most that size, preserving relative order; the split
// only subdivides, never reorders across dependency boundaries. Resolution
// is deterministic: the same input always yields the same staging.
func Resolve(g *DependencyGraph, overwhelmThreshold int) (*ExecutionPlan, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if overwhelmThreshold <= 0 {
		overwhelmThreshold = DefaultOverwhelmThreshold
	}

	// Compute remaining in-degree per node (number of unplaced dependencies).
	indegree := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		indegree[id] = len(g.edges[id])
	}
	// Reverse edges: dependency -> dependents, for decrementing.
	dependents := make(map[string][]string, len(g.nodes))
	for _, id := range g.order {
		for _, depID := range g.edges[id] {
			dependents[depID] = append(dependents[depID], id)
		}
	}

	plan := &ExecutionPlan{}
	placed := 0
	inLevel := make(map[string]bool, len(g.nodes))

	for placed < len(g.order) {
		// Collect all nodes with in-degree zero, in registration order.
		var level []string
		for _, id := range g.order {
			if !inLevel[id] && indegree[id] == 0 {
				level = append(level, id)
			}
		}
		if len(level) == 0 {
			// No zero-in-degree node while nodes remain: a cycle. Name it.
			if cycle := g.findCycleLocked(); cycle != nil {
				return nil, &CyclicDependencyError{Cycle: cycle}
			}
			return nil, fmt.Errorf("%w: unresolvable hooks remain", ErrCycleDetected)
		}

		for _, id := range level {
			inLevel[id] = true
			for _, dep := range dependents[id] {
				indegree[dep]--
			}
		}
		placed += len(level)

		plan.Stages = append(plan.Stages, splitOverwhelmed(level, overwhelmThreshold)...)
	}

	return plan, nil
}

// splitOverwhelmed subdivides one topological level into stages of at most
// threshold hooks. Sub-stages after a split stay parallel when they still
// hold more than one hook; the hooks remain mutually independent.
func splitOverwhelmed(level []string, threshold int) []Stage {
	var stages []Stage
	for len(level) > 0 {
		n := len(level)
		if n > threshold {
			n = threshold
		}
		chunk := level[:n]
		level = level[n:]
		stages = append(stages, Stage{
			Hooks:    chunk,
			Parallel: len(chunk) > 1,
		})
	}
	return stages
}
