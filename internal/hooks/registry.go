package hooks

import (
	"fmt"
	"sort"
	"sync"
)

// Registration couples a hook with the metadata the registry uses to
// select and order it.
type Registration struct {
	// Hook is the registered implementation.
	Hook Hook
	// Triggers lists the pipeline points this hook applies to.
	Triggers []Trigger
	// Tags are free-form labels used for filtering and scoring.
	Tags []string
	// Priority is a tie-break ordering hint among otherwise-independent
	// hooks. It is not a dependency; declared dependencies always take
	// precedence when the graph is constructed.
	Priority int
}

// HasTag returns true if the registration carries the given tag.
func (r *Registration) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Filter narrows the hook set returned by HooksFor.
type Filter struct {
	// Tags, if non-empty, keeps only hooks carrying at least one of these tags.
	Tags []string
	// ExcludeIDs removes specific hooks by ID.
	ExcludeIDs []string
}

// Profile describes a pipeline's characteristics for relevance scoring.
type Profile struct {
	// Complexity is one of "simple", "moderate", "complex".
	Complexity string
	// PreferredHooks boosts specific hooks by ID.
	PreferredHooks []string
	// ExcludedHooks removes specific hooks by ID.
	ExcludedHooks []string
}

// Registry is a catalogue of known hook implementations keyed by trigger.
// It is explicitly constructed and passed to whichever component assembles
// a pipeline; there is no ambient global registry.
type Registry struct {
	mu         sync.RWMutex
	byID       map[string]*Registration
	byTrigger  map[Trigger][]*Registration
	registered int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:      make(map[string]*Registration),
		byTrigger: make(map[Trigger][]*Registration),
	}
}

// Register adds a hook to the catalogue for the given triggers.
// Hook IDs must be unique; re-registering an ID is an error.
func (r *Registry) Register(h Hook, triggers []Trigger, tags []string, priority int) error {
	if h == nil {
		return fmt.Errorf("register: nil hook")
	}
	if h.ID() == "" {
		return fmt.Errorf("register: hook has empty ID")
	}
	for _, t := range triggers {
		if !t.Valid() {
			return fmt.Errorf("register %s: unknown trigger %q", h.ID(), t)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[h.ID()]; exists {
		return fmt.Errorf("register: hook %s already registered", h.ID())
	}

	reg := &Registration{
		Hook:     h,
		Triggers: triggers,
		Tags:     tags,
		Priority: priority,
	}
	r.byID[h.ID()] = reg
	for _, t := range triggers {
		r.byTrigger[t] = append(r.byTrigger[t], reg)
	}
	r.registered++
	return nil
}

// Get returns the registration for a hook ID, or nil if unknown.
func (r *Registry) Get(id string) *Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// Size returns the number of registered hooks.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registered
}

// All returns every registration, ordered by priority then ID.
func (r *Registry) All() []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := make([]*Registration, 0, len(r.byID))
	for _, reg := range r.byID {
		regs = append(regs, reg)
	}
	sortRegistrations(regs)
	return regs
}

// HooksFor returns the hooks applicable at a trigger, filtered and ordered
// by priority (descending) with hook ID as the final tie-break.
func (r *Registry) HooksFor(trigger Trigger, filter Filter) []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	excluded := make(map[string]bool, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}

	var regs []*Registration
	for _, reg := range r.byTrigger[trigger] {
		if excluded[reg.Hook.ID()] {
			continue
		}
		if len(filter.Tags) > 0 {
			matched := false
			for _, tag := range filter.Tags {
				if reg.HasTag(tag) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		regs = append(regs, reg)
	}

	sortRegistrations(regs)

	hooks := make([]Hook, len(regs))
	for i, reg := range regs {
		hooks[i] = reg.Hook
	}
	return hooks
}

// SelectFor assembles the hook set for a trigger ranked by relevance to the
// given pipeline profile. Excluded hooks are removed outright; the rest are
// ordered by score (descending), then priority, then ID.
func (r *Registry) SelectFor(trigger Trigger, profile Profile) []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	excluded := make(map[string]bool, len(profile.ExcludedHooks))
	for _, id := range profile.ExcludedHooks {
		excluded[id] = true
	}

	type scored struct {
		reg   *Registration
		score int
	}
	var candidates []scored
	for _, reg := range r.byTrigger[trigger] {
		if excluded[reg.Hook.ID()] {
			continue
		}
		candidates = append(candidates, scored{reg, r.score(reg, profile)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].reg.Priority != candidates[j].reg.Priority {
			return candidates[i].reg.Priority > candidates[j].reg.Priority
		}
		return candidates[i].reg.Hook.ID() < candidates[j].reg.Hook.ID()
	})

	hooks := make([]Hook, len(candidates))
	for i, c := range candidates {
		hooks[i] = c.reg.Hook
	}
	return hooks
}

// score ranks a registration's relevance to a pipeline profile.
func (r *Registry) score(reg *Registration, profile Profile) int {
	score := reg.Priority

	for _, id := range profile.PreferredHooks {
		if id == reg.Hook.ID() {
			score += 100
			break
		}
	}

	// Heavy hooks are a poor fit for simple pipelines; lightweight hooks
	// matter less on complex ones.
	switch profile.Complexity {
	case "simple":
		if reg.HasTag("heavy") {
			score -= 50
		}
	case "complex":
		if reg.HasTag("heavy") {
			score += 25
		}
	}

	return score
}

func sortRegistrations(regs []*Registration) {
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].Priority != regs[j].Priority {
			return regs[i].Priority > regs[j].Priority
		}
		return regs[i].Hook.ID() < regs[j].Hook.ID()
	})
}
