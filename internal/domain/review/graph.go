package review

import (
	"fmt"
)

// GuardFunc decides whether a guarded edge may be taken for the given state
type GuardFunc func(st State) bool

// GraphBuilder declares the permitted phase transitions
type GraphBuilder interface {
	// Configure returns the edge configuration for a source phase
	Configure(from Phase) PhaseConfiguration

	// Build freezes the declared edges into an immutable Graph
	Build() Graph
}

// PhaseConfiguration declares outgoing edges of one phase
type PhaseConfiguration interface {
	// Permit allows a trigger to move to the target phase
	Permit(trigger Trigger, to Phase) PhaseConfiguration

	// PermitIf allows a trigger to move to the target phase when guard passes
	PermitIf(trigger Trigger, to Phase, guard GuardFunc) PhaseConfiguration
}

// Graph resolves transitions without holding any current phase itself,
// so one Graph serves every workflow state.
type Graph interface {
	// Resolve returns the phase reached by firing trigger from st.Phase
	Resolve(st State, trigger Trigger) (Phase, error)

	// PermittedTriggers lists the triggers with at least one edge from phase
	PermittedTriggers(from Phase) []Trigger
}

type edge struct {
	to    Phase
	guard GuardFunc
}

type phaseConfig struct {
	from  Phase
	edges map[Trigger][]edge
}

type graphBuilder struct {
	configs map[Phase]*phaseConfig
}

type graph struct {
	configs map[Phase]map[Trigger][]edge
}

// NewGraphBuilder creates an empty builder
func NewGraphBuilder() GraphBuilder {
	return &graphBuilder{configs: make(map[Phase]*phaseConfig)}
}

func (b *graphBuilder) Configure(from Phase) PhaseConfiguration {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid phase: %s", from))
	}

	cfg, ok := b.configs[from]
	if !ok {
		cfg = &phaseConfig{from: from, edges: make(map[Trigger][]edge)}
		b.configs[from] = cfg
	}
	return cfg
}

func (b *graphBuilder) Build() Graph {
	frozen := make(map[Phase]map[Trigger][]edge, len(b.configs))
	for from, cfg := range b.configs {
		edges := make(map[Trigger][]edge, len(cfg.edges))
		for trig, es := range cfg.edges {
			edges[trig] = append([]edge{}, es...)
		}
		frozen[from] = edges
	}
	return &graph{configs: frozen}
}

func (c *phaseConfig) Permit(trigger Trigger, to Phase) PhaseConfiguration {
	return c.PermitIf(trigger, to, nil)
}

func (c *phaseConfig) PermitIf(trigger Trigger, to Phase, guard GuardFunc) PhaseConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target phase: %s", to))
	}
	c.edges[trigger] = append(c.edges[trigger], edge{to: to, guard: guard})
	return c
}

func (g *graph) Resolve(st State, trigger Trigger) (Phase, error) {
	edges := g.configs[st.Phase][trigger]
	if len(edges) == 0 {
		return st.Phase, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, st.Phase)
	}

	// first passing edge wins
	for _, e := range edges {
		if e.guard == nil || e.guard(st) {
			return e.to, nil
		}
	}
	return st.Phase, fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, st.Phase)
}

func (g *graph) PermittedTriggers(from Phase) []Trigger {
	edges := g.configs[from]
	triggers := make([]Trigger, 0, len(edges))
	for trig := range edges {
		triggers = append(triggers, trig)
	}
	return triggers
}
