package review

import (
	"errors"
	"slices"
	"testing"
)

func TestPhase_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		phase Phase
		want  bool
	}{
		{"idle", PhaseIdle, true},
		{"extracting", PhaseExtracting, true},
		{"reviewing", PhaseReviewing, true},
		{"unknown", Phase("SAVING"), false},
		{"empty", Phase(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.phase.IsValid(); got != tt.want {
				t.Errorf("Phase.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGraphBuilder_ConfigurePanicsOnInvalidPhase(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid phase")
		}
	}()

	NewGraphBuilder().Configure(Phase("BOGUS"))
}

func TestGraphBuilder_PermitPanicsOnInvalidTarget(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid target phase")
		}
	}()

	NewGraphBuilder().Configure(PhaseIdle).Permit(TriggerSelectFile, Phase("BOGUS"))
}

func TestGraph_Resolve(t *testing.T) {
	b := NewGraphBuilder()
	b.Configure(PhaseIdle).Permit(TriggerSelectFile, PhaseExtracting)
	g := b.Build()

	got, err := g.Resolve(State{Phase: PhaseIdle}, TriggerSelectFile)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got != PhaseExtracting {
		t.Errorf("Resolve() = %v, want %v", got, PhaseExtracting)
	}

	got, err = g.Resolve(State{Phase: PhaseIdle}, TriggerSave)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Resolve() error = %v, want %v", err, ErrInvalidTransition)
	}
	if got != PhaseIdle {
		t.Errorf("Resolve() on failure = %v, want unchanged %v", got, PhaseIdle)
	}
}

func TestGraph_ResolveGuards(t *testing.T) {
	b := NewGraphBuilder()
	b.Configure(PhaseReviewing).
		PermitIf(TriggerSave, PhaseIdle, func(st State) bool { return st.Ticket > 5 }).
		PermitIf(TriggerSave, PhaseReviewing, func(st State) bool { return st.Ticket == 1 })
	g := b.Build()

	tests := []struct {
		name    string
		ticket  uint64
		want    Phase
		wantErr error
	}{
		{"first guard passes", 9, PhaseIdle, nil},
		{"second guard passes", 1, PhaseReviewing, nil},
		{"no guard passes", 3, PhaseReviewing, ErrGuardFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Resolve(State{Phase: PhaseReviewing, Ticket: tt.ticket}, TriggerSave)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGraph_BuildIsolatesFurtherConfiguration(t *testing.T) {
	b := NewGraphBuilder()
	b.Configure(PhaseIdle).Permit(TriggerSelectFile, PhaseExtracting)
	g := b.Build()

	b.Configure(PhaseIdle).Permit(TriggerStartManual, PhaseReviewing)

	if got := g.PermittedTriggers(PhaseIdle); len(got) != 1 || got[0] != TriggerSelectFile {
		t.Errorf("PermittedTriggers(Idle) = %v, graph built earlier must not see later configuration", got)
	}
}

func TestWorkflowGraph_PermittedTriggers(t *testing.T) {
	g := NewWorkflow("FinNexus").Graph()

	tests := []struct {
		phase Phase
		want  []Trigger
	}{
		{PhaseIdle, []Trigger{TriggerSelectFile, TriggerStartManual}},
		{PhaseExtracting, []Trigger{TriggerExtractionSucceeded, TriggerExtractionFailed, TriggerCancel}},
		{PhaseReviewing, []Trigger{TriggerEdit, TriggerCancel, TriggerSave}},
	}

	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			got := g.PermittedTriggers(tt.phase)
			if len(got) != len(tt.want) {
				t.Fatalf("PermittedTriggers() = %v, want %v", got, tt.want)
			}
			for _, trig := range tt.want {
				if !slices.Contains(got, trig) {
					t.Errorf("PermittedTriggers(%v) = %v, missing %v", tt.phase, got, trig)
				}
			}
		})
	}
}
