package workflow

import (
	"context"
	"errors"
	"testing"
)

const (
	stateDraft     State = "DRAFT"
	stateOpen      State = "OPEN"
	stateAwarded   State = "AWARDED"
	stateDone      State = "DONE"
	stateUnrelated State = "UNRELATED"
)

const (
	triggerOpen  Trigger = "OPEN"
	triggerAward Trigger = "AWARD"
	triggerClose Trigger = "CLOSE"
)

func newTestBuilder() StateMachineBuilder {
	return NewBuilder(stateDraft, stateOpen, stateAwarded, stateDone)
}

func TestState_String(t *testing.T) {
	if got := stateDraft.String(); got != "DRAFT" {
		t.Errorf("State.String() = %v, want %v", got, "DRAFT")
	}
}

func TestTrigger_String(t *testing.T) {
	if got := triggerOpen.String(); got != "OPEN" {
		t.Errorf("Trigger.String() = %v, want %v", got, "OPEN")
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := newTestBuilder()

	config := builder.Configure(stateDraft)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	// Configure same state again should return same config
	config2 := builder.Configure(stateDraft)
	if config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnUnknownState(t *testing.T) {
	builder := newTestBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on a state outside the machine's set")
		}
	}()

	builder.Configure(stateUnrelated)
}

func TestBuilder_BuildPanicsOnUnknownInitialState(t *testing.T) {
	builder := newTestBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on a state outside the machine's set")
		}
	}()

	builder.Build(stateUnrelated)
}

func TestStateConfiguration_Permit(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).
		Permit(triggerOpen, stateOpen)

	machine := builder.Build(stateDraft)

	if !machine.CanFire(triggerOpen) {
		t.Error("CanFire() should return true for permitted trigger")
	}
	if machine.CanFire(triggerAward) {
		t.Error("CanFire() should return false for unconfigured trigger")
	}
}

func TestStateMachine_Fire(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).Permit(triggerOpen, stateOpen)
	builder.Configure(stateOpen).Permit(triggerAward, stateAwarded)
	builder.Configure(stateAwarded).Permit(triggerClose, stateDone)

	machine := builder.Build(stateDraft)
	ctx := context.Background()

	steps := []struct {
		trigger Trigger
		want    State
	}{
		{triggerOpen, stateOpen},
		{triggerAward, stateAwarded},
		{triggerClose, stateDone},
	}

	for _, step := range steps {
		if err := machine.Fire(ctx, step.trigger); err != nil {
			t.Fatalf("Fire(%s) error = %v", step.trigger, err)
		}
		if machine.State() != step.want {
			t.Errorf("State() = %v, want %v", machine.State(), step.want)
		}
	}
}

func TestStateMachine_FireRejectsIllegalTransition(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).Permit(triggerOpen, stateOpen)

	machine := builder.Build(stateDraft)

	err := machine.Fire(context.Background(), triggerAward)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want ErrInvalidTransition", err)
	}
	if machine.State() != stateDraft {
		t.Errorf("State() = %v, want unchanged %v", machine.State(), stateDraft)
	}
}

func TestStateMachine_FireNoBackwardPath(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).Permit(triggerOpen, stateOpen)
	builder.Configure(stateOpen).Permit(triggerAward, stateAwarded)

	machine := builder.Build(stateOpen)
	ctx := context.Background()

	if err := machine.Fire(ctx, triggerAward); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}

	// Once awarded there is no trigger leading back to open
	if err := machine.Fire(ctx, triggerOpen); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want ErrInvalidTransition", err)
	}
}

func TestStateMachine_PermitIfGuard(t *testing.T) {
	allow := false

	builder := newTestBuilder()
	builder.Configure(stateDraft).
		PermitIf(triggerOpen, stateOpen, func(ctx context.Context) bool { return allow })

	machine := builder.Build(stateDraft)
	ctx := context.Background()

	if err := machine.Fire(ctx, triggerOpen); !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want ErrGuardFailed", err)
	}

	allow = true
	if err := machine.Fire(ctx, triggerOpen); err != nil {
		t.Errorf("Fire() error = %v, want nil after guard passes", err)
	}
	if machine.State() != stateOpen {
		t.Errorf("State() = %v, want %v", machine.State(), stateOpen)
	}
}

func TestStateMachine_Peek(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).Permit(triggerOpen, stateOpen)

	machine := builder.Build(stateDraft)

	next, err := machine.Peek(context.Background(), triggerOpen)
	if err != nil {
		t.Fatalf("Peek() error = %v", err)
	}
	if next != stateOpen {
		t.Errorf("Peek() = %v, want %v", next, stateOpen)
	}
	if machine.State() != stateDraft {
		t.Errorf("Peek() must not mutate state, got %v", machine.State())
	}
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).
		Permit(triggerOpen, stateOpen).
		Permit(triggerClose, stateDone)

	machine := builder.Build(stateDraft)

	triggers := machine.PermittedTriggers()
	if len(triggers) != 2 {
		t.Fatalf("PermittedTriggers() returned %d triggers, want 2", len(triggers))
	}

	seen := map[Trigger]bool{}
	for _, tr := range triggers {
		seen[tr] = true
	}
	if !seen[triggerOpen] || !seen[triggerClose] {
		t.Errorf("PermittedTriggers() = %v, want open and close", triggers)
	}
}

func TestStateMachine_BuildIsolation(t *testing.T) {
	builder := newTestBuilder()
	builder.Configure(stateDraft).Permit(triggerOpen, stateOpen)

	m1 := builder.Build(stateDraft)
	m2 := builder.Build(stateDraft)

	if err := m1.Fire(context.Background(), triggerOpen); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}

	if m2.State() != stateDraft {
		t.Errorf("machines built from the same builder must not share state, got %v", m2.State())
	}
}
