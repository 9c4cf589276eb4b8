package workflow

import "context"

// StateMachine tracks the current state of one entity and validates
// transitions against the machine's configuration.
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// Peek returns the state the machine would land in if the trigger
	// fired now, without mutating the machine
	Peek(ctx context.Context, trigger Trigger) (State, error)

	// PermittedTriggers returns all triggers that can be fired in the current state
	PermittedTriggers() []Trigger
}
