// Package realtime publishes record-change events so clients can
// refresh their lists. Delivery is best effort; the workflow never
// depends on it for correctness.
package realtime

import "context"

// ChangeKind names what happened to an entity
type ChangeKind string

const (
	ChangeCreated      ChangeKind = "created"
	ChangeUpdated      ChangeKind = "updated"
	ChangeStageChanged ChangeKind = "stage_changed"
	ChangeAwarded      ChangeKind = "awarded"
	ChangeResolved     ChangeKind = "resolved"
)

// Event is one record-change notification
type Event struct {
	EntityType string     `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	ChangeKind ChangeKind `json:"change_kind"`
}

// Publisher delivers record-change events
type Publisher interface {
	// Publish sends one event. Fire-and-forget: errors are for the
	// caller to log, never to fail a transition on.
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards all events, used in tests
type NopPublisher struct{}

// Publish discards the event
func (NopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}
