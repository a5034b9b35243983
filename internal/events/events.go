// Package events publishes financial facts after they commit. Delivery is
// best effort: the database stays the source of truth.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	TypeReceiptRecorded  = "receipt.recorded"
	TypeReceiptRejected  = "receipt.rejected"
	TypeRegisterOpened   = "cash_register.opened"
	TypeRegisterClosed   = "cash_register.closed"
	TypePatientAdmitted  = "admission.admitted"
	TypeAdmissionBlocked = "admission.blocked"
)

type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ClinicID   string         `json:"clinic_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func New(eventType, clinicID string, at time.Time, payload map[string]any) Event {
	return Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		ClinicID:   clinicID,
		OccurredAt: at.UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of every recorded event in publish order.
func (r *Recorder) Types() []string {
	events := r.Events()
	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	return types
}
