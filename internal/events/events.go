// Package events describes ledger change notifications and the publisher
// contract used to ship them.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmynk/evenly/internal/models"
)

// Type names a ledger change.
type Type string

const (
	PersonAdded           Type = "person.added"
	ReceiptSaved          Type = "receipt.saved"
	ReceiptDeleted        Type = "receipt.deleted"
	SettlementsCalculated Type = "settlements.calculated"
)

// Event is a lightweight message; consumers fetch full state through the API.
type Event struct {
	Type        Type                `json:"type"`
	PersonID    string              `json:"personId,omitempty"`
	ReceiptID   string              `json:"receiptId,omitempty"`
	Settlements []models.Settlement `json:"settlements,omitempty"`
	OccurredAt  time.Time           `json:"occurredAt"`
}

// New creates an event of the given type stamped with the current time.
func New(t Type) Event {
	return Event{Type: t, OccurredAt: time.Now().UTC()}
}

// ToJSON converts the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event from JSON bytes.
func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Publisher ships events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
