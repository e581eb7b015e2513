// Package notify carries domain events out of the services after commit.
// Services depend on the Notifier interface only; the websocket hub and the
// Redis publisher are the concrete sinks, combined with Multi.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is the message delivered to branch subscribers.
type Event struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent marshals payload into an Event of the given type.
func NewEvent(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: data, OccurredAt: time.Now().UTC()}, nil
}

// DeliveryTicket is what the kitchen printer and courier apps need when a
// delivery order is ready to leave.
type DeliveryTicket struct {
	OrderID         uuid.UUID       `json:"order_id"`
	BranchID        uuid.UUID       `json:"branch_id"`
	OrderNumber     string          `json:"order_number"`
	CustomerName    string          `json:"customer_name,omitempty"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	Total           decimal.Decimal `json:"total"`
	ReadyAt         time.Time       `json:"ready_at"`
}

// Notifier delivers events. Implementations must be safe for concurrent use.
type Notifier interface {
	Publish(ctx context.Context, branchID uuid.UUID, ev Event) error
	DeliveryReady(ctx context.Context, ticket DeliveryTicket) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(context.Context, uuid.UUID, Event) error     { return nil }
func (Nop) DeliveryReady(context.Context, DeliveryTicket) error { return nil }

// Multi fans out to every notifier and joins their errors. A failing sink
// does not stop the others.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, branchID uuid.UUID, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Publish(ctx, branchID, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) DeliveryReady(ctx context.Context, ticket DeliveryTicket) error {
	var errs []error
	for _, n := range m {
		if err := n.DeliveryReady(ctx, ticket); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
