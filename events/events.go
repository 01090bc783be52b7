// Package events carries account lifecycle notifications to other services.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	AccountCreated     Type = "account.created"
	AccountUpdated     Type = "account.updated"
	AccountSoftDeleted Type = "account.soft_deleted"
	AccountRestored    Type = "account.restored"
	AccountHardDeleted Type = "account.hard_deleted"
)

// Event is published after the change it describes has committed.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	AccountID  string    `json:"account_id"`
	Role       string    `json:"role,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func New(t Type, accountID, role string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		AccountID:  accountID,
		Role:       role,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
