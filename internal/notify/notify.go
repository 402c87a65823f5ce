// Package notify delivers persisted notifications to connected clients.
// Delivery is best-effort: a recipient without an open connection simply
// reads the notification later from the store.
package notify

import (
	"context"
	"encoding/json"
	"time"
)

// Message is the live representation of one persisted notification
type Message struct {
	ID        uint64          `json:"id"`
	UserID    uint64          `json:"user_id"`
	TeamID    uint64          `json:"team_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Broadcaster pushes a message towards its recipient
type Broadcaster interface {
	Publish(ctx context.Context, msg Message) error
}

// Noop drops every message
type Noop struct{}

// Publish implements Broadcaster
func (Noop) Publish(context.Context, Message) error {
	return nil
}
