// Package events publishes call outcome events.
package events

import (
	"context"
	"time"
)

// CallEvent records how a call ended
type CallEvent struct {
	CallSID    string    `json:"call_sid"`
	From       string    `json:"from,omitempty"`
	Branch     string    `json:"branch,omitempty"`
	Outcome    string    `json:"outcome"`
	PIN        string    `json:"pin,omitempty"`
	Turns      int       `json:"turns,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends call events to a sink
type Publisher interface {
	Publish(ctx context.Context, event CallEvent) error
	Close() error
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, CallEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
