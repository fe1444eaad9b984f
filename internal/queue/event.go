// Package queue defines the auth audit events exchanged over RabbitMQ and
// the consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// AuthEventsQueue is the durable queue carrying AuthEvent messages.
const AuthEventsQueue = "auth.events"

type EventType string

const (
	EventRegistered  EventType = "REGISTERED"
	EventLogin       EventType = "LOGIN"
	EventLoginFailed EventType = "LOGIN_FAILED"
	EventRefreshed   EventType = "REFRESHED"
	EventLogout      EventType = "LOGOUT"
	EventSignedOut   EventType = "SIGNED_OUT"
)

// AuthEvent is published after every state-changing authentication call.
// Actor is the caller when it differs from Email (forced sign-out, admin
// registration).
type AuthEvent struct {
	ID    string    `json:"id"`
	Type  EventType `json:"type"`
	Email string    `json:"email"`
	Actor string    `json:"actor,omitempty"`
	At    time.Time `json:"at"`
}

func NewAuthEvent(typ EventType, email, actor string) AuthEvent {
	return AuthEvent{
		ID:    uuid.NewString(),
		Type:  typ,
		Email: email,
		Actor: actor,
		At:    time.Now().UTC(),
	}
}
