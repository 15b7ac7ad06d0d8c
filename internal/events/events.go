package events

import (
	"context"
	"time"
)

const (
	TypeSignedIn             = "signed_in"
	TypeSignInRejected       = "sign_in_rejected"
	TypeSessionRefreshed     = "session_refreshed"
	TypeSessionRefreshFailed = "session_refresh_failed"
	TypeSignedOut            = "signed_out"
)

type Event struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id,omitempty"`
	Email    string    `json:"email,omitempty"`
	Provider string    `json:"provider,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// Key is the partition key: the user id when known, else the email.
func (e Event) Key() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.Email
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
