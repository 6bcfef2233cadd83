// Package connection manages the bank connection lifecycle: starting the
// hosted bank-link flow, handling the provider callback, token refresh and
// disconnection.
package connection

import (
	"context"
	"time"
)

// Status values for a bank connection.
type Status string

const (
	StatusPending      Status = "pending"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
	StatusDisconnected Status = "disconnected"
)

// validTransitions encodes the connection state machine. There is no way out
// of disconnected; a new link attempt creates a new connection.
var validTransitions = map[Status][]Status{
	StatusPending:      {StatusConnected, StatusError},
	StatusConnected:    {StatusDisconnected, StatusError},
	StatusError:        {StatusPending},
	StatusDisconnected: {},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Connection represents one user consent grant to the aggregation provider
// for one bank relationship. Token fields hold ciphertext, never plaintext.
type Connection struct {
	ID                    string     `json:"id"`
	Provider              string     `json:"provider"`
	ProviderID            string     `json:"providerId"`
	Status                Status     `json:"status"`
	AccessTokenEncrypted  *string    `json:"-"`
	RefreshTokenEncrypted *string    `json:"-"`
	TokenExpiresAt        *time.Time `json:"tokenExpiresAt,omitempty"`
	LastSyncAt            *time.Time `json:"lastSyncAt,omitempty"`
	ErrorMessage          *string    `json:"errorMessage,omitempty"`
	Market                string     `json:"market"`
	TestMode              bool       `json:"testMode"`
	InitiatedAt           time.Time  `json:"initiatedAt"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// TokenExpired reports whether the access token has expired, with a safety
// margin so a token about to lapse mid-sync counts as expired.
func (c *Connection) TokenExpired(now time.Time) bool {
	if c.TokenExpiresAt == nil {
		return true
	}
	return !now.Add(time.Minute).Before(*c.TokenExpiresAt)
}

// CreateParams contains parameters for creating a pending connection row.
type CreateParams struct {
	ID          string
	Provider    string
	ProviderID  string
	Market      string
	TestMode    bool
	InitiatedAt time.Time
}

// TokenParams carries encrypted tokens for the connected transition.
type TokenParams struct {
	AccessTokenEncrypted  string
	RefreshTokenEncrypted string
	ExpiresAt             time.Time
}

// Repository defines persistence operations for bank connections.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Connection, error)
	GetByID(ctx context.Context, id string) (*Connection, error)
	ListByStatus(ctx context.Context, status Status) ([]*Connection, error)
	// SetConnected stores tokens and moves the row to connected in one update.
	SetConnected(ctx context.Context, id string, tokens TokenParams) error
	// SetError moves the row to error, recording the reason.
	SetError(ctx context.Context, id, message string) error
	// SetPending re-arms an errored connection for a retry.
	SetPending(ctx context.Context, id string) error
	// UpdateTokens replaces tokens after a refresh without touching status.
	UpdateTokens(ctx context.Context, id string, tokens TokenParams) error
	UpdateLastSyncAt(ctx context.Context, id string, at time.Time) error
	// Disconnect atomically nulls tokens, marks the connection disconnected
	// and deactivates its accounts. No partial state may be observable.
	Disconnect(ctx context.Context, id string) error
}
