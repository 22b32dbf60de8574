// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/interviewer/internal/domain"
)

// Repository defines the interface for persisting device identities and
// their key-value state.
type Repository interface {
	// GetUser retrieves a user by their user ID. It returns nil, nil when
	// the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetValue returns the stored value for (owner, key), or nil when absent.
	GetValue(ctx context.Context, owner, key string) ([]byte, error)

	// PutValue stores value under (owner, key), replacing any previous value.
	PutValue(ctx context.Context, owner, key string, value []byte) error

	// DeleteValue removes (owner, key). Deleting a missing key is not an error.
	DeleteValue(ctx context.Context, owner, key string) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
