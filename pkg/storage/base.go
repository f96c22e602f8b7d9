// Package storage provides interfaces and types for profile storage backends.
//
// It defines the ProfileStore interface that all storage implementations must satisfy,
// along with the profile and message types shared by the backends.
package storage

import (
	"context"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks a message written by the user.
	RoleUser Role = "user"

	// RoleAssistant marks a message written by the companion.
	RoleAssistant Role = "assistant"

	// RoleSystem marks an instruction message. System messages are never
	// forwarded to the completion provider as history.
	RoleSystem Role = "system"
)

// DefaultPersona is the persona and mode assigned to newly created profiles.
const DefaultPersona = "friendly"

// Profile represents one user's companion settings.
//
// A profile exists for every user that has ever sent a message; stores create
// it lazily on first contact, so lookups never fail with "not found".
type Profile struct {
	// UserID is the opaque stable identifier of the user.
	UserID string

	// Persona is the key into the persona registry. Defaults to "friendly".
	Persona string

	// Mode is the key into the mode registry. Defaults to "friendly".
	Mode string

	// Name is the user's display name. Empty means unknown.
	Name string
}

// Message represents a single stored conversation message.
//
// Messages for a given user are totally ordered by ID, and that order equals
// chronological insertion order.
type Message struct {
	// ID is the store-assigned identifier. IDs increase monotonically.
	ID int64

	// UserID identifies the owning profile.
	UserID string

	// Role is the author of the message.
	Role Role

	// Content is the message text.
	Content string

	// Timestamp is the insertion time, stored with second precision.
	Timestamp time.Time
}

// ProfileStore defines the interface for profile storage backends.
//
// All storage implementations (SQLite, PostgreSQL, MySQL) must implement this
// interface. Implementations must be safe for concurrent use from multiple
// goroutines; per-user ordering of the read-history/append sequence is the
// caller's responsibility.
type ProfileStore interface {
	// EnsureUser inserts a default profile row for userID if none exists.
	// It is idempotent: calling it repeatedly creates exactly one row and
	// never fails because the user already exists.
	EnsureUser(ctx context.Context, userID string) error

	// GetProfile returns the profile for userID, creating a default profile
	// first if none exists. It never fails with "not found".
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// SetPersona updates the persona field, creating the profile if needed.
	// The value is not validated against the registry; callers validate
	// before writing.
	SetPersona(ctx context.Context, userID, persona string) error

	// SetMode updates the mode field, creating the profile if needed.
	SetMode(ctx context.Context, userID, mode string) error

	// SetName updates the display name, creating the profile if needed.
	SetName(ctx context.Context, userID, name string) error

	// AppendMessage inserts one message row with the next sequence ID and
	// the current timestamp.
	AppendMessage(ctx context.Context, userID string, role Role, content string) error

	// RecentMessages returns up to limit most recent messages for userID in
	// chronological (oldest-first) order. Fewer are returned if fewer exist.
	// A limit <= 0 returns an empty slice.
	RecentMessages(ctx context.Context, userID string, limit int) ([]*Message, error)

	// ClearMessages deletes all message rows for userID. The profile row is
	// left untouched.
	ClearMessages(ctx context.Context, userID string) error

	// Close closes the store and releases resources.
	Close() error
}
