// Package sqlite provides the SQLite implementation of the profile store.
//
// SQLite is a lightweight, file-based database suitable for local deployment
// of a single companion instance. Profiles live in a users table and the
// conversation log in a messages table keyed by snowflake IDs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/snowflake"
	_ "github.com/mattn/go-sqlite3"

	"github.com/solace-labs/companion-go/pkg/storage"
)

// Client implements ProfileStore using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// node generates message IDs. A single node yields monotonically
	// increasing IDs, so ordering by ID equals insertion order.
	node *snowflake.Node
}

// Config contains configuration for creating a SQLite profile store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// NodeID is the snowflake node ID for message ID generation (default 1).
	NodeID int64
}

// NewClient creates a new SQLite profile store.
//
// Parameters:
//   - cfg: Configuration containing the database path
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	// Create parent directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	nodeID := cfg.NodeID
	if nodeID == 0 {
		nodeID = 1
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{
		db:   db,
		node: node,
	}

	// Initialize table structure
	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	usersQuery := `
		CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			persona TEXT NOT NULL DEFAULT 'friendly',
			mode TEXT NOT NULL DEFAULT 'friendly',
			name TEXT
		)
	`
	if _, err := c.db.ExecContext(ctx, usersQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	messagesQuery := `
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			ts INTEGER NOT NULL
		)
	`
	if _, err := c.db.ExecContext(ctx, messagesQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := `
		CREATE INDEX IF NOT EXISTS idx_messages_user_id ON messages(user_id, id)
	`
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// EnsureUser inserts a default profile row for userID if none exists.
//
// INSERT OR IGNORE makes the operation idempotent even under concurrent
// callers: at most one row is created and existing rows are never touched.
func (c *Client) EnsureUser(ctx context.Context, userID string) error {
	query := `INSERT OR IGNORE INTO users (user_id) VALUES (?)`
	if _, err := c.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("EnsureUser: %w", err)
	}
	return nil
}

// GetProfile returns the profile for userID, creating it first if absent.
func (c *Client) GetProfile(ctx context.Context, userID string) (*storage.Profile, error) {
	if err := c.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}

	query := `SELECT user_id, persona, mode, name FROM users WHERE user_id = ?`

	var profile storage.Profile
	var name sql.NullString
	err := c.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Persona,
		&profile.Mode,
		&name,
	)
	if err != nil {
		return nil, fmt.Errorf("GetProfile: %w", err)
	}

	if name.Valid {
		profile.Name = name.String
	}

	return &profile, nil
}

// SetPersona updates the persona field, creating the profile if needed.
func (c *Client) SetPersona(ctx context.Context, userID, persona string) error {
	return c.setField(ctx, "SetPersona", "persona", userID, persona)
}

// SetMode updates the mode field, creating the profile if needed.
func (c *Client) SetMode(ctx context.Context, userID, mode string) error {
	return c.setField(ctx, "SetMode", "mode", userID, mode)
}

// SetName updates the display name, creating the profile if needed.
func (c *Client) SetName(ctx context.Context, userID, name string) error {
	return c.setField(ctx, "SetName", "name", userID, name)
}

// setField ensures the user exists and updates exactly one profile column.
func (c *Client) setField(ctx context.Context, op, column, userID, value string) error {
	if err := c.EnsureUser(ctx, userID); err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE users SET %s = ? WHERE user_id = ?", column)
	if _, err := c.db.ExecContext(ctx, query, value, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AppendMessage inserts one message row with a fresh snowflake ID and the
// current timestamp.
func (c *Client) AppendMessage(ctx context.Context, userID string, role storage.Role, content string) error {
	query := `INSERT INTO messages (id, user_id, role, content, ts) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.ExecContext(ctx, query,
		c.node.Generate().Int64(),
		userID,
		string(role),
		content,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("AppendMessage: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit most recent messages in chronological
// (oldest-first) order.
func (c *Client) RecentMessages(ctx context.Context, userID string, limit int) ([]*storage.Message, error) {
	if limit <= 0 {
		return []*storage.Message{}, nil
	}

	query := `
		SELECT id, user_id, role, content, ts
		FROM messages
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentMessages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*storage.Message
	for rows.Next() {
		var msg storage.Message
		var role string
		var ts int64
		if err := rows.Scan(&msg.ID, &msg.UserID, &role, &msg.Content, &ts); err != nil {
			return nil, fmt.Errorf("RecentMessages: %w", err)
		}
		msg.Role = storage.Role(role)
		msg.Timestamp = time.Unix(ts, 0)
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RecentMessages: %w", err)
	}

	// Query returned newest first; reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// ClearMessages deletes all message rows for userID. The profile row is
// left untouched.
func (c *Client) ClearMessages(ctx context.Context, userID string) error {
	query := `DELETE FROM messages WHERE user_id = ?`
	if _, err := c.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("ClearMessages: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
