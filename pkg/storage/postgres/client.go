// Package postgres provides the PostgreSQL implementation of the profile store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	_ "github.com/lib/pq"

	"github.com/solace-labs/companion-go/pkg/storage"
)

// Client is a PostgreSQL profile store.
type Client struct {
	db   *sql.DB
	node *snowflake.Node
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	// NodeID is the snowflake node ID for message ID generation (default 1).
	// Give each companion instance sharing a database a distinct node ID.
	NodeID int64
}

// NewClient creates a new PostgreSQL profile store.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	nodeID := cfg.NodeID
	if nodeID == 0 {
		nodeID = 1
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	client := &Client{db: db, node: node}

	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the database tables.
func (c *Client) initTables(ctx context.Context) error {
	usersQuery := `
		CREATE TABLE IF NOT EXISTS users (
			user_id VARCHAR(255) PRIMARY KEY,
			persona VARCHAR(64) NOT NULL DEFAULT 'friendly',
			mode VARCHAR(64) NOT NULL DEFAULT 'friendly',
			name TEXT
		)
	`
	if _, err := c.db.ExecContext(ctx, usersQuery); err != nil {
		return fmt.Errorf("initTables: create users: %w", err)
	}

	messagesQuery := `
		CREATE TABLE IF NOT EXISTS messages (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			role VARCHAR(16) NOT NULL,
			content TEXT NOT NULL,
			ts BIGINT NOT NULL
		)
	`
	if _, err := c.db.ExecContext(ctx, messagesQuery); err != nil {
		return fmt.Errorf("initTables: create messages: %w", err)
	}

	indexQuery := `
		CREATE INDEX IF NOT EXISTS idx_messages_user_id ON messages(user_id, id)
	`
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: create index: %w", err)
	}

	return nil
}

// EnsureUser inserts a default profile row for userID if none exists.
func (c *Client) EnsureUser(ctx context.Context, userID string) error {
	query := `INSERT INTO users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
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

	query := `SELECT user_id, persona, mode, name FROM users WHERE user_id = $1`

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

func (c *Client) setField(ctx context.Context, op, column, userID, value string) error {
	if err := c.EnsureUser(ctx, userID); err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE users SET %s = $1 WHERE user_id = $2", column)
	if _, err := c.db.ExecContext(ctx, query, value, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AppendMessage inserts one message row with a fresh snowflake ID and the
// current timestamp.
func (c *Client) AppendMessage(ctx context.Context, userID string, role storage.Role, content string) error {
	query := `INSERT INTO messages (id, user_id, role, content, ts) VALUES ($1, $2, $3, $4, $5)`

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
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
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

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// ClearMessages deletes all message rows for userID.
func (c *Client) ClearMessages(ctx context.Context, userID string) error {
	query := `DELETE FROM messages WHERE user_id = $1`
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
