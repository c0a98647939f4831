// --- database/db.go ---
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/abefas/EmberTracker/config"
)

// Client is the single handle to the backend: every table read, auth call
// and schema operation goes through it. Build one in main and pass it down.
type Client struct {
	db          *sql.DB
	signer      *TokenSigner
	serviceRole string
	sessionTTL  time.Duration
	now         func() time.Time
}

// Open prepares a Client from cfg. It does not contact the database;
// a wrong URL or key is reported by the first call that needs it.
func Open(cfg config.Config) (*Client, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "pgx" {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	return NewClient(db, cfg), nil
}

// NewClient wraps an already opened pool.
func NewClient(db *sql.DB, cfg config.Config) *Client {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{
		db:          db,
		signer:      NewTokenSigner(cfg.AnonKey),
		serviceRole: cfg.ServiceRoleKey,
		sessionTTL:  ttl,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// DB exposes the underlying pool.
func (c *Client) DB() *sql.DB { return c.db }

// PingContext checks that the backend is reachable.
func (c *Client) PingContext(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// Close releases the pool.
func (c *Client) Close() error {
	return c.db.Close()
}
