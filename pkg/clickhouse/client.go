package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Client owns a database/sql pool on the clickhouse-go driver.
type Client struct {
	db *sql.DB
}

// NewClient opens the pool and pings once so a bad address fails at startup.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.addr == "" {
		return nil, errors.New("clickhouse: address is required")
	}

	db := ch.OpenDB(o.driverOptions())
	pingCtx, cancel := context.WithTimeout(ctx, o.dialTimeout+o.readTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &Client{db: db}, nil
}

func (c *Client) DB() *sql.DB { return c.db }

// EnsureDatabase creates name when missing.
func (c *Client) EnsureDatabase(ctx context.Context, name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("clickhouse: invalid database name %q", name)
	}
	return c.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+name)
}

// Exec runs statements in order and stops at the first failure.
func (c *Client) Exec(ctx context.Context, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clickhouse exec: %w", err)
		}
	}
	return nil
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
