// internal/common/database/sql.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"infraction-insights/internal/common/config"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLClient wraps the SQL database connection. The driver is either the
// embedded pure-Go sqlite or a direct postgres connection.
type SQLClient struct {
	DB     *sql.DB
	Driver string
}

// NewSQL opens the configured database/sql driver.
func NewSQL(cfg config.SQLConfig) (*SQLClient, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}

	db, err := sql.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &SQLClient{DB: db, Driver: driver}, nil
}

// Ping tests the database connection
func (c *SQLClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *SQLClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// Query executes a query that returns rows
func (c *SQLClient) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row
func (c *SQLClient) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.DB.QueryRowContext(ctx, query, args...)
}

// GetDB returns the underlying *sql.DB for compatibility
func (c *SQLClient) GetDB() *sql.DB {
	return c.DB
}

// SelectRange reads one page of a table as a raw JSON array of objects,
// mirroring the PostgREST range read so either client can feed the dataset
// loader. NULL cells are emitted as JSON nulls.
func (c *SQLClient) SelectRange(ctx context.Context, table, columns string, offset, limit int) (json.RawMessage, error) {
	selection := "*"
	if columns != "" && columns != "*" {
		cols := strings.Split(columns, ",")
		for i, col := range cols {
			cols[i] = `"` + strings.TrimSpace(col) + `"`
		}
		selection = strings.Join(cols, ", ")
	}

	stmt := fmt.Sprintf(`SELECT %s FROM "%s" LIMIT %d OFFSET %d`,
		selection, table, limit, offset)

	rows, err := c.DB.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("select range on %s: %w", table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read range columns: %w", err)
	}

	page := make([]map[string]interface{}, 0, limit)
	for rows.Next() {
		cells := make([]sql.NullString, len(names))
		dest := make([]interface{}, len(names))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan range row: %w", err)
		}

		row := make(map[string]interface{}, len(names))
		for i, name := range names {
			if cells[i].Valid {
				row[name] = cells[i].String
			} else {
				row[name] = nil
			}
		}
		page = append(page, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate range rows: %w", err)
	}

	return json.Marshal(page)
}
