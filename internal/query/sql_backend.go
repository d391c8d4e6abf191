package query

import (
	"context"
	"database/sql"
	"fmt"

	"infraction-insights/internal/common/database"
)

// SQLBackend executes arbitrary validated SELECTs on a database/sql
// connection, either embedded sqlite or direct postgres.
type SQLBackend struct {
	client *database.SQLClient
}

// NewSQLBackend wraps the shared SQL client.
func NewSQLBackend(client *database.SQLClient) *SQLBackend {
	return &SQLBackend{client: client}
}

func (b *SQLBackend) Execute(ctx context.Context, query string) (*Result, error) {
	rows, err := b.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns failed: %w", err)
	}

	result := &Result{Columns: columns}

	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning result row failed: %w", err)
		}

		row := make([]string, len(columns))
		for i, cell := range cells {
			if cell.Valid {
				row[i] = cell.String
			}
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating result rows failed: %w", err)
	}

	return result, nil
}

// Describe introspects the table layout with the driver's own catalog.
func (b *SQLBackend) Describe(ctx context.Context, table string) ([]Column, error) {
	var rows *sql.Rows
	var err error

	switch b.client.Driver {
	case "postgres":
		rows, err = b.client.Query(ctx,
			`SELECT column_name, data_type FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position`,
			table)
	default:
		rows, err = b.client.Query(ctx,
			`SELECT name, type FROM pragma_table_info(?)`,
			table)
	}
	if err != nil {
		return nil, fmt.Errorf("describe %s failed: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}
