package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"infraction-insights/internal/common/database"
	"infraction-insights/internal/common/logger"
)

// PostgRESTBackend serves SELECTs through a PostgREST endpoint, which cannot
// run raw SQL. Recognized query shapes are translated to range requests;
// everything else goes through the configured read-only RPC function, or, as
// a last resort, a capped full-table fetch flagged as degraded.
type PostgRESTBackend struct {
	client   *database.SupabaseClient
	table    string
	rpc      string
	pageSize int
	maxRows  int
	logger   logger.Logger
}

// NewPostgRESTBackend wraps the shared Supabase client for one table.
func NewPostgRESTBackend(client *database.SupabaseClient, table, rpc string, pageSize, maxRows int, log logger.Logger) *PostgRESTBackend {
	if pageSize <= 0 {
		pageSize = 1000
	}
	if maxRows <= 0 {
		maxRows = 50000
	}
	return &PostgRESTBackend{
		client:   client,
		table:    table,
		rpc:      rpc,
		pageSize: pageSize,
		maxRows:  maxRows,
		logger:   log,
	}
}

var (
	distinctPattern = regexp.MustCompile(`(?i)^SELECT\s+DISTINCT\s+"?(\w+)"?\s+FROM\s+"?(\w+)"?\s*;?$`)
	simplePattern   = regexp.MustCompile(`(?i)^SELECT\s+\*\s+FROM\s+"?(\w+)"?(?:\s+LIMIT\s+(\d+))?\s*;?$`)
)

func (b *PostgRESTBackend) Execute(ctx context.Context, query string) (*Result, error) {
	if m := distinctPattern.FindStringSubmatch(query); m != nil && m[2] == b.table {
		return b.executeDistinct(ctx, m[1])
	}

	if m := simplePattern.FindStringSubmatch(query); m != nil && m[1] == b.table {
		limit := b.pageSize
		if m[2] != "" {
			if n, err := strconv.Atoi(m[2]); err == nil {
				limit = n
			}
		}
		rows, err := b.fetchRows(ctx, 0, limit)
		if err != nil {
			return nil, err
		}
		return resultFromMaps(rows), nil
	}

	if b.rpc != "" {
		return b.executeRPC(ctx, query)
	}

	return b.executeDegraded(ctx)
}

// executeDistinct pages one column and deduplicates client-side.
func (b *PostgRESTBackend) executeDistinct(ctx context.Context, column string) (*Result, error) {
	seen := make(map[string]struct{})
	result := &Result{Columns: []string{column}}

	for offset := 0; offset < b.maxRows; offset += b.pageSize {
		rows, err := b.fetchColumn(ctx, column, offset, b.pageSize)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		for _, v := range rows {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			result.Rows = append(result.Rows, []string{v})
		}
		if len(rows) < b.pageSize {
			break
		}
	}

	sort.Slice(result.Rows, func(i, j int) bool { return result.Rows[i][0] < result.Rows[j][0] })
	return result, nil
}

func (b *PostgRESTBackend) executeRPC(ctx context.Context, query string) (*Result, error) {
	raw, err := b.client.CallProcedure(ctx, b.rpc, map[string]interface{}{"query": query})
	if err != nil {
		// The RPC function may simply not exist on this project; degrade
		// instead of failing.
		b.logger.Warn("rpc execution failed, degrading to capped fetch", map[string]interface{}{
			"rpc":   b.rpc,
			"error": err.Error(),
		})
		return b.executeDegraded(ctx)
	}

	rows, err := decodeRowMaps(raw)
	if err != nil {
		return nil, fmt.Errorf("rpc result decode failed: %w", err)
	}
	return resultFromMaps(rows), nil
}

// executeDegraded serves a capped full-table fetch and says so.
func (b *PostgRESTBackend) executeDegraded(ctx context.Context) (*Result, error) {
	var all []map[string]interface{}
	for offset := 0; offset < b.maxRows; offset += b.pageSize {
		limit := b.pageSize
		if remaining := b.maxRows - offset; remaining < limit {
			limit = remaining
		}
		rows, err := b.fetchRows(ctx, offset, limit)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) < limit {
			break
		}
	}

	result := resultFromMaps(all)
	result.Degraded = true
	result.Note = fmt.Sprintf(
		"A consulta não pôde ser executada diretamente no servidor; o resultado foi calculado sobre uma amostra de até %d registros.",
		b.maxRows)
	return result, nil
}

func (b *PostgRESTBackend) fetchRows(ctx context.Context, offset, limit int) ([]map[string]interface{}, error) {
	raw, err := b.client.SelectRange(ctx, b.table, "*", offset, limit)
	if err != nil {
		return nil, err
	}
	return decodeRowMaps(raw)
}

func (b *PostgRESTBackend) fetchColumn(ctx context.Context, column string, offset, limit int) ([]string, error) {
	raw, err := b.client.SelectRange(ctx, b.table, column, offset, limit)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRowMaps(raw)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, cellString(row[column]))
	}
	return out, nil
}

// Describe derives the column list from a single sampled row.
func (b *PostgRESTBackend) Describe(ctx context.Context, table string) ([]Column, error) {
	raw, err := b.client.SelectRange(ctx, table, "*", 0, 1)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRowMaps(raw)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table %s has no rows to sample", table)
	}

	names := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]Column, 0, len(names))
	for _, name := range names {
		columns = append(columns, Column{Name: name, Type: "text"})
	}
	return columns, nil
}

// decodeRowMaps keeps numbers as their JSON text instead of float64.
func decodeRowMaps(raw json.RawMessage) ([]map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var rows []map[string]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func resultFromMaps(rows []map[string]interface{}) *Result {
	result := &Result{}
	if len(rows) == 0 {
		return result
	}

	for name := range rows[0] {
		result.Columns = append(result.Columns, name)
	}
	sort.Strings(result.Columns)

	for _, row := range rows {
		cells := make([]string, len(result.Columns))
		for i, name := range result.Columns {
			cells[i] = cellString(row[name])
		}
		result.Rows = append(result.Rows, cells)
	}
	return result
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
