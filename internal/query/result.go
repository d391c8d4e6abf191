// Package query executes validated SELECT statements against the configured
// backend and normalizes results.
package query

import "context"

// Column is one column of the queried table.
type Column struct {
	Name string
	Type string
}

// Result is a normalized query result. All values are rendered as text;
// formatting decisions happen at the answer layer.
type Result struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`

	// Degraded marks results served by a capped full-table fetch because the
	// backend could not run the query natively. The note explains it to the
	// user.
	Degraded bool   `json:"degraded,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Empty reports whether the result has no rows.
func (r *Result) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// SingleValue returns the only cell of a 1x1 result.
func (r *Result) SingleValue() (string, bool) {
	if r == nil || len(r.Rows) != 1 || len(r.Rows[0]) != 1 {
		return "", false
	}
	return r.Rows[0][0], true
}

// Backend runs read-only queries against one storage flavor.
type Backend interface {
	Execute(ctx context.Context, query string) (*Result, error)
	Describe(ctx context.Context, table string) ([]Column, error)
}
