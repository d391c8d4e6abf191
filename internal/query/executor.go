package query

import (
	"context"

	apperrors "infraction-insights/internal/common/errors"
	"infraction-insights/internal/common/logger"
	"infraction-insights/internal/common/metrics"
)

// Executor runs validated queries on a backend and classifies failures. No
// raw backend error escapes it.
type Executor struct {
	backend Backend
	logger  logger.Logger
}

// NewExecutor wraps a backend.
func NewExecutor(backend Backend, log logger.Logger) *Executor {
	return &Executor{backend: backend, logger: log}
}

// Execute runs the query. On failure the result is empty and the returned
// StandardError says why; an empty result from a clean run comes back with a
// nil error, for the caller to phrase.
func (e *Executor) Execute(ctx context.Context, query string) (*Result, *apperrors.StandardError) {
	result, err := e.backend.Execute(ctx, query)
	if err != nil {
		classified := apperrors.Classify(err)
		e.logger.Error("query execution failed", map[string]interface{}{
			"code":  string(classified.Code),
			"error": err.Error(),
		})
		return &Result{}, classified
	}

	if result.Degraded {
		metrics.DegradedExecutions.Inc()
	}

	return result, nil
}

// Describe proxies schema introspection to the backend.
func (e *Executor) Describe(ctx context.Context, table string) ([]Column, error) {
	return e.backend.Describe(ctx, table)
}
