// Package analytics answers aggregate questions directly from the in-memory
// dataset, without touching a query backend.
package analytics

import (
	"strings"

	"infraction-insights/internal/common/logger"
	"infraction-insights/internal/dataset"
	"infraction-insights/internal/models"
)

// Config holds engine tuning.
type Config struct {
	// NameMatchThreshold is the minimum 0-100 similarity for an offender
	// name to count as a fuzzy match.
	NameMatchThreshold int

	// TopLimit is the default size of ranked answers when the question does
	// not name one.
	TopLimit int
}

// Engine resolves questions against a loaded dataset with an ordered rule
// table, most specific rule first. The last rule always matches.
type Engine struct {
	config Config
	logger logger.Logger
	rules  []rule
}

type rule struct {
	name  string
	match func(e *Engine, q string, ds *dataset.Dataset) bool
	run   func(e *Engine, q string, ds *dataset.Dataset) string
}

// NewEngine creates an engine with the standard rule table.
func NewEngine(cfg Config, log logger.Logger) *Engine {
	if cfg.NameMatchThreshold <= 0 {
		cfg.NameMatchThreshold = 95
	}
	if cfg.TopLimit <= 0 {
		cfg.TopLimit = 10
	}

	e := &Engine{config: cfg, logger: log}
	e.rules = []rule{
		{"value_by_category", matchValueByCategory, runValueByCategory},
		{"severity_distribution", matchSeverity, runSeverity},
		{"top_offenders", matchTopOffenders, runTopOffenders},
		{"offender_lookup", matchOffenderLookup, runOffenderLookup},
		{"geo_category_filter", matchGeoCategory, runGeoCategory},
		{"top_places", matchTopPlaces, runTopPlaces},
		{"totals", matchTotals, runTotals},
		{"capabilities", matchAlways, runCapabilities},
	}
	return e
}

// Answer resolves one question. It never fails: with no usable data it says
// so, and the capability rule catches everything else.
func (e *Engine) Answer(question string, ds *dataset.Dataset) models.Answer {
	if ds.Empty() {
		return models.Answer{
			Text:   "Ainda não há dados de autuações carregados. Tente novamente em instantes ou acione uma atualização.",
			Source: models.SourceLocalAnalysis,
		}
	}

	q := strings.ToLower(question)

	for _, r := range e.rules {
		if !r.match(e, q, ds) {
			continue
		}
		e.logger.Debug("analytics rule fired", map[string]interface{}{
			"rule":     r.name,
			"question": question,
		})
		return models.Answer{
			Text:   models.WithDisclaimer(r.run(e, q, ds)),
			Source: models.SourceLocalAnalysis,
		}
	}

	// The capability rule matches everything, so this is unreachable.
	return models.Answer{Text: models.WithDisclaimer(capabilitiesText), Source: models.SourceLocalAnalysis}
}

func matchAlways(e *Engine, q string, ds *dataset.Dataset) bool { return true }

func containsAny(q string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}
