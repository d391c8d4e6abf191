package router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"infraction-insights/internal/analytics"
	"infraction-insights/internal/cache"
	apperrors "infraction-insights/internal/common/errors"
	"infraction-insights/internal/common/logger"
	"infraction-insights/internal/common/metrics"
	"infraction-insights/internal/dataset"
	"infraction-insights/internal/llm"
	"infraction-insights/internal/models"
	"infraction-insights/internal/query"
	"infraction-insights/internal/search"
	"infraction-insights/internal/sqlgen"
)

// policyMessage is shown verbatim when the validator rejects a candidate.
const policyMessage = "Por segurança, só posso executar consultas de leitura (SELECT) sobre os dados de autuações."

// DatasetSupplier hands the resolver the current in-memory dataset.
type DatasetSupplier func(ctx context.Context) *dataset.Dataset

// Searcher is the web lookup dependency.
type Searcher interface {
	Search(ctx context.Context, query string) (*search.Results, error)
}

// Config holds resolver settings.
type Config struct {
	Table       string
	CachePrefix string
	CacheMaxAge time.Duration
}

// Resolver turns a question into an answer. Every path catches its own
// errors: callers always get a usable Answer.
type Resolver struct {
	config    Config
	engine    *analytics.Engine
	generator *sqlgen.Generator
	executor  *query.Executor
	searcher  Searcher
	provider  llm.Provider
	datasets  DatasetSupplier
	store     cache.Store
	logger    logger.Logger
}

// NewResolver wires the full resolution flow.
func NewResolver(
	cfg Config,
	engine *analytics.Engine,
	generator *sqlgen.Generator,
	executor *query.Executor,
	searcher Searcher,
	provider llm.Provider,
	datasets DatasetSupplier,
	store cache.Store,
	log logger.Logger,
) *Resolver {
	if cfg.CacheMaxAge <= 0 {
		cfg.CacheMaxAge = time.Hour
	}
	if cfg.CachePrefix == "" {
		cfg.CachePrefix = "infraction:query"
	}
	return &Resolver{
		config:    cfg,
		engine:    engine,
		generator: generator,
		executor:  executor,
		searcher:  searcher,
		provider:  provider,
		datasets:  datasets,
		store:     store,
		logger:    log,
	}
}

// Resolve answers one question within a session.
func (r *Resolver) Resolve(ctx context.Context, sessionID, question string) models.Answer {
	start := time.Now()
	intent := Route(question)

	var answer models.Answer
	switch intent {
	case IntentExternalLookup:
		answer = r.resolveWeb(ctx, question)
	default:
		answer = r.resolveQuery(ctx, sessionID, question)
	}

	metrics.QuestionsResolved.WithLabelValues(string(intent), string(answer.Source)).Inc()
	metrics.ResolutionDuration.WithLabelValues(string(intent)).Observe(time.Since(start).Seconds())

	r.logger.Info("question resolved", map[string]interface{}{
		"intent":   string(intent),
		"source":   string(answer.Source),
		"duration": time.Since(start).String(),
	})
	return answer
}

// ClearSession drops the cached results of one session.
func (r *Resolver) ClearSession(ctx context.Context, sessionID string) error {
	if r.store == nil {
		return nil
	}
	return r.store.Clear(ctx, sessionID)
}

func (r *Resolver) resolveQuery(ctx context.Context, sessionID, question string) models.Answer {
	key := cache.Key(r.config.CachePrefix, sessionID, cache.Fingerprint(r.config.Table, question, sessionID))

	if r.store != nil {
		if raw, ok := r.store.Get(ctx, key, r.config.CacheMaxAge); ok {
			metrics.CacheHits.Inc()
			var cached models.Answer
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached
			}
		} else {
			metrics.CacheMisses.Inc()
		}
	}

	raw := r.generator.Generate(ctx, question)
	if raw == "" {
		// No candidate: the provider is down, unconfigured or produced
		// nothing useful. The local engine still answers from memory.
		return r.resolveLocal(ctx, key, question)
	}

	candidate, ok := sqlgen.Extract(raw)
	if !ok {
		return r.resolveLocal(ctx, key, question)
	}

	if err := sqlgen.Validate(candidate); err != nil {
		r.logger.Warn("candidate rejected by policy", map[string]interface{}{
			"candidate": candidate,
			"error":     err.Error(),
		})
		return models.Answer{Text: policyMessage, Source: models.SourceError}
	}

	result, stdErr := r.executor.Execute(ctx, candidate)
	if stdErr != nil {
		return r.answerForFailure(ctx, key, question, stdErr)
	}

	answer := models.Answer{
		Text:   formatResult(question, result),
		Source: models.SourceDatabase,
	}

	if !result.Empty() {
		r.writeCache(ctx, key, answer)
	}

	return answer
}

// writeCache stores an answer best-effort; a failing store never fails the
// request.
func (r *Resolver) writeCache(ctx context.Context, key string, answer models.Answer) {
	if r.store == nil {
		return
	}
	payload, err := json.Marshal(answer)
	if err != nil {
		return
	}
	if err := r.store.Set(ctx, key, payload); err != nil {
		r.logger.Warn("cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

// answerForFailure maps a classified execution failure onto a user answer.
func (r *Resolver) answerForFailure(ctx context.Context, key, question string, stdErr *apperrors.StandardError) models.Answer {
	switch stdErr.Code {
	case apperrors.ErrCodeProviderExhausted:
		return r.resolveLocal(ctx, key, question)
	case apperrors.ErrCodeConnectivity:
		return models.Answer{
			Text:   "Não consegui acessar a base de dados agora. Tente novamente em alguns instantes.",
			Source: models.SourceError,
		}
	default:
		return models.Answer{
			Text:   fmt.Sprintf("A consulta não pôde ser concluída (%s).", stdErr.Message),
			Source: models.SourceError,
		}
	}
}

// resolveLocal is the fallback onto the in-memory analytics engine. Answers
// computed over a loaded dataset are memoized like database results; the
// "no data yet" answer is not, so a finished load takes effect immediately.
func (r *Resolver) resolveLocal(ctx context.Context, key, question string) models.Answer {
	var ds *dataset.Dataset
	if r.datasets != nil {
		ds = r.datasets(ctx)
	}

	answer := r.engine.Answer(question, ds)
	if !ds.Empty() {
		r.writeCache(ctx, key, answer)
	}
	return answer
}

func (r *Resolver) resolveWeb(ctx context.Context, question string) models.Answer {
	results, err := r.searcher.Search(ctx, question)
	if err != nil {
		r.logger.Warn("web search failed", map[string]interface{}{"error": err.Error()})
		return models.Answer{
			Text:   "Não consegui pesquisar na internet agora. Tente novamente mais tarde.",
			Source: models.SourceError,
		}
	}

	if results.NoResults {
		return models.Answer{
			Text:   "Não encontrei nada relevante na internet sobre isso.",
			Source: models.SourceWeb,
		}
	}

	text := r.synthesize(ctx, question, results)
	return models.Answer{Text: text, Source: models.SourceWeb}
}

// synthesize turns raw snippets into prose through the provider, falling
// back to the rendered snippets when no provider is available.
func (r *Resolver) synthesize(ctx context.Context, question string, results *search.Results) string {
	prompt := fmt.Sprintf(
		"Com base nos resultados de busca abaixo, responda em português, de forma direta e citando a fonte.\n\nPergunta: %s\n\nResultados:\n%s",
		question, results.Render())

	out, err := r.provider.Complete(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   1024,
	})
	if err != nil || out == "" {
		return "Encontrei estas informações na internet:\n\n" + results.Render()
	}
	return out
}
