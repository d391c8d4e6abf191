package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"infraction-insights/internal/analytics"
	"infraction-insights/internal/cache"
	"infraction-insights/internal/common/logger"
	"infraction-insights/internal/dataset"
	"infraction-insights/internal/llm"
	"infraction-insights/internal/models"
	"infraction-insights/internal/query"
	"infraction-insights/internal/search"
	"infraction-insights/internal/sqlgen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	out   string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.calls++
	return s.out, s.err
}

type stubBackend struct {
	result    *query.Result
	err       error
	lastQuery string
	calls     int
}

func (s *stubBackend) Execute(ctx context.Context, q string) (*query.Result, error) {
	s.calls++
	s.lastQuery = q
	return s.result, s.err
}

func (s *stubBackend) Describe(ctx context.Context, table string) ([]query.Column, error) {
	return nil, errors.New("no introspection")
}

type stubSearcher struct {
	results *search.Results
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, q string) (*search.Results, error) {
	return s.results, s.err
}

func supplyDataset(ctx context.Context) *dataset.Dataset {
	return &dataset.Dataset{
		FetchedAt: time.Now(),
		Records: []dataset.Record{
			{CitationNumber: "A1", State: "PA", Category: "Flora", PenaltyText: "1000,00", OffenderName: "Empresa X", OffenderTaxID: "12345678000190", Severity: "Alta"},
		},
	}
}

func newTestResolver(t *testing.T, provider *stubProvider, backend *stubBackend, searcher Searcher) *Resolver {
	t.Helper()

	log := logger.NewNoOpLogger()
	engine := analytics.NewEngine(analytics.Config{}, log)
	generator := sqlgen.NewGenerator(provider, nil, "ibama_infracao", sqlgen.DialectPostgres, 512, log)
	executor := query.NewExecutor(backend, log)
	store := cache.NewMemoryStore("infraction:query")

	return NewResolver(
		Config{Table: "ibama_infracao", CachePrefix: "infraction:query", CacheMaxAge: time.Hour},
		engine, generator, executor, searcher, provider, supplyDataset, store, log,
	)
}

func TestResolveStructuredQuery(t *testing.T) {
	provider := &stubProvider{out: "```sql\nSELECT COUNT(*) AS n FROM \"ibama_infracao\" LIMIT 1\n```"}
	backend := &stubBackend{result: &query.Result{Columns: []string{"n"}, Rows: [][]string{{"42"}}}}
	r := newTestResolver(t, provider, backend, &stubSearcher{})

	ans := r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")

	assert.Equal(t, models.SourceDatabase, ans.Source)
	assert.Equal(t, "Foram encontrados 42 registros.", ans.Text)
	assert.Equal(t, `SELECT COUNT(*) AS n FROM "ibama_infracao" LIMIT 1`, backend.lastQuery)
}

func TestResolveUsesSessionCache(t *testing.T) {
	provider := &stubProvider{out: `SELECT COUNT(*) AS n FROM "ibama_infracao" LIMIT 1`}
	backend := &stubBackend{result: &query.Result{Columns: []string{"n"}, Rows: [][]string{{"42"}}}}
	r := newTestResolver(t, provider, backend, &stubSearcher{})

	first := r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")
	second := r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, backend.calls, "second resolution must come from cache")

	// A different session misses the cache.
	r.Resolve(context.Background(), "sess-2", "quantas autuações existem?")
	assert.Equal(t, 2, backend.calls)
}

func TestResolveClearSession(t *testing.T) {
	provider := &stubProvider{out: `SELECT COUNT(*) AS n FROM "ibama_infracao" LIMIT 1`}
	backend := &stubBackend{result: &query.Result{Columns: []string{"n"}, Rows: [][]string{{"1"}}}}
	r := newTestResolver(t, provider, backend, &stubSearcher{})

	r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")
	require.NoError(t, r.ClearSession(context.Background(), "sess-1"))
	r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")

	assert.Equal(t, 2, backend.calls)
}

func TestResolvePolicyRejection(t *testing.T) {
	provider := &stubProvider{out: `SELECT 1; DROP TABLE "ibama_infracao"`}
	backend := &stubBackend{}
	r := newTestResolver(t, provider, backend, &stubSearcher{})

	ans := r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")

	assert.Equal(t, models.SourceError, ans.Source)
	assert.Equal(t, policyMessage, ans.Text)
	assert.Zero(t, backend.calls, "rejected candidates never reach the backend")
}

func TestResolveProviderDownFallsBackToLocal(t *testing.T) {
	provider := &stubProvider{err: errors.New("quota exceeded")}
	backend := &stubBackend{}
	r := newTestResolver(t, provider, backend, &stubSearcher{})

	ans := r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")

	assert.Equal(t, models.SourceLocalAnalysis, ans.Source)
	assert.Contains(t, ans.Text, "1 autuações")
	assert.Zero(t, backend.calls)
}

func TestResolveLocalAnswerIsCached(t *testing.T) {
	provider := &stubProvider{err: errors.New("quota exceeded")}
	supplierCalls := 0
	countingSupplier := func(ctx context.Context) *dataset.Dataset {
		supplierCalls++
		return supplyDataset(ctx)
	}

	log := logger.NewNoOpLogger()
	engine := analytics.NewEngine(analytics.Config{}, log)
	generator := sqlgen.NewGenerator(provider, nil, "ibama_infracao", sqlgen.DialectPostgres, 512, log)
	executor := query.NewExecutor(&stubBackend{}, log)
	r := NewResolver(
		Config{Table: "ibama_infracao", CachePrefix: "infraction:query", CacheMaxAge: time.Hour},
		engine, generator, executor, &stubSearcher{}, provider, countingSupplier,
		cache.NewMemoryStore("infraction:query"), log,
	)

	first := r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")
	second := r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")

	assert.Equal(t, models.SourceLocalAnalysis, first.Source)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, supplierCalls, "repeated question must come from cache, not recomputation")
}

func TestResolveEmptyDatasetAnswerIsNotCached(t *testing.T) {
	provider := &stubProvider{err: errors.New("quota exceeded")}
	loaded := false
	supplier := func(ctx context.Context) *dataset.Dataset {
		if !loaded {
			return nil
		}
		return supplyDataset(ctx)
	}

	log := logger.NewNoOpLogger()
	engine := analytics.NewEngine(analytics.Config{}, log)
	generator := sqlgen.NewGenerator(provider, nil, "ibama_infracao", sqlgen.DialectPostgres, 512, log)
	executor := query.NewExecutor(&stubBackend{}, log)
	r := NewResolver(
		Config{Table: "ibama_infracao", CachePrefix: "infraction:query", CacheMaxAge: time.Hour},
		engine, generator, executor, &stubSearcher{}, provider, supplier,
		cache.NewMemoryStore("infraction:query"), log,
	)

	before := r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")
	assert.Contains(t, before.Text, "não há dados")

	loaded = true
	after := r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")
	assert.Contains(t, after.Text, "1 autuações", "finished load must not be shadowed by a cached empty answer")
}

func TestResolveUnusableCompletionFallsBackToLocal(t *testing.T) {
	provider := &stubProvider{out: "Desculpe, não sei gerar essa consulta."}
	backend := &stubBackend{}
	r := newTestResolver(t, provider, backend, &stubSearcher{})

	ans := r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")
	assert.Equal(t, models.SourceLocalAnalysis, ans.Source)
}

func TestResolveConnectivityFailure(t *testing.T) {
	provider := &stubProvider{out: `SELECT COUNT(*) AS n FROM "ibama_infracao" LIMIT 1`}
	backend := &stubBackend{err: errors.New("connection refused")}
	r := newTestResolver(t, provider, backend, &stubSearcher{})

	ans := r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")

	assert.Equal(t, models.SourceError, ans.Source)
	assert.Contains(t, ans.Text, "Não consegui acessar a base de dados")
}

func TestResolveEmptyResult(t *testing.T) {
	provider := &stubProvider{out: `SELECT "UF" FROM "ibama_infracao" WHERE 1=0 LIMIT 1`}
	backend := &stubBackend{result: &query.Result{Columns: []string{"UF"}}}
	r := newTestResolver(t, provider, backend, &stubSearcher{})

	ans := r.Resolve(context.Background(), "sess-1", "quantas autuações existem?")

	assert.Equal(t, models.SourceDatabase, ans.Source)
	assert.Contains(t, ans.Text, "Não encontrei registros")
}

func TestResolveWebLookup(t *testing.T) {
	provider := &stubProvider{out: "O IBAMA é o órgão federal de fiscalização ambiental. Fonte: gov.br"}
	searcher := &stubSearcher{results: &search.Results{Snippets: []search.Snippet{
		{Title: "IBAMA", Link: "https://www.gov.br/ibama", Content: "Instituto Brasileiro do Meio Ambiente"},
	}}}
	r := newTestResolver(t, provider, &stubBackend{}, searcher)

	ans := r.Resolve(context.Background(), "sess-1", "o que é o IBAMA?")

	assert.Equal(t, models.SourceWeb, ans.Source)
	assert.Contains(t, ans.Text, "fiscalização ambiental")
}

func TestResolveWebLookupSynthesisFallback(t *testing.T) {
	provider := &stubProvider{err: errors.New("provider down")}
	searcher := &stubSearcher{results: &search.Results{Snippets: []search.Snippet{
		{Title: "IBAMA", Link: "https://www.gov.br/ibama", Content: "Instituto Brasileiro do Meio Ambiente"},
	}}}
	r := newTestResolver(t, provider, &stubBackend{}, searcher)

	ans := r.Resolve(context.Background(), "sess-1", "o que é o IBAMA?")

	assert.Equal(t, models.SourceWeb, ans.Source)
	assert.Contains(t, ans.Text, "Instituto Brasileiro do Meio Ambiente")
}

func TestResolveWebLookupNoResults(t *testing.T) {
	searcher := &stubSearcher{results: &search.Results{NoResults: true}}
	r := newTestResolver(t, &stubProvider{}, &stubBackend{}, searcher)

	ans := r.Resolve(context.Background(), "sess-1", "o que é xyzzy?")
	assert.Equal(t, models.SourceWeb, ans.Source)
	assert.Contains(t, ans.Text, "Não encontrei nada relevante")
}

func TestResolveWebLookupSearchFailure(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("timeout")}
	r := newTestResolver(t, &stubProvider{}, &stubBackend{}, searcher)

	ans := r.Resolve(context.Background(), "sess-1", "o que é o IBAMA?")
	assert.Equal(t, models.SourceError, ans.Source)
}
