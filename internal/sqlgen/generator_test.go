package sqlgen

import (
	"context"
	"errors"
	"testing"

	"infraction-insights/internal/common/logger"
	"infraction-insights/internal/llm"
	"infraction-insights/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider records the last request and returns a canned completion.
type fakeProvider struct {
	lastReq llm.Request
	out     string
	err     error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.lastReq = req
	return f.out, f.err
}

// fakeSchema serves a fixed column list or an error.
type fakeSchema struct {
	columns []query.Column
	err     error
}

func (f *fakeSchema) Describe(ctx context.Context, table string) ([]query.Column, error) {
	return f.columns, f.err
}

func TestGeneratePromptContents(t *testing.T) {
	provider := &fakeProvider{out: `SELECT * FROM "ibama_infracao" LIMIT 10`}
	schema := &fakeSchema{columns: []query.Column{
		{Name: "UF", Type: "text"},
		{Name: "VAL_AUTO_INFRACAO", Type: "text"},
	}}

	g := NewGenerator(provider, schema, "ibama_infracao", DialectPostgres, 512, logger.NewNoOpLogger())
	out := g.Generate(context.Background(), "quantas autuações por estado?")

	assert.Equal(t, `SELECT * FROM "ibama_infracao" LIMIT 10`, out)
	assert.Equal(t, float32(0), provider.lastReq.Temperature, "generation must be deterministic")
	assert.Equal(t, 512, provider.lastReq.MaxTokens)

	prompt := provider.lastReq.Prompt
	assert.Contains(t, prompt, `"ibama_infracao"`)
	assert.Contains(t, prompt, `"UF"`)
	assert.Contains(t, prompt, `CAST(REPLACE("VAL_AUTO_INFRACAO", ',', '.') AS NUMERIC)`)
	assert.Contains(t, prompt, "TO_TIMESTAMP")
	assert.Contains(t, prompt, "LIMIT")
	assert.Contains(t, prompt, "quantas autuações por estado?")
}

func TestGenerateSQLiteDialect(t *testing.T) {
	provider := &fakeProvider{out: "SELECT 1"}
	g := NewGenerator(provider, &fakeSchema{}, "ibama_infracao", DialectSQLite, 0, logger.NewNoOpLogger())
	g.Generate(context.Background(), "soma das multas")

	assert.Contains(t, provider.lastReq.Prompt, "AS REAL")
	assert.Contains(t, provider.lastReq.Prompt, "strftime")
	assert.NotContains(t, provider.lastReq.Prompt, "TO_TIMESTAMP")
}

func TestGenerateFallbackColumnsOnDescribeError(t *testing.T) {
	provider := &fakeProvider{out: "SELECT 1"}
	schema := &fakeSchema{err: errors.New("introspection unavailable")}

	g := NewGenerator(provider, schema, "ibama_infracao", DialectPostgres, 0, logger.NewNoOpLogger())
	g.Generate(context.Background(), "pergunta")

	// All known columns appear even without live introspection.
	assert.Contains(t, provider.lastReq.Prompt, "NUM_AUTO_INFRACAO")
	assert.Contains(t, provider.lastReq.Prompt, "GRAVIDADE_INFRACAO")
}

func TestGenerateProviderFailureYieldsEmpty(t *testing.T) {
	provider := &fakeProvider{err: errors.New("quota exceeded")}
	g := NewGenerator(provider, &fakeSchema{}, "ibama_infracao", DialectPostgres, 0, logger.NewNoOpLogger())

	out := g.Generate(context.Background(), "pergunta")
	require.Empty(t, out, "provider failure must yield an empty candidate, not an error")
}
