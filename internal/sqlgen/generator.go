// Package sqlgen turns natural-language questions into guarded SQL.
package sqlgen

import (
	"context"
	"fmt"
	"strings"

	"infraction-insights/internal/common/logger"
	"infraction-insights/internal/llm"
	"infraction-insights/internal/query"
)

// Dialect selects the SQL flavor the prompt teaches the model.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SchemaSource provides live column information for the prompt.
type SchemaSource interface {
	Describe(ctx context.Context, table string) ([]query.Column, error)
}

// fallbackColumns is the known table layout, used when live introspection
// fails. Every column is stored as text.
var fallbackColumns = []query.Column{
	{Name: "NUM_AUTO_INFRACAO", Type: "text"},
	{Name: "DAT_HORA_AUTO_INFRACAO", Type: "text"},
	{Name: "UF", Type: "text"},
	{Name: "MUNICIPIO", Type: "text"},
	{Name: "TIPO_INFRACAO", Type: "text"},
	{Name: "VAL_AUTO_INFRACAO", Type: "text"},
	{Name: "NOME_INFRATOR", Type: "text"},
	{Name: "CPF_CNPJ_INFRATOR", Type: "text"},
	{Name: "GRAVIDADE_INFRACAO", Type: "text"},
	{Name: "DES_STATUS_FORMULARIO", Type: "text"},
	{Name: "NUM_LATITUDE_AUTO", Type: "text"},
	{Name: "NUM_LONGITUDE_AUTO", Type: "text"},
}

// Generator produces a candidate SELECT for a question. Any failure yields
// an empty candidate, never an error: downstream treats that as "nothing to
// run".
type Generator struct {
	provider  llm.Provider
	schema    SchemaSource
	table     string
	dialect   Dialect
	maxTokens int
	logger    logger.Logger
}

// NewGenerator wires a generator for one table and dialect.
func NewGenerator(provider llm.Provider, schema SchemaSource, table string, dialect Dialect, maxTokens int, log logger.Logger) *Generator {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Generator{
		provider:  provider,
		schema:    schema,
		table:     table,
		dialect:   dialect,
		maxTokens: maxTokens,
		logger:    log,
	}
}

// Generate asks the provider for a single SELECT answering the question.
// Temperature is pinned to zero so identical questions produce identical
// candidates.
func (g *Generator) Generate(ctx context.Context, question string) string {
	columns := fallbackColumns
	if g.schema != nil {
		if live, err := g.schema.Describe(ctx, g.table); err == nil && len(live) > 0 {
			columns = live
		} else if err != nil {
			g.logger.Warn("schema introspection failed, using fallback columns", map[string]interface{}{
				"table": g.table,
				"error": err.Error(),
			})
		}
	}

	raw, err := g.provider.Complete(ctx, llm.Request{
		System:      "Você é um gerador de SQL. Responda somente com a consulta SQL, sem explicações.",
		Prompt:      g.buildPrompt(question, columns),
		Temperature: 0,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		g.logger.Warn("query generation failed", map[string]interface{}{
			"provider": g.provider.Name(),
			"error":    err.Error(),
		})
		return ""
	}

	return raw
}

func (g *Generator) buildPrompt(question string, columns []query.Column) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Tabela: %q\nColunas:\n", g.table)
	for _, col := range columns {
		fmt.Fprintf(&b, "- %q (%s)\n", col.Name, col.Type)
	}

	b.WriteString("\nRegras:\n")
	b.WriteString("1. Gere exatamente UMA consulta SELECT.\n")
	b.WriteString("2. Coloque identificadores entre aspas duplas.\n")

	switch g.dialect {
	case DialectSQLite:
		b.WriteString(`3. "VAL_AUTO_INFRACAO" é texto com vírgula decimal; para somar use CAST(REPLACE("VAL_AUTO_INFRACAO", ',', '.') AS REAL).` + "\n")
		b.WriteString(`4. Para extrair ano/mês de "DAT_HORA_AUTO_INFRACAO" use strftime.` + "\n")
	default:
		b.WriteString(`3. "VAL_AUTO_INFRACAO" é texto com vírgula decimal; para somar use CAST(REPLACE("VAL_AUTO_INFRACAO", ',', '.') AS NUMERIC).` + "\n")
		b.WriteString(`4. Para datas use TO_TIMESTAMP("DAT_HORA_AUTO_INFRACAO", 'DD/MM/YYYY HH24:MI:SS') e EXTRACT para ano/mês.` + "\n")
	}

	b.WriteString(`5. Ao selecionar "NOME_INFRATOR", inclua também "CPF_CNPJ_INFRATOR".` + "\n")
	b.WriteString("6. Dê um alias a toda agregação (SUM, COUNT, AVG).\n")
	b.WriteString("7. Sempre termine com LIMIT.\n")

	fmt.Fprintf(&b, "\nPergunta: %s\nSQL:", question)
	return b.String()
}
