// Package router decides how each question is answered and drives the
// resolution flow end to end.
package router

import "strings"

// Intent is the routing decision for one question.
type Intent string

const (
	// IntentStructuredQuery sends the question through the SQL pipeline.
	IntentStructuredQuery Intent = "structured_query"

	// IntentExternalLookup sends the question to web search.
	IntentExternalLookup Intent = "external_lookup"
)

// dataKeywords indicate questions about the infraction dataset: counts,
// rankings, sums and column vocabulary. They take precedence.
var dataKeywords = []string{
	"quantas", "quantos", "total", "top", "soma", "valor", "média", "media",
	"ranking", "maiores", "infrações", "infracoes", "multas", "autuações",
	"autuacoes", "infrator", "gravidade", "estados", "municípios",
	"municipios", "uf",
}

// lookupKeywords indicate general-knowledge questions better served by the
// web.
var lookupKeywords = []string{
	"o que é", "o que e", "endereço", "endereco", "significado de",
	"site oficial", "telefone", "contato", "história", "historia",
	"quem é", "quem e", "localização", "localizacao", "site",
}

// Route classifies a question. Data keywords are checked first and win any
// double match; the default is the query pipeline.
func Route(question string) Intent {
	q := strings.ToLower(question)

	for _, kw := range dataKeywords {
		if strings.Contains(q, kw) {
			return IntentStructuredQuery
		}
	}

	for _, kw := range lookupKeywords {
		if strings.Contains(q, kw) {
			return IntentExternalLookup
		}
	}

	return IntentStructuredQuery
}
