package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name     string
		question string
		expected Intent
	}{
		{"count question", "Quantas multas foram aplicadas em 2024?", IntentStructuredQuery},
		{"ranking question", "Top 10 estados com mais infrações", IntentStructuredQuery},
		{"sum question", "Qual a soma das multas no Pará?", IntentStructuredQuery},
		{"definition question", "O que é o IBAMA?", IntentExternalLookup},
		{"address question", "Qual o endereço da sede do IBAMA?", IntentExternalLookup},
		{"history question", "Qual a história do instituto?", IntentExternalLookup},
		{"double match favors data", "O que é o total de multas por estado?", IntentStructuredQuery},
		{"no keywords defaults to query", "me mostre os dados de 2023", IntentStructuredQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Route(tt.question))
		})
	}
}
