// internal/models/answer.go
package models

// AnswerSource identifies which strategy produced an answer.
type AnswerSource string

const (
	SourceLocalAnalysis AnswerSource = "analise_local"
	SourceDatabase      AnswerSource = "banco_de_dados"
	SourceWeb           AnswerSource = "internet"
	SourceError         AnswerSource = "erro"
)

// Answer is the terminal result of resolving one question. Errors never
// escape the resolver; they surface here as SourceError with a user-facing
// message.
type Answer struct {
	Text   string       `json:"text"`
	Source AnswerSource `json:"source"`
}

// Disclaimer is appended to answers computed from the in-memory dataset.
const Disclaimer = "\n\n⚠️ *Resposta gerada por análise automática dos dados. Confira os valores antes de uso oficial.*"

// WithDisclaimer returns text with the standard AI-content disclaimer appended.
func WithDisclaimer(text string) string {
	return text + Disclaimer
}
