package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "infraction-insights/internal/common/errors"
	"infraction-insights/internal/common/metrics"
)

// deniedKeywords are statement types that must never reach a backend. They
// are matched on word boundaries, so identifiers like "updated_at" pass.
var deniedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "TRUNCATE",
	"GRANT", "REVOKE", "EXEC", "MERGE", "ATTACH", "PRAGMA", "COPY",
}

var deniedPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(deniedKeywords, "|") + `)\b`)

var selectPrefix = regexp.MustCompile(`(?i)^\s*SELECT\b`)

// Extract pulls the first SELECT statement out of a raw model completion:
// code fences are stripped, the statement runs until a blank line or the end
// of the text, and trailing comment lines are dropped.
func Extract(raw string) (string, bool) {
	text := stripFences(raw)

	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if selectPrefix.MatchString(line) {
			start = i
			break
		}
	}
	if start == -1 {
		return "", false
	}

	var stmt []string
	for _, line := range lines[start:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			break
		}
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		// Drop an inline trailing comment.
		if i := strings.Index(trimmed, "--"); i > 0 {
			trimmed = strings.TrimSpace(trimmed[:i])
		}
		stmt = append(stmt, trimmed)
	}

	query := strings.TrimSpace(strings.Join(stmt, " "))
	if query == "" {
		return "", false
	}
	return query, true
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.Contains(text, "```") {
		return text
	}

	var out []string
	inFence := false
	hasFencedContent := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			out = append(out, line)
			hasFencedContent = true
		}
	}

	if hasFencedContent {
		return strings.Join(out, "\n")
	}
	return strings.ReplaceAll(text, "```", "")
}

// Validate enforces the read-only policy: the statement must start with
// SELECT, contain no denied keyword and no chained second statement. A
// rejection is a policy outcome, not an internal failure.
func Validate(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return apperrors.NewPolicyError("empty query")
	}

	if !selectPrefix.MatchString(trimmed) {
		metrics.ValidatorRejections.WithLabelValues("not_select").Inc()
		return apperrors.NewPolicyError("query must start with SELECT")
	}

	// A single trailing semicolon is fine; anything after it is not.
	if i := strings.IndexByte(trimmed, ';'); i >= 0 {
		rest := strings.TrimSpace(trimmed[i+1:])
		if rest != "" {
			metrics.ValidatorRejections.WithLabelValues("chained_statement").Inc()
			return apperrors.NewPolicyError("chained statements are not allowed")
		}
	}

	if m := deniedPattern.FindString(trimmed); m != "" {
		keyword := strings.ToUpper(m)
		metrics.ValidatorRejections.WithLabelValues(keyword).Inc()
		return apperrors.NewPolicyError(fmt.Sprintf("keyword %s is not allowed", keyword))
	}

	return nil
}
