package router

import (
	"fmt"
	"strconv"
	"strings"

	"infraction-insights/internal/format"
	"infraction-insights/internal/query"
)

// maxRenderedRows caps how many rows a text table shows.
const maxRenderedRows = 30

// formatResult renders a query result as prose or a text table. A single
// numeric cell becomes a sentence, phrased as currency or count depending on
// the question's wording.
func formatResult(question string, res *query.Result) string {
	if res.Empty() {
		return "Não encontrei registros para essa consulta."
	}

	var text string
	if cell, ok := res.SingleValue(); ok {
		text = formatSingleValue(question, cell)
	} else {
		text = renderTable(res)
	}

	if res.Degraded && res.Note != "" {
		text += "\n\n" + res.Note
	}
	return text
}

func formatSingleValue(question, cell string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return cell
	}

	q := strings.ToLower(question)
	if containsAnyWord(q, "valor", "soma", "r$", "multa", "multas", "arrecada") {
		return fmt.Sprintf("O valor encontrado foi %s.", format.Currency(v))
	}
	return fmt.Sprintf("Foram encontrados %s registros.", format.Count(int(v)))
}

func containsAnyWord(q string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

// renderTable produces an aligned monospace table with title-cased headers.
func renderTable(res *query.Result) string {
	headers := make([]string, len(res.Columns))
	widths := make([]int, len(res.Columns))
	for i, col := range res.Columns {
		headers[i] = titleCaseHeader(col)
		widths[i] = len([]rune(headers[i]))
	}

	rows := res.Rows
	truncated := false
	if len(rows) > maxRenderedRows {
		rows = rows[:maxRenderedRows]
		truncated = true
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len([]rune(cell)) > widths[i] {
				widths[i] = len([]rune(cell))
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if pad := widths[i] - len([]rune(cell)); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	for i, w := range widths {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(strings.Repeat("-", w))
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}

	out := strings.TrimRight(b.String(), "\n")
	if truncated {
		out += fmt.Sprintf("\n\n(mostrando %d de %d linhas)", maxRenderedRows, len(res.Rows))
	}
	return out
}

// titleCaseHeader turns SNAKE_CASE column names into readable headers:
// "NUM_AUTO_INFRACAO" becomes "Num Auto Infracao".
func titleCaseHeader(name string) string {
	parts := strings.Split(strings.ToLower(name), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		parts[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(parts, " ")
}
