package analytics

import (
	"fmt"
	"strings"

	"infraction-insights/internal/dataset"
	"infraction-insights/internal/format"
)

// --- (a) value by infraction category ---

func matchValueByCategory(e *Engine, q string, ds *dataset.Dataset) bool {
	if !containsAny(q, "valor", "soma", "multa", "total") {
		return false
	}
	return containsAny(q, "tipo", "categoria") || matchedCategory(q, ds) != ""
}

func runValueByCategory(e *Engine, q string, ds *dataset.Dataset) string {
	if cat := matchedCategory(q, ds); cat != "" {
		var total float64
		count := 0
		for _, rec := range ds.Records {
			if rec.Category == cat {
				total += rec.Penalty()
				count++
			}
		}
		return fmt.Sprintf("As autuações de **%s** somam %s em %s registros.",
			cat, format.Currency(total), format.Count(count))
	}

	buckets := aggregateBy(ds.Records, func(r dataset.Record) string { return strings.TrimSpace(r.Category) })
	if len(buckets) > e.config.TopLimit {
		buckets = buckets[:e.config.TopLimit]
	}

	var b strings.Builder
	b.WriteString("Valor das multas por tipo de infração:\n")
	for _, bk := range buckets {
		fmt.Fprintf(&b, "• %s: %s (%s autuações)\n", bk.Label, format.Currency(bk.Total), format.Count(bk.Count))
	}
	return strings.TrimRight(b.String(), "\n")
}

// --- (b) severity distribution ---

func matchSeverity(e *Engine, q string, ds *dataset.Dataset) bool {
	return containsAny(q, "gravidade", "severidade", "graves")
}

func runSeverity(e *Engine, q string, ds *dataset.Dataset) string {
	buckets := aggregateBy(ds.Records, func(r dataset.Record) string { return r.SeverityBucket() })

	// Order by count; the unrated bucket stays wherever its volume puts it,
	// but it is always present when such records exist.
	total := len(ds.Records)

	var b strings.Builder
	b.WriteString("Distribuição das autuações por gravidade:\n")
	for _, bk := range buckets {
		pct := float64(bk.Count) / float64(total) * 100
		fmt.Fprintf(&b, "• %s: %s autuações (%s)\n", bk.Label, format.Count(bk.Count), format.Percent(pct))
	}
	return strings.TrimRight(b.String(), "\n")
}

// --- (c) top offenders by summed penalty ---

func matchTopOffenders(e *Engine, q string, ds *dataset.Dataset) bool {
	if !containsAny(q, "maiores", "top", "ranking", "principais") {
		return false
	}
	return containsAny(q, "infrator", "autuado", "multado", "empresa", "pessoa", "cnpj", "cpf", "devedores")
}

func runTopOffenders(e *Engine, q string, ds *dataset.Dataset) string {
	kind := offenderKindFromQuestion(q)
	n := parseTopN(q, e.config.TopLimit)

	aggs := aggregateOffenders(ds.Records, kind)
	if len(aggs) == 0 {
		return "Não encontrei infratores para esse recorte."
	}
	if len(aggs) > n {
		aggs = aggs[:n]
	}

	title := "Maiores infratores por valor total de multas"
	switch kind {
	case dataset.OffenderOrganization:
		title = "Maiores infratores pessoa jurídica (CNPJ) por valor total de multas"
	case dataset.OffenderIndividual:
		title = "Maiores infratores pessoa física (CPF) por valor total de multas"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", title)
	for i, agg := range aggs {
		fmt.Fprintf(&b, "%d. %s (%s): %s em %s autuações\n",
			i+1, agg.Name, maskTaxID(agg.TaxID), format.Currency(agg.Total), format.Count(agg.Count))
	}
	return strings.TrimRight(b.String(), "\n")
}

// maskTaxID hides the middle digits of a CPF/CNPJ in rendered answers.
func maskTaxID(taxID string) string {
	if len(taxID) < 6 {
		return "documento não informado"
	}
	return taxID[:4] + strings.Repeat("*", len(taxID)-6) + taxID[len(taxID)-2:]
}

// --- (d) specific offender lookup ---

var lookupTriggers = []string{
	"do infrator", "da infratora", "da empresa", "do autuado",
	"multas de", "infrações de", "infracoes de", "autuações de", "autuacoes de",
}

func matchOffenderLookup(e *Engine, q string, ds *dataset.Dataset) bool {
	if strings.ContainsRune(q, '"') || strings.ContainsRune(q, '\'') {
		return extractTargetName(q) != ""
	}
	if !containsAny(q, lookupTriggers...) {
		return false
	}
	// "autuações de Flora no Pará" names a category or place, not an
	// offender; leave those to the filter rules below.
	target := extractTargetName(q)
	return target != "" && matchedCategory(target, ds) == "" && detectState(target) == ""
}

func runOffenderLookup(e *Engine, q string, ds *dataset.Dataset) string {
	target := extractTargetName(q)
	if target == "" {
		return "Não consegui identificar o nome do infrator na pergunta. Coloque o nome entre aspas, por exemplo: multas de \"Fulano de Tal\"."
	}

	names := distinctOffenderNames(ds.Records)
	name, ok := bestNameMatch(target, names, e.config.NameMatchThreshold)
	if !ok {
		return fmt.Sprintf("Não encontrei nenhum infrator parecido com %q nos dados carregados.", target)
	}

	var matched []dataset.Record
	for _, rec := range ds.Records {
		if rec.OffenderName == name {
			matched = append(matched, rec)
		}
	}

	aggs := aggregateOffenders(matched, dataset.OffenderUnknown)

	var b strings.Builder
	fmt.Fprintf(&b, "Autuações de **%s**:\n", name)
	for _, agg := range aggs {
		fmt.Fprintf(&b, "• Documento %s: %s autuações somando %s\n",
			maskTaxID(agg.TaxID), format.Count(agg.Count), format.Currency(agg.Total))
	}

	cats := aggregateBy(matched, func(r dataset.Record) string { return strings.TrimSpace(r.Category) })
	if len(cats) > 0 {
		b.WriteString("Principais tipos de infração: ")
		for i, c := range cats {
			if i > 0 {
				b.WriteString(", ")
			}
			if i == 3 {
				b.WriteString("...")
				break
			}
			b.WriteString(c.Label)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// extractTargetName pulls the offender name from a question: a quoted string
// when present, otherwise the text after a lookup trigger phrase.
func extractTargetName(q string) string {
	for _, quote := range []string{`"`, `'`} {
		if i := strings.Index(q, quote); i >= 0 {
			rest := q[i+1:]
			if j := strings.Index(rest, quote); j > 0 {
				return strings.TrimSpace(rest[:j])
			}
		}
	}

	for _, trigger := range lookupTriggers {
		if i := strings.Index(q, trigger); i >= 0 {
			name := q[i+len(trigger):]
			name = strings.Trim(name, " ?.!")
			if name != "" {
				return name
			}
		}
	}
	return ""
}

// --- (e) state + category + offender-type filter ---

func matchGeoCategory(e *Engine, q string, ds *dataset.Dataset) bool {
	return detectState(q) != "" && matchedCategory(q, ds) != ""
}

func runGeoCategory(e *Engine, q string, ds *dataset.Dataset) string {
	state := detectState(q)
	cat := matchedCategory(q, ds)
	kind := offenderKindFromQuestion(q)

	var matched []dataset.Record
	for _, rec := range ds.Records {
		if rec.State != state || rec.Category != cat {
			continue
		}
		if kind != dataset.OffenderUnknown && rec.Kind() != kind {
			continue
		}
		matched = append(matched, rec)
	}

	if len(matched) == 0 {
		return fmt.Sprintf("Não há autuações de %s em %s para esse recorte.", cat, state)
	}

	var total float64
	for _, rec := range matched {
		total += rec.Penalty()
	}

	byCount := containsAny(q, "quantidade", "número", "numero", "quantas", "quantos")

	aggs := aggregateOffenders(matched, dataset.OffenderUnknown)
	if byCount {
		// Re-rank by citation count instead of value.
		for i := 0; i < len(aggs); i++ {
			for j := i + 1; j < len(aggs); j++ {
				if aggs[j].Count > aggs[i].Count {
					aggs[i], aggs[j] = aggs[j], aggs[i]
				}
			}
		}
	}
	if len(aggs) > 5 {
		aggs = aggs[:5]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Autuações de **%s** em **%s**: %s registros somando %s.\n",
		cat, state, format.Count(len(matched)), format.Currency(total))
	b.WriteString("Principais autuados:\n")
	for i, agg := range aggs {
		fmt.Fprintf(&b, "%d. %s: %s (%s autuações)\n",
			i+1, agg.Name, format.Currency(agg.Total), format.Count(agg.Count))
	}
	return strings.TrimRight(b.String(), "\n")
}

// --- (f) top states / municipalities ---

func matchTopPlaces(e *Engine, q string, ds *dataset.Dataset) bool {
	if !containsAny(q, "estado", "município", "municipio", "cidade", "uf") {
		return false
	}
	return containsAny(q, "top", "mais", "maiores", "ranking", "quais")
}

func runTopPlaces(e *Engine, q string, ds *dataset.Dataset) string {
	byMunicipality := containsAny(q, "município", "municipio", "cidade")
	byValue := containsAny(q, "valor", "r$", "soma")
	n := parseTopN(q, e.config.TopLimit)

	label := func(r dataset.Record) string { return strings.TrimSpace(r.State) }
	noun := "estados"
	if byMunicipality {
		label = func(r dataset.Record) string { return strings.TrimSpace(r.Municipality) }
		noun = "municípios"
	}

	buckets := aggregateBy(ds.Records, label)
	if !byValue {
		for i := 0; i < len(buckets); i++ {
			for j := i + 1; j < len(buckets); j++ {
				if buckets[j].Count > buckets[i].Count {
					buckets[i], buckets[j] = buckets[j], buckets[i]
				}
			}
		}
	}
	if len(buckets) > n {
		buckets = buckets[:n]
	}

	metric := "número de autuações"
	if byValue {
		metric = "valor total de multas"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d %s por %s:\n", len(buckets), noun, metric)
	for i, bk := range buckets {
		if byValue {
			fmt.Fprintf(&b, "%d. %s: %s (%s autuações)\n", i+1, bk.Label, format.Currency(bk.Total), format.Count(bk.Count))
		} else {
			fmt.Fprintf(&b, "%d. %s: %s autuações (%s)\n", i+1, bk.Label, format.Count(bk.Count), format.Currency(bk.Total))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// --- (g) overall totals ---

func matchTotals(e *Engine, q string, ds *dataset.Dataset) bool {
	return containsAny(q, "quantas", "quantos", "total", "quantidade", "soma")
}

func runTotals(e *Engine, q string, ds *dataset.Dataset) string {
	var total float64
	states := make(map[string]struct{})
	for _, rec := range ds.Records {
		total += rec.Penalty()
		if rec.State != "" {
			states[rec.State] = struct{}{}
		}
	}
	offenders := len(distinctOffenderNames(ds.Records))

	text := fmt.Sprintf(
		"A base carregada tem %s autuações, somando %s em multas, aplicadas a %s infratores distintos em %d estados.",
		format.Count(len(ds.Records)), format.Currency(total), format.Count(offenders), len(states))

	if ds.Partial {
		text += "\n\nAtenção: a carga atual dos dados está incompleta, os números podem subestimar o total real."
	}
	return text
}

// --- (h) capability fallback ---

const capabilitiesText = `Posso responder perguntas sobre as autuações ambientais carregadas, por exemplo:
• "Qual o valor total de multas por tipo de infração?"
• "Qual a distribuição por gravidade?"
• "Quais os 10 maiores infratores por valor?" (também só empresas/CNPJ ou pessoas físicas/CPF)
• "Multas de 'Nome do Infrator'"
• "Autuações de Flora no Pará"
• "Top 5 estados com mais autuações"
• "Quantas autuações existem no total?"`

func runCapabilities(e *Engine, q string, ds *dataset.Dataset) string {
	return capabilitiesText
}
