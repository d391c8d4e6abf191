package analytics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"infraction-insights/internal/dataset"
)

// offenderAgg is one (name, tax id) group with its accumulated numbers.
// Grouping on the tuple keeps homonymous offenders apart.
type offenderAgg struct {
	Name  string
	TaxID string
	Total float64
	Count int
}

// aggregateOffenders sums penalties per (name, tax id), optionally filtered
// by offender kind, and returns groups sorted by total descending.
func aggregateOffenders(records []dataset.Record, kind dataset.OffenderKind) []offenderAgg {
	type key struct{ name, taxID string }
	groups := make(map[key]*offenderAgg)

	for _, rec := range records {
		if rec.OffenderName == "" {
			continue
		}
		if kind != dataset.OffenderUnknown && rec.Kind() != kind {
			continue
		}
		k := key{rec.OffenderName, rec.OffenderTaxID}
		agg, ok := groups[k]
		if !ok {
			agg = &offenderAgg{Name: rec.OffenderName, TaxID: rec.OffenderTaxID}
			groups[k] = agg
		}
		agg.Total += rec.Penalty()
		agg.Count++
	}

	out := make([]offenderAgg, 0, len(groups))
	for _, agg := range groups {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// bucketAgg is one grouped count/sum, used for categories, states,
// municipalities and severity buckets.
type bucketAgg struct {
	Label string
	Total float64
	Count int
}

func aggregateBy(records []dataset.Record, label func(dataset.Record) string) []bucketAgg {
	groups := make(map[string]*bucketAgg)
	for _, rec := range records {
		l := label(rec)
		if l == "" {
			continue
		}
		agg, ok := groups[l]
		if !ok {
			agg = &bucketAgg{Label: l}
			groups[l] = agg
		}
		agg.Total += rec.Penalty()
		agg.Count++
	}

	out := make([]bucketAgg, 0, len(groups))
	for _, agg := range groups {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func distinctOffenderNames(records []dataset.Record) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, rec := range records {
		if rec.OffenderName == "" {
			continue
		}
		if _, ok := seen[rec.OffenderName]; ok {
			continue
		}
		seen[rec.OffenderName] = struct{}{}
		names = append(names, rec.OffenderName)
	}
	return names
}

// matchedCategory returns the first infraction category present in the
// dataset whose name appears in the question.
func matchedCategory(q string, ds *dataset.Dataset) string {
	seen := make(map[string]struct{})
	for _, rec := range ds.Records {
		cat := strings.TrimSpace(rec.Category)
		if cat == "" {
			continue
		}
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		if strings.Contains(q, strings.ToLower(cat)) {
			return cat
		}
	}
	return ""
}

// brazilStates maps UF codes to full state names, both used for detection.
var brazilStates = map[string]string{
	"AC": "acre", "AL": "alagoas", "AP": "amapá", "AM": "amazonas",
	"BA": "bahia", "CE": "ceará", "DF": "distrito federal",
	"ES": "espírito santo", "GO": "goiás", "MA": "maranhão",
	"MT": "mato grosso", "MS": "mato grosso do sul", "MG": "minas gerais",
	"PA": "pará", "PB": "paraíba", "PR": "paraná", "PE": "pernambuco",
	"PI": "piauí", "RJ": "rio de janeiro", "RN": "rio grande do norte",
	"RS": "rio grande do sul", "RO": "rondônia", "RR": "roraima",
	"SC": "santa catarina", "SP": "são paulo", "SE": "sergipe",
	"TO": "tocantins",
}

var tokenSplit = regexp.MustCompile(`[^\p{L}\d]+`)

// detectState finds a UF mentioned in the question, by code token or by full
// state name. Longer names are checked first so "mato grosso do sul" never
// resolves to MT.
func detectState(q string) string {
	type entry struct{ code, name string }
	entries := make([]entry, 0, len(brazilStates))
	for code, name := range brazilStates {
		entries = append(entries, entry{code, name})
	}
	sort.Slice(entries, func(i, j int) bool { return len(entries[i].name) > len(entries[j].name) })

	for _, e := range entries {
		if strings.Contains(q, e.name) {
			return e.code
		}
	}

	for _, tok := range tokenSplit.Split(q, -1) {
		upper := strings.ToUpper(tok)
		if _, ok := brazilStates[upper]; ok && len(tok) == 2 {
			return upper
		}
	}
	return ""
}

var topNPattern = regexp.MustCompile(`\b(\d{1,3})\b`)

// parseTopN extracts a ranking size from the question, defaulting when
// absent or implausible.
func parseTopN(q string, fallback int) int {
	m := topNPattern.FindStringSubmatch(q)
	if m == nil {
		return fallback
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > 100 {
		return fallback
	}
	return n
}

// offenderKindFromQuestion detects a CPF-only or CNPJ-only restriction.
func offenderKindFromQuestion(q string) dataset.OffenderKind {
	if containsAny(q, "cnpj", "empresa", "jurídic", "organizaç") {
		return dataset.OffenderOrganization
	}
	if containsAny(q, "cpf", "pessoa física", "pessoas físicas", "pessoa fisica", "pessoas fisicas") {
		return dataset.OffenderIndividual
	}
	return dataset.OffenderUnknown
}
