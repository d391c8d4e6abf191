package dataset

import "fmt"

// IntegrityReport summarizes citation-number quality over a raw record set,
// before deduplication. Logged after every refresh.
type IntegrityReport struct {
	TotalRows      int
	UniqueRows     int
	DuplicateRows  int
	BlankCitations int
	TopDuplicates  []DuplicateEntry
}

// DuplicateEntry is one citation number seen more than once.
type DuplicateEntry struct {
	CitationNumber string
	Count          int
}

// Inspect builds an integrity report over raw records.
func Inspect(records []Record) IntegrityReport {
	report := IntegrityReport{TotalRows: len(records)}

	counts := make(map[string]int)
	for _, rec := range records {
		if rec.CitationNumber == "" {
			report.BlankCitations++
			continue
		}
		counts[rec.CitationNumber]++
	}

	report.UniqueRows = len(counts)
	for num, n := range counts {
		if n > 1 {
			report.DuplicateRows += n - 1
			report.TopDuplicates = append(report.TopDuplicates, DuplicateEntry{CitationNumber: num, Count: n})
		}
	}

	// Keep only the five worst offenders, highest count first.
	for i := 0; i < len(report.TopDuplicates); i++ {
		for j := i + 1; j < len(report.TopDuplicates); j++ {
			if report.TopDuplicates[j].Count > report.TopDuplicates[i].Count {
				report.TopDuplicates[i], report.TopDuplicates[j] = report.TopDuplicates[j], report.TopDuplicates[i]
			}
		}
	}
	if len(report.TopDuplicates) > 5 {
		report.TopDuplicates = report.TopDuplicates[:5]
	}

	return report
}

// Summary renders the report as a single log-friendly line.
func (r IntegrityReport) Summary() string {
	return fmt.Sprintf("rows=%d unique=%d duplicates=%d blank=%d",
		r.TotalRows, r.UniqueRows, r.DuplicateRows, r.BlankCitations)
}
