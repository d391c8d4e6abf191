package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "infraction-insights/internal/common/errors"
	"infraction-insights/internal/common/logger"
	"infraction-insights/internal/common/metrics"

	"github.com/xeipuuv/gojsonschema"
)

// pageSchema validates the shape of one fetched page before ingest. Only the
// citation number is structurally required; every other column may be null.
const pageSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"NUM_AUTO_INFRACAO":  {"type": ["string", "null"]},
			"UF":                 {"type": ["string", "null"]},
			"MUNICIPIO":          {"type": ["string", "null"]},
			"TIPO_INFRACAO":      {"type": ["string", "null"]},
			"VAL_AUTO_INFRACAO":  {"type": ["string", "null"]},
			"NOME_INFRATOR":      {"type": ["string", "null"]},
			"CPF_CNPJ_INFRATOR":  {"type": ["string", "null"]},
			"GRAVIDADE_INFRACAO": {"type": ["string", "null"]}
		}
	}
}`

// PageSource fetches one page of a table as a raw JSON array.
type PageSource interface {
	SelectRange(ctx context.Context, table, columns string, offset, limit int) (json.RawMessage, error)
}

// Config holds fetcher settings.
type Config struct {
	Table    string
	PageSize int
	MaxPages int
}

// Fetcher loads the full infraction table page by page, deduplicating on
// citation number. Page failures end the load but never fail it: whatever
// was accumulated is returned as a partial dataset.
type Fetcher struct {
	source PageSource
	config Config
	logger logger.Logger
	schema *gojsonschema.Schema
}

// NewFetcher creates a fetcher over the given page source.
func NewFetcher(source PageSource, config Config, log logger.Logger) (*Fetcher, error) {
	if config.Table == "" {
		config.Table = "ibama_infracao"
	}
	if config.PageSize <= 0 {
		config.PageSize = 1000
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 100
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(pageSchema))
	if err != nil {
		return nil, fmt.Errorf("compile page schema: %w", err)
	}

	return &Fetcher{
		source: source,
		config: config,
		logger: log,
		schema: schema,
	}, nil
}

// FetchAll loads every page of the table. The returned dataset is never nil
// and never accompanied by an error: page-level failures mark it partial.
func (f *Fetcher) FetchAll(ctx context.Context) *Dataset {
	ds := &Dataset{FetchedAt: time.Now().UTC()}
	seen := make(map[string]struct{})
	dropped := 0

	for page := 0; ; page++ {
		if page >= f.config.MaxPages {
			f.markPartial(ds, "page_ceiling", fmt.Sprintf("stopped at page ceiling %d", f.config.MaxPages))
			break
		}

		offset := page * f.config.PageSize
		raw, err := f.source.SelectRange(ctx, f.config.Table, "*", offset, f.config.PageSize)
		if err != nil {
			f.markPartial(ds, "page_error", fmt.Sprintf("page %d: %v", page, err))
			break
		}

		records, err := f.decodePage(raw)
		if err != nil {
			f.markPartial(ds, "page_invalid", fmt.Sprintf("page %d: %v", page, err))
			break
		}

		metrics.DatasetPagesFetched.Inc()

		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			if rec.CitationNumber == "" {
				dropped++
				continue
			}
			if _, dup := seen[rec.CitationNumber]; dup {
				dropped++
				continue
			}
			seen[rec.CitationNumber] = struct{}{}
			ds.Records = append(ds.Records, rec)
		}

		// Short page means the table is exhausted.
		if len(records) < f.config.PageSize {
			break
		}
	}

	if dropped > 0 {
		metrics.DatasetDuplicatesDropped.Add(float64(dropped))
	}

	f.logger.Info("dataset load finished", map[string]interface{}{
		"table":   f.config.Table,
		"records": len(ds.Records),
		"dropped": dropped,
		"partial": ds.Partial,
		"reason":  ds.PartialReason,
	})

	return ds
}

// decodePage validates the raw page payload and unmarshals its records.
func (f *Fetcher) decodePage(raw json.RawMessage) ([]Record, error) {
	result, err := f.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, apperrors.NewSchemaValidationError(err.Error())
	}
	if !result.Valid() {
		detail := ""
		if errs := result.Errors(); len(errs) > 0 {
			detail = errs[0].String()
		}
		return nil, apperrors.NewSchemaValidationError(detail)
	}

	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, apperrors.NewSchemaValidationError(err.Error())
	}
	return records, nil
}

func (f *Fetcher) markPartial(ds *Dataset, reason, detail string) {
	ds.Partial = true
	ds.PartialReason = detail
	metrics.DatasetPartialLoads.WithLabelValues(reason).Inc()
	f.logger.Warn("dataset load stopped early", map[string]interface{}{
		"table":  f.config.Table,
		"reason": reason,
		"detail": detail,
	})
}
