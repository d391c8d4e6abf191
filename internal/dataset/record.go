// Package dataset loads and models IBAMA infraction records.
package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Record is one infraction citation row from the ibama_infracao table.
// Numeric and coordinate columns arrive as locale-formatted text and are kept
// verbatim; accessors parse on demand.
type Record struct {
	CitationNumber string `json:"NUM_AUTO_INFRACAO"`
	IssuedAt       string `json:"DAT_HORA_AUTO_INFRACAO"`
	State          string `json:"UF"`
	Municipality   string `json:"MUNICIPIO"`
	Category       string `json:"TIPO_INFRACAO"`
	PenaltyText    string `json:"VAL_AUTO_INFRACAO"`
	OffenderName   string `json:"NOME_INFRATOR"`
	OffenderTaxID  string `json:"CPF_CNPJ_INFRATOR"`
	Severity       string `json:"GRAVIDADE_INFRACAO"`
	FormStatus     string `json:"DES_STATUS_FORMULARIO"`
	Latitude       string `json:"NUM_LATITUDE_AUTO"`
	Longitude      string `json:"NUM_LONGITUDE_AUTO"`
}

// OffenderKind distinguishes individuals from organizations by tax id shape.
type OffenderKind int

const (
	OffenderUnknown      OffenderKind = iota
	OffenderIndividual                // CPF, 11 digits
	OffenderOrganization              // CNPJ, 14 digits
)

// SeverityUnrated is the explicit bucket for records with no severity rating.
const SeverityUnrated = "Não informada"

// Penalty parses the comma-decimal penalty text into a float. Malformed or
// blank values count as zero.
func (r Record) Penalty() float64 {
	s := strings.TrimSpace(r.PenaltyText)
	if s == "" {
		return 0
	}
	if strings.ContainsRune(s, ',') {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Kind classifies the offender by the digit count of its tax id.
func (r Record) Kind() OffenderKind {
	digits := 0
	for _, c := range r.OffenderTaxID {
		if c >= '0' && c <= '9' {
			digits++
		}
	}
	switch digits {
	case 11:
		return OffenderIndividual
	case 14:
		return OffenderOrganization
	default:
		return OffenderUnknown
	}
}

// SeverityBucket maps blank severity to the explicit unrated bucket.
func (r Record) SeverityBucket() string {
	s := strings.TrimSpace(r.Severity)
	if s == "" || strings.EqualFold(s, "null") {
		return SeverityUnrated
	}
	return s
}

// Dataset is one complete load of the infraction table. Partial loads are
// valid datasets; Partial records that the fetch stopped early and why.
type Dataset struct {
	Records       []Record
	Partial       bool
	PartialReason string
	FetchedAt     time.Time
}

// Empty reports whether the load produced no usable records.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Records) == 0
}
