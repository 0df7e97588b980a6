package models

import (
	"fmt"
	"time"
)

// FactSource identifies which upstream produced a value.
type FactSource string

const (
	SourceFiling FactSource = "filing"
	SourceMarket FactSource = "market-statement"
)

// PeriodType distinguishes quarterly from annual reporting periods.
type PeriodType string

const (
	PeriodQuarterly PeriodType = "quarterly"
	PeriodAnnual    PeriodType = "annual"

	// PeriodAll is a request-level value that fans out across both period
	// types. It never appears on a stored Period.
	PeriodAll PeriodType = "all"
)

// Period is a fiscal reporting period. Alignment across sources is always by
// End date, never by ordinal quarter position, so fiscal years that do not end
// in December line up correctly.
type Period struct {
	End   time.Time  `json:"end"`
	Type  PeriodType `json:"type"`
	Label string     `json:"label,omitempty"` // source label, e.g. "Q3 2024" or "FY2024"
}

// FactPoint is one observation of a concept as delivered by the filing source.
type FactPoint struct {
	Period Period  `json:"period"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
}

// FinancialFact is a normalized statement line item. Immutable once built;
// corrections are new records with provenance.
type FinancialFact struct {
	Concept       string     `json:"concept"` // canonical vocabulary, or "other"
	OriginalLabel string     `json:"original_label,omitempty"`
	Period        Period     `json:"period"`
	Value         float64    `json:"value"` // whole currency units after scaling
	Unit          string     `json:"unit"`
	OriginalUnit  string     `json:"original_unit,omitempty"`
	Source        FactSource `json:"source"`

	// SecondaryValue holds the losing side of a source conflict. The filing
	// value is authoritative; the market value is retained here for the
	// qualitative-check phase to reference.
	SecondaryValue  *float64   `json:"secondary_value,omitempty"`
	SecondarySource FactSource `json:"secondary_source,omitempty"`
}

// FactKey addresses exactly one normalized fact. "other"-bucket facts keep
// their original label in the key so distinct unknown lines never collide.
type FactKey struct {
	Concept   string
	PeriodEnd string // YYYY-MM-DD
	Type      PeriodType
}

// Key returns the fact's address in a normalized set.
func (f *FinancialFact) Key() FactKey {
	concept := f.Concept
	if concept == ConceptOther && f.OriginalLabel != "" {
		concept = fmt.Sprintf("%s:%s", ConceptOther, f.OriginalLabel)
	}
	return FactKey{Concept: concept, PeriodEnd: f.Period.End.Format("2006-01-02"), Type: f.Period.Type}
}

// ConceptOther buckets labels outside the canonical vocabulary.
const ConceptOther = "other"
