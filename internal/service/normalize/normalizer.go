package normalize

import (
	"math"
	"sort"

	"FundLens/internal/domain/models"
	applogger "FundLens/pkg/logger"
)

// conflictTolerance is the relative difference below which two sources are
// considered to agree on a value.
const conflictTolerance = 1e-6

// Discrepancy records a source conflict that was resolved in the filing's
// favor. Kept alongside the facts so downstream consumers can surface it.
type Discrepancy struct {
	Concept     string  `json:"concept"`
	PeriodEnd   string  `json:"period_end"`
	FilingValue float64 `json:"filing_value"`
	MarketValue float64 `json:"market_value"`
}

// NormalizedSet is the merged, canonicalized view of both upstreams for one
// company. Facts are addressed by FactKey; the same concept and period from
// two sources occupies one slot with the filing value winning.
type NormalizedSet struct {
	Facts         map[models.FactKey]*models.FinancialFact
	Discrepancies []Discrepancy
}

// Ordered returns the facts sorted by concept, then period end ascending.
// Map iteration order is useless for building deterministic tool responses.
func (s *NormalizedSet) Ordered() []*models.FinancialFact {
	out := make([]*models.FinancialFact, 0, len(s.Facts))
	for _, f := range s.Facts {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Concept != out[j].Concept {
			return out[i].Concept < out[j].Concept
		}
		return out[i].Period.End.Before(out[j].Period.End)
	})
	return out
}

// Normalizer merges filing facts and market statement rows into a single
// canonical fact set.
type Normalizer struct {
	logger *applogger.Logger
}

// New creates a Normalizer.
func New(logger *applogger.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize builds a normalized set from filing facts (already keyed by
// canonical concept) and market statement series (native labels and tags).
// Filing values are authoritative: when both sources report the same concept
// for the same period end and disagree, the filing value is kept and the
// market value is attached as the secondary, with a discrepancy recorded.
// Alignment is strictly by period end date so off-December fiscal years from
// both sources land in the same slot.
func (n *Normalizer) Normalize(filingFacts map[string][]models.FactPoint, series ...*models.StatementSeries) *NormalizedSet {
	set := &NormalizedSet{Facts: make(map[models.FactKey]*models.FinancialFact)}

	for concept, points := range filingFacts {
		for _, p := range points {
			value, unit := ScaleValue(p.Value, p.Unit)
			fact := &models.FinancialFact{
				Concept:      concept,
				Period:       p.Period,
				Value:        value,
				Unit:         unit,
				OriginalUnit: p.Unit,
				Source:       models.SourceFiling,
			}
			set.Facts[fact.Key()] = fact
		}
	}

	for _, s := range series {
		if s == nil {
			continue
		}
		for _, row := range s.Rows {
			n.mergeRow(set, row)
		}
	}
	return set
}

func (n *Normalizer) mergeRow(set *NormalizedSet, row models.StatementRow) {
	value, unit := ScaleValue(row.Value, row.Unit)
	fact := &models.FinancialFact{
		Concept:       CanonicalConcept(row.Tag, row.Label),
		OriginalLabel: row.Label,
		Period:        row.Period,
		Value:         value,
		Unit:          unit,
		OriginalUnit:  row.Unit,
		Source:        models.SourceMarket,
	}
	key := fact.Key()

	existing, ok := set.Facts[key]
	if !ok {
		set.Facts[key] = fact
		return
	}
	if existing.Source != models.SourceFiling {
		// Two market rows mapped to the same slot; first one stays.
		return
	}

	// Filing wins. Keep the market value as the secondary and record the
	// conflict when the two materially disagree.
	if existing.OriginalLabel == "" {
		existing.OriginalLabel = row.Label
	}
	v := value
	existing.SecondaryValue = &v
	existing.SecondarySource = models.SourceMarket
	if !withinTolerance(existing.Value, value) {
		set.Discrepancies = append(set.Discrepancies, Discrepancy{
			Concept:     existing.Concept,
			PeriodEnd:   key.PeriodEnd,
			FilingValue: existing.Value,
			MarketValue: value,
		})
		if n.logger != nil {
			n.logger.Debug("source conflict resolved in filing's favor",
				applogger.String("concept", existing.Concept),
				applogger.String("period_end", key.PeriodEnd),
				applogger.Any("filing", existing.Value),
				applogger.Any("market", value))
		}
	}
}

func withinTolerance(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= conflictTolerance*scale
}
