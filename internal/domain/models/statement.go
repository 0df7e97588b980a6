package models

import "sort"

// StatementType identifies one of the three standard statements.
type StatementType string

const (
	StatementIncome   StatementType = "income"
	StatementBalance  StatementType = "balance"
	StatementCashFlow StatementType = "cashflow"
	StatementAll      StatementType = "all"
)

// ValidStatementType reports whether s names a fetchable statement type.
func ValidStatementType(s StatementType) bool {
	switch s {
	case StatementIncome, StatementBalance, StatementCashFlow, StatementAll:
		return true
	}
	return false
}

// StatementRow is one line of a market-source statement, kept under the
// source's native label. Canonicalization happens in the normalizer, not in
// the client that fetched it.
type StatementRow struct {
	Label  string  `json:"label"`
	Tag    string  `json:"tag,omitempty"` // XBRL concept tag when the source carries one
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Period Period  `json:"period"`
}

// StatementSeries is an ordered run of statement rows for one statement type,
// most recent period last. An empty Rows slice is a valid result: the ticker
// exists but reported nothing, which is distinct from NotFound.
type StatementSeries struct {
	Ticker     string        `json:"ticker"`
	Type       StatementType `json:"type"`
	PeriodType PeriodType    `json:"period_type"`
	Rows       []StatementRow `json:"rows"`
}

// SortByPeriod orders rows by period end ascending so the most recent
// observation is last.
func (s *StatementSeries) SortByPeriod() {
	sort.SliceStable(s.Rows, func(i, j int) bool {
		return s.Rows[i].Period.End.Before(s.Rows[j].Period.End)
	})
}

// Periods returns the distinct period end dates present, ascending.
func (s *StatementSeries) Periods() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.Rows {
		k := r.Period.End.Format("2006-01-02")
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
