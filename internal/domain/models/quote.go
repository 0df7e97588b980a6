package models

import (
	"math"
	"time"
)

// MarketCapTolerance is the relative tolerance for accepting a source-reported
// market cap against price * shares outstanding.
const MarketCapTolerance = 0.005

// Quote is a point-in-time snapshot from the market source.
type Quote struct {
	Ticker            string    `json:"ticker"`
	Price             float64   `json:"price"`
	Change            float64   `json:"change"`
	ChangePercent     float64   `json:"change_percent"`
	DayHigh           float64   `json:"day_high"`
	DayLow            float64   `json:"day_low"`
	Open              float64   `json:"open"`
	PreviousClose     float64   `json:"previous_close"`
	Currency          string    `json:"currency"`
	AsOf              time.Time `json:"as_of"`
	SharesOutstanding float64   `json:"shares_outstanding"`

	// MarketCap is always price * shares outstanding. When the source reports
	// its own figure and it deviates beyond tolerance, the derived value is
	// kept and the discrepancy is flagged, never silently reconciled.
	MarketCap         float64 `json:"market_cap"`
	ReportedMarketCap float64 `json:"reported_market_cap,omitempty"`
	MarketCapMismatch bool    `json:"market_cap_mismatch,omitempty"`
}

// SetMarketCap derives the market cap and flags any disagreement with the
// value the source reported (reported <= 0 means not reported).
func (q *Quote) SetMarketCap(reported float64) {
	q.MarketCap = q.Price * q.SharesOutstanding
	if reported <= 0 {
		return
	}
	q.ReportedMarketCap = reported
	if q.MarketCap == 0 {
		q.MarketCapMismatch = reported != 0
		return
	}
	if math.Abs(reported-q.MarketCap)/q.MarketCap > MarketCapTolerance {
		q.MarketCapMismatch = true
	}
}
