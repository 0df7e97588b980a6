package util

import "time"

// ParseReportDate parses a reporting-period end date. Upstreams disagree on
// the format: EDGAR sends "2006-01-02", Finnhub pads it with a zero time
// ("2006-01-02 15:04:05"). Only the date part matters for period alignment.
func ParseReportDate(s string) (time.Time, bool) {
	if len(s) < 10 {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseReportDateDefault parses a reporting date or returns def.
func ParseReportDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseReportDate(s); ok {
		return t
	}
	return def
}
