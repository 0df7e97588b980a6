package models

// Company is a resolved issuer. Built on first resolution for a request and
// immutable afterwards; never persisted across requests.
type Company struct {
	Ticker   string `json:"ticker"` // uppercase alphanumeric, unique key
	Name     string `json:"name"`
	CIK      string `json:"cik"` // SEC filer identifier, zero-padded to 10
	Exchange string `json:"exchange,omitempty"`
}

// CompanyProfile carries market-source company metadata.
type CompanyProfile struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name"`
	Exchange  string  `json:"exchange,omitempty"`
	Industry  string  `json:"industry,omitempty"`
	Country   string  `json:"country,omitempty"`
	Currency  string  `json:"currency,omitempty"`
	WebURL    string  `json:"web_url,omitempty"`
	IPODate   string  `json:"ipo_date,omitempty"`
	MarketCap float64 `json:"market_cap,omitempty"` // reported by the market source, millions
	SharesOut float64 `json:"shares_out,omitempty"` // reported by the market source, millions
}

// Filing is metadata for a single regulatory filing.
type Filing struct {
	Form            string `json:"form"` // "10-K" or "10-Q"
	FilingDate      string `json:"filing_date"`
	AccessionNumber string `json:"accession_number"`
	PrimaryDocument string `json:"primary_document,omitempty"`
}
