package models

// AnalyzeRequest is the inbound analysis request.
type AnalyzeRequest struct {
	Ticker string `json:"ticker" query:"ticker" validate:"required,max=10,alphanum"`
}
