package types

// ExchangeDocument is the portable export/import format for the full data
// set. ExportDate is RFC 3339. LastCapture may be null.
type ExchangeDocument struct {
	Users       []Identity     `json:"users"`
	LastCapture *CaptureResult `json:"lastCapture"`
	ExportDate  string         `json:"exportDate"`
}
