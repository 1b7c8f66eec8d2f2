package types

// MatchOutcome is the result of a 1:N identification scan. Matched is set
// only when the best score clears the acceptance threshold. Outcomes are
// never persisted directly; they are projected into audit entries.
type MatchOutcome struct {
	Matched  *Identity `json:"matched,omitempty"`
	Score    int       `json:"score"` // 0-199, device scale
	Accepted bool      `json:"accepted"`
}
