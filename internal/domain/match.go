package domain

// TokenMatch is a successful rule evaluation of a pair against a config.
// Reasons is never empty: every emitted match carries at least one
// human-readable contributing signal.
type TokenMatch struct {
	MatchID   string // uuid
	ConfigID  string
	Mint      string
	Symbol    string
	Score     int
	Reasons   []string
	Timestamp int64 // Unix ms
}
