package events

type BetTracked struct {
	BetID         string  `json:"bet_id"`
	UserID        string  `json:"user_id"`
	MatchID       string  `json:"match_id"`
	BetType       string  `json:"bet_type"`
	BetOutcome    string  `json:"bet_outcome"`
	Bookmaker     string  `json:"bookmaker"`
	Odds          float64 `json:"odds"`
	MLCoefficient float64 `json:"ml_coefficient,omitempty"`
	AlreadyExists bool    `json:"already_exists"` // true quando o track foi deduplicado
	TsUnixMs      int64   `json:"ts_unix_ms"`
}
