package dto

type TrackBetRequest struct {
	MatchID       string   `json:"matchId"`
	BetType       string   `json:"betType"`    // ex: "1x2", "totals", "both_teams_to_score"
	BetOutcome    string   `json:"betOutcome"` // ex: "P1", "over_2.5"
	Bookmaker     string   `json:"bookmaker"`
	Odds          float64  `json:"odds"`
	MLCoefficient *float64 `json:"mlCoefficient,omitempty"`
	ProfitabilityLevel string `json:"profitabilityLevel,omitempty"`

	// Snapshot de exibição, opcional
	HomeTeam  string `json:"homeTeam,omitempty"`
	AwayTeam  string `json:"awayTeam,omitempty"`
	League    string `json:"league,omitempty"`
	MatchDate string `json:"matchDate,omitempty"`
}

type UntrackBetRequest struct {
	BetID string `json:"betId"`
}
