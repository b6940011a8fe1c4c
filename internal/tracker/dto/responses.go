package dto

import (
	"time"

	"github.com/radieske/odds-tracker-poc/internal/tracker/store"
)

type TrackedBet struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"userId"`
	MatchID            string     `json:"matchId"`
	BetType            string     `json:"betType"`
	BetOutcome         string     `json:"betOutcome"`
	Bookmaker          string     `json:"bookmaker"`
	Odds               float64    `json:"odds"`
	MLCoefficient      *float64   `json:"mlCoefficient,omitempty"`
	ProfitabilityLevel string     `json:"profitabilityLevel,omitempty"`
	Status             string     `json:"status"`
	TrackedAt          time.Time  `json:"trackedAt"`
	ResultUpdatedAt    *time.Time `json:"resultUpdatedAt,omitempty"`
	UniqueKey          string     `json:"uniqueKey"`
	HomeTeam           string     `json:"homeTeam,omitempty"`
	AwayTeam           string     `json:"awayTeam,omitempty"`
	League             string     `json:"league,omitempty"`
	MatchDate          string     `json:"matchDate,omitempty"`
}

// FromStore converte o registro persistido pro formato da API
func FromStore(bet *store.TrackedBet) TrackedBet {
	return TrackedBet{
		ID:                 bet.ID,
		UserID:             bet.UserID,
		MatchID:            bet.MatchID,
		BetType:            bet.BetType,
		BetOutcome:         bet.BetOutcome,
		Bookmaker:          bet.Bookmaker,
		Odds:               bet.Odds,
		MLCoefficient:      bet.MLCoefficient,
		ProfitabilityLevel: bet.ProfitabilityLevel,
		Status:             bet.Status,
		TrackedAt:          bet.TrackedAt,
		ResultUpdatedAt:    bet.ResultUpdatedAt,
		UniqueKey:          bet.UniqueKey,
		HomeTeam:           bet.HomeTeam,
		AwayTeam:           bet.AwayTeam,
		League:             bet.League,
		MatchDate:          bet.MatchDate,
	}
}

type TrackBetResponse struct {
	Success       bool       `json:"success"`
	AlreadyExists bool       `json:"alreadyExists,omitempty"`
	Bet           TrackedBet `json:"bet"`
}

type UntrackBetResponse struct {
	Success bool `json:"success"`
}

type GetBetsResponse struct {
	Bets    []TrackedBet `json:"bets"`
	Total   int          `json:"total"`
	HasMore bool         `json:"hasMore"`
}

// ErrorResponse é o envelope de erro único da API
type ErrorResponse struct {
	Success bool   `json:"success"` // sempre false
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// FieldError detalha uma violação de schema campo a campo
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
