package topics

const (
	// Tracking
	BetTracked   = "bet_tracked"
	BetUntracked = "bet_untracked"
)
