package events

type BetUntracked struct {
	BetID    string `json:"bet_id"`
	UserID   string `json:"user_id"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
