// Package feed consome a lista de partidas com odds e probabilidades do
// modelo, publicada em object storage por um pipeline externo. Somente
// leitura: este serviço nunca escreve no feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type TeamInfo struct {
	FbrefID   string `json:"fbref_id"`
	FbrefName string `json:"fbref_name"`
	OddsName  string `json:"odds_name"`
}

type MatchBasic struct {
	Date     string   `json:"date"`
	Time     string   `json:"time"`
	League   string   `json:"league"`
	HomeTeam TeamInfo `json:"home_team"`
	AwayTeam TeamInfo `json:"away_team"`
}

// Match é um registro do feed. Os mercados (1x2, totals, escanteios...)
// ficam opacos: quem interpreta é a camada de apresentação.
type Match struct {
	ID     string          `json:"id"`
	Match  MatchBasic      `json:"match"`
	Events json.RawMessage `json:"events"`
}

// Fetcher baixa o documento consolidado do feed
type Fetcher struct {
	URL  string
	HTTP *http.Client
}

func NewFetcher(url string) *Fetcher {
	return &Fetcher{URL: url, HTTP: &http.Client{Timeout: 15 * time.Second}}
}

func (f *Fetcher) Load(ctx context.Context) ([]Match, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	res, err := f.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch matches feed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return []Match{}, nil
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("matches feed http %d", res.StatusCode)
	}

	var matches []Match
	if err := json.NewDecoder(res.Body).Decode(&matches); err != nil {
		return nil, fmt.Errorf("decode matches feed: %w", err)
	}
	return matches, nil
}
