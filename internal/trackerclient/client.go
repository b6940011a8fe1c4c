// Package trackerclient é o coordenador de cache e mutação do lado do
// cliente: mantém a lista "meus bets" em memória, aplica untrack de forma
// otimista com rollback, reconcilia com refetch em background e responde
// "essa odd está marcada?" sem nenhuma chamada de rede por célula da UI.
package trackerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/odds-tracker-poc/internal/tracker/dto"
	"github.com/radieske/odds-tracker-poc/internal/tracker/identity"
	"github.com/radieske/odds-tracker-poc/internal/tracker/store"
)

// Client fala com o tracker-service e guarda um cache por filtro de status.
// Escopo de uma sessão de um usuário; não é compartilhado entre usuários.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	userID string
	token  string
	log    *zap.Logger

	mu    sync.Mutex
	lists map[string]*dto.GetBetsResponse // chave: filtro de status
}

func New(baseURL, userID, token string, log *zap.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		userID:  userID,
		token:   token,
		log:     log,
		lists:   make(map[string]*dto.GetBetsResponse),
	}
}

// MyBets busca a lista no servidor e atualiza o cache do filtro
func (c *Client) MyBets(ctx context.Context, status string) (*dto.GetBetsResponse, error) {
	if status == "" {
		status = store.StatusAll
	}

	q := url.Values{}
	q.Set("status", status)
	q.Set("limit", strconv.Itoa(100))

	var out dto.GetBetsResponse
	if err := c.call(ctx, http.MethodGet, "/bets/my-bets?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lists[status] = cloneList(&out)
	c.mu.Unlock()

	return &out, nil
}

// Track marca a odd. Em caso de sucesso o bet retornado entra no cache se
// ainda não estiver lá (pelo id; o caso alreadyExists não duplica), e um
// refetch em background reconcilia qualquer drift.
func (c *Client) Track(ctx context.Context, req dto.TrackBetRequest) (*dto.TrackBetResponse, error) {
	body, _ := json.Marshal(req)

	var out dto.TrackBetResponse
	if err := c.call(ctx, http.MethodPost, "/bets/track", bytes.NewReader(body), &out); err != nil {
		c.log.Error("track bet failed", zap.Error(err))
		return nil, err
	}

	c.mu.Lock()
	if cached, ok := c.lists[store.StatusAll]; ok {
		found := false
		for i := range cached.Bets {
			if cached.Bets[i].ID == out.Bet.ID {
				found = true
				break
			}
		}
		if !found {
			cached.Bets = append([]dto.TrackedBet{out.Bet}, cached.Bets...)
			cached.Total++
		}
	} else {
		c.lists[store.StatusAll] = &dto.GetBetsResponse{Bets: []dto.TrackedBet{out.Bet}, Total: 1}
	}
	c.mu.Unlock()

	c.refetchAsync()
	return &out, nil
}

// Untrack remove o bet de forma otimista: o cache muda antes da rede
// responder; se a chamada falhar, o snapshot anterior é restaurado.
func (c *Client) Untrack(ctx context.Context, betID string) error {
	// snapshot síncrono ANTES da chamada assíncrona começar
	c.mu.Lock()
	snapshot := make(map[string]*dto.GetBetsResponse, len(c.lists))
	for k, v := range c.lists {
		snapshot[k] = cloneList(v)
	}
	for _, cached := range c.lists {
		kept := cached.Bets[:0]
		removed := false
		for _, bet := range cached.Bets {
			if bet.ID == betID {
				removed = true
				continue
			}
			kept = append(kept, bet)
		}
		cached.Bets = kept
		if removed && cached.Total > 0 {
			cached.Total--
		}
	}
	c.mu.Unlock()

	body, _ := json.Marshal(dto.UntrackBetRequest{BetID: betID})
	err := c.call(ctx, http.MethodDelete, "/bets/untrack", bytes.NewReader(body), &dto.UntrackBetResponse{})
	if err != nil {
		// rollback do estado otimista; a UI volta a refletir a verdade pré-mutação
		c.mu.Lock()
		c.lists = snapshot
		c.mu.Unlock()
		c.log.Error("untrack bet failed, cache rolled back",
			zap.String("bet_id", betID), zap.Error(err))
	}

	// reconcilia com o servidor independente do resultado
	c.refetchAsync()
	return err
}

// IsBetTracked responde se o resultado está marcado e qual o id do registro.
// Leitura pura sobre o cache: é chamada uma vez por célula de odd renderizada,
// então nunca dispara rede.
func (c *Client) IsBetTracked(matchID, betType, betOutcome string) (bool, string) {
	key := identity.UniqueKey(c.userID, matchID, betType, betOutcome)

	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.lists[store.StatusAll]
	if !ok {
		return false, ""
	}
	for i := range cached.Bets {
		if cached.Bets[i].UniqueKey == key {
			return true, cached.Bets[i].ID
		}
	}
	return false, ""
}

// refetchAsync reconcilia em background todos os filtros já cacheados
func (c *Client) refetchAsync() {
	c.mu.Lock()
	statuses := make([]string, 0, len(c.lists))
	for k := range c.lists {
		statuses = append(statuses, k)
	}
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, status := range statuses {
			if _, err := c.MyBets(ctx, status); err != nil {
				c.log.Warn("background refetch failed",
					zap.String("status", status), zap.Error(err))
			}
		}
	}()
}

// call faz a requisição e decodifica o envelope de sucesso ou erro
func (c *Client) call(ctx context.Context, method, path string, body *bytes.Reader, out any) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-User-Id", c.userID)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var envelope dto.ErrorResponse
		if err := json.NewDecoder(res.Body).Decode(&envelope); err == nil && envelope.Error != "" {
			return fmt.Errorf("%s %s: http %d: %s", method, path, res.StatusCode, envelope.Error)
		}
		return fmt.Errorf("%s %s: http %d", method, path, res.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func cloneList(l *dto.GetBetsResponse) *dto.GetBetsResponse {
	cp := *l
	cp.Bets = append([]dto.TrackedBet(nil), l.Bets...)
	return &cp
}
