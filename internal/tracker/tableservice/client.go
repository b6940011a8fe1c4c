// Package tableservice fala com o table service distribuído usado pelo
// backend wide-table do tracker. O gateway HTTP executa cada requisição de
// query (possivelmente multi-statement) em uma única transação serializável
// e devolve as linhas como listas ordenadas de células tipadas, no formato
// JSON do protocolo (textValue/doubleValue/uint64Value/nullFlagValue).
package tableservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable indica falha de transporte, timeout ou credencial expirada
// ao falar com o table service
var ErrUnavailable = errors.New("table service unavailable")

// Client é o handle de processo do table service. A inicialização é
// preguiçosa e single-flight: a primeira chamada espera o serviço ficar
// pronto (timeout de 15s pra cold start) e chamadas concorrentes não
// disparam dois handshakes.
type Client struct {
	BaseURL  string
	Database string
	HTTP     *http.Client

	token string
	log   *zap.Logger

	mu    sync.Mutex
	ready bool
}

const readyTimeout = 15 * time.Second

func New(baseURL, database, token string, log *zap.Logger) *Client {
	return &Client{
		BaseURL:  baseURL,
		Database: database,
		HTTP:     &http.Client{Timeout: 20 * time.Second},
		token:    token,
		log:      log,
	}
}

type queryRequest struct {
	Database string           `json:"database"`
	Query    string           `json:"query"`
	Params   map[string]Value `json:"params,omitempty"`
}

type queryResponse struct {
	ResultSets []ResultSet `json:"resultSets"`
	Error      string      `json:"error,omitempty"`
}

// ResultSet é um conjunto de linhas retornado por um statement da query.
// As colunas de um SELECT * vêm em ordem alfabética de nome de coluna.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// Execute roda a query (todos os statements em uma transação serializável)
// e retorna um result set por statement que produz linhas.
func (c *Client) Execute(ctx context.Context, query string, params map[string]Value) ([]ResultSet, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(queryRequest{Database: c.Database, Query: query, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w: %w", ErrUnavailable, err)
	}
	defer res.Body.Close()

	var out queryResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil && res.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	switch {
	case res.StatusCode == http.StatusOK:
		return out.ResultSets, nil
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode >= 500:
		// token expirado e erro de infra contam como indisponibilidade:
		// o caller decide a política de retry
		return nil, fmt.Errorf("table service http %d: %w: %s", res.StatusCode, ErrUnavailable, out.Error)
	default:
		return nil, fmt.Errorf("table service http %d: %s", res.StatusCode, out.Error)
	}
}

// ensureReady faz o handshake de prontidão uma única vez por processo.
// Em caso de falha o estado não fica envenenado; a próxima chamada tenta de novo.
func (c *Client) ensureReady(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/ready", nil)
	if err != nil {
		return fmt.Errorf("build ready request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("table service readiness: %w: %w", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("table service readiness http %d: %w", res.StatusCode, ErrUnavailable)
	}

	c.ready = true
	if c.log != nil {
		c.log.Info("table service ready", zap.String("endpoint", c.BaseURL), zap.String("database", c.Database))
	}
	return nil
}
