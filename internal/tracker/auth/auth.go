// Package auth resolve o usuário autenticado de cada requisição. O provedor
// de identidade é um colaborador externo; aqui só existe a fronteira.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthenticated indica sessão ausente, expirada ou inválida
var ErrUnauthenticated = errors.New("unauthenticated")

// Verifier extrai o id estável do usuário atual da requisição
type Verifier interface {
	UserID(ctx context.Context, r *http.Request) (string, error)
}

// HTTPVerifier valida o bearer token contra o provedor de sessões externo
type HTTPVerifier struct {
	VerifyURL string
	HTTP      *http.Client
}

func NewHTTPVerifier(verifyURL string) *HTTPVerifier {
	return &HTTPVerifier{
		VerifyURL: verifyURL,
		HTTP:      &http.Client{Timeout: 2 * time.Second},
	}
}

type verifyResponse struct {
	UserID string `json:"userId"`
}

func (v *HTTPVerifier) UserID(ctx context.Context, r *http.Request) (string, error) {
	token := bearerToken(r)
	if token == "" {
		return "", ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.VerifyURL, nil)
	if err != nil {
		return "", fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := v.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("verify session: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", ErrUnauthenticated
	}

	var out verifyResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode verify response: %w", err)
	}
	if out.UserID == "" {
		return "", ErrUnauthenticated
	}
	return out.UserID, nil
}

// HeaderVerifier confia no header X-User-Id. Só pra ambiente local/poc,
// atrás de nada — nunca exposto publicamente.
type HeaderVerifier struct{}

func (HeaderVerifier) UserID(_ context.Context, r *http.Request) (string, error) {
	id := r.Header.Get("X-User-Id")
	if id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return h[7:]
	}
	return ""
}
