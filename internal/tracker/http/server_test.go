package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/odds-tracker-poc/internal/matches/value"
	"github.com/radieske/odds-tracker-poc/internal/tracker/auth"
	"github.com/radieske/odds-tracker-poc/internal/tracker/dto"
	"github.com/radieske/odds-tracker-poc/internal/tracker/store"
	"github.com/radieske/odds-tracker-poc/pkg/contracts/events"
)

type capturePublisher struct {
	mu        sync.Mutex
	tracked   []events.BetTracked
	untracked []events.BetUntracked
}

func (p *capturePublisher) PublishBetTracked(_ context.Context, ev events.BetTracked) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracked = append(p.tracked, ev)
	return nil
}

func (p *capturePublisher) PublishBetUntracked(_ context.Context, ev events.BetUntracked) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.untracked = append(p.untracked, ev)
	return nil
}

func newTestAPI(t *testing.T, st store.Store) (*httptest.Server, *capturePublisher) {
	t.Helper()
	publ := &capturePublisher{}
	srv := NewServer(zap.NewNop(), st, auth.HeaderVerifier{}, publ, value.NewClassifier(value.DefaultThresholds()))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, publ
}

func doReq(t *testing.T, ts *httptest.Server, method, path, user string, body, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func trackReq(matchID string) dto.TrackBetRequest {
	return dto.TrackBetRequest{
		MatchID:    matchID,
		BetType:    "1x2",
		BetOutcome: "P1",
		Bookmaker:  "bet365",
		Odds:       2.10,
		HomeTeam:   "Santos",
		AwayTeam:   "Grêmio",
	}
}

func TestTrackUntrackLifecycle(t *testing.T) {
	ts, publ := newTestAPI(t, store.NewMemory())

	// track novo: 201 com o registro completo
	var created dto.TrackBetResponse
	code := doReq(t, ts, http.MethodPost, "/bets/track", "u1", trackReq("m1"), &created)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, created.Success)
	assert.False(t, created.AlreadyExists)
	require.NotEmpty(t, created.Bet.ID)
	assert.Equal(t, "u1", created.Bet.UserID)
	assert.Equal(t, store.StatusActive, created.Bet.Status)
	assert.NotEmpty(t, created.Bet.UniqueKey)

	// repetição da mesma tupla: 200, mesmo id, alreadyExists
	var dup dto.TrackBetResponse
	code = doReq(t, ts, http.MethodPost, "/bets/track", "u1", trackReq("m1"), &dup)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, dup.AlreadyExists)
	assert.Equal(t, created.Bet.ID, dup.Bet.ID)

	// outro usuário não consegue remover
	var errRes dto.ErrorResponse
	code = doReq(t, ts, http.MethodDelete, "/bets/untrack", "u2",
		dto.UntrackBetRequest{BetID: created.Bet.ID}, &errRes)
	require.Equal(t, http.StatusForbidden, code)
	assert.False(t, errRes.Success)

	// o dono remove
	var untracked dto.UntrackBetResponse
	code = doReq(t, ts, http.MethodDelete, "/bets/untrack", "u1",
		dto.UntrackBetRequest{BetID: created.Bet.ID}, &untracked)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, untracked.Success)

	// listagem volta vazia
	var list dto.GetBetsResponse
	code = doReq(t, ts, http.MethodGet, "/bets/my-bets", "u1", nil, &list)
	require.Equal(t, http.StatusOK, code)
	assert.Zero(t, list.Total)
	assert.Empty(t, list.Bets)

	// eventos emitidos: dois tracks (um deduplicado) e um untrack
	publ.mu.Lock()
	defer publ.mu.Unlock()
	require.Len(t, publ.tracked, 2)
	assert.False(t, publ.tracked[0].AlreadyExists)
	assert.True(t, publ.tracked[1].AlreadyExists)
	require.Len(t, publ.untracked, 1)
	assert.Equal(t, created.Bet.ID, publ.untracked[0].BetID)
}

func TestUntrackMissingBet(t *testing.T) {
	ts, _ := newTestAPI(t, store.NewMemory())

	var errRes dto.ErrorResponse
	code := doReq(t, ts, http.MethodDelete, "/bets/untrack", "u1",
		dto.UntrackBetRequest{BetID: "nope"}, &errRes)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Bet not found", errRes.Error)

	code = doReq(t, ts, http.MethodDelete, "/bets/untrack", "u1",
		dto.UntrackBetRequest{}, &errRes)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTrackBusinessRules(t *testing.T) {
	ts, _ := newTestAPI(t, store.NewMemory())

	// odd 1.00 é recusada; 1.01 é o piso aceito
	req := trackReq("m1")
	req.Odds = 1.00
	var errRes dto.ErrorResponse
	code := doReq(t, ts, http.MethodPost, "/bets/track", "u1", req, &errRes)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Odds must be at least 1.01", errRes.Error)

	req.Odds = 1.01
	code = doReq(t, ts, http.MethodPost, "/bets/track", "u1", req, nil)
	assert.Equal(t, http.StatusCreated, code)

	// mesmo piso pro coeficiente do modelo
	req = trackReq("m2")
	ml := 1.00
	req.MLCoefficient = &ml
	code = doReq(t, ts, http.MethodPost, "/bets/track", "u1", req, &errRes)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ML coefficient must be at least 1.01", errRes.Error)
}

func TestTrackSchemaValidation(t *testing.T) {
	ts, _ := newTestAPI(t, store.NewMemory())

	var errRes struct {
		Success bool             `json:"success"`
		Error   string           `json:"error"`
		Details []dto.FieldError `json:"details"`
	}
	code := doReq(t, ts, http.MethodPost, "/bets/track", "u1", dto.TrackBetRequest{}, &errRes)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request data", errRes.Error)

	fields := make([]string, 0, len(errRes.Details))
	for _, fe := range errRes.Details {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"matchId", "betType", "betOutcome", "bookmaker", "odds"}, fields)

	// nível de lucratividade fora do vocabulário
	req := trackReq("m1")
	req.ProfitabilityLevel = "amazing"
	code = doReq(t, ts, http.MethodPost, "/bets/track", "u1", req, &errRes)
	require.Equal(t, http.StatusBadRequest, code)
	require.Len(t, errRes.Details, 1)
	assert.Equal(t, "profitabilityLevel", errRes.Details[0].Field)
}

func TestTrackClassifiesOnServerWhenMissing(t *testing.T) {
	ts, _ := newTestAPI(t, store.NewMemory())

	req := trackReq("m1")
	ml := 1.70
	req.MLCoefficient = &ml
	req.Odds = 2.00 // 2.00/1.70 ≈ 1.18, acima do corte de excellent

	var res dto.TrackBetResponse
	code := doReq(t, ts, http.MethodPost, "/bets/track", "u1", req, &res)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, store.ProfitExcellent, res.Bet.ProfitabilityLevel)

	// quando o cliente manda o snapshot, o servidor não recalcula
	req = trackReq("m2")
	req.MLCoefficient = &ml
	req.Odds = 2.00
	req.ProfitabilityLevel = store.ProfitPoor
	code = doReq(t, ts, http.MethodPost, "/bets/track", "u1", req, &res)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, store.ProfitPoor, res.Bet.ProfitabilityLevel)
}

func TestUnauthorizedWithoutUser(t *testing.T) {
	ts, _ := newTestAPI(t, store.NewMemory())

	assert.Equal(t, http.StatusUnauthorized,
		doReq(t, ts, http.MethodPost, "/bets/track", "", trackReq("m1"), nil))
	assert.Equal(t, http.StatusUnauthorized,
		doReq(t, ts, http.MethodDelete, "/bets/untrack", "", dto.UntrackBetRequest{BetID: "x"}, nil))
	assert.Equal(t, http.StatusUnauthorized,
		doReq(t, ts, http.MethodGet, "/bets/my-bets", "", nil, nil))
}

func TestMyBetsQueryValidation(t *testing.T) {
	ts, _ := newTestAPI(t, store.NewMemory())

	for _, q := range []string{
		"?limit=0", "?limit=101", "?limit=abc",
		"?offset=-1", "?status=pending",
	} {
		var errRes dto.ErrorResponse
		code := doReq(t, ts, http.MethodGet, "/bets/my-bets"+q, "u1", nil, &errRes)
		assert.Equal(t, http.StatusBadRequest, code, "query %s", q)
		assert.Equal(t, "Invalid query parameters", errRes.Error, "query %s", q)
	}
}

func TestMyBetsPagination(t *testing.T) {
	ts, _ := newTestAPI(t, store.NewMemory())

	for i := 0; i < 3; i++ {
		code := doReq(t, ts, http.MethodPost, "/bets/track", "u1", trackReq(fmt.Sprintf("m%d", i)), nil)
		require.Equal(t, http.StatusCreated, code)
	}

	var page dto.GetBetsResponse
	code := doReq(t, ts, http.MethodGet, "/bets/my-bets?limit=2", "u1", nil, &page)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.HasMore)
	assert.Len(t, page.Bets, 2)

	code = doReq(t, ts, http.MethodGet, "/bets/my-bets?limit=2&offset=2", "u1", nil, &page)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, page.HasMore)
	assert.Len(t, page.Bets, 1)
}

// downStore simula backend fora do ar em todas as operações
type downStore struct{}

func (downStore) InsertIfAbsent(context.Context, *store.TrackedBet) (*store.TrackedBet, bool, error) {
	return nil, false, fmt.Errorf("insert: %w", store.ErrUnavailable)
}
func (downStore) GetByID(context.Context, string) (*store.TrackedBet, error) {
	return nil, fmt.Errorf("get: %w", store.ErrUnavailable)
}
func (downStore) DeleteByIDForOwner(context.Context, string, string) (bool, error) {
	return false, fmt.Errorf("delete: %w", store.ErrUnavailable)
}
func (downStore) ListByOwner(context.Context, string, store.ListOptions) (*store.ListResult, error) {
	return nil, fmt.Errorf("list: %w", store.ErrUnavailable)
}
func (downStore) UpdateStatus(context.Context, string, string, string) (bool, error) {
	return false, fmt.Errorf("update: %w", store.ErrUnavailable)
}

func TestStorageUnavailableEnvelope(t *testing.T) {
	ts, _ := newTestAPI(t, downStore{})

	var errRes struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	code := doReq(t, ts, http.MethodPost, "/bets/track", "u1", trackReq("m1"), &errRes)
	require.Equal(t, http.StatusInternalServerError, code)
	assert.False(t, errRes.Success)
	assert.Equal(t, "Database connection error", errRes.Error)
	assert.Contains(t, errRes.Details, "Unable to reach the bet store")

	code = doReq(t, ts, http.MethodGet, "/bets/my-bets", "u1", nil, &errRes)
	require.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Database connection error", errRes.Error)
}
