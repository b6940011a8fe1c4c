package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/odds-tracker-poc/internal/matches/value"
	"github.com/radieske/odds-tracker-poc/internal/tracker/auth"
	"github.com/radieske/odds-tracker-poc/internal/tracker/dto"
	"github.com/radieske/odds-tracker-poc/internal/tracker/identity"
	"github.com/radieske/odds-tracker-poc/internal/tracker/store"
	"github.com/radieske/odds-tracker-poc/pkg/contracts/events"
)

// regra de negócio: odd mínima aceitável pra tracking
const minOdds = 1.01

// Publisher emite eventos de tracking pro colaborador de analytics
type Publisher interface {
	PublishBetTracked(context.Context, events.BetTracked) error
	PublishBetUntracked(context.Context, events.BetUntracked) error
}

// Server expõe a API de tracking de odds: track, untrack e listagem.
// O backend de armazenamento chega pela interface store.Store, escolhido no
// boot; nenhum handler conhece o backend concreto.
type Server struct {
	log        *zap.Logger
	store      store.Store
	auth       auth.Verifier
	publ       Publisher // opcional; nil desliga a emissão de eventos
	classifier *value.Classifier
}

func NewServer(log *zap.Logger, st store.Store, verifier auth.Verifier, publ Publisher, classifier *value.Classifier) *Server {
	return &Server{log: log, store: st, auth: verifier, publ: publ, classifier: classifier}
}

// Router retorna o mux HTTP com as rotas da API de tracking
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/bets/track", s.trackBet)
	r.Delete("/bets/untrack", s.untrackBet)
	r.Get("/bets/my-bets", s.myBets)
	return r
}

// trackBet registra o interesse do usuário numa odd específica. Idempotente:
// requisições duplicadas (double-click, retry) devolvem o registro original
// com alreadyExists=true e status 200, nunca uma segunda linha.
func (s *Server) trackBet(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req dto.TrackBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data", "malformed json body")
		return
	}

	if issues := validateTrackRequest(&req); len(issues) > 0 {
		writeError(w, http.StatusBadRequest, "Invalid request data", issues)
		return
	}

	// regras de negócio além do shape
	if req.Odds < minOdds {
		writeError(w, http.StatusBadRequest, "Odds must be at least 1.01", nil)
		return
	}
	if req.MLCoefficient != nil && *req.MLCoefficient < minOdds {
		writeError(w, http.StatusBadRequest, "ML coefficient must be at least 1.01", nil)
		return
	}

	// snapshot de lucratividade: se o cliente não mandou, classifica no servidor
	profitability := req.ProfitabilityLevel
	if profitability == "" && req.MLCoefficient != nil && s.classifier != nil {
		profitability = s.classifier.Classify(*req.MLCoefficient, req.Odds)
	}

	bet := &store.TrackedBet{
		ID:                 uuid.NewString(),
		UserID:             userID,
		MatchID:            req.MatchID,
		BetType:            req.BetType,
		BetOutcome:         req.BetOutcome,
		Bookmaker:          req.Bookmaker,
		Odds:               req.Odds,
		MLCoefficient:      req.MLCoefficient,
		ProfitabilityLevel: profitability,
		Status:             store.StatusActive,
		TrackedAt:          time.Now().UTC(),
		UniqueKey:          identity.UniqueKey(userID, req.MatchID, req.BetType, req.BetOutcome),
		HomeTeam:           req.HomeTeam,
		AwayTeam:           req.AwayTeam,
		League:             req.League,
		MatchDate:          req.MatchDate,
	}

	stored, alreadyExists, err := s.store.InsertIfAbsent(r.Context(), bet)
	if err != nil {
		s.storageError(w, "track", bet.UniqueKey, err)
		return
	}

	if s.publ != nil {
		ev := events.BetTracked{
			BetID:         stored.ID,
			UserID:        stored.UserID,
			MatchID:       stored.MatchID,
			BetType:       stored.BetType,
			BetOutcome:    stored.BetOutcome,
			Bookmaker:     stored.Bookmaker,
			Odds:          stored.Odds,
			AlreadyExists: alreadyExists,
		}
		if stored.MLCoefficient != nil {
			ev.MLCoefficient = *stored.MLCoefficient
		}
		_ = s.publ.PublishBetTracked(r.Context(), ev)
	}

	// 201 pra registro novo, 200 + alreadyExists pro deduplicado: é o único
	// sinal externo da semântica de deduplicação
	status := http.StatusCreated
	if alreadyExists {
		status = http.StatusOK
	}
	writeJSON(w, status, dto.TrackBetResponse{
		Success:       true,
		AlreadyExists: alreadyExists,
		Bet:           dto.FromStore(stored),
	})
}

// untrackBet remove um tracked bet do dono. 404 se não existe, 403 se o
// dono é outro usuário.
func (s *Server) untrackBet(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req dto.UntrackBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data", "malformed json body")
		return
	}
	if req.BetID == "" {
		writeError(w, http.StatusBadRequest, "Invalid request data",
			[]dto.FieldError{{Field: "betId", Message: "Bet ID is required"}})
		return
	}

	bet, err := s.store.GetByID(r.Context(), req.BetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Bet not found", nil)
			return
		}
		s.storageError(w, "untrack_lookup", req.BetID, err)
		return
	}

	if bet.UserID != userID {
		writeError(w, http.StatusForbidden, "Forbidden: You do not own this bet", nil)
		return
	}

	deleted, err := s.store.DeleteByIDForOwner(r.Context(), req.BetID, userID)
	if err != nil {
		s.storageError(w, "untrack_delete", req.BetID, err)
		return
	}
	if !deleted {
		// ownership conferiu mas a linha sumiu na deleção: anomalia de storage
		s.log.Error("delete failed after ownership check",
			zap.String("bet_id", req.BetID))
		writeError(w, http.StatusInternalServerError, "Failed to delete bet", nil)
		return
	}

	if s.publ != nil {
		_ = s.publ.PublishBetUntracked(r.Context(), events.BetUntracked{
			BetID:  req.BetID,
			UserID: userID,
		})
	}

	writeJSON(w, http.StatusOK, dto.UntrackBetResponse{Success: true})
}

// myBets lista os tracked bets do usuário, paginados, mais recentes primeiro
func (s *Server) myBets(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	opts, issues := parseListQuery(r)
	if len(issues) > 0 {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", issues)
		return
	}

	res, err := s.store.ListByOwner(r.Context(), userID, opts)
	if err != nil {
		s.storageError(w, "list", userID, err)
		return
	}

	bets := make([]dto.TrackedBet, 0, len(res.Bets))
	for i := range res.Bets {
		bets = append(bets, dto.FromStore(&res.Bets[i]))
	}
	writeJSON(w, http.StatusOK, dto.GetBetsResponse{
		Bets:    bets,
		Total:   res.Total,
		HasMore: res.HasMore,
	})
}

// currentUser resolve o usuário autenticado ou encerra a requisição com 401
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := s.auth.UserID(r.Context(), r)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return "", false
		}
		s.log.Error("auth verifier failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return "", false
	}
	return userID, true
}

// storageError loga a falha com contexto e mapeia pro envelope genérico,
// diferenciando indisponibilidade do banco de outros erros internos
func (s *Server) storageError(w http.ResponseWriter, op, ref string, err error) {
	s.log.Error("store operation failed",
		zap.String("op", op),
		zap.String("ref", ref),
		zap.Error(err),
	)
	if errors.Is(err, store.ErrUnavailable) {
		writeError(w, http.StatusInternalServerError, "Database connection error",
			"Unable to reach the bet store. Check the storage backend configuration and connectivity.")
		return
	}
	writeError(w, http.StatusInternalServerError, "Internal server error", nil)
}

func validateTrackRequest(req *dto.TrackBetRequest) []dto.FieldError {
	var issues []dto.FieldError
	if req.MatchID == "" {
		issues = append(issues, dto.FieldError{Field: "matchId", Message: "Match ID is required"})
	}
	if req.BetType == "" {
		issues = append(issues, dto.FieldError{Field: "betType", Message: "Bet type is required"})
	}
	if req.BetOutcome == "" {
		issues = append(issues, dto.FieldError{Field: "betOutcome", Message: "Bet outcome is required"})
	}
	if req.Bookmaker == "" {
		issues = append(issues, dto.FieldError{Field: "bookmaker", Message: "Bookmaker is required"})
	}
	if req.Odds <= 0 {
		issues = append(issues, dto.FieldError{Field: "odds", Message: "Odds must be positive"})
	}
	if req.MLCoefficient != nil && *req.MLCoefficient <= 0 {
		issues = append(issues, dto.FieldError{Field: "mlCoefficient", Message: "ML coefficient must be positive"})
	}
	switch req.ProfitabilityLevel {
	case "", store.ProfitExcellent, store.ProfitGood, store.ProfitFair, store.ProfitPoor:
	default:
		issues = append(issues, dto.FieldError{Field: "profitabilityLevel", Message: "Invalid profitability level"})
	}
	return issues
}

func parseListQuery(r *http.Request) (store.ListOptions, []dto.FieldError) {
	var issues []dto.FieldError
	q := r.URL.Query()

	opts := store.ListOptions{Status: store.StatusAll, Limit: 50, Offset: 0}

	if v := q.Get("status"); v != "" {
		switch v {
		case store.StatusAll, store.StatusActive, store.StatusWon, store.StatusLost:
			opts.Status = v
		default:
			issues = append(issues, dto.FieldError{Field: "status", Message: "Status must be one of: all, active, won, lost"})
		}
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			issues = append(issues, dto.FieldError{Field: "limit", Message: "Limit must be an integer between 1 and 100"})
		} else {
			opts.Limit = n
		}
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			issues = append(issues, dto.FieldError{Field: "offset", Message: "Offset must be a non-negative integer"})
		} else {
			opts.Offset = n
		}
	}

	return opts, issues
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError envia o envelope de erro único da API
func writeError(w http.ResponseWriter, status int, msg string, details any) {
	writeJSON(w, status, dto.ErrorResponse{Success: false, Error: msg, Details: details})
}
