package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/odds-tracker-poc/internal/matches/cache"
	"github.com/radieske/odds-tracker-poc/internal/matches/feed"
)

// API expõe o endpoint REST de consulta do feed de partidas
// Preferencialmente responde do cache (Redis); no miss, busca no feed
type API struct {
	Log     *zap.Logger
	Fetcher *feed.Fetcher
	Cache   *cache.Cache
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/matches", a.listMatches) // Lista partidas com paginação opcional
	return r
}

type matchesResponse struct {
	Matches []feed.Match `json:"matches"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// listMatches retorna as partidas do feed, preferencialmente do cache
func (a *API) listMatches(w http.ResponseWriter, r *http.Request) {
	var matches []feed.Match

	hit, err := a.Cache.GetFeed(r.Context(), &matches)
	if err != nil {
		a.Log.Warn("matches cache read failed", zap.Error(err))
	}
	if !hit {
		matches, err = a.Fetcher.Load(r.Context())
		if err != nil {
			a.Log.Error("load matches feed failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load matches"})
			return
		}
		if err := a.Cache.SetFeed(r.Context(), matches); err != nil {
			a.Log.Warn("matches cache write failed", zap.Error(err))
		}
	}

	total := len(matches)
	limit, offset := parsePagination(r, total)

	page := matches
	if offset >= total {
		page = []feed.Match{}
	} else {
		end := offset + limit
		if end > total {
			end = total
		}
		page = matches[offset:end]
	}

	writeJSON(w, http.StatusOK, matchesResponse{
		Matches: page,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func parsePagination(r *http.Request, total int) (limit, offset int) {
	limit = total
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
