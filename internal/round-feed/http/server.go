package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/saltypredict/internal/round-feed/cache"
	projection "github.com/radieske/saltypredict/internal/round-projector/cache"
	"github.com/radieske/saltypredict/pkg/units"
)

const maxLeaderboard = 100

// API expõe a projeção do Redis e o WebSocket de atualizações
type API struct {
	Log   *zap.Logger
	Cache cache.Reader
	WS    http.HandlerFunc
}

// LeaderEntry é uma linha do ranking
type LeaderEntry struct {
	Rank        int    `json:"rank"`
	Participant string `json:"participant"`
	Amount      string `json:"amount"`
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/rounds/{epoch}/summary", a.roundSummary)
	r.Get("/v1/leaderboard/{board}", a.leaderboard) // staked | won
	r.Get("/v1/stats", a.stats)
	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) fail(w http.ResponseWriter, err error) {
	a.Log.Error("redis read failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func (a *API) roundSummary(w http.ResponseWriter, r *http.Request) {
	epoch, err := strconv.ParseInt(chi.URLParam(r, "epoch"), 10, 64)
	if err != nil || epoch <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid epoch"})
		return
	}
	h, err := a.Cache.HGetAll(r.Context(), projection.RoundKey(epoch))
	if err != nil {
		a.fail(w, err)
		return
	}
	if len(h) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	out := map[string]any{"epoch": epoch}
	for k, v := range h {
		out[k] = v
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	var key string
	switch chi.URLParam(r, "board") {
	case "staked":
		key = projection.KeyTopStakers
	case "won":
		key = projection.KeyTopWinners
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown leaderboard"})
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = min(n, maxLeaderboard)
	}

	zs, err := a.Cache.ZRevRangeWithScores(r.Context(), key, 0, int64(limit-1))
	if err != nil {
		a.fail(w, err)
		return
	}
	out := make([]LeaderEntry, 0, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, LeaderEntry{Rank: i + 1, Participant: member, Amount: units.Format(int64(z.Score))})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	h, err := a.Cache.HGetAll(r.Context(), projection.KeyStats)
	if err != nil {
		a.fail(w, err)
		return
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			out[k] = v
			continue
		}
		out[k] = units.Format(n)
	}
	writeJSON(w, http.StatusOK, out)
}
