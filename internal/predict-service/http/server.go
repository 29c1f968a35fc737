package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/saltypredict/internal/game"
	"github.com/radieske/saltypredict/internal/predict-service/dto"
	"github.com/radieske/saltypredict/internal/predict-service/wallet"
	"github.com/radieske/saltypredict/pkg/units"
)

// CallerHeader identifica o participante que assina a chamada
const CallerHeader = "X-Caller-Address"

const defaultPageLimit = 50

// Escrow é a parte do cliente do wallet usada no fluxo de aposta
type Escrow interface {
	Reserve(ctx context.Context, userID string, units int64, externalRef string) (string, error)
	Commit(ctx context.Context, userID, externalRef string) error
	Refund(ctx context.Context, userID, externalRef string) error
}

type Server struct {
	log    *zap.Logger
	eng    *game.Engine
	wallet Escrow
	rl     *RateLimiter
}

func NewServer(log *zap.Logger, eng *game.Engine, w Escrow, rl *RateLimiter) *Server {
	return &Server{log: log, eng: eng, wallet: w, rl: rl}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.rl != nil {
		r.Use(s.rl.Handler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/rounds", s.startRound)
		r.Get("/rounds/current", s.currentRound)
		r.Get("/rounds/{epoch}", s.getRound)
		r.Post("/rounds/{epoch}/bets/{side}", s.placeBet)
		r.Get("/rounds/{epoch}/bets/{address}", s.getBet)
		r.Post("/rounds/{epoch}/resolve", s.resolveRound)

		r.Post("/claims", s.claim)

		r.Get("/treasury", s.treasury)
		r.Post("/treasury/claim", s.claimTreasury)

		r.Get("/users/{address}/rounds", s.userRounds)
		r.Get("/users/{address}/rounds/count", s.userRoundsCount)

		r.Post("/pause", s.pause)
		r.Post("/unpause", s.unpause)
		r.Get("/paused", s.paused)
	})
	return r
}

func (s *Server) startRound(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	ep, err := s.eng.StartRound(r.Context(), caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, s.roundResponse(ep))
}

func (s *Server) currentRound(w http.ResponseWriter, r *http.Request) {
	id, err := s.eng.CurrentEpoch(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if id == 0 {
		writeErr(w, http.StatusNotFound, "no round started")
		return
	}
	s.writeRound(w, r, id)
}

func (s *Server) getRound(w http.ResponseWriter, r *http.Request) {
	id, ok := epochParam(w, r)
	if !ok {
		return
	}
	s.writeRound(w, r, id)
}

func (s *Server) writeRound(w http.ResponseWriter, r *http.Request, id int64) {
	ep, err := s.eng.Round(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, s.roundResponse(ep))
}

// placeBet: reserva no wallet -> registra no ledger -> commit (ou refund se rejeitada)
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	epoch, ok := epochParam(w, r)
	if !ok {
		return
	}
	side := game.Side(strings.ToUpper(chi.URLParam(r, "side")))
	if !side.Valid() {
		s.writeError(w, game.ErrInvalidSide)
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	amount, err := units.Parse(req.Amount)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := caller.Hex()
	ref := betRef(epoch, caller)
	if _, err := s.wallet.Reserve(r.Context(), userID, amount, ref); err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			writeErr(w, http.StatusPaymentRequired, "insufficient funds")
			return
		}
		s.log.Error("wallet reserve failed", zap.String("ref", ref), zap.Error(err))
		writeErr(w, http.StatusBadGateway, "wallet reserve failed")
		return
	}

	bet, err := s.eng.PlaceBet(r.Context(), caller, epoch, side, amount)
	if err != nil {
		if rerr := s.wallet.Refund(r.Context(), userID, ref); rerr != nil {
			s.log.Error("wallet refund failed", zap.String("ref", ref), zap.Error(rerr))
		}
		s.writeError(w, err)
		return
	}
	if err := s.wallet.Commit(r.Context(), userID, ref); err != nil {
		// aposta já está no ledger e o valor já foi debitado na reserva; fica PENDING para reconciliação
		s.log.Error("wallet commit failed", zap.String("ref", ref), zap.Error(err))
	}

	writeJSONStatus(w, http.StatusCreated, betResponse(bet, false, 0))
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	epoch, ok := epochParam(w, r)
	if !ok {
		return
	}
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	bet, err := s.eng.Ledger(r.Context(), epoch, addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	claimable, payout, err := s.eng.Claimable(r.Context(), epoch, addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, betResponse(bet, claimable, payout))
}

func (s *Server) resolveRound(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	epoch, ok := epochParam(w, r)
	if !ok {
		return
	}
	var req dto.ResolveRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	ep, err := s.eng.ResolveRound(r.Context(), caller, epoch, game.Side(strings.ToUpper(req.Winner)))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, s.roundResponse(ep))
}

func (s *Server) claim(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req dto.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	total, err := s.eng.Claim(r.Context(), caller, req.Epochs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.ClaimResponse{Epochs: req.Epochs, Amount: units.Format(total)})
}

func (s *Server) treasury(w http.ResponseWriter, r *http.Request) {
	amt, err := s.eng.Treasury(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.TreasuryResponse{Amount: units.Format(amt)})
}

func (s *Server) claimTreasury(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	amt, err := s.eng.ClaimTreasury(r.Context(), caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.TreasuryResponse{Amount: units.Format(amt)})
}

func (s *Server) userRounds(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid limit")
		return
	}
	ids, err := s.eng.UserRounds(r.Context(), addr, offset, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.UserRoundsResponse{Participant: addr.Hex(), Offset: offset, Epochs: ids})
}

func (s *Server) userRoundsCount(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	n, err := s.eng.UserRoundsLength(r.Context(), addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.CountResponse{Participant: addr.Hex(), Count: n})
}

func (s *Server) pause(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	if err := s.eng.Pause(r.Context(), caller); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.PausedResponse{Paused: true})
}

func (s *Server) unpause(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	if err := s.eng.Unpause(r.Context(), caller); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.PausedResponse{Paused: false})
}

func (s *Server) paused(w http.ResponseWriter, r *http.Request) {
	p, err := s.eng.Paused(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.PausedResponse{Paused: p})
}

func (s *Server) roundResponse(ep game.Epoch) dto.RoundResponse {
	out := dto.RoundResponse{
		Epoch:    ep.ID,
		Status:   string(ep.Status),
		OpenAt:   ep.OpenAt,
		LockAt:   ep.LockAt,
		RedPool:  units.Format(ep.RedPool),
		BluePool: units.Format(ep.BluePool),
	}
	if ep.Status == game.StatusResolved {
		out.Winner = string(ep.Winner)
		out.RewardBase = units.Format(ep.RewardBase)
		out.RewardAmount = units.Format(ep.RewardAmount)
		out.Treasury = units.Format(ep.TreasuryAmount)
		resolved := ep.ResolvedAt
		out.ResolvedAt = &resolved
	}
	return out
}

func betResponse(b game.Bet, claimable bool, payout int64) dto.BetResponse {
	out := dto.BetResponse{
		Epoch:       b.Epoch,
		Participant: b.Participant.Hex(),
		Side:        string(b.Side),
		Amount:      units.Format(b.Amount),
		Claimed:     b.Claimed,
		Claimable:   claimable,
		PlacedAt:    b.PlacedAt,
	}
	if claimable {
		out.Payout = units.Format(payout)
	}
	return out
}

// betRef é a external_ref da reserva no wallet; cada tentativa de aposta tem a sua
func betRef(epoch int64, caller common.Address) string {
	return fmt.Sprintf("bet:%d:%s:%s", epoch, strings.ToLower(caller.Hex()), uuid.NewString())
}

// errStatus mapeia erros do jogo para HTTP
func errStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, game.ErrNoBet), errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrPaused),
		errors.Is(err, game.ErrNotPaused),
		errors.Is(err, game.ErrRoundNotBettable),
		errors.Is(err, game.ErrRoundStillBettable),
		errors.Is(err, game.ErrAlreadyBet),
		errors.Is(err, game.ErrAlreadyClaimed):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidEpoch),
		errors.Is(err, game.ErrStakeTooLow),
		errors.Is(err, game.ErrInvalidSide),
		errors.Is(err, game.ErrNotWinningSide),
		errors.Is(err, game.ErrNothingToClaim):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errStatus(err)
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
		writeErr(w, code, "internal error")
		return
	}
	writeErr(w, code, err.Error())
}

func callerFrom(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	h := r.Header.Get(CallerHeader)
	if h == "" {
		writeErr(w, http.StatusUnauthorized, "missing "+CallerHeader)
		return common.Address{}, false
	}
	if !common.IsHexAddress(h) {
		writeErr(w, http.StatusBadRequest, "invalid "+CallerHeader)
		return common.Address{}, false
	}
	return common.HexToAddress(h), true
}

func epochParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "epoch"), 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, http.StatusBadRequest, "invalid epoch")
		return 0, false
	}
	return id, true
}

func addressParam(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	a := chi.URLParam(r, "address")
	if !common.IsHexAddress(a) {
		writeErr(w, http.StatusBadRequest, "invalid address")
		return common.Address{}, false
	}
	return common.HexToAddress(a), true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSONStatus(w, code, dto.ErrorResponse{Error: msg})
}
