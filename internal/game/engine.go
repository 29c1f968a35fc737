// Package game implementa o jogo de previsão pari-mutuel Red/Blue:
// ciclo de vida das rodadas, apostas, liquidação e pagamento de prêmios.
package game

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/saltypredict/pkg/contracts/events"
)

// Publisher recebe os eventos do jogo após cada transição confirmada
type Publisher interface {
	PublishGameEvent(ctx context.Context, e events.GameEvent) error
}

type nopPublisher struct{}

func (nopPublisher) PublishGameEvent(context.Context, events.GameEvent) error { return nil }

// Engine orquestra a máquina de estados das rodadas, as apostas e a liquidação
type Engine struct {
	log       *zap.Logger
	store     Store
	payer     Payer
	clock     Clock
	authority common.Address
	params    Params
	publ      Publisher
}

// Option configura dependências opcionais do Engine
type Option func(*Engine)

func WithClock(c Clock) Option         { return func(e *Engine) { e.clock = c } }
func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publ = p } }
func WithParams(p Params) Option       { return func(e *Engine) { e.params = p } }
func WithLogger(l *zap.Logger) Option  { return func(e *Engine) { e.log = l } }

// NewEngine instancia o engine com a autoridade única do jogo
func NewEngine(store Store, payer Payer, authority common.Address, opts ...Option) *Engine {
	e := &Engine{
		log:       zap.NewNop(),
		store:     store,
		payer:     payer,
		clock:     SystemClock(),
		authority: authority,
		params:    DefaultParams(),
		publ:      nopPublisher{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Authority retorna o endereço privilegiado
func (e *Engine) Authority() common.Address { return e.authority }

// Params retorna os parâmetros vigentes
func (e *Engine) Params() Params { return e.params }

// guard é o único ponto de checagem de chamador privilegiado
func (e *Engine) guard(caller common.Address, op string) error {
	if caller != e.authority {
		e.log.Warn("unauthorized call", zap.String("op", op), zap.String("caller", caller.Hex()))
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, ev events.GameEvent) {
	ev.TsUnixMs = e.clock.Now().UnixMilli()
	if err := e.publ.PublishGameEvent(ctx, ev); err != nil {
		e.log.Warn("publish game event", zap.String("type", ev.Type), zap.Int64("epoch", ev.Epoch), zap.Error(err))
	}
}

// StartRound cria a epoch current+1 com janela de apostas a partir de agora
func (e *Engine) StartRound(ctx context.Context, caller common.Address) (Epoch, error) {
	if err := e.guard(caller, "start_round"); err != nil {
		return Epoch{}, err
	}
	var created Epoch
	err := e.store.Atomic(ctx, func(tx Tx) error {
		st, err := tx.State(ctx)
		if err != nil {
			return err
		}
		if st.Paused {
			return ErrPaused
		}
		now := e.clock.Now()
		created = Epoch{
			ID:     st.CurrentEpoch + 1,
			OpenAt: now,
			LockAt: now.Add(e.params.BetWindow),
			Status: StatusOpen,
		}
		if err := tx.InsertEpoch(ctx, created); err != nil {
			return fmt.Errorf("insert epoch: %w", err)
		}
		st.CurrentEpoch = created.ID
		return tx.SetState(ctx, st)
	})
	if err != nil {
		return Epoch{}, err
	}

	e.log.Info("round started", zap.Int64("epoch", created.ID), zap.Time("lock_at", created.LockAt))
	e.publish(ctx, events.GameEvent{Type: events.TypeRoundStarted, Epoch: created.ID, LockAtMs: created.LockAt.UnixMilli()})
	return created, nil
}

// PlaceBet registra a aposta do chamador na rodada corrente
func (e *Engine) PlaceBet(ctx context.Context, caller common.Address, epoch int64, side Side, amount int64) (Bet, error) {
	var placed Bet
	err := e.store.Atomic(ctx, func(tx Tx) error {
		st, err := tx.State(ctx)
		if err != nil {
			return err
		}
		if st.Paused {
			return ErrPaused
		}
		if epoch <= 0 || epoch != st.CurrentEpoch {
			return ErrInvalidEpoch
		}
		ep, err := tx.Epoch(ctx, epoch)
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidEpoch
		}
		if err != nil {
			return err
		}
		now := e.clock.Now()
		if !ep.Bettable(now) {
			return ErrRoundNotBettable
		}
		if amount <= 0 || amount < e.params.MinStake {
			return ErrStakeTooLow
		}
		if !side.Valid() {
			return ErrInvalidSide
		}
		if _, err := tx.Bet(ctx, epoch, caller); err == nil {
			return ErrAlreadyBet
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if side == SideRed {
			ep.RedPool, err = addAmount(ep.RedPool, amount)
		} else {
			ep.BluePool, err = addAmount(ep.BluePool, amount)
		}
		if err != nil {
			return err
		}
		placed = Bet{Epoch: epoch, Participant: caller, Side: side, Amount: amount, PlacedAt: now}
		if err := tx.InsertBet(ctx, placed); err != nil {
			return fmt.Errorf("insert bet: %w", err)
		}
		return tx.UpdateEpoch(ctx, ep)
	})
	if err != nil {
		return Bet{}, err
	}

	e.log.Info("bet placed",
		zap.Int64("epoch", epoch),
		zap.String("participant", caller.Hex()),
		zap.String("side", string(side)),
		zap.Int64("amount", amount),
	)
	e.publish(ctx, events.GameEvent{
		Type:        events.TypeBetPlaced,
		Epoch:       epoch,
		Participant: caller.Hex(),
		Side:        string(side),
		Amount:      amount,
	})
	return placed, nil
}

// ResolveRound declara o vencedor de uma rodada travada e cacheia a razão de prêmio
func (e *Engine) ResolveRound(ctx context.Context, caller common.Address, epoch int64, winner Side) (Epoch, error) {
	if err := e.guard(caller, "resolve_round"); err != nil {
		return Epoch{}, err
	}
	var resolved Epoch
	err := e.store.Atomic(ctx, func(tx Tx) error {
		st, err := tx.State(ctx)
		if err != nil {
			return err
		}
		if st.Paused {
			return ErrPaused
		}
		ep, err := tx.Epoch(ctx, epoch)
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidEpoch
		}
		if err != nil {
			return err
		}
		now := e.clock.Now()
		switch ep.StatusAt(now) {
		case StatusResolved:
			return ErrInvalidEpoch
		case StatusOpen:
			return ErrRoundStillBettable
		}
		if !winner.Valid() {
			return ErrInvalidSide
		}

		s, err := Settle(ep, winner, e.params.FeeBps)
		if err != nil {
			return err
		}
		ep.Status = StatusResolved
		ep.Winner = winner
		ep.RewardBase = s.RewardBase
		ep.RewardAmount = s.RewardAmount
		ep.TreasuryAmount = s.Treasury
		ep.ResolvedAt = now
		if err := tx.UpdateEpoch(ctx, ep); err != nil {
			return fmt.Errorf("update epoch: %w", err)
		}
		if st.Treasury, err = addAmount(st.Treasury, s.Treasury); err != nil {
			return err
		}
		resolved = ep
		return tx.SetState(ctx, st)
	})
	if err != nil {
		return Epoch{}, err
	}

	e.log.Info("round resolved",
		zap.Int64("epoch", epoch),
		zap.String("winner", string(winner)),
		zap.Int64("red_pool", resolved.RedPool),
		zap.Int64("blue_pool", resolved.BluePool),
		zap.Int64("treasury", resolved.TreasuryAmount),
	)
	e.publish(ctx, events.GameEvent{
		Type:     events.TypeRoundResolved,
		Epoch:    epoch,
		Winner:   string(winner),
		RedPool:  resolved.RedPool,
		BluePool: resolved.BluePool,
		Treasury: resolved.TreasuryAmount,
	})
	return resolved, nil
}

// Claim paga os prêmios do chamador nas epochs informadas numa única transferência.
// Valida todas as epochs antes de qualquer escrita; qualquer falha aborta o lote inteiro.
func (e *Engine) Claim(ctx context.Context, caller common.Address, epochs []int64) (int64, error) {
	if len(epochs) == 0 {
		return 0, ErrNothingToClaim
	}
	var total int64
	err := e.store.Atomic(ctx, func(tx Tx) error {
		st, err := tx.State(ctx)
		if err != nil {
			return err
		}
		if st.Paused {
			return ErrPaused
		}
		total = 0
		seen := make(map[int64]struct{}, len(epochs))
		for _, id := range epochs {
			if _, dup := seen[id]; dup {
				return fmt.Errorf("epoch %d: %w", id, ErrAlreadyClaimed)
			}
			seen[id] = struct{}{}

			payout, err := e.claimableAmount(ctx, tx, id, caller)
			if err != nil {
				return fmt.Errorf("epoch %d: %w", id, err)
			}
			if total, err = addAmount(total, payout); err != nil {
				return err
			}
		}

		for _, id := range epochs {
			if err := tx.MarkClaimed(ctx, id, caller); err != nil {
				return fmt.Errorf("mark claimed: %w", err)
			}
		}
		if total == 0 {
			return nil
		}
		if err := e.payer.Transfer(ctx, caller, total, claimRef(caller, epochs)); err != nil {
			return fmt.Errorf("transfer payout: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.log.Info("rewards claimed",
		zap.String("participant", caller.Hex()),
		zap.Int64s("epochs", epochs),
		zap.Int64("amount", total),
	)
	e.publish(ctx, events.GameEvent{
		Type:        events.TypeRewardsClaimed,
		Participant: caller.Hex(),
		Epochs:      epochs,
		Amount:      total,
	})
	return total, nil
}

// claimableAmount valida uma epoch do claim sem escrever nada
func (e *Engine) claimableAmount(ctx context.Context, tx Tx, id int64, caller common.Address) (int64, error) {
	ep, err := tx.Epoch(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return 0, ErrInvalidEpoch
	}
	if err != nil {
		return 0, err
	}
	if ep.Status != StatusResolved {
		return 0, ErrInvalidEpoch
	}
	b, err := tx.Bet(ctx, id, caller)
	if errors.Is(err, ErrNotFound) {
		return 0, ErrNoBet
	}
	if err != nil {
		return 0, err
	}
	if b.Claimed {
		return 0, ErrAlreadyClaimed
	}
	if b.Side != ep.Winner || ep.RewardBase == 0 {
		return 0, ErrNotWinningSide
	}
	return Payout(ep, b.Amount)
}

// claimRef é a referência idempotente da transferência: cada epoch só é paga uma vez por participante.
// Independe da ordem da lista, então repetir o mesmo lote reordenado cai na mesma ref.
func claimRef(caller common.Address, epochs []int64) string {
	sorted := slices.Clone(epochs)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	ids := make([]string, len(sorted))
	for i, id := range sorted {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return "claim:" + strings.ToLower(caller.Hex()) + ":" + strings.Join(ids, ",")
}

// ClaimTreasury transfere todo o saldo da tesouraria para a autoridade
func (e *Engine) ClaimTreasury(ctx context.Context, caller common.Address) (int64, error) {
	if err := e.guard(caller, "claim_treasury"); err != nil {
		return 0, err
	}
	var amount int64
	err := e.store.Atomic(ctx, func(tx Tx) error {
		st, err := tx.State(ctx)
		if err != nil {
			return err
		}
		if st.Paused {
			return ErrPaused
		}
		if st.Treasury == 0 {
			return ErrNothingToClaim
		}
		amount = st.Treasury
		st.Treasury = 0
		if err := tx.SetState(ctx, st); err != nil {
			return err
		}
		if err := e.payer.Transfer(ctx, caller, amount, "treasury:"+uuid.NewString()); err != nil {
			return fmt.Errorf("transfer treasury: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.log.Info("treasury claimed", zap.Int64("amount", amount))
	e.publish(ctx, events.GameEvent{Type: events.TypeTreasuryClaimed, Participant: caller.Hex(), Amount: amount})
	return amount, nil
}

// Pause bloqueia todas as operações que alteram estado, exceto Unpause
func (e *Engine) Pause(ctx context.Context, caller common.Address) error {
	return e.setPaused(ctx, caller, true)
}

// Unpause libera o jogo
func (e *Engine) Unpause(ctx context.Context, caller common.Address) error {
	return e.setPaused(ctx, caller, false)
}

func (e *Engine) setPaused(ctx context.Context, caller common.Address, paused bool) error {
	op, typ := "unpause", events.TypeUnpaused
	if paused {
		op, typ = "pause", events.TypePaused
	}
	if err := e.guard(caller, op); err != nil {
		return err
	}
	err := e.store.Atomic(ctx, func(tx Tx) error {
		st, err := tx.State(ctx)
		if err != nil {
			return err
		}
		if st.Paused == paused {
			if paused {
				return ErrPaused
			}
			return ErrNotPaused
		}
		st.Paused = paused
		return tx.SetState(ctx, st)
	})
	if err != nil {
		return err
	}
	e.log.Info("pause switched", zap.Bool("paused", paused))
	e.publish(ctx, events.GameEvent{Type: typ})
	return nil
}
