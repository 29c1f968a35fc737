package game

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// CurrentEpoch retorna o id da última rodada criada (0 se nenhuma)
func (e *Engine) CurrentEpoch(ctx context.Context) (int64, error) {
	st, err := e.state(ctx)
	return st.CurrentEpoch, err
}

// Paused informa se o jogo está pausado
func (e *Engine) Paused(ctx context.Context) (bool, error) {
	st, err := e.state(ctx)
	return st.Paused, err
}

// Treasury retorna o saldo acumulado de taxas
func (e *Engine) Treasury(ctx context.Context) (int64, error) {
	st, err := e.state(ctx)
	return st.Treasury, err
}

func (e *Engine) state(ctx context.Context) (State, error) {
	var st State
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		st, err = tx.State(ctx)
		return err
	})
	return st, err
}

// Round retorna a rodada com o status efetivo no instante atual
func (e *Engine) Round(ctx context.Context, epoch int64) (Epoch, error) {
	var ep Epoch
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		ep, err = tx.Epoch(ctx, epoch)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return Epoch{}, ErrInvalidEpoch
	}
	if err != nil {
		return Epoch{}, err
	}
	ep.Status = ep.StatusAt(e.clock.Now())
	return ep, nil
}

// Ledger retorna a aposta de um participante numa rodada
func (e *Engine) Ledger(ctx context.Context, epoch int64, participant common.Address) (Bet, error) {
	var b Bet
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		b, err = tx.Bet(ctx, epoch, participant)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return Bet{}, ErrNoBet
	}
	return b, err
}

// Claimable informa se o participante tem prêmio a receber na rodada e o valor
func (e *Engine) Claimable(ctx context.Context, epoch int64, participant common.Address) (bool, int64, error) {
	var amount int64
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		amount, err = e.claimableAmount(ctx, tx, epoch, participant)
		return err
	})
	switch {
	case err == nil:
		return true, amount, nil
	case errors.Is(err, ErrInvalidEpoch), errors.Is(err, ErrNoBet),
		errors.Is(err, ErrAlreadyClaimed), errors.Is(err, ErrNotWinningSide):
		return false, 0, nil
	default:
		return false, 0, err
	}
}

// UserRoundsLength retorna quantas rodadas o participante já apostou
func (e *Engine) UserRoundsLength(ctx context.Context, participant common.Address) (int, error) {
	var n int
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		n, err = tx.UserRoundsLength(ctx, participant)
		return err
	})
	return n, err
}

// UserRounds retorna uma página das rodadas do participante, na ordem das apostas.
// Offset além do fim retorna lista vazia.
func (e *Engine) UserRounds(ctx context.Context, participant common.Address, offset, limit int) ([]int64, error) {
	out := []int64{}
	if offset < 0 || limit <= 0 {
		return out, nil
	}
	err := e.store.View(ctx, func(tx Tx) error {
		ids, err := tx.UserRounds(ctx, participant, offset, limit)
		if err != nil {
			return err
		}
		out = append(out, ids...)
		return nil
	})
	return out, err
}
