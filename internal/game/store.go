package game

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Store define a persistência do livro de apostas.
// Atomic executa fn como unidade serializada: ou todas as escritas são aplicadas, ou nenhuma.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx expõe leituras e escritas dentro de uma unidade do Store.
// Registros inexistentes retornam ErrNotFound.
type Tx interface {
	State(ctx context.Context) (State, error)
	SetState(ctx context.Context, s State) error

	Epoch(ctx context.Context, id int64) (Epoch, error)
	InsertEpoch(ctx context.Context, e Epoch) error
	UpdateEpoch(ctx context.Context, e Epoch) error

	Bet(ctx context.Context, epoch int64, participant common.Address) (Bet, error)
	// InsertBet cria a aposta e acrescenta a epoch ao índice do participante
	InsertBet(ctx context.Context, b Bet) error
	MarkClaimed(ctx context.Context, epoch int64, participant common.Address) error

	UserRoundsLength(ctx context.Context, participant common.Address) (int, error)
	UserRounds(ctx context.Context, participant common.Address, offset, limit int) ([]int64, error)
}

// Payer transfere valor para fora do jogo (prêmios e tesouraria)
type Payer interface {
	Transfer(ctx context.Context, to common.Address, amount int64, ref string) error
}
