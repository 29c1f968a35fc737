package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"

	"github.com/radieske/saltypredict/internal/game"
)

const uniqueViolation = "23505"

// Postgres implementa game.Store sobre Postgres.
// Toda unidade de escrita trava a linha de game_state (FOR UPDATE), serializando as transições do jogo.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna o store de jogo
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Atomic executa fn numa transação serializada pelo lock de game_state
func (p *Postgres) Atomic(ctx context.Context, fn func(tx game.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// a transação não segue o cancelamento do chamador: com fn concluída o commit precisa acontecer
	tx, err := p.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var one int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM game_state WHERE id=1 FOR UPDATE`).Scan(&one); err != nil {
		return fmt.Errorf("lock game state: %w", err)
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// View executa fn numa transação somente leitura
func (p *Postgres) View(ctx context.Context, fn func(tx game.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type pgTx struct{ tx *sql.Tx }

func (t *pgTx) State(ctx context.Context) (game.State, error) {
	var st game.State
	err := t.tx.QueryRowContext(ctx,
		`SELECT current_epoch, treasury, paused FROM game_state WHERE id=1`,
	).Scan(&st.CurrentEpoch, &st.Treasury, &st.Paused)
	if errors.Is(err, sql.ErrNoRows) {
		return game.State{}, game.ErrNotFound
	}
	return st, err
}

func (t *pgTx) SetState(ctx context.Context, st game.State) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE game_state SET current_epoch=$1, treasury=$2, paused=$3 WHERE id=1`,
		st.CurrentEpoch, st.Treasury, st.Paused,
	)
	return err
}

const epochColumns = `id, open_at, lock_at, status, red_pool, blue_pool, winner,
	reward_base, reward_amount, treasury_amount, resolved_at`

func (t *pgTx) Epoch(ctx context.Context, id int64) (game.Epoch, error) {
	var (
		e          game.Epoch
		status     string
		winner     string
		resolvedAt sql.NullTime
	)
	err := t.tx.QueryRowContext(ctx, `SELECT `+epochColumns+` FROM epochs WHERE id=$1`, id).Scan(
		&e.ID, &e.OpenAt, &e.LockAt, &status, &e.RedPool, &e.BluePool, &winner,
		&e.RewardBase, &e.RewardAmount, &e.TreasuryAmount, &resolvedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Epoch{}, game.ErrNotFound
	}
	if err != nil {
		return game.Epoch{}, err
	}
	e.Status = game.Status(status)
	e.Winner = game.Side(winner)
	if resolvedAt.Valid {
		e.ResolvedAt = resolvedAt.Time
	}
	return e, nil
}

func (t *pgTx) InsertEpoch(ctx context.Context, e game.Epoch) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO epochs (id, open_at, lock_at, status, red_pool, blue_pool)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.OpenAt, e.LockAt, string(e.Status), e.RedPool, e.BluePool,
	)
	return err
}

func (t *pgTx) UpdateEpoch(ctx context.Context, e game.Epoch) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE epochs SET status=$2, red_pool=$3, blue_pool=$4, winner=$5,
		  reward_base=$6, reward_amount=$7, treasury_amount=$8, resolved_at=$9
		WHERE id=$1`,
		e.ID, string(e.Status), e.RedPool, e.BluePool, string(e.Winner),
		e.RewardBase, e.RewardAmount, e.TreasuryAmount,
		sql.NullTime{Time: e.ResolvedAt, Valid: !e.ResolvedAt.IsZero()},
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (t *pgTx) Bet(ctx context.Context, epoch int64, participant common.Address) (game.Bet, error) {
	var (
		b    game.Bet
		side string
	)
	err := t.tx.QueryRowContext(ctx,
		`SELECT side, amount, claimed, placed_at FROM bets WHERE epoch=$1 AND participant=$2`,
		epoch, participant.Hex(),
	).Scan(&side, &b.Amount, &b.Claimed, &b.PlacedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Bet{}, game.ErrNotFound
	}
	if err != nil {
		return game.Bet{}, err
	}
	b.Epoch = epoch
	b.Participant = participant
	b.Side = game.Side(side)
	return b, nil
}

func (t *pgTx) InsertBet(ctx context.Context, b game.Bet) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bets (epoch, participant, side, amount, claimed, placed_at)
		VALUES ($1,$2,$3,$4,FALSE,$5)`,
		b.Epoch, b.Participant.Hex(), string(b.Side), b.Amount, b.PlacedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return game.ErrAlreadyBet
	}
	return err
}

func (t *pgTx) MarkClaimed(ctx context.Context, epoch int64, participant common.Address) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE bets SET claimed=TRUE WHERE epoch=$1 AND participant=$2 AND NOT claimed`,
		epoch, participant.Hex(),
	)
	if err != nil {
		return err
	}
	if err := expectOne(res); errors.Is(err, game.ErrNotFound) {
		return game.ErrAlreadyClaimed
	} else if err != nil {
		return err
	}
	return nil
}

func (t *pgTx) UserRoundsLength(ctx context.Context, participant common.Address) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bets WHERE participant=$1`, participant.Hex(),
	).Scan(&n)
	return n, err
}

func (t *pgTx) UserRounds(ctx context.Context, participant common.Address, offset, limit int) ([]int64, error) {
	if offset < 0 || limit <= 0 {
		return nil, nil
	}
	rows, err := t.tx.QueryContext(ctx,
		`SELECT epoch FROM bets WHERE participant=$1 ORDER BY seq OFFSET $2 LIMIT $3`,
		participant.Hex(), offset, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return game.ErrNotFound
	}
	return nil
}
