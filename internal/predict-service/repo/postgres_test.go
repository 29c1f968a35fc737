package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/saltypredict/internal/game"
)

var (
	authority = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	alice     = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewPostgres(conn), mock
}

func expectLock(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM game_state WHERE id=1 FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
}

type noopPayer struct{}

func (noopPayer) Transfer(context.Context, common.Address, int64, string) error { return nil }

func TestStartRoundThroughPostgres(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	eng := game.NewEngine(store, noopPayer{}, authority, game.WithClock(game.NewManualClock(now)))

	expectLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT current_epoch, treasury, paused FROM game_state`)).
		WillReturnRows(sqlmock.NewRows([]string{"current_epoch", "treasury", "paused"}).AddRow(4, 0, false))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO epochs`)).
		WithArgs(int64(5), now, now.Add(game.DefaultBetWindow), "OPEN", int64(0), int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE game_state SET current_epoch=$1, treasury=$2, paused=$3`)).
		WithArgs(int64(5), int64(0), false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ep, err := eng.StartRound(context.Background(), authority)
	require.NoError(t, err)
	assert.Equal(t, int64(5), ep.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicRollsBackOnError(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("boom")

	expectLock(mock)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE game_state`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.Atomic(context.Background(), func(tx game.Tx) error {
		require.NoError(t, tx.SetState(context.Background(), game.State{Paused: true}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicCommitsAfterCallerCancels(t *testing.T) {
	store, mock := newMock(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expectLock(mock)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE game_state`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Atomic(ctx, func(tx game.Tx) error {
		require.NoError(t, tx.SetState(ctx, game.State{CurrentEpoch: 1}))
		cancel()
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	err = store.Atomic(ctx, func(game.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEpochNotFound(t *testing.T) {
	store, mock := newMock(t)
	eng := game.NewEngine(store, noopPayer{}, authority)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM epochs WHERE id=$1`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := eng.Round(context.Background(), 9)
	assert.ErrorIs(t, err, game.ErrInvalidEpoch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEpochScan(t *testing.T) {
	store, mock := newMock(t)
	open := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	resolved := open.Add(time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM epochs WHERE id=$1`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "open_at", "lock_at", "status", "red_pool", "blue_pool", "winner",
			"reward_base", "reward_amount", "treasury_amount", "resolved_at",
		}).AddRow(1, open, open.Add(45*time.Second), "RESOLVED", 10, 20, "BLUE", 20, 29, 1, resolved))
	mock.ExpectCommit()

	var got game.Epoch
	err := store.View(context.Background(), func(tx game.Tx) error {
		var err error
		got, err = tx.Epoch(context.Background(), 1)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, game.StatusResolved, got.Status)
	assert.Equal(t, game.SideBlue, got.Winner)
	assert.Equal(t, int64(29), got.RewardAmount)
	assert.Equal(t, resolved, got.ResolvedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBetDuplicateMapsToAlreadyBet(t *testing.T) {
	store, mock := newMock(t)

	expectLock(mock)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bets`)).
		WithArgs(int64(1), alice.Hex(), "RED", int64(100), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: uniqueViolation})
	mock.ExpectRollback()

	err := store.Atomic(context.Background(), func(tx game.Tx) error {
		return tx.InsertBet(context.Background(), game.Bet{
			Epoch: 1, Participant: alice, Side: game.SideRed, Amount: 100, PlacedAt: time.Now(),
		})
	})
	assert.ErrorIs(t, err, game.ErrAlreadyBet)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkClaimedTwice(t *testing.T) {
	store, mock := newMock(t)

	expectLock(mock)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bets SET claimed=TRUE`)).
		WithArgs(int64(1), alice.Hex()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.Atomic(context.Background(), func(tx game.Tx) error {
		return tx.MarkClaimed(context.Background(), 1, alice)
	})
	assert.ErrorIs(t, err, game.ErrAlreadyClaimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRoundsPage(t *testing.T) {
	store, mock := newMock(t)
	eng := game.NewEngine(store, noopPayer{}, authority)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT epoch FROM bets WHERE participant=$1 ORDER BY seq OFFSET $2 LIMIT $3`)).
		WithArgs(alice.Hex(), int64(0), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"epoch"}).AddRow(1).AddRow(2).AddRow(3))
	mock.ExpectCommit()

	ids, err := eng.UserRounds(context.Background(), alice, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM bets WHERE participant=$1`)).
		WithArgs(alice.Hex()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	n, err := eng.UserRoundsLength(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
