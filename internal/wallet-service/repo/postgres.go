package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Postgres implementa operações de carteira em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrAlreadySettled    = errors.New("reservation already settled")
	ErrRefConflict       = errors.New("external ref already used by another reservation")
)

const (
	statusPending   = "PENDING"
	statusCommitted = "COMMITTED"
	statusRefunded  = "REFUNDED"
)

// GetOrCreateWallet retorna o walletId e saldo de um usuário, criando a carteira se não existir
func (p *Postgres) GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	if walletID, err = lockWallet(ctx, tx, userID, true); err != nil {
		return "", 0, err
	}
	if err = tx.QueryRowContext(ctx, `SELECT balance_units FROM wallets WHERE id=$1`, walletID).Scan(&balance); err != nil {
		return "", 0, err
	}
	return walletID, balance, tx.Commit()
}

// Credit incrementa o saldo e registra no ledger.
// Idempotente por externalRef: repetir um crédito já aplicado só devolve o saldo atual.
func (p *Postgres) Credit(ctx context.Context, userID string, amount int64, externalRef string) (walletID string, newBalance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	if walletID, err = lockWallet(ctx, tx, userID, true); err != nil {
		return "", 0, err
	}

	var seen int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM wallet_ledger WHERE operation_type='CREDIT' AND external_ref=$1`, externalRef).Scan(&seen)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err = tx.ExecContext(ctx,
			`UPDATE wallets SET balance_units = balance_units + $1, version = version + 1 WHERE id=$2`,
			amount, walletID); err != nil {
			return "", 0, err
		}
		if err = appendLedger(ctx, tx, walletID, "CREDIT", amount, externalRef); err != nil {
			return "", 0, err
		}
	case err != nil:
		return "", 0, err
	}

	if err = tx.QueryRowContext(ctx, `SELECT balance_units FROM wallets WHERE id=$1`, walletID).Scan(&newBalance); err != nil {
		return "", 0, err
	}
	return walletID, newBalance, tx.Commit()
}

// Reserve cria uma reserva PENDING e debita saldo (bloqueio)
// Idempotente por (wallet_id, external_ref)
func (p *Postgres) Reserve(ctx context.Context, userID string, amount int64, externalRef string) (reservationID string, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	walletID, err := lockWallet(ctx, tx, userID, false)
	if err != nil {
		return "", err
	}

	// reserva repetida devolve a mesma, antes de olhar o saldo;
	// só vale se ainda estiver ativa e com o mesmo valor
	var prevAmount int64
	var prevStatus string
	err = tx.QueryRowContext(ctx,
		`SELECT id, amount_units, status FROM wallet_reservations WHERE wallet_id=$1 AND external_ref=$2`,
		walletID, externalRef).Scan(&reservationID, &prevAmount, &prevStatus)
	switch {
	case err == nil:
		if prevStatus == statusRefunded || prevAmount != amount {
			return "", ErrRefConflict
		}
		return reservationID, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", err
	}

	var balance int64
	if err = tx.QueryRowContext(ctx, `SELECT balance_units FROM wallets WHERE id=$1`, walletID).Scan(&balance); err != nil {
		return "", err
	}
	if balance < amount {
		return "", ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance_units = balance_units - $1, version = version + 1 WHERE id=$2`,
		amount, walletID); err != nil {
		return "", err
	}

	reservationID = uuid.New().String()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_reservations(id, wallet_id, external_ref, amount_units, status) VALUES($1,$2,$3,$4,'PENDING')`,
		reservationID, walletID, externalRef, amount); err != nil {
		return "", err
	}
	if err = appendLedger(ctx, tx, walletID, "RESERVE", amount, externalRef); err != nil {
		return "", err
	}

	return reservationID, tx.Commit()
}

// Commit efetiva uma reserva: o valor já debitado passa a pertencer ao jogo
func (p *Postgres) Commit(ctx context.Context, userID, externalRef string) error {
	return p.settle(ctx, userID, externalRef, statusCommitted)
}

// Refund desfaz uma reserva PENDING, devolvendo o saldo
func (p *Postgres) Refund(ctx context.Context, userID, externalRef string) error {
	return p.settle(ctx, userID, externalRef, statusRefunded)
}

// settle leva a reserva de PENDING para o status final.
// Repetir o mesmo status é no-op; trocar de status final é conflito.
func (p *Postgres) settle(ctx context.Context, userID, externalRef, target string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var walletID, resID, status string
	var amount int64
	err = tx.QueryRowContext(ctx, `
		SELECT wr.id, wr.wallet_id, wr.amount_units, wr.status
		FROM wallet_reservations wr
		JOIN wallets w ON w.id = wr.wallet_id
		WHERE w.user_id=$1 AND wr.external_ref=$2
		FOR UPDATE`, userID, externalRef).Scan(&resID, &walletID, &amount, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	} else if err != nil {
		return err
	}

	switch status {
	case target:
		return nil
	case statusPending:
	default:
		return ErrAlreadySettled
	}

	op := "DEBIT"
	if target == statusRefunded {
		op = "REFUND"
		if _, err = tx.ExecContext(ctx,
			`UPDATE wallets SET balance_units = balance_units + $1, version = version + 1 WHERE id=$2`,
			amount, walletID); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx, `UPDATE wallet_reservations SET status=$1 WHERE id=$2`, target, resID); err != nil {
		return err
	}
	if err = appendLedger(ctx, tx, walletID, op, amount, externalRef); err != nil {
		return err
	}
	return tx.Commit()
}

// lockWallet trava a linha da carteira; create=true cria quando não existe
func lockWallet(ctx context.Context, tx *sql.Tx, userID string, create bool) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", err
	case !create:
		return "", ErrNotFound
	}
	id = uuid.New().String()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallets(id, user_id, balance_units, version) VALUES($1,$2,0,1)`, id, userID); err != nil {
		return "", err
	}
	return id, nil
}

func appendLedger(ctx context.Context, tx *sql.Tx, walletID, op string, amount int64, ref string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount_units, external_ref) VALUES($1,$2,$3,$4)`,
		walletID, op, amount, ref)
	return err
}
