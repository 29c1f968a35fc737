package repo

// Schema cria as tabelas da carteira; aplicado por db.Migrate na subida do serviço
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL UNIQUE,
		balance_units BIGINT NOT NULL DEFAULT 0 CHECK (balance_units >= 0),
		version       BIGINT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_reservations (
		id           TEXT PRIMARY KEY,
		wallet_id    TEXT NOT NULL REFERENCES wallets(id),
		external_ref TEXT NOT NULL,
		amount_units BIGINT NOT NULL,
		status       TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (wallet_id, external_ref)
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_ledger (
		id             BIGSERIAL PRIMARY KEY,
		wallet_id      TEXT NOT NULL REFERENCES wallets(id),
		operation_type TEXT NOT NULL,
		amount_units   BIGINT NOT NULL,
		external_ref   TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS wallet_ledger_credit_ref
		ON wallet_ledger (external_ref) WHERE operation_type = 'CREDIT'`,
}
