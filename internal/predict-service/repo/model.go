package repo

// Schema é aplicado no boot do predict-service (db.Migrate).
// O índice do participante é derivado de bets (participant, seq): nasce na mesma transação da aposta.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS game_state (
		id            SMALLINT PRIMARY KEY CHECK (id = 1),
		current_epoch BIGINT  NOT NULL DEFAULT 0,
		treasury      BIGINT  NOT NULL DEFAULT 0 CHECK (treasury >= 0),
		paused        BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`INSERT INTO game_state (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS epochs (
		id              BIGINT PRIMARY KEY,
		open_at         TIMESTAMPTZ NOT NULL,
		lock_at         TIMESTAMPTZ NOT NULL,
		status          TEXT   NOT NULL,
		red_pool        BIGINT NOT NULL DEFAULT 0,
		blue_pool       BIGINT NOT NULL DEFAULT 0,
		winner          TEXT   NOT NULL DEFAULT '',
		reward_base     BIGINT NOT NULL DEFAULT 0,
		reward_amount   BIGINT NOT NULL DEFAULT 0,
		treasury_amount BIGINT NOT NULL DEFAULT 0,
		resolved_at     TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS bets (
		epoch       BIGINT NOT NULL REFERENCES epochs(id),
		participant TEXT   NOT NULL,
		side        TEXT   NOT NULL,
		amount      BIGINT NOT NULL CHECK (amount > 0),
		claimed     BOOLEAN NOT NULL DEFAULT FALSE,
		placed_at   TIMESTAMPTZ NOT NULL,
		seq         BIGSERIAL,
		PRIMARY KEY (epoch, participant)
	)`,
	`CREATE INDEX IF NOT EXISTS bets_participant_seq_idx ON bets (participant, seq)`,
}
