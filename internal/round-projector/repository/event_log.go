package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/radieske/saltypredict/pkg/contracts/events"
)

// Schema do log de eventos consumidos
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS game_event_log (
		kafka_partition INT    NOT NULL,
		kafka_offset    BIGINT NOT NULL,
		type            TEXT   NOT NULL,
		epoch           BIGINT NOT NULL DEFAULT 0,
		payload         JSONB  NOT NULL,
		ts_unix_ms      BIGINT NOT NULL,
		PRIMARY KEY (kafka_partition, kafka_offset)
	)`,
	`CREATE INDEX IF NOT EXISTS game_event_log_epoch ON game_event_log (epoch)`,
}

// PostgresLog guarda cada evento consumido, chaveado por (partição, offset).
// Serve de deduplicação: a projeção no Redis usa incrementos, que não são idempotentes.
type PostgresLog struct {
	DB *sql.DB
}

func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{DB: db}
}

// Record insere o evento; retorna false se a mensagem já tinha sido registrada
func (r *PostgresLog) Record(ctx context.Context, partition int, offset int64, e events.GameEvent) (bool, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return false, err
	}
	const q = `
		INSERT INTO game_event_log
		  (kafka_partition, kafka_offset, type, epoch, payload, ts_unix_ms)
		VALUES
		  ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (kafka_partition, kafka_offset) DO NOTHING
	`
	res, err := r.DB.ExecContext(ctx, q, partition, offset, e.Type, e.Epoch, payload, e.TsUnixMs)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
