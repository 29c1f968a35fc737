package events

import "strconv"

// Tipos de evento publicados no tópico "game_events"
const (
	TypeRoundStarted    = "round_started"
	TypeBetPlaced       = "bet_placed"
	TypeRoundResolved   = "round_resolved"
	TypeRewardsClaimed  = "rewards_claimed"
	TypeTreasuryClaimed = "treasury_claimed"
	TypePaused          = "paused"
	TypeUnpaused        = "unpaused"
)

// GameEvent é o envelope único emitido pelo predict-service após cada transição confirmada.
// Campos não usados por um tipo ficam vazios.
type GameEvent struct {
	Type        string  `json:"type"`
	Epoch       int64   `json:"epoch,omitempty"`
	Participant string  `json:"participant,omitempty"`
	Side        string  `json:"side,omitempty"`
	Amount      int64   `json:"amount,omitempty"` // unidades base
	Epochs      []int64 `json:"epochs,omitempty"` // claim em lote
	Winner      string  `json:"winner,omitempty"`
	RedPool     int64   `json:"red_pool,omitempty"`
	BluePool    int64   `json:"blue_pool,omitempty"`
	Treasury    int64   `json:"treasury,omitempty"`
	LockAtMs    int64   `json:"lock_at_ms,omitempty"`
	TsUnixMs    int64   `json:"ts_unix_ms"`
}

// Key é a chave de particionamento no Kafka: eventos da mesma epoch ficam ordenados
func (e GameEvent) Key() string {
	if e.Epoch == 0 {
		return e.Type
	}
	return "epoch:" + strconv.FormatInt(e.Epoch, 10)
}
