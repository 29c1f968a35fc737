package topics

const (
	// Jogo
	GameEvents = "game_events"

	// DLQ do projector
	GameEventsDLQ = "game_events_dlq"
)
