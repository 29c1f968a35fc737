package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Epoch: 0 assina todas as rodadas
type ClientMsg struct {
	Type  string `json:"type"`
	Epoch int64  `json:"epoch"`
}

// RoundUpdate é o payload repassado aos clientes; espelha o publicado pelo round-projector
type RoundUpdate struct {
	Epoch int64          `json:"epoch"`
	Type  string         `json:"type"`
	Event map[string]any `json:"event"`
}
