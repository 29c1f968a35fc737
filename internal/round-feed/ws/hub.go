package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// AllRounds é a assinatura que recebe atualizações de qualquer epoch
const AllRounds int64 = 0

// client serializa as escritas: o gorilla aceita um writer por conexão
type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) write(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas por epoch
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[int64]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[int64]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	c := &client{conn: conn}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			if _, ok := h.subs[msg.Epoch]; !ok {
				h.subs[msg.Epoch] = make(map[*client]struct{})
			}
			h.subs[msg.Epoch][c] = struct{}{}
			h.mu.Unlock()
			b, _ := json.Marshal(map[string]any{"type": "subscribed", "epoch": msg.Epoch})
			_ = c.write(b)
		case "unsubscribe":
			h.unsubscribe(c, msg.Epoch)
		case "ping":
			_ = c.write([]byte(`{"type":"pong"}`))
		}
	}

	// Remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for epoch, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, epoch)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) unsubscribe(c *client, epoch int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[epoch]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, epoch)
		}
	}
}

// Broadcast envia a atualização para quem assina a epoch e para quem assina todas
func (h *Hub) Broadcast(update RoundUpdate) int {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[update.Epoch])+len(h.subs[AllRounds]))
	for c := range h.subs[update.Epoch] {
		targets = append(targets, c)
	}
	if update.Epoch != AllRounds {
		for c := range h.subs[AllRounds] {
			if _, dup := h.subs[update.Epoch][c]; !dup {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return 0
	}

	b, _ := json.Marshal(update)
	for _, c := range targets {
		_ = c.write(b)
	}
	return len(targets)
}

// Subscribers conta as conexões inscritas numa epoch
func (h *Hub) Subscribers(epoch int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[epoch])
}
