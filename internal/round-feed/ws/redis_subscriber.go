package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/saltypredict/internal/round-projector/pubsub"
)

// StartRedisSubscriber escuta o canal de atualizações do round-projector
// e repassa cada mensagem aos clientes WebSocket via Hub
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, hub *Hub) {
	sub := r.Subscribe(ctx, pubsub.ChannelRoundUpdates)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				Dispatch(log, hub, []byte(msg.Payload))
			}
		}
	}()
}

// Dispatch decodifica uma mensagem do canal e faz o broadcast
func Dispatch(log *zap.Logger, hub *Hub, payload []byte) {
	var upd RoundUpdate
	if err := json.Unmarshal(payload, &upd); err != nil {
		log.Warn("ws subscriber unmarshal error", zap.Error(err))
		return
	}
	hub.Broadcast(upd)
}
