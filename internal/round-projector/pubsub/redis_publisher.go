package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// ChannelRoundUpdates recebe o resumo da rodada a cada evento projetado
const ChannelRoundUpdates = "round_updates_broadcast"

type RedisBroadcaster struct {
	r *redis.Client
}

func NewRedisBroadcaster(r *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{r: r}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.r.Publish(ctx, channel, payload).Err()
}

// RoundUpdate é o payload publicado para assinantes em tempo real
type RoundUpdate struct {
	Epoch int64  `json:"epoch"`
	Type  string `json:"type"`
	Event any    `json:"event"`
}
