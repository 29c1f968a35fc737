package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/saltypredict/pkg/contracts/events"
)

// Chaves da projeção
const (
	KeyCurrentEpoch = "game:current_epoch"
	KeyPaused       = "game:paused"
	KeyStats        = "game:stats"
	KeyTopStakers   = "leaderboard:staked"
	KeyTopWinners   = "leaderboard:won"
)

// RoundKey é o hash com o resumo de uma rodada
func RoundKey(epoch int64) string { return "round:" + strconv.FormatInt(epoch, 10) }

// Store é o subconjunto de comandos Redis usado pela projeção
type Store interface {
	HSet(ctx context.Context, key string, values ...any) error
	HIncrBy(ctx context.Context, key, field string, n int64) error
	ZIncrBy(ctx context.Context, key string, n float64, member string) error
	Set(ctx context.Context, key string, value any) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Projection mantém no Redis um resumo por rodada e rankings de participantes
type Projection struct {
	Store Store
	TTL   time.Duration // expiração do hash de cada rodada
}

func NewProjection(s Store, ttl time.Duration) *Projection {
	return &Projection{Store: s, TTL: ttl}
}

// Apply aplica um evento do jogo na projeção
func (p *Projection) Apply(ctx context.Context, e events.GameEvent) error {
	switch e.Type {
	case events.TypeRoundStarted:
		key := RoundKey(e.Epoch)
		if err := p.Store.HSet(ctx, key, "status", "OPEN", "lock_at_ms", e.LockAtMs, "opened_at_ms", e.TsUnixMs); err != nil {
			return err
		}
		if err := p.Store.Set(ctx, KeyCurrentEpoch, e.Epoch); err != nil {
			return err
		}
		return p.expire(ctx, key)

	case events.TypeBetPlaced:
		key := RoundKey(e.Epoch)
		if err := p.Store.HIncrBy(ctx, key, strings.ToLower(e.Side)+"_pool", e.Amount); err != nil {
			return err
		}
		if err := p.Store.HIncrBy(ctx, key, "bets", 1); err != nil {
			return err
		}
		if err := p.Store.HIncrBy(ctx, KeyStats, "staked_units", e.Amount); err != nil {
			return err
		}
		return p.Store.ZIncrBy(ctx, KeyTopStakers, float64(e.Amount), e.Participant)

	case events.TypeRoundResolved:
		key := RoundKey(e.Epoch)
		if err := p.Store.HSet(ctx, key,
			"status", "RESOLVED",
			"winner", e.Winner,
			"red_pool", e.RedPool,
			"blue_pool", e.BluePool,
			"treasury", e.Treasury,
		); err != nil {
			return err
		}
		if err := p.Store.HIncrBy(ctx, KeyStats, "fees_units", e.Treasury); err != nil {
			return err
		}
		return p.expire(ctx, key)

	case events.TypeRewardsClaimed:
		if err := p.Store.HIncrBy(ctx, KeyStats, "paid_units", e.Amount); err != nil {
			return err
		}
		return p.Store.ZIncrBy(ctx, KeyTopWinners, float64(e.Amount), e.Participant)

	case events.TypeTreasuryClaimed:
		return p.Store.HIncrBy(ctx, KeyStats, "treasury_withdrawn_units", e.Amount)

	case events.TypePaused:
		return p.Store.Set(ctx, KeyPaused, "1")

	case events.TypeUnpaused:
		return p.Store.Set(ctx, KeyPaused, "0")
	}
	return nil
}

func (p *Projection) expire(ctx context.Context, key string) error {
	if p.TTL <= 0 {
		return nil
	}
	return p.Store.Expire(ctx, key, p.TTL)
}

// RedisStore adapta o cliente go-redis para Store
type RedisStore struct {
	Client *redis.Client
}

func (r RedisStore) HSet(ctx context.Context, key string, values ...any) error {
	return r.Client.HSet(ctx, key, values...).Err()
}

func (r RedisStore) HIncrBy(ctx context.Context, key, field string, n int64) error {
	return r.Client.HIncrBy(ctx, key, field, n).Err()
}

func (r RedisStore) ZIncrBy(ctx context.Context, key string, n float64, member string) error {
	return r.Client.ZIncrBy(ctx, key, n, member).Err()
}

func (r RedisStore) Set(ctx context.Context, key string, value any) error {
	return r.Client.Set(ctx, key, value, 0).Err()
}

func (r RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.Client.Expire(ctx, key, ttl).Err()
}
