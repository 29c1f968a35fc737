// Package keeper agenda o início automático de rodadas como autoridade.
package keeper

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/saltypredict/internal/game"
)

// RoundStarter é a parte do engine usada pelo keeper
type RoundStarter interface {
	StartRound(ctx context.Context, caller common.Address) (game.Epoch, error)
}

// Keeper chama StartRound a cada disparo do cron.
// Não resolve rodadas: o vencedor é sempre declarado pela autoridade via API.
type Keeper struct {
	log       *zap.Logger
	cron      *cron.Cron
	starter   RoundStarter
	authority common.Address
	timeout   time.Duration
}

// New valida a expressão cron (ex: "@every 1m", "*/2 * * * *") e registra o job
func New(log *zap.Logger, starter RoundStarter, authority common.Address, schedule string) (*Keeper, error) {
	k := &Keeper{
		log:       log,
		cron:      cron.New(),
		starter:   starter,
		authority: authority,
		timeout:   5 * time.Second,
	}
	if _, err := k.cron.AddFunc(schedule, k.tick); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Keeper) Start() { k.cron.Start() }

// Stop para o agendador e espera o job em execução terminar
func (k *Keeper) Stop() { <-k.cron.Stop().Done() }

func (k *Keeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()

	ep, err := k.starter.StartRound(ctx, k.authority)
	if errors.Is(err, game.ErrPaused) {
		k.log.Info("keeper skipped: game paused")
		return
	}
	if err != nil {
		k.log.Error("keeper start round", zap.Error(err))
		return
	}
	k.log.Info("keeper started round", zap.Int64("epoch", ep.ID), zap.Time("lock_at", ep.LockAt))
}
