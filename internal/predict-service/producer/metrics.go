package producer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/saltypredict/internal/game"
	"github.com/radieske/saltypredict/pkg/contracts/events"
)

// GameMetrics agrupa os contadores do predict-service
type GameMetrics struct {
	Events        *prometheus.CounterVec
	StakedUnits   prometheus.Counter
	PaidUnits     prometheus.Counter
	TreasuryUnits prometheus.Counter
	PublishErrors prometheus.Counter
}

// NewGameMetrics cria e registra os contadores no registerer informado
func NewGameMetrics(reg prometheus.Registerer) *GameMetrics {
	m := &GameMetrics{
		Events:        prometheus.NewCounterVec(prometheus.CounterOpts{Name: "predict_game_events_total", Help: "eventos do jogo por tipo"}, []string{"type"}),
		StakedUnits:   prometheus.NewCounter(prometheus.CounterOpts{Name: "predict_staked_units_total", Help: "unidades apostadas"}),
		PaidUnits:     prometheus.NewCounter(prometheus.CounterOpts{Name: "predict_paid_units_total", Help: "unidades pagas em prêmios"}),
		TreasuryUnits: prometheus.NewCounter(prometheus.CounterOpts{Name: "predict_treasury_withdrawn_units_total", Help: "unidades sacadas da tesouraria"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{Name: "predict_publish_errors_total", Help: "falhas ao publicar no kafka"}),
	}
	reg.MustRegister(m.Events, m.StakedUnits, m.PaidUnits, m.TreasuryUnits, m.PublishErrors)
	return m
}

type observed struct {
	next game.Publisher
	m    *GameMetrics
}

// WithMetrics decora um publisher contando cada evento antes de repassá-lo
func WithMetrics(next game.Publisher, m *GameMetrics) game.Publisher {
	return &observed{next: next, m: m}
}

func (o *observed) PublishGameEvent(ctx context.Context, e events.GameEvent) error {
	o.m.Events.WithLabelValues(e.Type).Inc()
	switch e.Type {
	case events.TypeBetPlaced:
		o.m.StakedUnits.Add(float64(e.Amount))
	case events.TypeRewardsClaimed:
		o.m.PaidUnits.Add(float64(e.Amount))
	case events.TypeTreasuryClaimed:
		o.m.TreasuryUnits.Add(float64(e.Amount))
	}
	if err := o.next.PublishGameEvent(ctx, e); err != nil {
		o.m.PublishErrors.Inc()
		return err
	}
	return nil
}
