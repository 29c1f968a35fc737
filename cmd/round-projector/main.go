package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/saltypredict/internal/round-projector/cache"
	"github.com/radieske/saltypredict/internal/round-projector/consumer"
	"github.com/radieske/saltypredict/internal/round-projector/pubsub"
	"github.com/radieske/saltypredict/internal/round-projector/repository"
	sharedcache "github.com/radieske/saltypredict/internal/shared/cache"
	"github.com/radieske/saltypredict/internal/shared/config"
	"github.com/radieske/saltypredict/internal/shared/db"
	"github.com/radieske/saltypredict/internal/shared/kafka"
	"github.com/radieske/saltypredict/internal/shared/logger"
	"github.com/radieske/saltypredict/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "round-projector"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg, repository.Schema); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Consumer group do projector + DLQ para mensagens inválidas
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicGameEvents, cfg.ProjectorGroupID)
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicGameEventsDLQ)
	defer dlq.Close()

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "projector_messages_consumed_total", Help: "mensagens consumidas"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "projector_duplicates_total", Help: "mensagens reentregues ignoradas"})
	projected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "projector_events_projected_total", Help: "eventos projetados por tipo"}, []string{"type"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "projector_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, duplicates, projected, errorsBy)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		DLQ:         dlq,
		Events:      repository.NewPostgresLog(pg),
		Projection:  cache.NewProjection(cache.RedisStore{Client: redisClient}, 24*time.Hour),
		Broadcaster: pubsub.NewRedisBroadcaster(redisClient),
		OnConsumed:  func() { consumed.Inc() },
		OnDuplicate: func() { duplicates.Inc() },
		OnProjected: func(typ string) { projected.WithLabelValues(typ).Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"pg":    func(ctx context.Context) error { return pg.PingContext(ctx) },
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}, "pg", "redis")
	defer func() {
		shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("round-projector started", zap.String("topic", cfg.TopicGameEvents), zap.String("group", cfg.ProjectorGroupID))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("round-projector stopped")
}
