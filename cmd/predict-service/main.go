package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/saltypredict/internal/game"
	phttp "github.com/radieske/saltypredict/internal/predict-service/http"
	"github.com/radieske/saltypredict/internal/predict-service/keeper"
	"github.com/radieske/saltypredict/internal/predict-service/producer"
	"github.com/radieske/saltypredict/internal/predict-service/repo"
	"github.com/radieske/saltypredict/internal/predict-service/wallet"
	"github.com/radieske/saltypredict/internal/shared/config"
	"github.com/radieske/saltypredict/internal/shared/db"
	"github.com/radieske/saltypredict/internal/shared/kafka"
	"github.com/radieske/saltypredict/internal/shared/logger"
	"github.com/radieske/saltypredict/internal/shared/metrics"
	"github.com/radieske/saltypredict/pkg/units"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "predict-service"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres + schema do ledger
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg, repo.Schema); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}

	// Parâmetros do jogo
	if !common.IsHexAddress(cfg.AuthorityAddress) {
		log.Fatal("invalid AUTHORITY_ADDRESS", zap.String("value", cfg.AuthorityAddress))
	}
	authority := common.HexToAddress(cfg.AuthorityAddress)
	minStake, err := units.Parse(cfg.MinStake)
	if err != nil {
		log.Fatal("invalid MIN_STAKE", zap.String("value", cfg.MinStake), zap.Error(err))
	}
	if cfg.FeeBps < 0 || cfg.FeeBps > game.MaxFeeBps {
		log.Fatal("invalid FEE_BPS", zap.Int64("value", cfg.FeeBps))
	}
	params := game.Params{BetWindow: cfg.BetWindow, MinStake: minStake, FeeBps: cfg.FeeBps}
	if params.BetWindow <= 0 {
		params.BetWindow = game.DefaultBetWindow
	}

	// Kafka (topic game_events) com contadores prometheus
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicGameEvents)
	defer writer.Close()
	gm := producer.NewGameMetrics(prometheus.DefaultRegisterer)
	publ := producer.WithMetrics(producer.NewKafkaPublisher(writer, cfg.TopicGameEvents), gm)

	wcli := wallet.New(cfg.WalletURL)
	eng := game.NewEngine(repo.NewPostgres(pg), wcli, authority,
		game.WithParams(params),
		game.WithPublisher(publ),
		game.WithLogger(log),
	)

	// Keeper opcional: abre rodadas pelo cron
	var kp *keeper.Keeper
	if cfg.RoundSchedule != "" {
		kp, err = keeper.New(log, eng, authority, cfg.RoundSchedule)
		if err != nil {
			log.Fatal("invalid ROUND_SCHEDULE", zap.String("value", cfg.RoundSchedule), zap.Error(err))
		}
		kp.Start()
		log.Info("keeper scheduled", zap.String("schedule", cfg.RoundSchedule))
	}

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"pg": pingPG(pg),
	}, "pg")

	// HTTP público
	rl := phttp.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	rl.StartCleanup(time.Minute, ctx.Done())
	api := phttp.NewServer(log, eng, wcli, rl)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr),
			zap.String("authority", authority.Hex()),
			zap.Duration("bet_window", params.BetWindow),
			zap.Int64("fee_bps", params.FeeBps))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if kp != nil {
		kp.Stop()
	}
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}

func pingPG(pg *sql.DB) metrics.HealthFunc {
	return func(ctx context.Context) error { return pg.PingContext(ctx) }
}
