package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	gateway "github.com/radieske/saltypredict/internal/api-gateway"
	"github.com/radieske/saltypredict/internal/shared/config"
	"github.com/radieske/saltypredict/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "api-gateway"
	}
	log := logger.Must(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	h, err := gateway.NewHandler(log, cfg.PredictURL, cfg.WalletURL)
	if err != nil {
		log.Fatal("gateway config", zap.Error(err))
	}

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	log.Info("api-gateway listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}
