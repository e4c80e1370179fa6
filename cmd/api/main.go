package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/karuppiah-t/transfercore/internal/api"
	"github.com/karuppiah-t/transfercore/internal/config"
	"github.com/karuppiah-t/transfercore/internal/db"
	"github.com/karuppiah-t/transfercore/internal/domain"
	"github.com/karuppiah-t/transfercore/internal/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBSource)
	if err != nil {
		logger.Fatal("unable to connect to database", zap.Error(err))
	}
	defer pool.Close()

	accounts := db.NewAccountRepository(pool)
	ledger := db.NewLedgerRepository(pool)
	txManager := db.NewTransactionManager(pool, cfg.LockTimeout)

	var publisher domain.EventPublisher
	if cfg.AMQPURL != "" {
		p, err := events.NewPublisher(cfg.AMQPURL, cfg.EventExchange, cfg.EventRoute)
		if err != nil {
			logger.Fatal("unable to connect to broker", zap.Error(err))
		}
		defer p.Close()
		publisher = p
	} else {
		logger.Info("AMQP_URL not set, transfer notifications disabled")
	}

	orchestrator := domain.NewOrchestrator(accounts, ledger)
	supervisor := domain.NewSupervisor(orchestrator, txManager, publisher, logger)
	handler := api.NewHandler(supervisor, accounts, ledger, cfg.MaxRetries, logger)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler)
	handler.Register(r.PathPrefix("/api/v1").Subrouter())

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
