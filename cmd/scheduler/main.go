// cmd/scheduler/main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relaycrm/dispatch-backend/internal/config"
	"github.com/relaycrm/dispatch-backend/internal/db"
	"github.com/relaycrm/dispatch-backend/internal/logging"
	"github.com/relaycrm/dispatch-backend/internal/observability"
	"github.com/relaycrm/dispatch-backend/internal/queue"
	"github.com/relaycrm/dispatch-backend/internal/repository"
	"github.com/relaycrm/dispatch-backend/internal/scheduler"
)

func main() {
	cfg := config.LoadScheduler()
	log := logging.New("scheduler", cfg.LogLevel, cfg.LogFormat)

	database, err := db.Open(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("opening database failed")
	}
	defer database.Close()

	broker, err := queue.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to broker failed")
	}
	defer broker.Close()
	if err := broker.DeclareTopology(); err != nil {
		log.Fatal().Err(err).Msg("declaring broker topology failed")
	}

	observability.Register(prometheus.DefaultRegisterer)

	sched := &scheduler.Scheduler{
		Scheduled: &repository.ScheduledDispatchRepository{DB: database},
		Queue:     broker,
		Log:       log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sched.Run(ctx, cfg.TickSpec); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("scheduler stopped")
	}
	log.Info().Msg("scheduler shut down")
}
