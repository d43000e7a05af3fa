// cmd/worker/main.go
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/relaycrm/dispatch-backend/internal/config"
	"github.com/relaycrm/dispatch-backend/internal/db"
	"github.com/relaycrm/dispatch-backend/internal/logging"
	"github.com/relaycrm/dispatch-backend/internal/observability"
	"github.com/relaycrm/dispatch-backend/internal/provider"
	"github.com/relaycrm/dispatch-backend/internal/queue"
	"github.com/relaycrm/dispatch-backend/internal/repository"
	"github.com/relaycrm/dispatch-backend/internal/scheduler"
	"github.com/relaycrm/dispatch-backend/internal/service"
	"github.com/relaycrm/dispatch-backend/internal/worker"
)

func main() {
	cfg := config.LoadWorker()
	log := logging.New("worker", cfg.LogLevel, cfg.LogFormat)

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

	httpClient := &http.Client{Timeout: 30 * time.Second}
	providers := provider.NewSet(provider.SetConfig{
		HTTP:                 httpClient,
		LinkedInClientID:     cfg.Providers.LinkedInClientID,
		LinkedInClientSecret: cfg.Providers.LinkedInClientSecret,
		LinkedInRedirectURL:  cfg.Providers.LinkedInRedirectURL,
		TwitterClientID:      cfg.Providers.TwitterClientID,
		TwitterClientSecret:  cfg.Providers.TwitterClientSecret,
		TwitterRedirectURL:   cfg.Providers.TwitterRedirectURL,
		UnipileBaseURL:       cfg.Providers.UnipileBaseURL,
		UnipileAPIKey:        cfg.Providers.UnipileAPIKey,
		UnipileRedirectURL:   cfg.Providers.UnipileRedirectURL,
		SMSGatewayURL:        cfg.Providers.SMSGatewayURL,
		WhatsAppBaseURL:      cfg.Providers.WhatsAppBaseURL,
		BlogBaseURL:          cfg.Providers.BlogBaseURL,
	})

	contactRepo := &repository.ContactRepository{DB: database}
	compositionRepo := &repository.CompositionRepository{DB: database}
	credentialRepo := &repository.CredentialRepository{DB: database}
	scheduledRepo := &repository.ScheduledDispatchRepository{DB: database}
	eventRepo := &repository.EventRepository{DB: database}
	jobRepo := &repository.JobRepository{DB: database}

	credentials := &service.CredentialService{
		Credentials: credentialRepo,
		Providers:   providers,
		Log:         log,
	}
	resolver := &service.ResolverService{Contacts: contactRepo, Log: log}
	senders := service.NewSenders(service.SenderDeps{
		Resolver:     resolver,
		Renderer:     service.NewRenderer(compositionRepo),
		Compositions: compositionRepo,
		Events:       eventRepo,
		Credentials:  credentials,
		Providers:    providers,
		HTTP:         httpClient,
		Log:          log,
	})
	dispatcher := &service.DispatchService{
		Senders:      senders,
		Compositions: compositionRepo,
		Scheduled:    scheduledRepo,
		Jobs:         jobRepo,
		Queue:        broker,
		Log:          log,
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "channel-send",
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 10 },
	})
	processor := &worker.Processor{
		Dispatch:    dispatcher,
		Resolver:    resolver,
		Jobs:        jobRepo,
		Credentials: credentialRepo,
		Limiter:     rate.NewLimiter(rate.Limit(cfg.ProviderRPS), cfg.ProviderBurst),
		Breaker:     breaker,
		Log:         log,
	}
	delayed := &scheduler.Consumer{
		Scheduled:    scheduledRepo,
		Credentials:  credentialRepo,
		Orchestrator: dispatcher,
		Log:          log,
	}

	consumer := &worker.Consumer{Queue: broker, Proc: processor, Delayed: delayed, Log: log}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
	log.Info().Msg("worker shut down")
}
