// cmd/server/main.go
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaycrm/dispatch-backend/internal/config"
	"github.com/relaycrm/dispatch-backend/internal/controller"
	"github.com/relaycrm/dispatch-backend/internal/db"
	"github.com/relaycrm/dispatch-backend/internal/logging"
	"github.com/relaycrm/dispatch-backend/internal/observability"
	"github.com/relaycrm/dispatch-backend/internal/provider"
	"github.com/relaycrm/dispatch-backend/internal/queue"
	"github.com/relaycrm/dispatch-backend/internal/repository"
	"github.com/relaycrm/dispatch-backend/internal/service"
)

func main() {
	cfg := config.LoadServer()
	log := logging.New("server", cfg.LogLevel, cfg.LogFormat)

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

	reg := prometheus.NewRegistry()
	observability.Register(reg)

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

	dispatchController := &controller.DispatchController{
		Dispatcher:     dispatcher,
		Credentials:    credentials,
		HealthCheckURL: cfg.HealthCheckURL,
		Log:            log,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	dispatchController.Routes(r)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	log.Info().Str("port", cfg.Port).Msg("server running")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
