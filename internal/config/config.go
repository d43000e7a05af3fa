// internal/config/config.go
package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ProviderConfig holds the channel-provider endpoints and OAuth app secrets.
// Every binary that sends needs the full block: the server for synchronous
// sends and callbacks, the worker for queued sends, the scheduler's consumer
// for due dispatches.
type ProviderConfig struct {
	LinkedInClientID     string `envconfig:"LINKEDIN_CLIENT_ID"`
	LinkedInClientSecret string `envconfig:"LINKEDIN_CLIENT_SECRET"`
	LinkedInRedirectURL  string `envconfig:"LINKEDIN_REDIRECT_URL"`
	TwitterClientID      string `envconfig:"TWITTER_CLIENT_ID"`
	TwitterClientSecret  string `envconfig:"TWITTER_CLIENT_SECRET"`
	TwitterRedirectURL   string `envconfig:"TWITTER_REDIRECT_URL"`
	UnipileBaseURL       string `envconfig:"UNIPILE_BASE_URL"`
	UnipileAPIKey        string `envconfig:"UNIPILE_API_KEY"`
	UnipileRedirectURL   string `envconfig:"UNIPILE_REDIRECT_URL"`

	SMSGatewayURL   string `envconfig:"SMS_GATEWAY_URL"`
	WhatsAppBaseURL string `envconfig:"WHATSAPP_BASE_URL"`
	BlogBaseURL     string `envconfig:"BLOG_BASE_URL"`
}

type ServerConfig struct {
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	AMQPURL   string `envconfig:"AMQP_URL" required:"true"`
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	Providers ProviderConfig

	// Where provider callbacks redirect the operator after storing tokens.
	HealthCheckURL string `envconfig:"HEALTH_CHECK_URL" default:"/send-to-channels/health-check"`
}

type WorkerConfig struct {
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	AMQPURL   string `envconfig:"AMQP_URL" required:"true"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	Providers ProviderConfig

	ProviderRPS   float64 `envconfig:"PROVIDER_RPS" default:"5"`
	ProviderBurst int     `envconfig:"PROVIDER_BURST" default:"10"`
}

type SchedulerConfig struct {
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	AMQPURL   string `envconfig:"AMQP_URL" required:"true"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	Providers ProviderConfig

	// Cron spec for the lookahead tick.
	TickSpec string `envconfig:"SCHEDULER_TICK" default:"*/5 * * * *"`
}

// Load* read .env (when present) and the process environment. Missing required
// variables panic at startup, before any connection is opened.

func LoadServer() ServerConfig {
	_ = godotenv.Load()
	var cfg ServerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadWorker() WorkerConfig {
	_ = godotenv.Load()
	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadScheduler() SchedulerConfig {
	_ = godotenv.Load()
	var cfg SchedulerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
