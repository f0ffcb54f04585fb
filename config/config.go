package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	Env         string `env:"ENV" envDefault:"development"`
	Dsn         string `env:"DSN"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	MapboxAccessToken string        `env:"MAPBOX_ACCESS_TOKEN"`
	GeocodeTimeout    time.Duration `env:"GEOCODE_TIMEOUT" envDefault:"5s"`

	WebhookSecret     string   `env:"WEBHOOK_SECRET"`
	TrustedWebhookIPs []string `env:"TRUSTED_WEBHOOK_IPS" envSeparator:","`

	HighLevelWebhookURL string `env:"GHL_WEBHOOK_URL"`
}

func New() *Config {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		log.Printf("[Env]: unable to load .env file %v", loadErr)
	}

	var cfg Config

	if parseErr := env.Parse(&cfg); parseErr != nil {
		log.Printf("[Env]: failed to parse environment variables: %v", parseErr)
	}

	return &cfg
}
