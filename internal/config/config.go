package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port               int    `env:"PORT" envDefault:"8080"`
	DatabaseURL        string `env:"DATABASE_URL,required"`
	RedisURL           string `env:"REDIS_URL"`
	HWFProjectID       string `env:"HWF_PROJECT_ID,required"`
	HWFWebAPIKey       string `env:"HWF_WEB_API_KEY,required"`
	HWFRefreshToken    string `env:"HWF_REFRESH_TOKEN,required"`
	SlackBotToken      string `env:"SLACK_BOT_TOKEN,required"`
	SlackSigningSecret string `env:"SLACK_SIGNING_SECRET"`
	RelayIntervalSecs  int    `env:"RELAY_INTERVAL_SECONDS" envDefault:"60"`
	PollMaxWaitSecs    int    `env:"POLL_MAX_WAIT_SECONDS" envDefault:"300"`
	PollIntervalSecs   int    `env:"POLL_INTERVAL_SECONDS" envDefault:"10"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) RelayInterval() time.Duration {
	return time.Duration(c.RelayIntervalSecs) * time.Second
}

func (c *Config) PollMaxWait() time.Duration {
	return time.Duration(c.PollMaxWaitSecs) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.RelayIntervalSecs < 30 {
		return fmt.Errorf("RELAY_INTERVAL_SECONDS must be at least 30 to stay inside upstream rate limits")
	}
	if c.PollIntervalSecs <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}

	if isProduction && c.SlackSigningSecret == "" {
		log.Warn().Msg("SLACK_SIGNING_SECRET is empty in production: request signature verification disabled")
	}
	if isProduction && c.RedisURL == "" {
		log.Warn().Msg("REDIS_URL is empty in production: delivery cache and event dedup disabled")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
