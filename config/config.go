package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env            string `env:"ENVIRONMENT"`
	ServerPort     int    `env:"SERVER_PORT" envDefault:"8080"`
	DatabasePath   string `env:"DATABASE_PATH" envDefault:"reddalert.sqlite"`
	BasicAuthCreds string `env:"BASIC_AUTH_CREDS"`
	IngestAPIKey   string `env:"INGEST_API_KEY"`

	FeedBaseURL      string   `env:"FEED_BASE_URL" envDefault:"https://www.reddit.com"`
	Subreddits       []string `env:"SUBREDDITS" envSeparator:"," envDefault:"Catan,SettlersofCatan,CatanUniverse,Colonist,twosheep,boardgames,tabletopgaming"`
	PollIntervalMins int      `env:"POLL_INTERVAL_MINS" envDefault:"15"`
	FetchTimeoutSecs int      `env:"FETCH_TIMEOUT_SECS" envDefault:"20"`

	Push struct {
		GatewayURL  string `env:"PUSH_GATEWAY_URL"`
		APIKey      string `env:"PUSH_GATEWAY_API_KEY"`
		TimeoutSecs int    `env:"PUSH_TIMEOUT_SECS" envDefault:"15"`
	}
	Mailgun struct {
		Domain      string `env:"MAILGUN_DOMAIN"`
		APIKey      string `env:"MAILGUN_API_KEY"`
		SenderFrom  string `env:"MAILGUN_SENDER_FROM"`
		TimeoutSecs int    `env:"MAILGUN_TIMEOUT_SECS" envDefault:"15"`
	}

	log   *zap.Logger
	creds map[string]string
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg := &Config{log: log}
	env.Parse(cfg)

	creds, err := cfg.parseCreds()
	if err != nil {
		if cfg.Env != "production" {
			cfg.log.Sugar().Infof("%s (credentials will be set to default outside production)", err)
			creds = map[string]string{"testuser": "password"}
		} else {
			cfg.log.Sugar().Panic(err)
		}
	}
	cfg.creds = creds

	if cfg.IngestAPIKey == "" && cfg.Env == "production" {
		cfg.log.Sugar().Panic("INGEST_API_KEY envvar must be populated in production")
	}

	return cfg
}

// GetCreds maps user id -> password for the API's basic auth. The user id
// doubles as the opaque identity that owns subscriptions and statuses.
func (cfg *Config) GetCreds() map[string]string {
	return cfg.creds
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if cfg.BasicAuthCreds == "" {
		return nil, errors.New("BASIC_AUTH_CREDS envvar must be populated")
	}

	creds := strings.Split(cfg.BasicAuthCreds, ",")
	if len(creds) == 0 {
		return nil, errors.New("BASIC_AUTH_CREDS envvar should be filled with comma-separated values -- user1:pass1,user2:pass2")
	}

	result := make(map[string]string)
	for _, cred := range creds {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}
