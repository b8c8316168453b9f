package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/DoyleJ11/party-queue/internal/host"
)

type Config struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Empty selects the in-memory store.
	DatabaseURL string `env:"DATABASE_URL"`

	// Empty disables chat ingestion.
	YouTubeAPIKey  string `env:"YOUTUBE_API_KEY"`
	YouTubeBaseURL string `env:"YOUTUBE_BASE_URL" envDefault:"https://www.googleapis.com/youtube/v3"`

	DefaultKeyword       string `env:"DEFAULT_KEYWORD" envDefault:"!参加"`
	DefaultPartySize     int    `env:"DEFAULT_PARTY_SIZE" envDefault:"5"`
	DefaultRotationWidth int    `env:"DEFAULT_ROTATION_WIDTH" envDefault:"1"`

	MinPollInterval time.Duration `env:"MIN_POLL_INTERVAL" envDefault:"1s"`
	PersistTimeout  time.Duration `env:"PERSIST_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file from the working directory, then the
// environment. Variables already set win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.DefaultSettings().Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultSettings are applied to newly created sessions.
func (c Config) DefaultSettings() host.Settings {
	return host.Settings{
		PartySize:        c.DefaultPartySize,
		RotationWidth:    c.DefaultRotationWidth,
		RegistrationMode: host.ModeDisabled,
	}
}
