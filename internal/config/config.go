package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds the service settings read from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"` // "" or local = console logs
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	DatasetPath string `env:"DATASET_PATH" envDefault:"bookings_master.xlsx"`

	MySQLDSN string `env:"MYSQL_DSN"` // mysql:// or mariadb:// URL, or a driver DSN

	BookingAPIURL      string        `env:"BOOKING_API_URL"`
	BookingAPIKey      string        `env:"BOOKING_API_KEY"`
	BookingAPITimeout  time.Duration `env:"BOOKING_API_TIMEOUT" envDefault:"12s"`
	BookingAPIMaxRetry time.Duration `env:"BOOKING_API_MAX_RETRY" envDefault:"45s"`

	BatchWorkers int `env:"BATCH_WORKERS" envDefault:"4"`
}

// Load reads the optional env files (".env" when none given) and parses Config.
// A missing env file is not an error.
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
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.BatchWorkers < 1 {
		cfg.BatchWorkers = 1
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP service.
func (c Config) Addr() string {
	return ":" + c.Port
}
