// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/neexbeast/itinera/internal/budget"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	BearerToken string

	AmadeusClientID     string
	AmadeusClientSecret string
	AmadeusEnv          string
	FlightOrigin        string
	PriceCacheDuration  time.Duration

	GeminiAPIKey string

	FitSolver        string
	FitSolverTimeout time.Duration

	FreePlanLimit      int
	RateLimitPerMinute int
	MigrationsDir      string
	CORSOrigins        []string
}

// FlightsEnabled reports whether Amadeus credentials are present.
func (c Config) FlightsEnabled() bool {
	return c.AmadeusClientID != "" && c.AmadeusClientSecret != ""
}

var required = []string{"database_url", "redis_url", "bearer_token"}

func defaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("amadeus_env", "test")
	v.SetDefault("flight_origin", "CDG")
	v.SetDefault("price_cache_duration", 3600)
	v.SetDefault("fit_solver", budget.ModeAuto)
	v.SetDefault("fit_solver_timeout", "250ms")
	v.SetDefault("free_plan_limit", 20)
	v.SetDefault("rate_limit_per_minute", 60)
	v.SetDefault("migrations_dir", "migrations")
	v.SetDefault("cors_origins", "http://localhost:3000")
}

// Load reads envFile when it exists, then the process environment, which wins.
// An empty envFile skips the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)

	var missing []string
	for _, key := range required {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, strings.ToUpper(key))
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	cfg := Config{
		Port:                v.GetString("port"),
		DatabaseURL:         v.GetString("database_url"),
		RedisURL:            v.GetString("redis_url"),
		BearerToken:         v.GetString("bearer_token"),
		AmadeusClientID:     v.GetString("amadeus_client_id"),
		AmadeusClientSecret: v.GetString("amadeus_client_secret"),
		AmadeusEnv:          strings.ToLower(v.GetString("amadeus_env")),
		FlightOrigin:        strings.ToUpper(v.GetString("flight_origin")),
		PriceCacheDuration:  time.Duration(v.GetInt("price_cache_duration")) * time.Second,
		GeminiAPIKey:        v.GetString("gemini_api_key"),
		FitSolver:           strings.ToLower(v.GetString("fit_solver")),
		FitSolverTimeout:    v.GetDuration("fit_solver_timeout"),
		FreePlanLimit:       v.GetInt("free_plan_limit"),
		RateLimitPerMinute:  v.GetInt("rate_limit_per_minute"),
		MigrationsDir:       v.GetString("migrations_dir"),
		CORSOrigins:         splitList(v.GetString("cors_origins")),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.FitSolver {
	case budget.ModeAuto, budget.ModeExact, budget.ModeGreedy:
	default:
		return fmt.Errorf("FIT_SOLVER must be auto, exact or greedy, got %q", c.FitSolver)
	}
	if c.FitSolverTimeout <= 0 {
		return fmt.Errorf("FIT_SOLVER_TIMEOUT must be positive")
	}
	if c.PriceCacheDuration <= 0 {
		return fmt.Errorf("PRICE_CACHE_DURATION must be a positive number of seconds")
	}
	if c.FreePlanLimit < 0 {
		return fmt.Errorf("FREE_PLAN_LIMIT must not be negative")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if len(c.FlightOrigin) != 3 {
		return fmt.Errorf("FLIGHT_ORIGIN must be a 3-letter IATA code, got %q", c.FlightOrigin)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
