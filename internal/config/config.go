// Package config loads service configuration from an optional YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type Config struct {
	Port       string     `yaml:"port"`
	Database   Database   `yaml:"database"`
	RedisURL   string     `yaml:"redisUrl"`
	Auth       Auth       `yaml:"auth"`
	Log        Log        `yaml:"log"`
	Scheduling Scheduling `yaml:"scheduling"`
	Distance   Distance   `yaml:"distance"`
}

type Database struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

type Auth struct {
	Mode       string `yaml:"mode"` // dev, hmac
	HMACSecret string `yaml:"hmacSecret"`
}

type Log struct {
	Development bool `yaml:"development"`
}

// Scheduling tunes the generator, detector, assigner and optimizer.
type Scheduling struct {
	AfternoonStartHour   int     `yaml:"afternoonStartHour"`
	TripDurationMin      int     `yaml:"tripDurationMin"`
	TurnaroundBufferMin  int     `yaml:"turnaroundBufferMin"`
	MaxTripsPerDriverDay int     `yaml:"maxTripsPerDriverDay"`
	MaxRangeDays         int     `yaml:"maxRangeDays"`
	AverageSpeedKph      float64 `yaml:"averageSpeedKph"`
	TwoOptIterations     int     `yaml:"twoOptIterations"`
}

// MinGap is the shortest allowed distance between two pickups of the same driver.
func (s Scheduling) MinGap() time.Duration {
	return time.Duration(s.TripDurationMin+s.TurnaroundBufferMin) * time.Minute
}

// Distance configures the precise (mapping service) distance source.
type Distance struct {
	URL      string        `yaml:"url"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
	RPS      float64       `yaml:"rps"`
	Burst    int           `yaml:"burst"`
	CacheTTL time.Duration `yaml:"cacheTtl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:     "8080",
		Database: Database{Migrate: true},
		Auth:     Auth{Mode: "dev"},
		Scheduling: Scheduling{
			AfternoonStartHour:  12,
			TripDurationMin:     40,
			TurnaroundBufferMin: 15,
			MaxRangeDays:        31,
			AverageSpeedKph:     40,
			TwoOptIterations:    2,
		},
		Distance: Distance{
			Timeout:  3 * time.Second,
			RPS:      5,
			Burst:    5,
			CacheTTL: 24 * time.Hour,
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// FromEnv loads the file named by CONFIG_FILE, if any.
func FromEnv() (Config, error) { return Load(os.Getenv("CONFIG_FILE")) }

func applyEnv(cfg *Config) {
	cfg.Port = envOr("PORT", cfg.Port)
	cfg.Database.URL = strings.TrimSpace(envOr("DATABASE_URL", cfg.Database.URL))
	if v := os.Getenv("DB_MIGRATE"); v != "" {
		cfg.Database.Migrate = v != "false"
	}
	cfg.RedisURL = envOr("REDIS_URL", cfg.RedisURL)
	cfg.Auth.Mode = strings.ToLower(envOr("AUTH_MODE", cfg.Auth.Mode))
	cfg.Auth.HMACSecret = envOr("AUTH_HMAC_SECRET", cfg.Auth.HMACSecret)
	if v := os.Getenv("LOG_DEVELOPMENT"); v != "" {
		cfg.Log.Development = v == "true" || v == "1"
	}
	cfg.Distance.URL = envOr("DISTANCE_URL", cfg.Distance.URL)
	cfg.Distance.APIKey = envOr("DISTANCE_API_KEY", cfg.Distance.APIKey)
	if n, ok := envInt("DISTANCE_TIMEOUT_MS"); ok && n > 0 {
		cfg.Distance.Timeout = time.Duration(n) * time.Millisecond
	}
	if v := os.Getenv("DISTANCE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Distance.RPS = f
		}
	}
	if n, ok := envInt("MAX_TRIPS_PER_DRIVER_DAY"); ok && n >= 0 {
		cfg.Scheduling.MaxTripsPerDriverDay = n
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	s := c.Scheduling
	if s.AfternoonStartHour < 1 || s.AfternoonStartHour > 23 {
		return fmt.Errorf("scheduling.afternoonStartHour must be in [1,23], got %d", s.AfternoonStartHour)
	}
	if s.TripDurationMin < 0 || s.TurnaroundBufferMin < 0 {
		return fmt.Errorf("scheduling trip duration and buffer must be >= 0")
	}
	if s.MaxTripsPerDriverDay < 0 {
		return fmt.Errorf("scheduling.maxTripsPerDriverDay must be >= 0")
	}
	if s.MaxRangeDays <= 0 {
		return fmt.Errorf("scheduling.maxRangeDays must be > 0")
	}
	if s.AverageSpeedKph <= 0 {
		return fmt.Errorf("scheduling.averageSpeedKph must be > 0")
	}
	if c.Distance.Timeout <= 0 {
		return fmt.Errorf("distance.timeout must be > 0")
	}
	switch c.Auth.Mode {
	case "dev":
	case "hmac":
		if c.Auth.HMACSecret == "" {
			return fmt.Errorf("auth.hmacSecret required for hmac mode")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Auth.Mode)
	}
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string) (int, bool) {
	v := os.Getenv(k)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
