// Package api implements HTTP handlers and helpers for the trip scheduling service.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tripsched/internal/auth"
	"tripsched/internal/config"
	"tripsched/internal/distance"
	"tripsched/internal/metrics"
	"tripsched/internal/opt"
	"tripsched/internal/schedule"
	"tripsched/internal/store"
)

type Server struct {
	Store    store.Store
	Engine   *schedule.Engine
	Auth     *auth.Verifier
	Broker   EventBroker
	Log      *zap.Logger
	validate *validator.Validate
	closers  []func() error
}

// NewServer wires the store, distance sources, engine and broker from cfg. If no database URL
// is configured the in-memory store is used.
func NewServer(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{Log: log, Auth: auth.NewVerifier(cfg.Auth.Mode, cfg.Auth.HMACSecret), validate: newValidator()}

	if strings.TrimSpace(cfg.Database.URL) == "" {
		s.Store = store.NewMemory()
		log.Info("using in-memory store")
	} else {
		pg, err := store.NewPostgres(cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if cfg.Database.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				_ = pg.Close()
				return nil, err
			}
		}
		s.Store = pg
		s.closers = append(s.closers, pg.Close)
		log.Info("using postgres store", zap.Bool("migrated", cfg.Database.Migrate))
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		o, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rdb = redis.NewClient(o)
		s.closers = append(s.closers, rdb.Close)
	}
	if rdb != nil {
		s.Broker = NewRedisBroker(rdb, log)
	} else {
		s.Broker = NewBroker()
	}

	sc := cfg.Scheduling
	optimizer := &opt.Optimizer{
		Approximate:      distance.GreatCircle{SpeedKph: sc.AverageSpeedKph},
		TwoOptIterations: sc.TwoOptIterations,
		Log:              log,
	}
	if cfg.Distance.URL != "" {
		var src distance.Source = distance.NewHTTPSource(cfg.Distance.URL, cfg.Distance.APIKey, cfg.Distance.Timeout, cfg.Distance.RPS, cfg.Distance.Burst, log)
		if rdb != nil && cfg.Distance.CacheTTL > 0 {
			src = distance.NewRedisCache(src, rdb, cfg.Distance.CacheTTL, log)
		}
		optimizer.Precise = src
	}
	s.Engine = schedule.New(s.Store, optimizer, sc, log)
	return s, nil
}

// Close releases database and Redis connections.
func (s *Server) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Routes builds the HTTP handler with access logging and request metrics.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Scheduling operations
	mux.HandleFunc("/v1/schedule/generate", s.GenerateHandler)
	mux.HandleFunc("/v1/schedule/auto-assign", s.AutoAssignHandler)
	mux.HandleFunc("/v1/schedule/copy-week", s.CopyWeekHandler)
	mux.HandleFunc("/v1/schedule/board", s.BoardHandler)
	mux.HandleFunc("/v1/routes/optimize", s.OptimizeRouteHandler)
	mux.HandleFunc("/v1/routes/commit", s.CommitRouteHandler)

	// Directory and trip store
	mux.HandleFunc("/v1/schedule-entries", s.ScheduleEntriesHandler)
	mux.HandleFunc("/v1/drivers", s.DriversHandler)
	mux.HandleFunc("/v1/customers", s.CustomersHandler)
	mux.HandleFunc("/v1/trips", s.TripsHandler)

	// Live events
	mux.HandleFunc("/v1/events/ws", s.EventsWSHandler)

	// Health and metrics
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return s.accessLog(mux)
}
