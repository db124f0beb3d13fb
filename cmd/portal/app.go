package main

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-portal-client/auth"
	"github.com/jrsteele09/go-portal-client/gate"
	"github.com/jrsteele09/go-portal-client/internal/config"
	"github.com/jrsteele09/go-portal-client/portalapi"
	"github.com/jrsteele09/go-portal-client/sessions"
	"github.com/jrsteele09/go-portal-client/sessions/filestore"
	"github.com/jrsteele09/go-portal-client/sessions/memstore"
	"github.com/jrsteele09/go-portal-client/sessions/redisstore"
	"github.com/jrsteele09/go-portal-client/sessions/sqlitestore"
	"github.com/jrsteele09/go-portal-client/transport"
)

// app is one wired client: store, session controller, backend client and
// the flows built on them.
type app struct {
	config     config.Config
	logger     zerolog.Logger
	registry   *prometheus.Registry
	store      sessions.Store
	controller *auth.Controller
	api        *portalapi.Client
	flows      *auth.Flows
	gate       *gate.Gate
	closers    []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		gate:     gate.NewPortal(),
	}

	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = store
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.controller, err = auth.NewController(store,
		auth.WithLogger(logger),
		auth.WithStartupRetries(cfg.GetStartupRetries(), cfg.GetStartupRetryBackoff()),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	metrics, err := transport.NewMetrics(a.registry)
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "[newApp] transport.NewMetrics")
	}
	a.api, err = portalapi.New(cfg.GetAPIBaseURL(), a.controller,
		portalapi.WithTimeout(cfg.GetRequestTimeout()),
		portalapi.WithMetrics(metrics),
		portalapi.WithLogger(logger),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.flows, err = auth.NewFlows(a.controller, a.api)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// restore runs session startup and tells the user when a stored login was
// dropped.
func (a *app) restore(ctx context.Context, errOut io.Writer) (auth.StartupResult, error) {
	result, err := a.controller.Startup(ctx, a.api)
	if err != nil {
		return result, err
	}
	switch result.Outcome {
	case auth.OutcomeRejected:
		printf(errOut, "Your saved session has expired. Please log in again.\n")
	case auth.OutcomeTransportFailure:
		printf(errOut, "Could not reach the portal at %s; you have been logged out.\n", a.config.GetAPIBaseURL())
	}
	return result, nil
}

func (a *app) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// openStore picks the session store named by SESSION_STORE. The returned
// closer may be nil.
func openStore(ctx context.Context, cfg config.SessionConfig) (sessions.Store, func() error, error) {
	switch cfg.GetSessionStore() {
	case config.StoreMemory:
		return memstore.New(), nil, nil
	case config.StoreSQLite:
		store, err := sqlitestore.Open(ctx, cfg.GetSessionPath())
		if err != nil {
			return nil, nil, errors.Wrap(err, "[openStore] sqlitestore.Open")
		}
		return store, store.Close, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, errors.Wrapf(err, "[openStore] redis ping %s", cfg.GetRedisAddr())
		}
		store, err := redisstore.New(client, cfg.GetRedisKey())
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil
	default:
		store, err := filestore.New(cfg.GetSessionPath())
		if err != nil {
			return nil, nil, errors.Wrap(err, "[openStore] filestore.New")
		}
		return store, nil, nil
	}
}

// newLogger builds the process logger. DEV gets the coloured console
// writer, everything else JSON lines.
func newLogger(cfg config.EnvConfig, out io.Writer, quiet bool) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if quiet && level < zerolog.WarnLevel {
		level = zerolog.WarnLevel
	}

	w := out
	if cfg.GetEnv() == "DEV" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
