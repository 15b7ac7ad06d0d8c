package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skotchmaster/restaurant_admin/internal/config"
	"github.com/Skotchmaster/restaurant_admin/internal/events"
	"github.com/Skotchmaster/restaurant_admin/internal/httpserver"
	"github.com/Skotchmaster/restaurant_admin/internal/metrics"
	"github.com/Skotchmaster/restaurant_admin/internal/oauth"
	"github.com/Skotchmaster/restaurant_admin/internal/oauth/google"
	"github.com/Skotchmaster/restaurant_admin/internal/repo"
	"github.com/Skotchmaster/restaurant_admin/internal/service"
	"github.com/Skotchmaster/restaurant_admin/pkg/backend"
	"github.com/Skotchmaster/restaurant_admin/pkg/db"
	"github.com/Skotchmaster/restaurant_admin/pkg/logging"
	"github.com/Skotchmaster/restaurant_admin/pkg/middleware/csrf"
	"github.com/Skotchmaster/restaurant_admin/pkg/tokens"
)

const purgeInterval = 10 * time.Minute

type store struct {
	repo.Revocations
	migrate func(ctx context.Context) error
	close   func() error
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.RevocationStore {
	case config.StoreRedis:
		r := repo.NewRedisRepo(cfg.RedisAddr, cfg.RedisPassword)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return &store{
			Revocations: r,
			migrate:     func(context.Context) error { return nil },
			close:       r.Close,
		}, nil
	default:
		open := db.OpenSQLite
		dsn := cfg.SQLitePath
		if cfg.RevocationStore == config.StorePostgres {
			open, dsn = db.OpenPostgres, cfg.DatabaseURL
		}
		g, err := open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		r := repo.NewGormRepo(g)
		return &store{
			Revocations: r,
			migrate:     r.Migrate,
			close:       func() error { return db.Close(g) },
		}, nil
	}
}

func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

func newProviders(ctx context.Context, cfg *config.Config, l *slog.Logger) *oauth.Registry {
	var list []oauth.Provider
	if cfg.GoogleEnabled() {
		g, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			l.Error("oauth_provider_disabled", "provider", "google", "error", err)
		} else {
			list = append(list, g)
		}
	}
	return oauth.NewRegistry(list...)
}

func migrate(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	l := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := openStore(initCtx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if err := st.migrate(initCtx); err != nil {
		return err
	}
	l.Info("migrate_ok", "store", cfg.RevocationStore)
	return nil
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	l := logging.New(cfg.LogLevel)
	slog.SetDefault(l)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	st, err := openStore(initCtx, cfg)
	if err == nil {
		err = st.migrate(initCtx)
	}
	cancel()
	if err != nil {
		return fmt.Errorf("revocation store: %w", err)
	}
	defer func() {
		if err := st.close(); err != nil {
			l.Error("store_close_failed", "error", err)
		}
	}()

	sealer, err := tokens.NewSealer(cfg.AuthSecret, cfg.SessionMaxAge)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	pub := newPublisher(cfg)
	defer func() {
		if err := pub.Close(); err != nil {
			l.Error("kafka_close_failed", "error", err)
		}
	}()

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	target, err := client.ProxyTarget()
	if err != nil {
		return err
	}

	svc := &service.AuthService{API: client, Revoked: st, Events: pub, Metrics: m}
	sessions := &httpserver.Sessions{
		Sealer:  sealer,
		Revoked: st,
		Cookie:  cfg.SessionCookieName,
		Secure:  cfg.CookieSecure,
	}

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.CookieSecure

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 30 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	if err := httpserver.Register(e, &httpserver.Deps{
		Auth: &httpserver.AuthHTTP{
			Svc:       svc,
			Refresh:   &service.RefreshCoordinator{API: client, Events: pub, Metrics: m},
			Sessions:  sessions,
			LoginPath: cfg.LoginPath,
		},
		OAuth: &httpserver.OAuthHTTP{
			Svc:       svc,
			Providers: newProviders(ctx, cfg, l),
			Sessions:  sessions,
			LoginPath: cfg.LoginPath,
			HomePath:  "/",
		},
		APITarget:    target,
		APITransport: client.Transport(),
		CSRF:         csrfCfg,
		Logger:       l,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Ready:        st.Ping,
	}); err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go repo.RunPurge(runCtx, st, purgeInterval, l)

	go func() {
		l.Info("server_started", "addr", cfg.ListenAddr, "backend", cfg.BackendURL, "store", cfg.RevocationStore)
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("server_failed", "error", err)
			stop()
		}
	}()

	<-runCtx.Done()
	l.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		l.Error("server_shutdown_failed", "error", err)
	}
	l.Info("shutdown complete")
	return nil
}
