package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ParcelBox/config"
	"github.com/BearBump/ParcelBox/internal/cache/redisstatus"
	"github.com/BearBump/ParcelBox/internal/carriers"
	"github.com/BearBump/ParcelBox/internal/integrations/tracking"
	"github.com/BearBump/ParcelBox/internal/integrations/tracking/fake"
	"github.com/BearBump/ParcelBox/internal/integrations/tracking/relayhttp"
	"github.com/BearBump/ParcelBox/internal/services/parcels"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.ParcelBox.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	statusTTL := time.Duration(cfg.ParcelBox.StatusTTLSeconds) * time.Second
	if statusTTL <= 0 {
		statusTTL = 5 * time.Minute
	}
	autoComplete := time.Duration(cfg.ParcelBox.AutoCompleteDays) * 24 * time.Hour
	if autoComplete <= 0 {
		autoComplete = 7 * 24 * time.Hour
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st, err := pgparcels.New(connString)
	if err != nil {
		panic(err)
	}
	defer st.Close()

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	sc := redisstatus.New(redisAddr, statusTTL)
	rl := redisstatus.NewRateLimiter(redisAddr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry := carriers.NewRegistry()
	client := newTrackingClient(ctx, cfg)

	svc := parcels.New(st, sc, registry, client).
		WithSettings(autoComplete, cfg.ParcelBox.RetentionMonths, cfg.ParcelBox.RefreshConcurrency, int64(cfg.ParcelBox.RefreshRateLimitPerMinute)).
		WithRateLimiter(rl)

	// Retention-проход — разовый, на старте; фонового процесса нет.
	if n, err := svc.Sweep(ctx); err != nil {
		slog.Error("retention sweep failed", "error", err.Error())
	} else if n > 0 {
		slog.Info("retention sweep done", "removed", n)
	}

	if err := runServer(ctx, serverOpts{httpAddr: httpAddr}, svc); err != nil && err != context.Canceled {
		panic(err)
	}
}

func newTrackingClient(ctx context.Context, cfg *config.Config) tracking.Client {
	if cfg.Relay.BaseURL == "" {
		slog.Info("no relay configured, using fake tracking client")
		return fake.New()
	}
	c := relayhttp.New(cfg.Relay.BaseURL)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if ok, err := c.Ping(pingCtx); err != nil || !ok {
		slog.Warn("tracking relay is not reachable, statuses will come back unavailable until it is",
			"base_url", cfg.Relay.BaseURL)
		return c
	}
	if caps, err := c.Capabilities(pingCtx); err == nil {
		slog.Info("tracking relay connected", "carriers", caps.Carriers, "features", caps.Features)
	}
	return c
}
