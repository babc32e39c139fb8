package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/duskforge/revenant/internal/ai"
	"github.com/duskforge/revenant/internal/config"
	"github.com/duskforge/revenant/internal/data"
	"github.com/duskforge/revenant/internal/db"
	"github.com/duskforge/revenant/internal/model"
	"github.com/duskforge/revenant/internal/world"
)

const defaultConfigPath = "config/hordeserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		configPath = flag.String("config", defaultConfigPath, "path to YAML config")
		joinURL    = flag.String("join", "", "host websocket URL; empty runs as authoritative host")
		playerID   = flag.String("player", "player-1", "local player id")
	)
	flag.Parse()

	if p := os.Getenv("REVENANT_CONFIG"); p != "" && *configPath == defaultConfigPath {
		*configPath = p
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
	ai.EnableDebugLogging(logLevel == slog.LevelDebug)

	slog.Info("revenant enemy server starting",
		"log_level", cfg.LogLevel,
		"mode", mode(*joinURL))

	data.LoadArchetypes()

	registry := world.NewRegistry()
	terrain := world.RollingTerrain{Amplitude: 3, Wavelength: 40}
	player := model.NewSimplePlayer(*playerID, model.NewVec3(0, 0, 0), 100, 5)

	if *joinURL != "" {
		return runClient(ctx, cfg, registry, terrain, player, *joinURL)
	}
	return runHost(ctx, cfg, registry, terrain, player)
}

// openStore connects encounter persistence. Persistence is best-effort: an
// unreachable database degrades to in-memory operation with a warning.
func openStore(ctx context.Context, cfg config.Config) *db.Store {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	store, err := db.New(dialCtx, cfg.Database.DSN())
	if err != nil {
		slog.Warn("database unavailable, running without persistence", "error", err)
		return nil
	}
	if err := db.RunMigrations(dialCtx, cfg.Database.DSN()); err != nil {
		slog.Warn("migrations failed, running without persistence", "error", err)
		store.Close()
		return nil
	}
	slog.Info("database connected, migrations applied")
	return store
}

func serveHTTP(ctx context.Context, g *errgroup.Group, cfg config.Config, handler http.Handler) {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port),
		Handler: handler,
	}

	g.Go(func() error {
		slog.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func mode(joinURL string) string {
	if joinURL == "" {
		return "host"
	}
	return "client"
}
