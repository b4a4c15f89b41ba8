package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vexelgames/polyrift/internal/charclient"
	"github.com/vexelgames/polyrift/internal/config"
	"github.com/vexelgames/polyrift/internal/game/combat"
	"github.com/vexelgames/polyrift/internal/game/dungeon"
	"github.com/vexelgames/polyrift/internal/game/progression"
	"github.com/vexelgames/polyrift/internal/game/weapon"
	"github.com/vexelgames/polyrift/internal/gameserver"
	"github.com/vexelgames/polyrift/internal/world"
)

const GameConfigPath = "config/gameserver.yaml"

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

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := GameConfigPath
	if p := os.Getenv("POLYRIFT_GS_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadGameServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("polyrift game server starting", "log_level", cfg.LogLevel, "addr", cfg.Addr())

	catalogue, err := weapon.LoadCatalogue(cfg.WeaponsPath)
	if err != nil {
		return fmt.Errorf("loading weapon catalogue: %w", err)
	}
	templates, err := dungeon.LoadTemplates(cfg.DungeonsPath)
	if err != nil {
		return fmt.Errorf("loading dungeon templates: %w", err)
	}

	state := world.NewState()
	clients := gameserver.NewClientManager(state)
	weapons := weapon.NewModel(catalogue)
	session := progression.NewSession(weapons)

	// A nil *Persistent must stay a nil interface inside the resolver.
	var persistent *progression.Persistent
	var track combat.PersistentTrack
	if cfg.CharacterServiceURL != "" {
		persistent = progression.NewPersistent(charclient.New(cfg.CharacterServiceURL))
		track = persistent
		slog.Info("character service wired", "url", cfg.CharacterServiceURL)
	} else {
		slog.Warn("no character service configured, progression will not persist")
	}

	resolver := combat.NewResolver(state, weapons, clients, session, track)

	dungeons, err := dungeon.NewManager(state, clients, templates)
	if err != nil {
		return fmt.Errorf("creating dungeon manager: %w", err)
	}
	resolver.SetRoomClearedFunc(dungeons.HandleRoomCleared)

	ticks := combat.NewTickManager(resolver, state)
	dungeons.SetScheduler(ticks)

	verifier, err := gameserver.NewTicketVerifier(cfg.TicketSecret)
	if err != nil {
		return fmt.Errorf("creating ticket verifier: %w", err)
	}

	gateway := gameserver.NewGateway(gameserver.Deps{
		Verifier:   verifier,
		State:      state,
		Clients:    clients,
		Weapons:    weapons,
		Session:    session,
		Persistent: persistent,
		Resolver:   resolver,
		Dungeons:   dungeons,
		Ticks:      ticks,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           gateway.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := ticks.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("combat tick manager: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting websocket gateway",
			"addr", cfg.Addr(),
			"weapons", len(weapons.Catalogue().Types()),
			"dungeons", len(dungeons.TemplateNames()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
