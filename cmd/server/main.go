package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/boardfree/board-server-go/internal/board"
	"github.com/boardfree/board-server-go/internal/config"
	"github.com/boardfree/board-server-go/internal/game"
	"github.com/boardfree/board-server-go/internal/game/actions"
	"github.com/boardfree/board-server-go/internal/game/effects"
	"github.com/boardfree/board-server-go/internal/game/events"
	"github.com/boardfree/board-server-go/internal/repository"
	"github.com/boardfree/board-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	boardPath  = flag.String("board", "boards/default.json", "path to board definition file")
	playerSpec = flag.String("players", "p1:Player 1,p2:Player 2", "comma-separated id:name player list in turn order")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting board server",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.String("board", *boardPath),
	)

	if cfg.Server.LobbyPasswordHash == "" {
		logger.Warn("lobby password not configured; anyone can join")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	b, err := board.LoadFile(*boardPath)
	if err != nil {
		logger.Fatal("failed to load board", zap.Error(err))
	}
	logger.Info("board loaded",
		zap.String("name", b.Name),
		zap.Int("spaces", b.Size()),
	)

	players, err := parsePlayers(*playerSpec)
	if err != nil {
		logger.Fatal("failed to parse player list", zap.Error(err))
	}

	state, err := game.NewGameState(b, players, events.NewTriggerRegistry(), actions.NewRegistry())
	if err != nil {
		logger.Fatal("failed to create game state", zap.Error(err))
	}

	gameID := uuid.NewString()

	// The saved-game store is optional; a match server without Postgres
	// simply does not persist finished games.
	var store server.FinishedGameStore
	if cfg.Database.URL != "" {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)

		savedGames := repository.NewSavedGameRepository(db, logger)
		if err := savedGames.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to prepare schema", zap.Error(err))
		}
		store = savedGames
	}

	var recorder *game.ReplayRecorder
	if cfg.Replay.Enabled {
		recorder = game.NewReplayRecorder(logger, cfg.Replay.Dir)
		recorder.StartRecording(gameID)
		logger.Info("replay recording enabled", zap.String("dir", cfg.Replay.Dir))
	}

	broadcaster := server.NewBroadcaster(gameID, true, nil, recorder, store, logger)

	engine := game.NewEngine(game.Config{
		BroadcastDelay: cfg.Game.BroadcastDelay,
		TurnTimer:      cfg.Game.TurnTimer,
		ModalTimeout:   cfg.Game.ModalTimeout,
	}, state, effects.NewRegistry(), game.NewNullUI(), broadcaster, logger)

	hub := server.NewHub(cfg.Server, engine, logger)
	broadcaster.SetSink(hub)

	srv := server.New(cfg.Server, hub, logger)

	go func() {
		if serveErr := srv.Start(); serveErr != nil {
			logger.Error("websocket server error", zap.Error(serveErr))
		}
	}()

	engine.Start()

	logger.Info("board server initialized",
		zap.String("version", version),
		zap.String("game_id", gameID),
		zap.String("address", cfg.Server.Address),
		zap.Int("players", len(players)),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}

	engine.Stop()
	broadcaster.Stop()

	if recorder != nil {
		if err := recorder.SaveReplay(gameID); err != nil {
			logger.Warn("failed to save replay", zap.Error(err))
		}
	}

	logger.Info("board server stopped")
}

// parsePlayers reads an "id:name,id:name" list into players in turn
// order.
func parsePlayers(spec string) ([]*game.Player, error) {
	parts := strings.Split(spec, ",")
	players := make([]*game.Player, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, name, found := strings.Cut(part, ":")
		if !found || id == "" || name == "" {
			return nil, fmt.Errorf("invalid player spec %q, want id:name", part)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate player id %q", id)
		}
		seen[id] = struct{}{}
		players = append(players, game.NewPlayer(id, name, i))
	}

	if len(players) == 0 {
		return nil, fmt.Errorf("player list is empty")
	}
	return players, nil
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
