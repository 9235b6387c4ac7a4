package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memorygame/assets"
	"github.com/robalobadob/memorygame/internal/config"
	"github.com/robalobadob/memorygame/internal/db"
	"github.com/robalobadob/memorygame/internal/game"
	"github.com/robalobadob/memorygame/internal/httpserver"
	"github.com/robalobadob/memorygame/internal/leaderboard"
	"github.com/robalobadob/memorygame/internal/palette"
	"github.com/robalobadob/memorygame/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("bad configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	if err := db.Migrate(conn, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	var persist leaderboard.Persistence = leaderboard.NewSQLStore(conn)
	if cfg.LeaderboardBackend == config.BackendFile {
		persist = leaderboard.NewFileStore(cfg.LeaderboardFile)
	}
	lb := leaderboard.New(persist)
	lb.Load(ctx)

	colours, err := palette.Load(cfg.PaletteFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load palette")
	}
	gen := game.NewGenerator(colours, cfg.ImageSource)

	mem := store.NewMemoryStore()
	go store.RunSweeper(ctx, mem, cfg.SessionTTL, time.Minute)

	srv := httpserver.New(cfg, mem, conn, lb, gen)
	log.Info().
		Str("port", cfg.Port).
		Str("leaderboard", cfg.LeaderboardBackend).
		Msg("starting memory server")

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(cfg.Addr()) }()
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server exited")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	// requests first, then sessions, and the database last
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Msg("close database")
	}
}
