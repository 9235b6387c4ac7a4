// Command memory-tui plays the memory grid game in a terminal.
//
// The game runs in-process against a local controller; scores go to a JSON
// leaderboard file in the same format the server's file backend uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memorygame/internal/config"
	"github.com/robalobadob/memorygame/internal/controller"
	"github.com/robalobadob/memorygame/internal/game"
	"github.com/robalobadob/memorygame/internal/leaderboard"
	"github.com/robalobadob/memorygame/internal/palette"
	"github.com/robalobadob/memorygame/internal/tone"
)

func main() {
	var (
		diffFlag = flag.String("difficulty", "easy", "easy, medium or hard")
		lbPath   = flag.String("leaderboard", defaultLeaderboard(), "leaderboard JSON file")
		palPath  = flag.String("palette", "", "colour palette file (one #hex per line)")
		sound    = flag.Bool("sound", false, "play cell tones")
		dailyRun = flag.Bool("daily", false, "play today's shared board and sequence")
		logPath  = flag.String("log", "", "write debug logs to this file")
		salt     = flag.String("salt", config.DailySalt(), "daily seed salt (DAILY_SALT); must match the server's")
	)
	flag.Parse()

	if err := setupLog(*logPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	d, err := game.ParseDifficulty(*diffFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "difficulty %q: %v\n", *diffFlag, err)
		os.Exit(2)
	}
	colours, err := palette.Load(*palPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	lb := leaderboard.New(leaderboard.NewFileStore(*lbPath))
	lb.Load(context.Background())

	ctl := controller.New(lb, controller.WithGenerator(game.NewGenerator(colours, "")))
	defer ctl.Close()
	_ = ctl.ChangeDifficulty(d)

	var player *tone.Player
	if *sound {
		player = tone.NewPlayer()
		if err := player.Init(); err != nil {
			log.Warn().Err(err).Msg("audio unavailable")
			player = nil
		} else {
			defer player.Close()
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer screen.Fini()
	screen.EnableMouse()

	app := newUI(screen, ctl, player)
	app.daily = *dailyRun
	app.salt = *salt
	app.run()
}

func defaultLeaderboard() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "memorygame", "leaderboard.json")
	}
	return filepath.Join("data", "leaderboard.json")
}

// setupLog keeps the terminal clean: logs go to path, or nowhere.
func setupLog(path string) error {
	if path == "" {
		zerolog.SetGlobalLevel(zerolog.Disabled)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return nil
}
