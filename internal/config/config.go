// internal/config/config.go
//
// Environment configuration for the game server.
// Values come from the process environment; main loads a `.env` file first
// (godotenv) so development setups can keep them in one place.
//
// Every key has a default, so an empty environment yields a working
// development server on :5175 with SQLite under ./data.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robalobadob/memorygame/internal/daily"
	"github.com/robalobadob/memorygame/internal/timing"
)

// Leaderboard backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

const DevSecret = "dev_secret_change_me"

var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved server configuration.
type Config struct {
	Port     string
	LogLevel string

	DBPath             string
	LeaderboardBackend string
	LeaderboardFile    string

	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	AnonCookieName string
	ClientOrigin   string
	Production     bool // Secure + SameSite=None cookies

	SessionTTL  time.Duration
	DailySalt   string
	PaletteFile string
	ImageSource string

	Timings timing.Timings
}

// Load reads the environment.
func Load() (Config, error) {
	c := Config{
		Port:               getEnv("PORT", "5175"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DBPath:             getEnv("DB_PATH", "./data/app.db"),
		LeaderboardBackend: strings.ToLower(getEnv("LEADERBOARD_BACKEND", BackendSQLite)),
		LeaderboardFile:    getEnv("LEADERBOARD_FILE", "./data/leaderboard.json"),
		JWTSecret:          getEnv("JWT_SECRET", DevSecret),
		JWTExpiresDays:     envInt("JWT_EXPIRES_DAYS", 14),
		CookieName:         getEnv("COOKIE_NAME", "memory_token"),
		AnonCookieName:     getEnv("ANON_COOKIE_NAME", "memory_anon"),
		ClientOrigin:       getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:         getEnv("APP_ENV", os.Getenv("NODE_ENV")) == "production",
		SessionTTL:         envDuration("SESSION_TTL", 30*time.Minute),
		DailySalt:          DailySalt(),
		PaletteFile:        os.Getenv("PALETTE_FILE"),
		ImageSource:        os.Getenv("IMAGE_SOURCE"),
	}

	t := timing.DefaultTimings()
	t.LeadIn = envMillis("REVEAL_LEAD_IN_MS", t.LeadIn)
	t.RoundLeadIn = envMillis("REVEAL_ROUND_LEAD_IN_MS", t.RoundLeadIn)
	t.Interval = envMillis("REVEAL_INTERVAL_MS", t.Interval)
	t.Reveal = envMillis("REVEAL_SHOW_MS", t.Reveal)
	t.Handoff = envMillis("REVEAL_HANDOFF_MS", t.Handoff)
	t.Hint = envMillis("REVEAL_HINT_MS", t.Hint)
	t.ClickFlash = envMillis("REVEAL_FLASH_MS", t.ClickFlash)
	c.Timings = t

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects unknown backends, non-positive durations and bad timings.
func (c Config) Validate() error {
	switch c.LeaderboardBackend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("%w: LEADERBOARD_BACKEND %q", ErrInvalid, c.LeaderboardBackend)
	}
	if c.JWTExpiresDays <= 0 {
		return fmt.Errorf("%w: JWT_EXPIRES_DAYS must be positive", ErrInvalid)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESSION_TTL must be positive", ErrInvalid)
	}
	if c.ImageSource != "" && !validImageSource(c.ImageSource) {
		return fmt.Errorf("%w: IMAGE_SOURCE must contain exactly one %%d and no other verb", ErrInvalid)
	}
	if err := c.Timings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// validImageSource accepts a fmt template taking the cell id, the form
// game.DefaultImageSource has.
func validImageSource(src string) bool {
	return strings.Count(src, "%") == 1 && strings.Count(src, "%d") == 1
}

// DailySalt returns DAILY_SALT, or the shared default. The terminal client
// reads it here too so both hand out the same daily game.
func DailySalt() string { return getEnv("DAILY_SALT", daily.DefaultSalt) }

// Addr is the listen address.
func (c Config) Addr() string { return ":" + c.Port }

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses k as an integer; unparsable values fall back to def.
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envMillis(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}
