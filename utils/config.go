// File: utils/config.go
package utils

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultHost      = "127.0.0.1"
	DefaultPort      = 53700
	DefaultJWTSecret = "secret"
	DefaultLuaFile   = "lua/game.lua"

	DefaultMinPlayers       = 2
	DefaultMaxPlayers       = 8
	DefaultLobbyWaitSeconds = 10
	DefaultTicksPerGame     = 60 * 3
	DefaultSecondsPerTick   = 1
)

// Config holds all server parameters. Values come from the environment
// (optionally seeded from .env files) with command-line flags overriding.
type Config struct {
	Host     string
	Port     int
	UseHTTPS bool
	KeyFile  string
	CertFile string

	JWTSecret string
	LuaFile   string

	MinPlayersNeeded  int
	MaxPlayersAllowed int
	LobbyWaitSeconds  int
	TicksPerGame      int
	SecondsPerTick    int

	Debug bool
}

// LoadEnvFiles loads ".env" into the current environment, plus
// ".env.development" when DEBUG is set. Missing files are fine.
func LoadEnvFiles() {
	_ = godotenv.Load()
	if parseBool(os.Getenv("DEBUG")) {
		_ = godotenv.Load(".env.development")
	}
}

// LoadConfig reads the configuration from the environment. Invalid or
// out-of-range values log a warning and fall back to the defaults.
func LoadConfig(log *slog.Logger) Config {
	cfg := Config{
		Host:              envString("HOST", DefaultHost),
		Port:              envInt(log, "PORT", DefaultPort),
		UseHTTPS:          parseBool(os.Getenv("USE_HTTPS")),
		KeyFile:           os.Getenv("KEY_FILE"),
		CertFile:          os.Getenv("CERT_FILE"),
		JWTSecret:         envString("JWT_SECRET", DefaultJWTSecret),
		LuaFile:           envString("LUA_FILE", DefaultLuaFile),
		MinPlayersNeeded:  envInt(log, "MIN_PLAYERS_NEEDED", DefaultMinPlayers),
		MaxPlayersAllowed: envInt(log, "MAX_PLAYERS_ALLOWED", DefaultMaxPlayers),
		LobbyWaitSeconds:  envInt(log, "LOBBY_WAIT_SECONDS", DefaultLobbyWaitSeconds),
		TicksPerGame:      envInt(log, "TICKS_PER_GAME", DefaultTicksPerGame),
		SecondsPerTick:    envInt(log, "SECONDS_PER_TICK", DefaultSecondsPerTick),
		Debug:             parseBool(os.Getenv("DEBUG")),
	}
	cfg.clampGameValues(log)
	return cfg
}

// BindFlags registers command-line overrides for every configuration
// value, defaulting to the already-loaded environment values.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Host, "host", c.Host, "host to run the server")
	fs.IntVar(&c.Port, "port", c.Port, "port to use for the server")
	fs.BoolVar(&c.UseHTTPS, "use-https", c.UseHTTPS, "enable HTTPS (requires -key-file and -cert-file)")
	fs.StringVar(&c.KeyFile, "key-file", c.KeyFile, "path to the TLS private key file")
	fs.StringVar(&c.CertFile, "cert-file", c.CertFile, "path to the TLS certificate chain file")
	fs.StringVar(&c.JWTSecret, "jwt-secret", c.JWTSecret, "JSON web token secret")
	fs.StringVar(&c.LuaFile, "lua-file", c.LuaFile, "Lua file containing the game engine code")
	fs.IntVar(&c.MinPlayersNeeded, "min-players-needed", c.MinPlayersNeeded, "minimum number of players required to start")
	fs.IntVar(&c.MaxPlayersAllowed, "max-players-allowed", c.MaxPlayersAllowed, "maximum number of players allowed to register")
	fs.IntVar(&c.LobbyWaitSeconds, "lobby-wait-seconds", c.LobbyWaitSeconds, "seconds to wait before starting once enough players registered")
	fs.IntVar(&c.TicksPerGame, "ticks-per-game", c.TicksPerGame, "number of ticks in a complete game")
	fs.IntVar(&c.SecondsPerTick, "seconds-per-tick", c.SecondsPerTick, "seconds between game engine ticks")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "enable debug output")
}

// Validate re-applies the bounds after flag parsing.
func (c *Config) Validate(log *slog.Logger) {
	c.clampGameValues(log)
}

func (c *Config) clampGameValues(log *slog.Logger) {
	if c.MinPlayersNeeded < 2 {
		log.Warn("MIN_PLAYERS_NEEDED cannot be less than 2, using minimum value",
			"got", c.MinPlayersNeeded, "using", 2)
		c.MinPlayersNeeded = 2
	}
	if c.MaxPlayersAllowed < c.MinPlayersNeeded {
		log.Warn("MAX_PLAYERS_ALLOWED cannot be less than MIN_PLAYERS_NEEDED, clamping up",
			"got", c.MaxPlayersAllowed, "using", c.MinPlayersNeeded)
		c.MaxPlayersAllowed = c.MinPlayersNeeded
	}
	if c.LobbyWaitSeconds < 1 {
		log.Warn("LOBBY_WAIT_SECONDS cannot be less than 1, using minimum value",
			"got", c.LobbyWaitSeconds, "using", 1)
		c.LobbyWaitSeconds = 1
	}
	if c.TicksPerGame < 30 {
		log.Warn("TICKS_PER_GAME cannot be less than 30, using minimum value",
			"got", c.TicksPerGame, "using", 30)
		c.TicksPerGame = 30
	}
	if c.SecondsPerTick < 1 {
		log.Warn("SECONDS_PER_TICK cannot be less than 1, using minimum value",
			"got", c.SecondsPerTick, "using", 1)
		c.SecondsPerTick = 1
	}
}

// Addr returns the host:port pair to bind.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TickInterval is the wall-clock length of one tick.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.SecondsPerTick) * time.Second
}

func envString(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(log *slog.Logger, name string, fallback int) int {
	input := os.Getenv(name)
	if input == "" {
		return fallback
	}
	value, err := strconv.Atoi(input)
	if err != nil {
		log.Warn("invalid integer value, using default",
			"variable", name, "got", input, "using", fallback)
		return fallback
	}
	return value
}

func parseBool(input string) bool {
	value, err := strconv.ParseBool(input)
	return err == nil && value
}
