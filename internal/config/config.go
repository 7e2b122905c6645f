package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the board server.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Replay   ReplayConfig   `mapstructure:"replay"`
}

// ServerConfig holds the websocket listener settings.
type ServerConfig struct {
	Address           string        `mapstructure:"address"`
	LobbyPasswordHash string        `mapstructure:"lobby_password_hash"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// GameConfig holds turn-engine timing knobs.
type GameConfig struct {
	// BroadcastDelay batches rapid successive transitions into one
	// state broadcast.
	BroadcastDelay time.Duration `mapstructure:"broadcast_delay"`
	TurnTimer      time.Duration `mapstructure:"turn_timer"`
	ModalTimeout   time.Duration `mapstructure:"modal_timeout"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds the Postgres connection settings for the
// saved-game store.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// ReplayConfig controls transition-snapshot recording.
type ReplayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// Load reads configuration from the given YAML file, applying defaults
// and BOARD_* environment overrides (e.g. BOARD_SERVER_ADDRESS).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8089")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.heartbeat_interval", 2*time.Second)
	v.SetDefault("game.broadcast_delay", 150*time.Millisecond)
	v.SetDefault("game.turn_timer", 60*time.Second)
	v.SetDefault("game.modal_timeout", 30*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.max_conns", 8)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.connect_timeout", 5*time.Second)
	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.dir", "replays")

	v.SetEnvPrefix("BOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A missing file means defaults plus environment; anything
			// else (unreadable, malformed) is fatal.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Game.BroadcastDelay < 0 {
		return fmt.Errorf("game.broadcast_delay must not be negative")
	}
	if c.Game.TurnTimer <= 0 {
		return fmt.Errorf("game.turn_timer must be positive")
	}
	return nil
}
