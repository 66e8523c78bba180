package config

import (
	"net"
	"strconv"
	"time"

	"github.com/they4kman/duelsweep/game"
)

// Config holds every setting of the server process
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	Rows  int `mapstructure:"rows"`
	Cols  int `mapstructure:"cols"`
	Mines int `mapstructure:"mines"`
	// 0 seeds boards from the clock
	Seed      int64  `mapstructure:"seed"`
	ScoreMode string `mapstructure:"score_mode"`

	// Terminate connections that violate the protocol instead of dropping the message
	Strict         bool          `mapstructure:"strict"`
	MaxMessageSize int           `mapstructure:"max_message_size"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	OutboundQueue  int           `mapstructure:"outbound_queue"`
	MessageRate    float64       `mapstructure:"message_rate"` // per second, 0 disables limiting
	MessageBurst   int           `mapstructure:"message_burst"`

	SnapshotDir string `mapstructure:"snapshot_dir"`
	LogLevel    string `mapstructure:"log_level"`
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// GameConfig returns the board settings. Call Validate first.
func (c *Config) GameConfig() game.GameConfig {
	scoreMode, _ := game.ParseScoreMode(c.ScoreMode)
	return game.GameConfig{
		Rows:              c.Rows,
		Cols:              c.Cols,
		NumMines:          c.Mines,
		ScoreMode:         scoreMode,
		SavedSnapshotsDir: c.SnapshotDir,
	}
}
