package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/they4kman/duelsweep/game"
	"github.com/they4kman/duelsweep/protocol"
)

const configName = "duelsweep"

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 12345)
	v.SetDefault("rows", game.DefaultRows)
	v.SetDefault("cols", game.DefaultCols)
	v.SetDefault("mines", game.DefaultNumMines)
	v.SetDefault("seed", 0)
	v.SetDefault("score_mode", game.ScoreClicked.String())
	v.SetDefault("strict", false)
	v.SetDefault("max_message_size", protocol.DefaultMaxMessageSize)
	v.SetDefault("idle_timeout", time.Duration(0))
	v.SetDefault("write_timeout", 10*time.Second)
	v.SetDefault("outbound_queue", 64)
	v.SetDefault("message_rate", 20.0)
	v.SetDefault("message_burst", 40)
	v.SetDefault("snapshot_dir", "")
	v.SetDefault("log_level", "info")
}

// Default returns the configuration with no file or flags applied
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(err)
	}
	return &config
}

// Load reads configuration into v and decodes it. If configPath is empty,
// duelsweep.yaml is looked up in the working directory and ./config, and
// may be absent. Flags bound to v take precedence over the file.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}

	if err := game.ValidateDimensions(c.Rows, c.Cols, c.Mines); err != nil {
		return errors.Wrap(err, "invalid board")
	}

	if _, err := game.ParseScoreMode(c.ScoreMode); err != nil {
		return err
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log level")
	}

	if c.MaxMessageSize <= 0 {
		return errors.Errorf("max_message_size must be positive, got %d", c.MaxMessageSize)
	}
	if c.OutboundQueue <= 0 {
		return errors.Errorf("outbound_queue must be positive, got %d", c.OutboundQueue)
	}
	if c.IdleTimeout < 0 || c.WriteTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}
	if c.MessageRate < 0 {
		return errors.New("message_rate cannot be negative")
	}
	if c.MessageRate > 0 && c.MessageBurst < 1 {
		return errors.Errorf("message_burst must be at least 1 when rate limiting, got %d", c.MessageBurst)
	}

	return nil
}
