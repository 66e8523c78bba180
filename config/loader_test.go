package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/they4kman/duelsweep/game"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "duelsweep.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	config, err := Load(viper.New(), "")
	if err != nil {
		t.Fatal(err)
	}

	if config.Addr() != "127.0.0.1:12345" {
		t.Errorf("unexpected address %s", config.Addr())
	}
	if config.Rows != 9 || config.Cols != 9 || config.Mines != 10 {
		t.Errorf("unexpected board %dx%d/%d", config.Rows, config.Cols, config.Mines)
	}
	if config.WriteTimeout != 10*time.Second || config.IdleTimeout != 0 {
		t.Errorf("unexpected timeouts %v, %v", config.WriteTimeout, config.IdleTimeout)
	}
	if *config != *Default() {
		t.Errorf("expected Load without a file to match Default")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
port: 4000
rows: 16
cols: 30
mines: 99
score_mode: cascade
idle_timeout: 90s
strict: true
snapshot_dir: /tmp/boards
`)

	config, err := Load(viper.New(), path)
	if err != nil {
		t.Fatal(err)
	}

	if config.Port != 4000 || config.Rows != 16 || config.Cols != 30 || config.Mines != 99 {
		t.Errorf("unexpected config %+v", config)
	}
	if config.IdleTimeout != 90*time.Second || !config.Strict {
		t.Errorf("unexpected config %+v", config)
	}

	gameConfig := config.GameConfig()
	if gameConfig.ScoreMode != game.ScoreCascade || gameConfig.SavedSnapshotsDir != "/tmp/boards" {
		t.Errorf("unexpected game config %+v", gameConfig)
	}
}

func TestLoadOverride(t *testing.T) {
	path := writeConfig(t, "port: 4000\n")

	v := viper.New()
	v.Set("port", 5000)

	config, err := Load(v, path)
	if err != nil {
		t.Fatal(err)
	}
	if config.Port != 5000 {
		t.Errorf("expected override to win, got port %d", config.Port)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"too many mines": "mines: 80\n",
		"score mode":     "score_mode: everything\n",
		"log level":      "log_level: loud\n",
		"message size":   "max_message_size: 0\n",
		"queue":          "outbound_queue: 0\n",
		"port":           "port: 70000\n",
	}

	for name, contents := range tests {
		if _, err := Load(viper.New(), writeConfig(t, contents)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	_, err := Load(viper.New(), writeConfig(t, "mines: 80\n"))
	if !errors.Is(err, game.ErrTooManyMines) {
		t.Errorf("expected ErrTooManyMines, got %v", err)
	}

	if _, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}
