package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/they4kman/duelsweep/config"
	"github.com/they4kman/duelsweep/game"
	"github.com/they4kman/duelsweep/server"
)

var (
	v          = viper.New()
	configPath string
	scoreMode  = game.ScoreClicked
)

var rootCmd = &cobra.Command{
	Use:   "duelsweep",
	Short: "Serve two-player Minesweeper matches",
	Long: `duelsweep pairs players, two at a time in order of arrival, into
Minesweeper matches played on a shared board with alternating turns.

Run with no arguments to serve on 127.0.0.1:12345
	duelsweep

Use the bot command to join a match as a computer player
	duelsweep bot
`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v, configPath)
		if err != nil {
			return err
		}

		log := newLogger(cfg.LogLevel)

		srv, err := server.New(cfg, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

type scoreModeValue game.ScoreMode

func newScoreModeValue(val game.ScoreMode, p *game.ScoreMode) *scoreModeValue {
	*p = val
	return (*scoreModeValue)(p)
}

func (modeVal *scoreModeValue) String() string {
	return game.ScoreMode(*modeVal).String()
}

func (modeVal *scoreModeValue) Set(value string) error {
	mode, err := game.ParseScoreMode(value)
	if err != nil {
		return err
	}
	*modeVal = scoreModeValue(mode)
	return nil
}

func (modeVal *scoreModeValue) Type() string {
	return "game.ScoreMode"
}

// bindFlags exposes flags to viper under their config keys
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func init() {
	defaults := config.Default()

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&configPath, "config", "", "Config file (default ./duelsweep.yaml or ./config/duelsweep.yaml, if present)")
	persistent.String("host", defaults.Host, "Host to listen on, or to connect to")
	persistent.IntP("port", "p", defaults.Port, "Port to listen on, or to connect to")
	persistent.IntP("rows", "r", defaults.Rows, "Rows of the game board, in cells")
	persistent.IntP("cols", "c", defaults.Cols, "Columns of the game board, in cells")
	persistent.IntP("mines", "m", defaults.Mines, "Number of mines to place in the game board")
	persistent.String("log-level", defaults.LogLevel, "Log level: debug, info, warn or error")
	bindFlags(persistent, map[string]string{
		"host":      "host",
		"port":      "port",
		"rows":      "rows",
		"cols":      "cols",
		"mines":     "mines",
		"log-level": "log_level",
	})

	flags := rootCmd.Flags()
	flags.Int64("seed", defaults.Seed, "Seed for mine placement; 0 seeds from the clock")
	flags.Var(newScoreModeValue(game.ScoreClicked, &scoreMode), "score-mode", `Score earned by a safe reveal.
clicked: the adjacent mine count of the clicked cell
cascade: the adjacent mine counts of every cell the reveal uncovered`)
	flags.Bool("strict", defaults.Strict, "Drop connections that send out-of-turn or otherwise invalid messages")
	flags.Int("max-message-size", defaults.MaxMessageSize, "Longest accepted message, in bytes")
	flags.Duration("idle-timeout", defaults.IdleTimeout, "Drop peers silent for this long; 0 waits forever")
	flags.Duration("write-timeout", defaults.WriteTimeout, "Drop peers that take longer than this to accept a message")
	flags.String("snapshot-dir", defaults.SnapshotDir, "Directory to save finished boards to")
	bindFlags(flags, map[string]string{
		"seed":             "seed",
		"score-mode":       "score_mode",
		"strict":           "strict",
		"max-message-size": "max_message_size",
		"idle-timeout":     "idle_timeout",
		"write-timeout":    "write_timeout",
		"snapshot-dir":     "snapshot_dir",
	})

	rootCmd.AddCommand(botCmd)
}
