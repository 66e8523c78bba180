package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/they4kman/duelsweep/client"
	"github.com/they4kman/duelsweep/config"
	"github.com/they4kman/duelsweep/director/random"
	"github.com/they4kman/duelsweep/game"
	"github.com/they4kman/duelsweep/protocol"
)

var (
	botDelay time.Duration
	botSeed  int64
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Join a match as a computer player",
	Long: `bot connects to a duelsweep server and plays one match, revealing a
random unrevealed cell whenever it is its turn. Board dimensions must match
the server's.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v, configPath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		seed := botSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		return runBot(ctx, cfg, seed, newLogger(cfg.LogLevel))
	},
}

func runBot(ctx context.Context, cfg *config.Config, seed int64, log logrus.FieldLogger) error {
	match, err := client.NewMatch(cfg.GameConfig(), seed)
	if err != nil {
		return err
	}

	var director game.Director = &random.Director{}
	director.Init(match.Board)

	conn, err := client.Dial(ctx, cfg.Addr())
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	log = log.WithField("server", cfg.Addr())
	log.Info("connected, waiting for an opponent")

	awaitingOutcome := false
	for {
		msg, err := conn.Next()
		if err != nil {
			if match.Over || ctx.Err() != nil || errors.Is(err, io.EOF) && match.Disconnected {
				return nil
			}
			return errors.Wrap(err, "connection lost")
		}

		if err := match.Apply(msg); err != nil {
			return errors.Wrapf(err, "apply %s", msg.Raw)
		}

		switch msg.Kind() {
		case protocol.KindSetID:
			log = log.WithField("slot", match.ID)
		case protocol.KindGameStart:
			log.Info("match started")
		case protocol.KindLeftClick:
			awaitingOutcome = false
			x, y, _ := msg.Coords()
			player := game.NoPlayer
			if msg.Player != nil {
				player = *msg.Player
			}
			log.WithFields(logrus.Fields{
				"player":  player,
				"cell":    game.Pos{Row: x, Col: y}.String(),
				"outcome": msg.Outcome,
				"scores":  match.Scores,
			}).Info("reveal")
		case protocol.KindDisconnect:
			log.Info("opponent left, match abandoned")
			return nil
		}

		if match.Over {
			logResult(log, match)
			return nil
		}

		if !match.MyTurn() || awaitingOutcome {
			continue
		}

		pos, ok := director.Act()
		if !ok {
			return errors.New("no cells left to reveal")
		}

		select {
		case <-time.After(botDelay):
		case <-ctx.Done():
			return nil
		}

		if err := conn.Reveal(pos.Row, pos.Col); err != nil {
			return err
		}
		awaitingOutcome = true
	}
}

func logResult(log logrus.FieldLogger, match *client.Match) {
	fields := logrus.Fields{"scores": match.Scores}

	switch match.Winner {
	case game.NoPlayer:
		log.WithFields(fields).Info("match drawn")
	case match.ID:
		log.WithFields(fields).Info("match won")
	default:
		log.WithFields(fields).Info("match lost")
	}
}

func init() {
	botCmd.Flags().DurationVar(&botDelay, "delay", 500*time.Millisecond, "Time to wait before each move")
	botCmd.Flags().Int64Var(&botSeed, "seed", 0, "Seed for the bot's move order; 0 seeds from the clock")
}
