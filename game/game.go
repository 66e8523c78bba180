package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type GameConfig struct {
	Rows, Cols int
	NumMines   int
	ScoreMode  ScoreMode

	// Path to directory where final snapshots of boards should be saved
	SavedSnapshotsDir string
}

func NewGameConfig() GameConfig {
	return GameConfig{
		Rows:      DefaultRows,
		Cols:      DefaultCols,
		NumMines:  DefaultNumMines,
		ScoreMode: ScoreClicked,
	}
}

func (config GameConfig) Validate() error {
	return ValidateDimensions(config.Rows, config.Cols, config.NumMines)
}

func (config GameConfig) CreateBoard(seed int64) (*Board, error) {
	return NewBoard(config.Rows, config.Cols, config.NumMines, seed)
}

// SaveSnapshot writes the board's snapshot into SavedSnapshotsDir, returning
// the path written. Nothing is written if no directory is configured.
func (config GameConfig) SaveSnapshot(board *Board, abandoned bool, t time.Time) (string, error) {
	if config.SavedSnapshotsDir == "" {
		return "", nil
	}

	stat, err := os.Stat(config.SavedSnapshotsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", errors.Wrap(err, "stat snapshot dir")
		}
		if err := os.MkdirAll(config.SavedSnapshotsDir, 0777); err != nil {
			return "", errors.Wrap(err, "create snapshot dir")
		}
	} else if !stat.Mode().IsDir() {
		return "", errors.Errorf("%s is not a directory; cannot save snapshots to it", config.SavedSnapshotsDir)
	}

	serialized, err := board.Snapshot().Serialize()
	if err != nil {
		return "", err
	}

	path := filepath.Join(config.SavedSnapshotsDir, generateSnapshotFilename(board, abandoned, t))

	// Sessions ending within the same second get a nanosecond suffix
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if os.IsExist(err) {
		path = strings.TrimSuffix(path, ".yaml") + fmt.Sprintf("_%09d.yaml", t.Nanosecond())
		file, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	}
	if err != nil {
		return "", errors.Wrap(err, "create snapshot file")
	}
	defer file.Close()

	if _, err := file.WriteString(serialized); err != nil {
		return "", errors.Wrap(err, "write snapshot")
	}
	return path, nil
}

func generateSnapshotFilename(board *Board, abandoned bool, t time.Time) string {
	filenameBuilder := strings.Builder{}

	filenameBuilder.WriteString(t.Format("20060102_150405_"))

	var stateStr string
	switch {
	case abandoned:
		stateStr = "abandoned"
	case board.state == Won:
		stateStr = "win"
	case board.state == Lost:
		stateStr = "loss"
	default:
		stateStr = "other"
	}
	filenameBuilder.WriteString(stateStr)

	filenameBuilder.WriteString(".yaml")

	return filenameBuilder.String()
}
