package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestSnapshotRestoresPlayedBoard(t *testing.T) {
	board := boardFromRows(t, cornersBoard...)
	if _, err := board.ToggleFlag(3, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := board.Reveal(0, 1); err != nil {
		t.Fatal(err)
	}

	serialized, err := board.Snapshot().Serialize()
	if err != nil {
		t.Fatal(err)
	}
	snapshot, err := LoadSnapshot(serialized)
	if err != nil {
		t.Fatal(err)
	}

	expected := strings.Join([]string{"O.##", "####", "####", "###F"}, "\n")
	if snapshot.SerializedBoard != expected {
		t.Fatalf("expected board\n%s\ngot\n%s", expected, snapshot.SerializedBoard)
	}

	restored, err := snapshot.CreateBoard(false)
	if err != nil {
		t.Fatal(err)
	}
	if !restored.CellAt(0, 1).IsRevealed() || !restored.CellAt(3, 3).IsFlagged() {
		t.Fatal("expected revealed and flagged markers to be restored")
	}
	if restored.NumRevealed() != 1 || restored.RemainingMines() != 1 {
		t.Fatalf("unexpected counters: %d revealed, %d remaining", restored.NumRevealed(), restored.RemainingMines())
	}
	if restored.CellAt(1, 1).NumMines() != 1 {
		t.Fatal("expected adjacency counts to be recomputed")
	}
}

func TestSnapshotLosingMine(t *testing.T) {
	board := boardFromRows(t, cornersBoard...)
	if _, err := board.Reveal(3, 3); err != nil {
		t.Fatal(err)
	}

	restored, err := board.Snapshot().CreateBoard(false)
	if err != nil {
		t.Fatal(err)
	}
	if restored.State() != Lost {
		t.Fatalf("expected lost board, got %v", restored.State())
	}

	fresh, err := board.Snapshot().CreateBoard(true)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.State() != Ongoing || fresh.CellAt(3, 3).IsRevealed() {
		t.Fatal("expected fresh board to be unplayed")
	}
}

func TestSnapshotInvalid(t *testing.T) {
	for _, board := range []string{"", "#x", "##\n#"} {
		snapshot := &BoardSnapshot{SerializedBoard: board}
		if _, err := snapshot.CreateBoard(true); !errors.Is(err, ErrInvalidSnapshot) {
			t.Errorf("%q: expected ErrInvalidSnapshot, got %v", board, err)
		}
	}
}

func TestSaveSnapshot(t *testing.T) {
	config := NewGameConfig()
	board := boardFromRows(t, cornersBoard...)
	if _, err := board.Reveal(0, 3); err != nil {
		t.Fatal(err)
	}

	path, err := config.SaveSnapshot(board, false, time.Now())
	if err != nil || path != "" {
		t.Fatalf("expected nothing saved without a directory, got %q, %v", path, err)
	}

	config.SavedSnapshotsDir = filepath.Join(t.TempDir(), "snapshots")
	now := time.Date(2024, 3, 1, 12, 30, 0, 42, time.UTC)

	path, err = config.SaveSnapshot(board, false, now)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "20240301_123000_win.yaml" {
		t.Fatalf("unexpected filename %s", path)
	}

	second, err := config.SaveSnapshot(board, true, now)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(second) != "20240301_123000_abandoned.yaml" {
		t.Fatalf("unexpected filename %s", second)
	}

	third, err := config.SaveSnapshot(board, false, now)
	if err != nil {
		t.Fatal(err)
	}
	if third == path {
		t.Fatal("expected a distinct file for a duplicate name")
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	snapshot, err := LoadSnapshot(string(contents))
	if err != nil {
		t.Fatal(err)
	}
	if snapshot.Seed != board.Seed() || !strings.HasPrefix(snapshot.SerializedBoard, "O...") {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}
