package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hoshinonyaruko/snake-classic/structs"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "game.db"), "snakeHighScore")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHighScoreEmpty(t *testing.T) {
	s := openTemp(t)
	hs, err := s.LoadHighScore()
	if err != nil || hs != 0 {
		t.Fatalf("expected 0, got %d (%v)", hs, err)
	}
}

func TestHighScoreNeverDecreases(t *testing.T) {
	s := openTemp(t)
	for _, score := range []int{30, 10, 50, 40} {
		if err := s.SaveHighScore(score); err != nil {
			t.Fatalf("save %d: %v", score, err)
		}
	}
	hs, err := s.LoadHighScore()
	if err != nil || hs != 50 {
		t.Fatalf("expected 50, got %d (%v)", hs, err)
	}
}

func TestHighScorePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.db")
	s, err := Open(path, "snakeHighScore")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveHighScore(70); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path, "snakeHighScore")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if hs, _ := s.LoadHighScore(); hs != 70 {
		t.Fatalf("expected 70 after reopen, got %d", hs)
	}
}

func TestRecordAndTopGames(t *testing.T) {
	s := openTemp(t)
	now := time.Now()
	recs := []structs.GameRecord{
		{ID: "a", Score: 20, Length: 3, Ticks: 40, EndedAt: now},
		{ID: "b", Score: 90, Length: 10, Ticks: 300, EndedAt: now.Add(time.Second)},
		{ID: "c", Score: 40, Length: 5, Ticks: 80, Won: true, EndedAt: now.Add(2 * time.Second)},
	}
	for _, r := range recs {
		if err := s.RecordGame(r); err != nil {
			t.Fatalf("record %s: %v", r.ID, err)
		}
	}

	top, err := s.TopGames(2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].ID != "b" || top[1].ID != "c" {
		t.Fatalf("unexpected order: %+v", top)
	}
	if !top[1].Won || top[1].Length != 5 {
		t.Fatalf("fields lost: %+v", top[1])
	}
	if hs, _ := s.LoadHighScore(); hs != 90 {
		t.Fatalf("recording should raise high score to 90, got %d", hs)
	}
}
