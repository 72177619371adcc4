package postgres

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hoshinonyaruko/snake-classic/structs"
)

// 需要一个真实的数据库，没有设置 SNAKE_TEST_DATABASE_URL 时跳过
func openTest(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("SNAKE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SNAKE_TEST_DATABASE_URL not set")
	}
	// 每个测试用独立的键，避免互相影响
	s, err := Open(url, "test-"+uuid.NewString())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		s.db.Exec(`DELETE FROM high_scores WHERE name = $1`, s.key)
		s.Close()
	})
	return s
}

func TestHighScoreNeverDecreases(t *testing.T) {
	s := openTest(t)
	if hs, err := s.LoadHighScore(); err != nil || hs != 0 {
		t.Fatalf("expected empty high score, got %d (%v)", hs, err)
	}
	for _, score := range []int{30, 10, 50, 40} {
		if err := s.SaveHighScore(score); err != nil {
			t.Fatalf("save %d: %v", score, err)
		}
	}
	if hs, err := s.LoadHighScore(); err != nil || hs != 50 {
		t.Fatalf("expected 50, got %d (%v)", hs, err)
	}
}

func TestRecordGame(t *testing.T) {
	s := openTest(t)
	rec := structs.GameRecord{ID: uuid.NewString(), Score: 120, Length: 13, Ticks: 400, EndedAt: time.Now()}
	t.Cleanup(func() { s.db.Exec(`DELETE FROM games WHERE id = $1`, rec.ID) })

	if err := s.RecordGame(rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	if hs, _ := s.LoadHighScore(); hs != 120 {
		t.Fatalf("expected high score 120, got %d", hs)
	}
	top, err := s.TopGames(1000)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	found := false
	for _, r := range top {
		if r.ID == rec.ID && r.Score == 120 && r.Length == 13 {
			found = true
		}
	}
	if !found {
		t.Fatalf("recorded game %s not returned", rec.ID)
	}
}
