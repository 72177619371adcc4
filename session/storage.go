package session

import (
	"sort"
	"sync"

	"github.com/hoshinonyaruko/snake-classic/structs"
)

// Storage defines the interface for high score and game history persistence
type Storage interface {
	LoadHighScore() (int, error)
	SaveHighScore(score int) error
	RecordGame(rec structs.GameRecord) error
	TopGames(limit int) ([]structs.GameRecord, error)
	Close() error
}

// MemoryStore keeps everything in process. It is the fallback when the
// configured database is unavailable.
type MemoryStore struct {
	mu        sync.RWMutex
	highScore int
	games     []structs.GameRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) LoadHighScore() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.highScore, nil
}

func (m *MemoryStore) SaveHighScore(score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if score > m.highScore {
		m.highScore = score
	}
	return nil
}

func (m *MemoryStore) RecordGame(rec structs.GameRecord) error {
	m.mu.Lock()
	m.games = append(m.games, rec)
	m.mu.Unlock()
	return m.SaveHighScore(rec.Score)
}

// TopGames 按分数从高到低，同分时先结束的在前
func (m *MemoryStore) TopGames(limit int) ([]structs.GameRecord, error) {
	m.mu.RLock()
	games := make([]structs.GameRecord, len(m.games))
	copy(games, m.games)
	m.mu.RUnlock()

	sort.SliceStable(games, func(i, j int) bool {
		if games[i].Score != games[j].Score {
			return games[i].Score > games[j].Score
		}
		return games[i].EndedAt.Before(games[j].EndedAt)
	})
	if limit >= 0 && len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
