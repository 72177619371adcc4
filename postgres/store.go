package postgres

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/hoshinonyaruko/snake-classic/structs"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Store handles high score and game history using PostgreSQL
type Store struct {
	db  *sql.DB
	key string
}

// Open connects to PostgreSQL and initializes the schema.
func Open(connectionString, key string) (*Store, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db, key: key}

	// Initialize the database schema
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema initializes the database schema
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS high_scores (
		name TEXT PRIMARY KEY,
		score INTEGER NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		score INTEGER NOT NULL,
		length INTEGER NOT NULL,
		ticks INTEGER NOT NULL,
		won BOOLEAN NOT NULL,
		ended_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_games_score ON games (score DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// LoadHighScore returns 0 when nothing was saved yet
func (s *Store) LoadHighScore() (int, error) {
	var score int
	err := s.db.QueryRow(`SELECT score FROM high_scores WHERE name = $1`, s.key).Scan(&score)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to load high score: %w", err)
	}
	return score, nil
}

// SaveHighScore only ever raises the stored value
func (s *Store) SaveHighScore(score int) error {
	query := `
	INSERT INTO high_scores (name, score)
	VALUES ($1, $2)
	ON CONFLICT (name)
	DO UPDATE SET
		score = GREATEST(high_scores.score, EXCLUDED.score),
		updated_at = NOW()
	`
	if _, err := s.db.Exec(query, s.key, score); err != nil {
		return fmt.Errorf("failed to save high score: %w", err)
	}
	return nil
}

// RecordGame saves a finished game
func (s *Store) RecordGame(rec structs.GameRecord) error {
	query := `
	INSERT INTO games (id, score, length, ticks, won, ended_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.Exec(query, rec.ID, rec.Score, rec.Length, rec.Ticks, rec.Won, rec.EndedAt); err != nil {
		return fmt.Errorf("failed to record game %s: %w", rec.ID, err)
	}
	return s.SaveHighScore(rec.Score)
}

// TopGames returns the best limit games, highest score first
func (s *Store) TopGames(limit int) ([]structs.GameRecord, error) {
	rows, err := s.db.Query(`SELECT id, score, length, ticks, won, ended_at FROM games ORDER BY score DESC, ended_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top games: %w", err)
	}
	defer rows.Close()

	var records []structs.GameRecord
	for rows.Next() {
		var rec structs.GameRecord
		if err := rows.Scan(&rec.ID, &rec.Score, &rec.Length, &rec.Ticks, &rec.Won, &rec.EndedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	log.Println("Closing database connection...")
	return s.db.Close()
}
