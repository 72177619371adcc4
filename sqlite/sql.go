package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/hoshinonyaruko/snake-classic/structs"
	_ "github.com/mattn/go-sqlite3"
)

const createHighScoresTableSQL = `
CREATE TABLE IF NOT EXISTS HighScores (
    Name TEXT PRIMARY KEY,
    Score INTEGER NOT NULL
);
`

const createGamesTableSQL = `
CREATE TABLE IF NOT EXISTS Games (
    ID TEXT PRIMARY KEY,
    Score INTEGER NOT NULL,
    Length INTEGER NOT NULL,
    Ticks INTEGER NOT NULL,
    Won INTEGER NOT NULL,
    EndedAt TIMESTAMP NOT NULL
);
`

const createGamesIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_games_score ON Games (Score DESC);
`

// 最高分只会变大
const upsertHighScoreSQL = `
INSERT INTO HighScores (Name, Score) VALUES (?, ?)
ON CONFLICT(Name) DO UPDATE SET Score = MAX(Score, excluded.Score);
`

// Store 把最高分和每局记录保存在 sqlite 文件里
type Store struct {
	db  *sql.DB
	key string
}

// Open opens (or creates) the database at path and makes sure the tables
// exist. key names the high score row.
func Open(path, key string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite 同一时间只允许一个写者
	db.SetMaxOpenConns(1)
	if err := InitializeDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, key: key}, nil
}

func executeSQL(db *sql.DB, sqlStatement string) error {
	_, err := db.Exec(sqlStatement)
	if err != nil {
		return fmt.Errorf("error executing SQL statement: %s: %w", sqlStatement, err)
	}
	return nil
}

func InitializeDatabase(db *sql.DB) error {
	for _, stmt := range []string{createHighScoresTableSQL, createGamesTableSQL, createGamesIndexSQL} {
		if err := executeSQL(db, stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadHighScore 没有记录时返回 0
func (s *Store) LoadHighScore() (int, error) {
	var score int
	err := s.db.QueryRow("SELECT Score FROM HighScores WHERE Name = ?", s.key).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load high score: %w", err)
	}
	return score, nil
}

func (s *Store) SaveHighScore(score int) error {
	if _, err := s.db.Exec(upsertHighScoreSQL, s.key, score); err != nil {
		return fmt.Errorf("save high score: %w", err)
	}
	return nil
}

// RecordGame 保存一局结束后的记录
func (s *Store) RecordGame(rec structs.GameRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Exec("INSERT OR REPLACE INTO Games (ID, Score, Length, Ticks, Won, EndedAt) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.Score, rec.Length, rec.Ticks, rec.Won, rec.EndedAt.UTC())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("record game %s: %w", rec.ID, err)
	}

	// 顺便更新最高分，防止引擎那边的保存失败
	_, err = tx.Exec(upsertHighScoreSQL, s.key, rec.Score)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("record game %s: %w", rec.ID, err)
	}

	// 提交事务
	return tx.Commit()
}

// TopGames 按分数从高到低返回前 limit 局
func (s *Store) TopGames(limit int) ([]structs.GameRecord, error) {
	rows, err := s.db.Query("SELECT ID, Score, Length, Ticks, Won, EndedAt FROM Games ORDER BY Score DESC, EndedAt ASC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("top games: %w", err)
	}
	defer rows.Close()

	var records []structs.GameRecord
	for rows.Next() {
		var rec structs.GameRecord
		var endedAt time.Time
		if err := rows.Scan(&rec.ID, &rec.Score, &rec.Length, &rec.Ticks, &rec.Won, &endedAt); err != nil {
			return nil, err
		}
		rec.EndedAt = endedAt
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	log.Println("Closing sqlite database...")
	return s.db.Close()
}
