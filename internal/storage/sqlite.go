// Package storage provides SQLite-based persistence for play scores and
// training runs. Uses the pure-Go modernc.org/sqlite driver to avoid CGO
// dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Run statuses.
const (
	RunRunning   = "running"
	RunFinished  = "finished"
	RunCancelled = "cancelled"
	RunFailed    = "failed"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// ScoreEntry represents a single finished play session.
type ScoreEntry struct {
	ID        int64
	Player    string // "human" or a policy id
	Score     int
	Ticks     int
	CreatedAt time.Time
}

// TrainingRun describes one invocation of the trainer.
type TrainingRun struct {
	ID           int64
	RunID        string
	Seed         int64
	Episodes     int // Planned episodes
	HiddenSize   int
	LearningRate float64
	Gamma        float64
	BatchSize    int
	Difficulty   string
	Status       string
	BestScore    int
	TotalSteps   int
	StartedAt    time.Time
	FinishedAt   time.Time // Zero while running
}

// EpisodeRecord is the persisted summary of one training episode.
type EpisodeRecord struct {
	Episode   int
	Steps     int
	Reward    float64
	Score     int
	Epsilon   float64
	Loss      float64
	Truncated bool
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player TEXT NOT NULL,
			score INTEGER NOT NULL,
			ticks INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_scores_top ON scores(player, score DESC);

		CREATE TABLE IF NOT EXISTS training_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			seed INTEGER NOT NULL,
			episodes INTEGER NOT NULL,
			hidden_size INTEGER NOT NULL,
			learning_rate REAL NOT NULL,
			gamma REAL NOT NULL,
			batch_size INTEGER NOT NULL,
			difficulty TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			best_score INTEGER NOT NULL DEFAULT 0,
			total_steps INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS training_episodes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			episode INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			reward REAL NOT NULL,
			score INTEGER NOT NULL,
			epsilon REAL NOT NULL,
			loss REAL NOT NULL,
			truncated INTEGER NOT NULL DEFAULT 0,
			UNIQUE(run_id, episode)
		);
		CREATE INDEX IF NOT EXISTS idx_training_episodes_run ON training_episodes(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveScore records a finished play session.
// Returns the ID of the inserted record.
func (s *Store) SaveScore(player string, score, ticks int) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO scores (player, score, ticks) VALUES (?, ?, ?)",
		player, score, ticks,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save score: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// TopScores retrieves the top N scores for the given player.
// Results are ordered by score descending.
func (s *Store) TopScores(player string, limit int) ([]ScoreEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, player, score, ticks, created_at
		 FROM scores
		 WHERE player = ?
		 ORDER BY score DESC, id ASC
		 LIMIT ?`,
		player, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query scores: %w", err)
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		var createdAt any
		if err := rows.Scan(&e.ID, &e.Player, &e.Score, &e.Ticks, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// HighScore returns the highest score for the given player.
// Returns 0 if no scores exist.
func (s *Store) HighScore(player string) (int, error) {
	var score sql.NullInt64
	err := s.db.QueryRow(
		"SELECT MAX(score) FROM scores WHERE player = ?",
		player,
	).Scan(&score)

	if err != nil {
		return 0, fmt.Errorf("storage: cannot query high score: %w", err)
	}

	if !score.Valid {
		return 0, nil
	}

	return int(score.Int64), nil
}

// ClearScores deletes all scores for the given player.
func (s *Store) ClearScores(player string) error {
	_, err := s.db.Exec("DELETE FROM scores WHERE player = ?", player)
	if err != nil {
		return fmt.Errorf("storage: cannot clear scores: %w", err)
	}
	return nil
}

// CreateRun records the start of a training run. Status is forced to running.
func (s *Store) CreateRun(run TrainingRun) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO training_runs
		 (run_id, seed, episodes, hidden_size, learning_rate, gamma, batch_size, difficulty, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.Seed,
		run.Episodes,
		run.HiddenSize,
		run.LearningRate,
		run.Gamma,
		run.BatchSize,
		run.Difficulty,
		RunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot create run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// FinishRun stores the final status and totals of a run.
func (s *Store) FinishRun(runID, status string, bestScore, totalSteps int) error {
	res, err := s.db.Exec(
		`UPDATE training_runs
		 SET status = ?, best_score = ?, total_steps = ?, finished_at = CURRENT_TIMESTAMP
		 WHERE run_id = ?`,
		status, bestScore, totalSteps, runID,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("storage: unknown run %q", runID)
	}
	return nil
}

// SaveEpisode appends an episode summary to a run.
func (s *Store) SaveEpisode(runID string, ep EpisodeRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO training_episodes
		 (run_id, episode, steps, reward, score, epsilon, loss, truncated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		ep.Episode,
		ep.Steps,
		ep.Reward,
		ep.Score,
		ep.Epsilon,
		ep.Loss,
		ep.Truncated,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save episode: %w", err)
	}
	return nil
}

// RunEpisodes retrieves the episodes of a run in order.
func (s *Store) RunEpisodes(runID string) ([]EpisodeRecord, error) {
	rows, err := s.db.Query(
		`SELECT episode, steps, reward, score, epsilon, loss, truncated
		 FROM training_episodes
		 WHERE run_id = ?
		 ORDER BY episode ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query episodes: %w", err)
	}
	defer rows.Close()

	var eps []EpisodeRecord
	for rows.Next() {
		var ep EpisodeRecord
		if err := rows.Scan(&ep.Episode, &ep.Steps, &ep.Reward, &ep.Score, &ep.Epsilon, &ep.Loss, &ep.Truncated); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		eps = append(eps, ep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return eps, nil
}

const runColumns = `id, run_id, seed, episodes, hidden_size, learning_rate, gamma,
	batch_size, difficulty, status, best_score, total_steps, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (TrainingRun, error) {
	var r TrainingRun
	var startedAt, finishedAt any
	err := sc.Scan(
		&r.ID,
		&r.RunID,
		&r.Seed,
		&r.Episodes,
		&r.HiddenSize,
		&r.LearningRate,
		&r.Gamma,
		&r.BatchSize,
		&r.Difficulty,
		&r.Status,
		&r.BestScore,
		&r.TotalSteps,
		&startedAt,
		&finishedAt,
	)
	r.StartedAt = parseTime(startedAt)
	r.FinishedAt = parseTime(finishedAt)
	return r, err
}

// Run retrieves a training run by its run ID.
// Returns nil without error if the run does not exist.
func (s *Store) Run(runID string) (*TrainingRun, error) {
	r, err := scanRun(s.db.QueryRow(
		"SELECT "+runColumns+" FROM training_runs WHERE run_id = ?",
		runID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query run: %w", err)
	}
	return &r, nil
}

// ListRuns retrieves the most recent training runs, newest first.
func (s *Store) ListRuns(limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		"SELECT "+runColumns+" FROM training_runs ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query runs: %w", err)
	}
	defer rows.Close()

	var runs []TrainingRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return runs, nil
}

// parseTime handles both time.Time and string datetime values.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
