// Package backup keeps a durable local copy of every participant aggregate
// in a SQLite file, so results survive network failures.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/persistorai/depthcue/internal/models"
)

// Entry summarises one stored session.
type Entry struct {
	ParticipantID string    `json:"participant_id"`
	Trials        int       `json:"trials"`
	Completed     bool      `json:"completed"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store is a SQLite-backed participant store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the backup database at path. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening backup database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS participant_backups (
			participant_id TEXT PRIMARY KEY,
			data_json TEXT NOT NULL,
			trial_count INTEGER NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		);
	`)

	return err
}

// Save replaces the stored aggregate for its participant.
func (s *Store) Save(ctx context.Context, data *models.ParticipantData) error {
	if data.ParticipantID == "" {
		return models.ErrMissingParticipantID
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding participant data: %w", err)
	}

	completed := 0
	if data.Completed() {
		completed = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO participant_backups (participant_id, data_json, trial_count, completed, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(participant_id) DO UPDATE SET
			data_json = excluded.data_json,
			trial_count = excluded.trial_count,
			completed = excluded.completed,
			updated_at = excluded.updated_at
	`, data.ParticipantID, string(raw), len(data.Trials), completed, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("saving backup for %s: %w", data.ParticipantID, err)
	}

	return nil
}

// Load returns the stored aggregate, or models.ErrParticipantNotFound.
func (s *Store) Load(ctx context.Context, participantID string) (*models.ParticipantData, error) {
	var raw string

	err := s.db.QueryRowContext(ctx,
		`SELECT data_json FROM participant_backups WHERE participant_id = ?`, participantID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrParticipantNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("loading backup for %s: %w", participantID, err)
	}

	var data models.ParticipantData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decoding backup for %s: %w", participantID, err)
	}

	if data.TaskSurveys == nil {
		data.TaskSurveys = []models.SurveyResponse{}
	}

	return &data, nil
}

// List returns every stored session, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id, trial_count, completed, updated_at
		FROM participant_backups
		ORDER BY updated_at DESC, participant_id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	defer rows.Close()

	var out []Entry

	for rows.Next() {
		var (
			e         Entry
			completed int
			updated   int64
		)

		if err := rows.Scan(&e.ParticipantID, &e.Trials, &completed, &updated); err != nil {
			return nil, fmt.Errorf("scanning backup row: %w", err)
		}

		e.Completed = completed == 1
		e.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, e)
	}

	return out, rows.Err()
}

// Delete removes a participant's backup.
func (s *Store) Delete(ctx context.Context, participantID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM participant_backups WHERE participant_id = ?`, participantID)
	if err != nil {
		return fmt.Errorf("deleting backup for %s: %w", participantID, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrParticipantNotFound
	}

	return nil
}
