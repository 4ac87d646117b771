package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/models"
)

// SessionStore persists whole-session aggregates.
type SessionStore struct {
	Base
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(base Base) *SessionStore {
	return &SessionStore{Base: base}
}

// Complete stores the final aggregate and, in the same transaction, inserts
// any trial or survey whose individual submission never arrived.
func (s *SessionStore) Complete(ctx context.Context, d *models.ParticipantData) (*models.CompleteResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding aggregate: %w", err)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	_, err = tx.Exec(ctx, `
		INSERT INTO experiment_sessions (participant_id, start_time, end_time, trial_count, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (participant_id) DO UPDATE SET
			end_time = EXCLUDED.end_time,
			trial_count = EXCLUDED.trial_count,
			data = EXCLUDED.data,
			updated_at = now()`,
		d.ParticipantID, d.StartTime, d.EndTime, len(d.Trials), data,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting session %s: %w", d.ParticipantID, err)
	}

	res := &models.CompleteResult{}

	for i := range d.Trials {
		tag, err := tx.Exec(ctx, insertTrialSQL, trialArgs(&d.Trials[i])...)
		if err != nil {
			return nil, fmt.Errorf("backfilling trial %s: %w", d.Trials[i].TrialID, err)
		}

		res.TrialsBackfilled += int(tag.RowsAffected())
	}

	for _, sv := range d.TaskSurveys {
		tag, err := tx.Exec(ctx,
			`INSERT INTO experiment_surveys (participant_id, task, preferred_condition, timestamp)
			VALUES ($1, $2, $3, $4) ON CONFLICT (participant_id, task) DO NOTHING`,
			d.ParticipantID, string(sv.Task), string(sv.PreferredCondition), sv.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("backfilling survey %s: %w", sv.Task, err)
		}

		res.SurveysBackfilled += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing session %s: %w", d.ParticipantID, err)
	}

	if res.TrialsBackfilled > 0 || res.SurveysBackfilled > 0 {
		s.Log.WithFields(logrus.Fields{
			"participant_id": d.ParticipantID,
			"trials":         res.TrialsBackfilled,
			"surveys":        res.SurveysBackfilled,
		}).Warn("completion backfilled missing records")
	}

	return res, nil
}

// Results assembles everything stored for a participant from the result,
// survey and session tables.
func (s *SessionStore) Results(ctx context.Context, participantID string) (*models.ParticipantData, error) {
	trials, err := NewResultStore(s.Base).ListTrials(ctx, participantID, maxListLimit)
	if err != nil {
		return nil, err
	}

	surveys, err := NewSurveyStore(s.Base).ListSurveys(ctx, participantID)
	if err != nil {
		return nil, err
	}

	qctx, cancel := withTimeout(ctx)
	defer cancel()

	out := &models.ParticipantData{ParticipantID: participantID, Trials: trials, TaskSurveys: surveys}

	err = s.Pool.QueryRow(qctx,
		`SELECT start_time, end_time FROM experiment_sessions WHERE participant_id = $1`, participantID,
	).Scan(&out.StartTime, &out.EndTime)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if len(trials) == 0 && len(surveys) == 0 {
			return nil, models.ErrParticipantNotFound
		}

		if len(trials) > 0 {
			out.StartTime = trials[0].Timestamp
		}
	case err != nil:
		return nil, fmt.Errorf("reading session %s: %w", participantID, err)
	}

	return out, nil
}

// ListSessions returns completed and in-progress sessions, newest first.
func (s *SessionStore) ListSessions(ctx context.Context, limit int) ([]models.SessionSummary, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT participant_id, start_time, end_time, trial_count, updated_at
		FROM experiment_sessions ORDER BY updated_at DESC LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	out := []models.SessionSummary{}

	for rows.Next() {
		var ss models.SessionSummary
		if err := rows.Scan(&ss.ParticipantID, &ss.StartTime, &ss.EndTime, &ss.TrialCount, &ss.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}

		out = append(out, ss)
	}

	return out, rows.Err()
}
