package store

import (
	"context"
	"fmt"

	"github.com/persistorai/depthcue/internal/models"
)

// SurveyStore persists post-task survey responses.
type SurveyStore struct {
	Base
}

// NewSurveyStore creates a new SurveyStore.
func NewSurveyStore(base Base) *SurveyStore {
	return &SurveyStore{Base: base}
}

// SaveSurvey inserts one response. A second response for the same task is
// rejected with models.ErrDuplicateKey.
func (s *SurveyStore) SaveSurvey(ctx context.Context, participantID string, r *models.SurveyResponse) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.Pool.Exec(ctx,
		`INSERT INTO experiment_surveys (participant_id, task, preferred_condition, timestamp)
		VALUES ($1, $2, $3, $4)`,
		participantID, string(r.Task), string(r.PreferredCondition), r.Timestamp,
	)
	if isUniqueViolation(err) {
		return models.ErrDuplicateKey
	}

	if err != nil {
		return fmt.Errorf("saving survey for %s: %w", participantID, err)
	}

	return nil
}

// ListSurveys returns a participant's responses in task order.
func (s *SurveyStore) ListSurveys(ctx context.Context, participantID string) ([]models.SurveyResponse, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT task, preferred_condition, timestamp FROM experiment_surveys
		WHERE participant_id = $1 ORDER BY task`,
		participantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing surveys for %s: %w", participantID, err)
	}
	defer rows.Close()

	out := []models.SurveyResponse{}

	for rows.Next() {
		var (
			r          models.SurveyResponse
			task, cond string
		)

		if err := rows.Scan(&task, &cond, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning survey: %w", err)
		}

		r.Task = models.TaskType(task)
		r.PreferredCondition = models.Condition(cond)
		out = append(out, r)
	}

	return out, rows.Err()
}
