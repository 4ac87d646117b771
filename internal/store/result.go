package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/depthcue/internal/models"
)

const resultColumns = `subject_id, task, condition, axis_offset, graph_file, trial_id,
	node_pair_id, set_id, node1, node2, highlighted_nodes, answer, correct,
	reaction_time_ms, click_count, timestamp`

// ResultStore persists scored trial results.
type ResultStore struct {
	Base
}

// NewResultStore creates a new ResultStore.
func NewResultStore(base Base) *ResultStore {
	return &ResultStore{Base: base}
}

// SaveTrial inserts a result. A repeated (subject_id, trial_id) is ignored so
// resubmission is safe; created reports whether a row was written.
func (s *ResultStore) SaveTrial(ctx context.Context, r *models.TrialResult) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx, insertTrialSQL, trialArgs(r)...)
	if err != nil {
		return false, fmt.Errorf("saving trial %s for %s: %w", r.TrialID, r.SubjectID, err)
	}

	return tag.RowsAffected() == 1, nil
}

const insertTrialSQL = `INSERT INTO experiment_results (` + resultColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (subject_id, trial_id) DO NOTHING`

func trialArgs(r *models.TrialResult) []any {
	highlighted := r.HighlightedNodes
	if highlighted == nil {
		highlighted = []int{}
	}

	return []any{
		r.SubjectID, string(r.Task), string(r.Condition), int(r.AxisOffset), r.GraphFile, r.TrialID,
		r.NodePairID, r.SetID, r.Node1, r.Node2, highlighted, r.Answer, r.Correct,
		r.ReactionTimeMS, r.ClickCount, r.Timestamp,
	}
}

// ListTrials returns a participant's results in timestamp order.
func (s *ResultStore) ListTrials(ctx context.Context, participantID string, limit int) ([]models.TrialResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT `+resultColumns+` FROM experiment_results
		WHERE subject_id = $1 ORDER BY timestamp, id LIMIT $2`,
		participantID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing trials for %s: %w", participantID, err)
	}
	defer rows.Close()

	out := []models.TrialResult{}

	for rows.Next() {
		r, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trial: %w", err)
		}

		out = append(out, *r)
	}

	return out, rows.Err()
}

func scanTrial(row pgx.Row) (*models.TrialResult, error) {
	var (
		r          models.TrialResult
		task, cond string
		offset     int16
		setID      *int16
	)

	err := row.Scan(
		&r.SubjectID, &task, &cond, &offset, &r.GraphFile, &r.TrialID,
		&r.NodePairID, &setID, &r.Node1, &r.Node2, &r.HighlightedNodes, &r.Answer, &r.Correct,
		&r.ReactionTimeMS, &r.ClickCount, &r.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	r.Task = models.TaskType(task)
	r.Condition = models.Condition(cond)
	r.AxisOffset = models.AxisOffset(offset)

	if setID != nil {
		v := int(*setID)
		r.SetID = &v
	}

	return &r, nil
}
