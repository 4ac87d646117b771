package api

import (
	"context"

	"github.com/persistorai/depthcue/internal/counterbalance"
	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/models"
)

// ResultRepository stores scored trial results. SaveTrial reports whether a
// new row was written; a repeated trial id is not an error.
type ResultRepository interface {
	SaveTrial(ctx context.Context, r *models.TrialResult) (bool, error)
}

// SurveyRepository stores post-task survey responses.
type SurveyRepository interface {
	SaveSurvey(ctx context.Context, participantID string, r *models.SurveyResponse) error
}

// SessionRepository finalises sessions and reads them back for operators.
type SessionRepository interface {
	Complete(ctx context.Context, d *models.ParticipantData) (*models.CompleteResult, error)
	Results(ctx context.Context, participantID string) (*models.ParticipantData, error)
	ListSessions(ctx context.Context, limit int) ([]models.SessionSummary, error)
}

// PlanSource builds a participant's trial plan.
type PlanSource interface {
	Plan(participantID string) (*counterbalance.Plan, error)
}

// GraphSource loads graph files referenced by trials.
type GraphSource interface {
	Graph(ctx context.Context, file string) (*graph.Graph, error)
}
