package api_test

import (
	"context"

	"github.com/persistorai/depthcue/internal/counterbalance"
	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/models"
)

// mockResultRepo implements api.ResultRepository for testing.
type mockResultRepo struct {
	saveFn func(ctx context.Context, r *models.TrialResult) (bool, error)
}

func (m *mockResultRepo) SaveTrial(ctx context.Context, r *models.TrialResult) (bool, error) {
	return m.saveFn(ctx, r)
}

// mockSurveyRepo implements api.SurveyRepository for testing.
type mockSurveyRepo struct {
	saveFn func(ctx context.Context, participantID string, r *models.SurveyResponse) error
}

func (m *mockSurveyRepo) SaveSurvey(ctx context.Context, participantID string, r *models.SurveyResponse) error {
	return m.saveFn(ctx, participantID, r)
}

// mockSessionRepo implements api.SessionRepository for testing.
type mockSessionRepo struct {
	completeFn func(ctx context.Context, d *models.ParticipantData) (*models.CompleteResult, error)
	resultsFn  func(ctx context.Context, participantID string) (*models.ParticipantData, error)
	listFn     func(ctx context.Context, limit int) ([]models.SessionSummary, error)
}

func (m *mockSessionRepo) Complete(ctx context.Context, d *models.ParticipantData) (*models.CompleteResult, error) {
	return m.completeFn(ctx, d)
}

func (m *mockSessionRepo) Results(ctx context.Context, participantID string) (*models.ParticipantData, error) {
	return m.resultsFn(ctx, participantID)
}

func (m *mockSessionRepo) ListSessions(ctx context.Context, limit int) ([]models.SessionSummary, error) {
	return m.listFn(ctx, limit)
}

// mockPlanSource implements api.PlanSource for testing.
type mockPlanSource struct {
	planFn func(participantID string) (*counterbalance.Plan, error)
}

func (m *mockPlanSource) Plan(participantID string) (*counterbalance.Plan, error) {
	return m.planFn(participantID)
}

// mockGraphSource implements api.GraphSource for testing.
type mockGraphSource struct {
	graphFn func(ctx context.Context, file string) (*graph.Graph, error)
}

func (m *mockGraphSource) Graph(ctx context.Context, file string) (*graph.Graph, error) {
	return m.graphFn(ctx, file)
}
