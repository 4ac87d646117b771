package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/persistorai/depthcue/internal/api"
	"github.com/persistorai/depthcue/internal/models"
	"github.com/persistorai/depthcue/internal/ws"
)

func newTestRouter(t *testing.T, token string) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sessions := &mockSessionRepo{listFn: func(context.Context, int) ([]models.SessionSummary, error) {
		return []models.SessionSummary{}, nil
	}}
	results := &mockResultRepo{saveFn: func(context.Context, *models.TrialResult) (bool, error) {
		return true, nil
	}}

	return api.NewRouter(ctx, &api.RouterDeps{
		Log:           testLogger(),
		Hub:           ws.NewHub(testLogger()),
		Sessions:      sessions,
		Results:       results,
		CORSOrigins:   []string{"http://localhost:3000"},
		Version:       "test",
		OperatorToken: token,
	})
}

func TestRouter_OperatorRoutesNeedToken(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, "op-token")

	if w := doRequest(r, http.MethodGet, "/api/v1/participants", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("without token: expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/participants", http.NoBody)
	req.Header.Set("Authorization", "Bearer op-token")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("with token: expected 200, got %d", w.Code)
	}

	// Participant endpoints stay open.
	if w := doRequest(r, http.MethodPost, "/api/v1/trials", trialBody); w.Code != http.StatusCreated {
		t.Errorf("trial submit: expected 201, got %d", w.Code)
	}
}

func TestRouter_HealthMetricsAndHeaders(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, "")

	w := doRequest(r, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", w.Code)
	}

	if w.Header().Get("X-Request-ID") == "" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing standard headers: %v", w.Header())
	}

	if w := doRequest(r, http.MethodGet, "/metrics", ""); w.Code != http.StatusOK {
		t.Errorf("metrics: expected 200, got %d", w.Code)
	}

	if w := doRequest(r, http.MethodGet, "/api/v1/participants", ""); w.Code != http.StatusOK {
		t.Errorf("open operator routes without a token: expected 200, got %d", w.Code)
	}
}
